package types

import (
	"encoding/json"
	"time"
)

// Kind identifies a resource collection.
type Kind string

const (
	KindProject          Kind = "project"
	KindPortfolioItem    Kind = "portfolio_item"
	KindTestimonial      Kind = "testimonial"
	KindBlogPost         Kind = "blog_post"
	KindSpotifyTrack     Kind = "spotify_track"
	KindDownloadableItem Kind = "downloadable_item"
	KindYouTubeVideo     Kind = "youtube_video"
)

// Internal field names kept inside a resource document but managed by the
// server, not by client payloads.
const (
	FieldFileKey         = "file_key"
	FieldFileName        = "file_name"
	FieldFileContentType = "file_content_type"
	FieldDownloadURL     = "download_url"
)

// Resource is a schemaless document managed by a resource repository.
// Fields holds the entity's document body; which keys are required,
// optional or constrained is described by the entity's Schema.
type Resource struct {
	ID        int
	Kind      Kind
	Fields    map[string]any
	Approved  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MarshalJSON flattens the field map into the top-level object, the shape
// clients of the original collections expect. The object-storage key is
// internal and never serialized.
func (r Resource) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+4)
	for key, value := range r.Fields {
		if key == FieldFileKey {
			continue
		}
		out[key] = value
	}
	out["id"] = r.ID
	out["created_at"] = r.CreatedAt
	out["updated_at"] = r.UpdatedAt
	if SchemaFor(r.Kind).Moderated {
		out["approved"] = r.Approved
	}
	return json.Marshal(out)
}

// Range bounds a numeric field.
type Range struct {
	Min float64
	Max float64
}

// Schema describes one resource collection: which document fields must be
// present, which are allowed, and the invariants the store enforces.
type Schema struct {
	Kind     Kind
	Required []string
	Optional []string

	// Unique names a required field backed by a per-kind unique index.
	// Empty when the collection has no uniqueness invariant.
	Unique string

	// Enum restricts a field to a fixed set of values.
	Enum map[string][]string

	// Ranges bounds numeric fields.
	Ranges map[string]Range

	// Moderated collections carry an approved flag; new entries start
	// unapproved and public listings filter on it.
	Moderated bool
}

// Allowed reports the client-writable field set: required plus optional.
// Moderation and server-managed fields are deliberately absent, so a
// generic update can never flip approved or overwrite a stored file key.
func (s Schema) Allowed() map[string]bool {
	allowed := make(map[string]bool, len(s.Required)+len(s.Optional))
	for _, field := range s.Required {
		allowed[field] = true
	}
	for _, field := range s.Optional {
		allowed[field] = true
	}
	return allowed
}

var schemas = map[Kind]Schema{
	KindProject: {
		Kind:     KindProject,
		Required: []string{"title", "description"},
		Optional: []string{"image_url", "spotify_link", "youtube_link"},
	},
	KindPortfolioItem: {
		Kind:     KindPortfolioItem,
		Required: []string{"title", "description"},
		Optional: []string{"image_url", "spotify_link", "youtube_link"},
	},
	KindTestimonial: {
		Kind:      KindTestimonial,
		Required:  []string{"name", "rating", "comment"},
		Ranges:    map[string]Range{"rating": {Min: 1, Max: 5}},
		Moderated: true,
	},
	KindBlogPost: {
		Kind:      KindBlogPost,
		Required:  []string{"title", "content", "author"},
		Optional:  []string{"image_url"},
		Moderated: true,
	},
	KindSpotifyTrack: {
		Kind:     KindSpotifyTrack,
		Required: []string{"title", "artist", "spotify_id"},
		Optional: []string{"image_url"},
		Unique:   "spotify_id",
	},
	KindDownloadableItem: {
		Kind:     KindDownloadableItem,
		Required: []string{"title", "description", "type", FieldDownloadURL},
		Optional: []string{"image_url"},
		Enum:     map[string][]string{"type": {"pack", "acapella", "other"}},
	},
	KindYouTubeVideo: {
		Kind:     KindYouTubeVideo,
		Required: []string{"title", "type", "youtube_id"},
		Enum:     map[string][]string{"type": {"video", "playlist"}},
	},
}

// SchemaFor returns the schema registered for the kind.
func SchemaFor(kind Kind) Schema {
	return schemas[kind]
}
