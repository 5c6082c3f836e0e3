package services

import (
	"context"
	"sort"
	"testing"

	"github.com/cbr-records/apiserver/internal/store"
	"github.com/cbr-records/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResourceRepo struct {
	resources map[int]types.Resource
	nextID    int
}

func newFakeResourceRepo() *fakeResourceRepo {
	return &fakeResourceRepo{resources: make(map[int]types.Resource), nextID: 1}
}

func (r *fakeResourceRepo) List(_ context.Context, approvedOnly bool) ([]types.Resource, error) {
	out := make([]types.Resource, 0, len(r.resources))
	for _, resource := range r.resources {
		if approvedOnly && !resource.Approved {
			continue
		}
		out = append(out, resource)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *fakeResourceRepo) Get(_ context.Context, id int) (types.Resource, error) {
	resource, ok := r.resources[id]
	if !ok {
		return types.Resource{}, store.ErrNotFound
	}
	return resource, nil
}

func (r *fakeResourceRepo) Create(_ context.Context, resource types.Resource) (types.Resource, error) {
	resource.ID = r.nextID
	r.nextID++
	r.resources[resource.ID] = resource
	return resource, nil
}

func (r *fakeResourceRepo) Update(_ context.Context, resource types.Resource) (types.Resource, error) {
	if _, ok := r.resources[resource.ID]; !ok {
		return types.Resource{}, store.ErrNotFound
	}
	r.resources[resource.ID] = resource
	return resource, nil
}

func (r *fakeResourceRepo) SetApproved(_ context.Context, id int, approved bool) (types.Resource, error) {
	resource, ok := r.resources[id]
	if !ok {
		return types.Resource{}, store.ErrNotFound
	}
	resource.Approved = approved
	r.resources[id] = resource
	return resource, nil
}

func (r *fakeResourceRepo) Delete(_ context.Context, id int) error {
	if _, ok := r.resources[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.resources, id)
	return nil
}

func newTestService(kind types.Kind) (*ResourceService, *fakeResourceRepo) {
	repo := newFakeResourceRepo()
	return NewResourceService(repo, types.SchemaFor(kind), nil, nil), repo
}

func TestCreateMissingRequiredFields(t *testing.T) {
	svc, repo := newTestService(types.KindProject)

	_, err := svc.Create(context.Background(), map[string]any{"title": "Album"})
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Fields, "description")
	assert.Empty(t, repo.resources, "nothing persisted on validation failure")
}

func TestCreateTreatsEmptyStringAsMissing(t *testing.T) {
	svc, _ := newTestService(types.KindProject)

	_, err := svc.Create(context.Background(), map[string]any{
		"title":       "   ",
		"description": "mixed in our studio",
	})
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Fields, "title")
}

func TestCreateDropsUnknownFields(t *testing.T) {
	svc, _ := newTestService(types.KindProject)

	created, err := svc.Create(context.Background(), map[string]any{
		"title":       "Album",
		"description": "mixed in our studio",
		"rogue":       "dropped",
	})
	require.NoError(t, err)
	assert.NotContains(t, created.Fields, "rogue")
}

func TestTestimonialNeverAutoApproved(t *testing.T) {
	svc, _ := newTestService(types.KindTestimonial)

	created, err := svc.Create(context.Background(), map[string]any{
		"name":     "Ana",
		"rating":   float64(5),
		"comment":  "great mix",
		"approved": true,
	})
	require.NoError(t, err)
	assert.False(t, created.Approved, "submissions start unapproved whatever the payload claims")
	assert.NotContains(t, created.Fields, "approved")
}

func TestUpdateCannotFlipApproved(t *testing.T) {
	svc, repo := newTestService(types.KindTestimonial)
	ctx := context.Background()

	created, err := svc.Create(ctx, map[string]any{
		"name":    "Ana",
		"rating":  float64(4),
		"comment": "great mix",
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, map[string]any{
		"comment":  "even better",
		"approved": true,
	})
	require.NoError(t, err)
	assert.False(t, updated.Approved)
	assert.False(t, repo.resources[created.ID].Approved)
}

func TestUpdatePartialMergeRetainsFields(t *testing.T) {
	svc, _ := newTestService(types.KindProject)
	ctx := context.Background()

	created, err := svc.Create(ctx, map[string]any{
		"title":       "Album",
		"description": "mixed in our studio",
		"image_url":   "https://example.com/cover.png",
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, map[string]any{"title": "Album (Deluxe)"})
	require.NoError(t, err)
	assert.Equal(t, "Album (Deluxe)", updated.Fields["title"])
	assert.Equal(t, "mixed in our studio", updated.Fields["description"])
	assert.Equal(t, "https://example.com/cover.png", updated.Fields["image_url"])
}

func TestUpdateUnknownID(t *testing.T) {
	svc, _ := newTestService(types.KindProject)

	_, err := svc.Update(context.Background(), 99, map[string]any{"title": "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRatingRangeValidation(t *testing.T) {
	svc, _ := newTestService(types.KindTestimonial)
	ctx := context.Background()

	for _, rating := range []any{float64(0), float64(6), "five"} {
		_, err := svc.Create(ctx, map[string]any{
			"name":    "Ana",
			"rating":  rating,
			"comment": "great mix",
		})
		var validationErr *ValidationError
		assert.ErrorAs(t, err, &validationErr, "rating %v", rating)
	}

	_, err := svc.Create(ctx, map[string]any{
		"name":    "Ana",
		"rating":  float64(1),
		"comment": "great mix",
	})
	assert.NoError(t, err)
}

func TestDownloadTypeEnumValidation(t *testing.T) {
	svc, _ := newTestService(types.KindDownloadableItem)
	ctx := context.Background()

	_, err := svc.Create(ctx, map[string]any{
		"title":        "Drum kit",
		"description":  "808s",
		"type":         "bundle",
		"download_url": "https://example.com/kit.zip",
	})
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)

	_, err = svc.Create(ctx, map[string]any{
		"title":        "Drum kit",
		"description":  "808s",
		"type":         "pack",
		"download_url": "https://example.com/kit.zip",
	})
	assert.NoError(t, err)
}

func TestYouTubeVideoTypeEnumValidation(t *testing.T) {
	svc, _ := newTestService(types.KindYouTubeVideo)
	ctx := context.Background()

	_, err := svc.Create(ctx, map[string]any{
		"title":      "Studio session",
		"type":       "short",
		"youtube_id": "dQw4w9WgXcQ",
	})
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)

	for _, kind := range []string{"video", "playlist"} {
		_, err := svc.Create(ctx, map[string]any{
			"title":      "Studio session",
			"type":       kind,
			"youtube_id": "dQw4w9WgXcQ",
		})
		assert.NoError(t, err, "type %q", kind)
	}
}

func TestApproveIdempotent(t *testing.T) {
	svc, _ := newTestService(types.KindBlogPost)
	ctx := context.Background()

	created, err := svc.Create(ctx, map[string]any{
		"title":   "Studio diary",
		"content": "week one",
		"author":  "cbr",
	})
	require.NoError(t, err)

	first, err := svc.Approve(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, first.Approved)

	second, err := svc.Approve(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, second.Approved)
}

func TestPublicListFiltersModerated(t *testing.T) {
	svc, _ := newTestService(types.KindTestimonial)
	ctx := context.Background()

	_, err := svc.Create(ctx, map[string]any{
		"name": "Ana", "rating": float64(5), "comment": "great mix",
	})
	require.NoError(t, err)
	approved, err := svc.Create(ctx, map[string]any{
		"name": "Ben", "rating": float64(4), "comment": "solid master",
	})
	require.NoError(t, err)
	_, err = svc.Approve(ctx, approved.ID)
	require.NoError(t, err)

	public, err := svc.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, approved.ID, public[0].ID)

	all, err := svc.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestPublicOnlyIgnoredForUnmoderated(t *testing.T) {
	svc, _ := newTestService(types.KindProject)
	ctx := context.Background()

	_, err := svc.Create(ctx, map[string]any{"title": "Album", "description": "studio work"})
	require.NoError(t, err)

	listed, err := svc.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, listed, 1, "unmoderated collections never filter")
}

func TestAttachFileSetsServerFields(t *testing.T) {
	svc, _ := newTestService(types.KindDownloadableItem)
	ctx := context.Background()

	created, err := svc.Create(ctx, map[string]any{
		"title":        "Drum kit",
		"description":  "808s",
		"type":         "pack",
		"download_url": "https://example.com/kit.zip",
	})
	require.NoError(t, err)

	updated, err := svc.AttachFile(ctx, created.ID, "downloads/1/abc-kit.zip", "kit.zip", "application/zip")
	require.NoError(t, err)
	assert.Equal(t, "downloads/1/abc-kit.zip", updated.Fields[types.FieldFileKey])
	assert.Equal(t, "kit.zip", updated.Fields[types.FieldFileName])
	assert.Equal(t, "application/zip", updated.Fields[types.FieldFileContentType])
	assert.Contains(t, updated.Fields[types.FieldDownloadURL], "/downloadable-items/")

	// A later client update must not clobber the stored file key.
	after, err := svc.Update(ctx, created.ID, map[string]any{"title": "Drum kit vol. 2"})
	require.NoError(t, err)
	assert.Equal(t, "downloads/1/abc-kit.zip", after.Fields[types.FieldFileKey])
}
