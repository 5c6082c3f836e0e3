package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cbr-records/apiserver/types"
)

const (
	keySocialLinks  = "social_links"
	keyStudioConfig = "studio_config"
)

var socialLinksFields = []string{"instagram", "facebook", "spotify", "youtube"}
var studioConfigFields = []string{"youtube_video_id"}

// SettingsRepository defines persistence for the singleton documents.
type SettingsRepository interface {
	GetOrCreate(ctx context.Context, key string, defaults []byte) ([]byte, error)
	Upsert(ctx context.Context, key string, seed, patch []byte) ([]byte, error)
}

// SettingsService wraps the singleton config documents with typed access.
// A get lazily creates the document with defaults; a set upserts.
type SettingsService struct {
	repo SettingsRepository
}

func NewSettingsService(repo SettingsRepository) *SettingsService {
	return &SettingsService{repo: repo}
}

func (s *SettingsService) GetSocialLinks(ctx context.Context) (types.SocialLinks, error) {
	var links types.SocialLinks
	err := s.get(ctx, keySocialLinks, socialLinksDefaults(), &links)
	return links, err
}

func (s *SettingsService) UpdateSocialLinks(ctx context.Context, payload map[string]any) (types.SocialLinks, error) {
	var links types.SocialLinks
	err := s.set(ctx, keySocialLinks, socialLinksDefaults(), socialLinksFields, payload, &links)
	return links, err
}

func (s *SettingsService) GetStudioConfig(ctx context.Context) (types.StudioConfig, error) {
	var cfg types.StudioConfig
	err := s.get(ctx, keyStudioConfig, studioConfigDefaults(), &cfg)
	return cfg, err
}

func (s *SettingsService) UpdateStudioConfig(ctx context.Context, payload map[string]any) (types.StudioConfig, error) {
	var cfg types.StudioConfig
	err := s.set(ctx, keyStudioConfig, studioConfigDefaults(), studioConfigFields, payload, &cfg)
	return cfg, err
}

func (s *SettingsService) get(ctx context.Context, key string, defaults map[string]any, out any) error {
	defaultsJSON, err := json.Marshal(defaults)
	if err != nil {
		return err
	}
	doc, err := s.repo.GetOrCreate(ctx, key, defaultsJSON)
	if err != nil {
		return err
	}
	return json.Unmarshal(doc, out)
}

func (s *SettingsService) set(ctx context.Context, key string, defaults map[string]any, allowed []string, payload map[string]any, out any) error {
	patch := make(map[string]any, len(payload))
	for _, field := range allowed {
		value, ok := payload[field]
		if !ok {
			continue
		}
		if str, isString := value.(string); isString {
			value = strings.TrimSpace(str)
		}
		patch[field] = value
	}

	// Seed is defaults overlaid with the patch, used only when the
	// document does not exist yet.
	seed := make(map[string]any, len(defaults))
	for field, value := range defaults {
		seed[field] = value
	}
	for field, value := range patch {
		seed[field] = value
	}

	seedJSON, err := json.Marshal(seed)
	if err != nil {
		return err
	}
	patchJSON, err := json.Marshal(patch)
	if err != nil {
		return err
	}

	doc, err := s.repo.Upsert(ctx, key, seedJSON, patchJSON)
	if err != nil {
		return err
	}
	return json.Unmarshal(doc, out)
}

func socialLinksDefaults() map[string]any {
	return map[string]any{
		"instagram": "",
		"facebook":  "",
		"spotify":   "",
		"youtube":   "",
	}
}

func studioConfigDefaults() map[string]any {
	return map[string]any{
		"youtube_video_id": types.DefaultStudioVideoID,
	}
}
