package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cbr-records/apiserver/internal/mq"
	"github.com/cbr-records/apiserver/types"
	"go.uber.org/zap"
)

// ValidationError reports missing or malformed payload fields.
type ValidationError struct {
	Fields  []string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func missingFieldsError(fields []string) *ValidationError {
	return &ValidationError{
		Fields:  fields,
		Message: "missing required fields: " + strings.Join(fields, ", "),
	}
}

// ResourceRepository defines persistence operations for one collection.
type ResourceRepository interface {
	List(ctx context.Context, approvedOnly bool) ([]types.Resource, error)
	Get(ctx context.Context, id int) (types.Resource, error)
	Create(ctx context.Context, resource types.Resource) (types.Resource, error)
	Update(ctx context.Context, resource types.Resource) (types.Resource, error)
	SetApproved(ctx context.Context, id int, approved bool) (types.Resource, error)
	Delete(ctx context.Context, id int) error
}

// ResourceService applies one collection's schema on top of its
// repository: field allow-listing, required/enum/range validation,
// partial-merge updates and the moderation default.
type ResourceService struct {
	repo   ResourceRepository
	schema types.Schema
	events *mq.MQ
	log    *zap.Logger
}

func NewResourceService(repo ResourceRepository, schema types.Schema, events *mq.MQ, log *zap.Logger) *ResourceService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ResourceService{repo: repo, schema: schema, events: events, log: log}
}

// Schema exposes the collection's schema to handlers.
func (s *ResourceService) Schema() types.Schema {
	return s.schema
}

// List returns the collection newest-first. For moderated collections,
// publicOnly filters to approved entries; other collections ignore it.
func (s *ResourceService) List(ctx context.Context, publicOnly bool) ([]types.Resource, error) {
	return s.repo.List(ctx, s.schema.Moderated && publicOnly)
}

func (s *ResourceService) Get(ctx context.Context, id int) (types.Resource, error) {
	return s.repo.Get(ctx, id)
}

// Create validates the payload against the schema and persists it.
// Moderated entries always start unapproved, whatever the payload claimed,
// and a pending-moderation event is published when a broker is wired.
func (s *ResourceService) Create(ctx context.Context, payload map[string]any) (types.Resource, error) {
	fields := s.sanitize(payload)
	if err := s.validate(fields); err != nil {
		return types.Resource{}, err
	}

	created, err := s.repo.Create(ctx, types.Resource{
		Kind:   s.schema.Kind,
		Fields: fields,
	})
	if err != nil {
		return types.Resource{}, err
	}

	if s.schema.Moderated {
		s.publishModerationEvent(ctx, created)
	}
	return created, nil
}

// Update merges the allow-listed payload fields onto the stored document
// and re-validates the result. Unset fields retain their previous values;
// the approved flag is not in any allow-list and cannot change here.
func (s *ResourceService) Update(ctx context.Context, id int, payload map[string]any) (types.Resource, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Resource{}, err
	}

	merged := make(map[string]any, len(current.Fields))
	for key, value := range current.Fields {
		merged[key] = value
	}
	for key, value := range s.sanitize(payload) {
		merged[key] = value
	}
	if err := s.validate(merged); err != nil {
		return types.Resource{}, err
	}

	current.Fields = merged
	return s.repo.Update(ctx, current)
}

// Approve idempotently marks a moderated entry as publicly visible.
func (s *ResourceService) Approve(ctx context.Context, id int) (types.Resource, error) {
	return s.repo.SetApproved(ctx, id, true)
}

func (s *ResourceService) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

// AttachFile records an uploaded object against a resource and points its
// download URL at the streaming route. Bypasses the client allow-list.
func (s *ResourceService) AttachFile(ctx context.Context, id int, key, filename, contentType string) (types.Resource, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Resource{}, err
	}

	if current.Fields == nil {
		current.Fields = make(map[string]any)
	}
	current.Fields[types.FieldFileKey] = key
	current.Fields[types.FieldFileName] = filename
	current.Fields[types.FieldFileContentType] = contentType
	current.Fields[types.FieldDownloadURL] = fmt.Sprintf("/downloadable-items/%d/file", id)
	return s.repo.Update(ctx, current)
}

// sanitize trims string values and drops every field outside the schema's
// allow-list, so clients cannot inject moderation or storage fields.
func (s *ResourceService) sanitize(payload map[string]any) map[string]any {
	allowed := s.schema.Allowed()
	fields := make(map[string]any, len(payload))
	for key, value := range payload {
		if !allowed[key] {
			continue
		}
		if str, ok := value.(string); ok {
			value = strings.TrimSpace(str)
		}
		fields[key] = value
	}
	return fields
}

func (s *ResourceService) validate(fields map[string]any) error {
	var missing []string
	for _, field := range s.schema.Required {
		value, ok := fields[field]
		if !ok || value == nil {
			missing = append(missing, field)
			continue
		}
		if str, isString := value.(string); isString && str == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return missingFieldsError(missing)
	}

	for field, values := range s.schema.Enum {
		value, ok := fields[field].(string)
		if !ok {
			continue
		}
		valid := false
		for _, candidate := range values {
			if value == candidate {
				valid = true
				break
			}
		}
		if !valid {
			return &ValidationError{
				Fields:  []string{field},
				Message: fmt.Sprintf("%s must be one of: %s", field, strings.Join(values, ", ")),
			}
		}
	}

	for field, bounds := range s.schema.Ranges {
		value, ok := fields[field]
		if !ok {
			continue
		}
		number, isNumber := value.(float64)
		if !isNumber || number < bounds.Min || number > bounds.Max {
			return &ValidationError{
				Fields:  []string{field},
				Message: fmt.Sprintf("%s must be a number between %g and %g", field, bounds.Min, bounds.Max),
			}
		}
	}

	return nil
}

func (s *ResourceService) publishModerationEvent(ctx context.Context, resource types.Resource) {
	if s.events == nil {
		return
	}

	data, err := json.Marshal(mq.ModerationEvent{
		Kind: string(resource.Kind),
		ID:   resource.ID,
	})
	if err != nil {
		return
	}

	attrs := map[string]string{"kind": string(resource.Kind)}
	if _, err := s.events.Publish(ctx, mq.ModerationChannel, data, attrs); err != nil {
		s.log.Warn("failed to publish moderation event",
			zap.String("kind", string(resource.Kind)),
			zap.Int("id", resource.ID),
			zap.Error(err),
		)
	}
}
