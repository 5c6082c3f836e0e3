package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/cbr-records/apiserver/internal/services"
	"github.com/cbr-records/apiserver/internal/store"
	"github.com/cbr-records/apiserver/internal/token"
	"github.com/cbr-records/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

type memUserRepo struct {
	users  map[int]types.User
	nextID int
}

func (r *memUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *memUserRepo) GetByUsername(_ context.Context, username string) (types.User, error) {
	for _, user := range r.users {
		if user.Username == username {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *memUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	for _, existing := range r.users {
		if existing.Username == user.Username {
			return types.User{}, store.ErrDuplicate
		}
	}
	user.ID = r.nextID
	r.nextID++
	r.users[user.ID] = user
	return user, nil
}

func (r *memUserRepo) UpdatePassword(_ context.Context, id int, passwordHash string) error {
	user, ok := r.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.PasswordHash = passwordHash
	r.users[id] = user
	return nil
}

func (r *memUserRepo) Count(_ context.Context) (int, error) {
	return len(r.users), nil
}

type memResourceRepo struct {
	schema    types.Schema
	resources map[int]types.Resource
	nextID    int
}

func (r *memResourceRepo) List(_ context.Context, approvedOnly bool) ([]types.Resource, error) {
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

func (r *memResourceRepo) Get(_ context.Context, id int) (types.Resource, error) {
	resource, ok := r.resources[id]
	if !ok {
		return types.Resource{}, store.ErrNotFound
	}
	return resource, nil
}

func (r *memResourceRepo) Create(_ context.Context, resource types.Resource) (types.Resource, error) {
	if r.schema.Unique != "" {
		key := resource.Fields[r.schema.Unique]
		for _, existing := range r.resources {
			if existing.Fields[r.schema.Unique] == key {
				return types.Resource{}, store.ErrDuplicate
			}
		}
	}
	resource.ID = r.nextID
	r.nextID++
	now := time.Now()
	resource.CreatedAt = now
	resource.UpdatedAt = now
	r.resources[resource.ID] = resource
	return resource, nil
}

func (r *memResourceRepo) Update(_ context.Context, resource types.Resource) (types.Resource, error) {
	if _, ok := r.resources[resource.ID]; !ok {
		return types.Resource{}, store.ErrNotFound
	}
	resource.UpdatedAt = time.Now()
	r.resources[resource.ID] = resource
	return resource, nil
}

func (r *memResourceRepo) SetApproved(_ context.Context, id int, approved bool) (types.Resource, error) {
	resource, ok := r.resources[id]
	if !ok {
		return types.Resource{}, store.ErrNotFound
	}
	resource.Approved = approved
	r.resources[id] = resource
	return resource, nil
}

func (r *memResourceRepo) Delete(_ context.Context, id int) error {
	if _, ok := r.resources[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.resources, id)
	return nil
}

func adminFixture() types.User {
	return types.User{ID: 1, Username: "cbr"}
}

// newTestRouter wires the full route surface over in-memory repositories.
func newTestRouter(t *testing.T) (*chi.Mux, *token.Service) {
	t.Helper()

	tokens := token.New("test-secret", time.Hour)
	authMiddleware := RequireAuth(tokens)

	userService := services.NewUserService(&memUserRepo{users: make(map[int]types.User), nextID: 1})

	resourceService := func(kind types.Kind) *services.ResourceService {
		schema := types.SchemaFor(kind)
		repo := &memResourceRepo{schema: schema, resources: make(map[int]types.Resource), nextID: 1}
		return services.NewResourceService(repo, schema, nil, nil)
	}

	router := chi.NewRouter()
	router.Get("/healthz", Healthz)
	AuthRouter(router, userService, tokens)
	router.Route("/projects", func(r chi.Router) {
		ResourceRouter(r, resourceService(types.KindProject), "project", authMiddleware, RouteOptions{
			PublicGet: true,
		})
	})
	router.Route("/testimonials", func(r chi.Router) {
		ResourceRouter(r, resourceService(types.KindTestimonial), "testimonial", authMiddleware, RouteOptions{
			PublicCreate: true,
		})
	})
	router.Route("/blog-posts", func(r chi.Router) {
		ResourceRouter(r, resourceService(types.KindBlogPost), "blog post", authMiddleware, RouteOptions{
			PublicGet: true,
		})
	})
	router.Route("/spotify-tracks", func(r chi.Router) {
		ResourceRouter(r, resourceService(types.KindSpotifyTrack), "spotify track", authMiddleware, RouteOptions{})
	})
	router.Route("/youtube-videos", func(r chi.Router) {
		ResourceRouter(r, resourceService(types.KindYouTubeVideo), "youtube video", authMiddleware, RouteOptions{
			PublicGet: true,
		})
	})

	return router, tokens
}

func doRequest(t *testing.T, router http.Handler, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func decodeResponse(t *testing.T, recorder *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), out))
}

// bootstrapAdmin creates the first admin and returns a valid bearer token.
func bootstrapAdmin(t *testing.T, router http.Handler) string {
	t.Helper()

	recorder := doRequest(t, router, http.MethodPost, "/create-first-admin", "", map[string]string{
		"username": "cbr",
		"password": "secret1",
	})
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	recorder = doRequest(t, router, http.MethodPost, "/login", "", map[string]string{
		"username": "cbr",
		"password": "secret1",
	})
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var parsed TokenResponse
	decodeResponse(t, recorder, &parsed)
	require.NotEmpty(t, parsed.Token)
	return parsed.Token
}
