package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/cbr-records/apiserver/internal/token"
	"github.com/cbr-records/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthz(t *testing.T) {
	router, _ := newTestRouter(t)

	recorder := doRequest(t, router, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestCreateFirstAdminDisabledAfterBootstrap(t *testing.T) {
	router, _ := newTestRouter(t)
	bootstrapAdmin(t, router)

	recorder := doRequest(t, router, http.MethodPost, "/create-first-admin", "", map[string]string{
		"username": "intruder",
		"password": "letmein",
	})
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	var parsed MessageResponse
	decodeResponse(t, recorder, &parsed)
	assert.Equal(t, "admin account already exists", parsed.Message)
}

func TestLoginWrongPassword(t *testing.T) {
	router, _ := newTestRouter(t)
	bootstrapAdmin(t, router)

	recorder := doRequest(t, router, http.MethodPost, "/login", "", map[string]string{
		"username": "cbr",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestLoginMissingCredentials(t *testing.T) {
	router, _ := newTestRouter(t)

	recorder := doRequest(t, router, http.MethodPost, "/login", "", map[string]string{"username": "cbr"})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestProtectedRouteWithoutToken(t *testing.T) {
	router, _ := newTestRouter(t)

	recorder := doRequest(t, router, http.MethodPost, "/projects", "", map[string]string{
		"title":       "Album",
		"description": "studio work",
	})
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	var parsed MessageResponse
	decodeResponse(t, recorder, &parsed)
	assert.Equal(t, "missing token", parsed.Message)
}

func TestProtectedRouteWithInvalidToken(t *testing.T) {
	router, _ := newTestRouter(t)

	recorder := doRequest(t, router, http.MethodPost, "/projects", "garbage", map[string]string{
		"title":       "Album",
		"description": "studio work",
	})
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	var parsed MessageResponse
	decodeResponse(t, recorder, &parsed)
	assert.Equal(t, "invalid token", parsed.Message)
}

func TestProtectedRouteWithExpiredToken(t *testing.T) {
	router, _ := newTestRouter(t)

	expired, err := token.New("test-secret", -time.Minute).Issue(types.User{ID: 1, Username: "cbr"})
	require.NoError(t, err)

	recorder := doRequest(t, router, http.MethodPost, "/projects", expired, map[string]string{
		"title":       "Album",
		"description": "studio work",
	})
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	var parsed MessageResponse
	decodeResponse(t, recorder, &parsed)
	assert.Equal(t, "session expired, log in again", parsed.Message)
}

func TestChangePasswordFlow(t *testing.T) {
	router, _ := newTestRouter(t)
	bearer := bootstrapAdmin(t, router)

	recorder := doRequest(t, router, http.MethodPost, "/change-password", bearer, map[string]string{
		"oldPassword": "wrong",
		"newPassword": "newsecret",
	})
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder = doRequest(t, router, http.MethodPost, "/change-password", bearer, map[string]string{
		"oldPassword": "secret1",
		"newPassword": "short",
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = doRequest(t, router, http.MethodPost, "/change-password", bearer, map[string]string{
		"oldPassword": "secret1",
		"newPassword": "newsecret",
	})
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder = doRequest(t, router, http.MethodPost, "/login", "", map[string]string{
		"username": "cbr",
		"password": "newsecret",
	})
	assert.Equal(t, http.StatusOK, recorder.Code)
}
