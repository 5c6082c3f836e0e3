package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSettingsRepoMock(t *testing.T) (*SettingsRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSettingsRepository(db), mock
}

func TestSettingsGetOrCreateSingleStatement(t *testing.T) {
	repo, mock := newSettingsRepoMock(t)
	defaults := []byte(`{"instagram":"","facebook":"","spotify":"","youtube":""}`)

	// One round trip: the insert-or-keep and the read are the same statement.
	mock.ExpectQuery(`INSERT INTO settings`).
		WithArgs("social_links", defaults, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"doc"}).AddRow(defaults))

	doc, err := repo.GetOrCreate(context.Background(), "social_links", defaults)
	require.NoError(t, err)
	assert.JSONEq(t, string(defaults), string(doc))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsUpsertMergesPatch(t *testing.T) {
	repo, mock := newSettingsRepoMock(t)
	seed := []byte(`{"youtube_video_id":"abc123"}`)
	patch := []byte(`{"youtube_video_id":"abc123"}`)

	mock.ExpectQuery(`INSERT INTO settings`).
		WithArgs("studio_config", seed, sqlmock.AnyArg(), patch).
		WillReturnRows(sqlmock.NewRows([]string{"doc"}).AddRow([]byte(`{"youtube_video_id":"abc123"}`)))

	doc, err := repo.Upsert(context.Background(), "studio_config", seed, patch)
	require.NoError(t, err)
	assert.JSONEq(t, `{"youtube_video_id":"abc123"}`, string(doc))
	assert.NoError(t, mock.ExpectationsWereMet())
}
