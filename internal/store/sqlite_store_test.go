package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localrivet/cratescribe/internal/errortypes"
)

func openTestStore(t *testing.T) *SQLiteDescriptionStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "descriptions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecord(id string, at time.Time) Record {
	return Record{
		ID:           id,
		ManifestPath: "crates/" + id + ".json",
		CrateName:    "Crate " + id,
		Model:        "gpt-4",
		Provider:     "openai",
		PromptTokens: 321,
		Description:  "A crate about " + id,
		Status:       "success",
		CreatedAt:    at,
	}
}

func TestSQLiteDescriptionStore_SaveAndGet(t *testing.T) {
	s := openTestStore(t)
	at := time.Date(2024, 5, 1, 9, 30, 0, 123, time.UTC)

	rec := sampleRecord("a", at)
	require.NoError(t, s.Save(rec))

	got, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, rec.ManifestPath, got.ManifestPath)
	assert.Equal(t, rec.CrateName, got.CrateName)
	assert.Equal(t, 321, got.PromptTokens)
	assert.Equal(t, "success", got.Status)
	assert.Empty(t, got.ErrorKind)
	assert.True(t, got.CreatedAt.Equal(at), "created_at round trip: %v", got.CreatedAt)
}

func TestSQLiteDescriptionStore_SaveReplaces(t *testing.T) {
	s := openTestStore(t)
	at := time.Now()

	require.NoError(t, s.Save(sampleRecord("a", at)))

	failed := sampleRecord("a", at)
	failed.Status = "error"
	failed.ErrorKind = "quota"
	failed.Description = ""
	require.NoError(t, s.Save(failed))

	got, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "error", got.Status)
	assert.Equal(t, "quota", got.ErrorKind)

	all, err := s.List(0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSQLiteDescriptionStore_SaveRejectsEmptyID(t *testing.T) {
	s := openTestStore(t)
	err := s.Save(Record{})
	assert.True(t, errortypes.IsValidationError(err))
}

func TestSQLiteDescriptionStore_ListNewestFirst(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Save(sampleRecord("old", base)))
	require.NoError(t, s.Save(sampleRecord("new", base.Add(2*time.Hour))))
	require.NoError(t, s.Save(sampleRecord("mid", base.Add(time.Hour))))

	all, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"new", "mid", "old"}, []string{all[0].ID, all[1].ID, all[2].ID})

	limited, err := s.List(2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "new", limited[0].ID)
}

func TestSQLiteDescriptionStore_ListEmpty(t *testing.T) {
	s := openTestStore(t)
	all, err := s.List(10)
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestSQLiteDescriptionStore_GetMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get("nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLiteDescriptionStore_DeleteAndClear(t *testing.T) {
	s := openTestStore(t)
	now := time.Now()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Save(sampleRecord(id, now)))
	}

	require.NoError(t, s.Delete("b"))
	assert.ErrorIs(t, s.Delete("b"), ErrNotFound)

	n, err := s.Clear()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := s.List(0)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSQLiteDescriptionStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "descriptions.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(sampleRecord("a", time.Now())))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Get("a")
	assert.NoError(t, err)
}

func TestSQLiteDescriptionStore_Uninitialized(t *testing.T) {
	s := NewSQLiteDescriptionStore()
	_, err := s.List(1)
	assert.True(t, errortypes.IsDatabaseError(err))
	assert.NoError(t, s.Close())
}

func TestOpen_BadPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "x.db"))
	assert.True(t, errortypes.IsDatabaseError(err))
}
