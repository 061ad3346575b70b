package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	log, _ := test.NewNullLogger()
	s, err := Open(filepath.Join(t.TempDir(), "db", "decks.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	data := []byte("PK\x03\x04 not really a deck")

	rec, err := s.Put(ctx, "Talk.pptx", 3, data)
	require.NoError(t, err)
	assert.Len(t, rec.ID, 36)
	assert.Equal(t, int64(len(data)), rec.Size)
	assert.Equal(t, Checksum(data), rec.Checksum)
	assert.Len(t, rec.Checksum, 64)

	got, gotData, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, data, gotData)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "Talk.pptx", got.Name)
	assert.Equal(t, 3, got.SlideCount)
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
}

func TestGetNotFound(t *testing.T) {
	s := openTestStore(t)
	_, _, err := s.Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	recs, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, recs)

	var ids []string
	for _, name := range []string{"a", "b", "c"} {
		rec, err := s.Put(ctx, name, 1, []byte(name))
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}

	recs, err = s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, ids[2], recs[0].ID, "newest first")
	assert.Equal(t, ids[0], recs[2].ID)

	recs, err = s.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestReopenKeepsDecks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decks.db")
	log, _ := test.NewNullLogger()

	s, err := Open(path, log)
	require.NoError(t, err)
	rec, err := s.Put(context.Background(), "x", 1, []byte("x"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path, log)
	require.NoError(t, err)
	defer s.Close()
	_, data, err := s.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)
}

func TestMemoryStore(t *testing.T) {
	s, err := Open(":memory:", nil)
	require.NoError(t, err)
	defer s.Close()
	_, err = s.Put(context.Background(), "m", 0, []byte{1, 2, 3})
	require.NoError(t, err)
	recs, err := s.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}
