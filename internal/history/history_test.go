package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenCreatesDatabase(t *testing.T) {
	s := openStore(t)
	_, err := os.Stat(s.Path())
	assert.NoError(t, err)
	assert.Equal(t, FileName, filepath.Base(s.Path()))
}

func TestRecordAndList(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	older := &Run{CreatedAt: base, DocA: "a.pdf", DocB: "b.pdf", Equal: true, PagesA: 1, PagesB: 1, DPI: 72}
	newer := &Run{
		CreatedAt: base.Add(time.Minute),
		DocA:      "a.pdf",
		DocB:      "c.pdf",
		Output:    "diff.pdf",
		PagesA:    1,
		PagesB:    2,
		DPI:       150,
		Threshold: 3,
		Pages: []Page{
			{Index: 0, Status: "different", DiffPixels: 42},
			{Index: 1, Status: "only in b"},
		},
	}
	require.NoError(t, s.Record(ctx, older))
	require.NoError(t, s.Record(ctx, newer))

	_, err := uuid.Parse(older.ID)
	assert.NoError(t, err, "ID is a UUID")
	assert.NotEqual(t, older.ID, newer.ID)

	runs, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer.ID, runs[0].ID, "newest first")
	assert.Equal(t, "c.pdf", runs[0].DocB)
	assert.False(t, runs[0].Equal)
	assert.Equal(t, 150.0, runs[0].DPI)
	assert.Equal(t, 3, runs[0].Threshold)
	assert.True(t, runs[0].CreatedAt.Equal(newer.CreatedAt))
	assert.True(t, runs[1].Equal)

	runs, err = s.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	pages, err := s.Pages(ctx, newer.ID)
	require.NoError(t, err)
	assert.Equal(t, newer.Pages, pages)

	pages, err = s.Pages(ctx, older.ID)
	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestPagesUnknownRun(t *testing.T) {
	_, err := openStore(t).Pages(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRecordDuplicateID(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	run := &Run{DocA: "a", DocB: "b"}
	require.NoError(t, s.Record(ctx, run))
	assert.Error(t, s.Record(ctx, &Run{ID: run.ID, DocA: "a", DocB: "b"}))
}

func TestFingerprint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	sum, err := Fingerprint(path)
	require.NoError(t, err)
	// SHA3-256 of the empty string
	assert.Equal(t, "a7ffc6f8bf1ed76651c14756a061d662f580ff4de43b49fa82d80a4b80f8434a", sum)

	_, err = Fingerprint(path + ".missing")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
