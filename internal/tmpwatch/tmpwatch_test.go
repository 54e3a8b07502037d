package tmpwatch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, nil, 0o600))
}

func TestFirstCheckIsBaseline(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "existing"))
	core, logs := observer.New(zap.WarnLevel)

	s := NewSession(dir, zap.New(core))
	ch := s.Check("start")
	assert.False(t, ch.Reported)
	assert.Zero(t, logs.Len())
}

func TestLeftoverIsReported(t *testing.T) {
	dir := t.TempDir()
	core, logs := observer.New(zap.WarnLevel)
	s := NewSession(dir, zap.New(core))
	s.Check("start")

	leak := filepath.Join(dir, "leak")
	touch(t, leak)
	ch := s.Check("end")
	assert.True(t, ch.Reported)
	assert.Equal(t, []string{leak}, ch.Added)
	assert.Empty(t, ch.Removed)
	assert.Empty(t, ch.Lingering)

	entries := logs.FilterMessage("temporary files left behind").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "end", entries[0].ContextMap()["phase"])
	assert.Equal(t, "+ "+leak, entries[0].ContextMap()["changes"])
}

func TestLingeringAndRemoved(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old")
	touch(t, old)
	s := NewSession(dir, nil)
	s.Check("start")

	first := filepath.Join(dir, "first")
	touch(t, first)
	s.Check("middle")

	second := filepath.Join(dir, "second")
	touch(t, second)
	require.NoError(t, os.Remove(old))
	ch := s.Check("end")

	assert.True(t, ch.Reported)
	assert.Equal(t, []string{second}, ch.Added)
	assert.Equal(t, []string{old}, ch.Removed)
	assert.Equal(t, []string{first}, ch.Lingering)
}

func TestNoChanges(t *testing.T) {
	dir := t.TempDir()
	s := NewSession(dir, nil)
	s.Check("start")
	touch(t, filepath.Join(dir, "a"))
	s.Check("middle")
	assert.False(t, s.Check("end").Reported, "nothing changed since the previous check")
}

func TestBackToInitial(t *testing.T) {
	dir := t.TempDir()
	s := NewSession(dir, nil)
	s.Check("start")
	tmp := filepath.Join(dir, "a")
	touch(t, tmp)
	s.Check("middle")
	require.NoError(t, os.Remove(tmp))
	assert.False(t, s.Check("end").Reported, "directory is back to the baseline")
}

func TestDefaultDir(t *testing.T) {
	assert.Equal(t, os.TempDir(), NewSession("", nil).Dir())
}
