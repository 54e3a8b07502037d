package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novvoo/go-pdfdiff/pkg/pdf"
)

// fixture holds the files of one CLI test
type fixture struct {
	dir    string
	config string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	data := "history:\n  dir: " + filepath.Join(dir, "history") + "\n" +
		"tmpwatch:\n  dir: " + filepath.Join(dir, "tmp") + "\n"
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "tmp"), 0o750))
	require.NoError(t, os.WriteFile(cfg, []byte(data), 0o600))
	return &fixture{dir: dir, config: cfg}
}

// pdf writes a document with one 100x100 page per content string
func (f *fixture) pdf(t *testing.T, name string, contents ...string) string {
	t.Helper()
	w := pdf.NewWriter()
	for _, c := range contents {
		_, err := w.AddPage(100, 100, nil, []byte(c))
		require.NoError(t, err)
	}
	path := filepath.Join(f.dir, name)
	require.NoError(t, w.WriteFile(path))
	return path
}

func (f *fixture) run(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(append([]string{"--config", f.config}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

const dot = "0 0 0 rg 10 89 1 1 re f"

func TestUsageError(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	tests := [][]string{
		{},
		{"only.pdf"},
		{"a.pdf", "b.pdf", "c.pdf", "d.pdf"},
		{"--no-such-flag", "a.pdf", "b.pdf"},
	}
	for _, args := range tests {
		code, stdout, stderr := f.run(args...)
		assert.Equal(t, exitError, code, "args %v", args)
		assert.Empty(t, stdout)
		assert.Contains(t, stderr, "Usage:")
	}
}

func TestEqualDocuments(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	a := f.pdf(t, "a.pdf", dot)
	b := f.pdf(t, "b.pdf", dot)
	out := filepath.Join(f.dir, "diff.pdf")

	code, stdout, _ := f.run(a, b, out)
	assert.Equal(t, exitEqual, code)
	assert.Equal(t, "True\n", stdout)
	assert.NoFileExists(t, out)
}

func TestDifferentDocuments(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	a := f.pdf(t, "a.pdf", dot)
	b := f.pdf(t, "b.pdf", "")
	out := filepath.Join(f.dir, "diff.pdf")
	md := filepath.Join(f.dir, "reports", "diff.md")

	code, stdout, stderr := f.run(a, b, out, "--report", md, "--record")
	assert.Equal(t, exitDifferent, code, stderr)
	assert.Equal(t, "False\n", stdout)
	assert.Contains(t, stderr, "page contains different pixels")

	doc, err := pdf.Open(out)
	require.NoError(t, err)
	defer doc.Close()
	assert.Equal(t, 1, doc.NumPages())
	assert.Equal(t, 200.0, doc.Pages()[0].Width())

	data, err := os.ReadFile(md)
	require.NoError(t, err)
	assert.Contains(t, string(data), "❌ Different")

	code, stdout, _ = f.run("history")
	assert.Equal(t, exitEqual, code)
	assert.Contains(t, stdout, "differ")
	assert.Contains(t, stdout, a)
}

func TestBooleanOnly(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	a := f.pdf(t, "a.pdf", dot, "")
	b := f.pdf(t, "b.pdf", "", "")

	code, stdout, _ := f.run(a, b, "--threshold", "255")
	assert.Equal(t, exitEqual, code, "a threshold of 255 accepts every pixel")
	assert.Equal(t, "True\n", stdout)

	code, stdout, _ = f.run(a, b)
	assert.Equal(t, exitDifferent, code)
	assert.Equal(t, "False\n", stdout)
}

func TestMissingInput(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	b := f.pdf(t, "b.pdf", "")

	code, stdout, stderr := f.run(filepath.Join(f.dir, "missing.pdf"), b)
	assert.Equal(t, exitError, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "missing.pdf")
	assert.NotContains(t, stderr, "Usage:")
}

func TestInvalidFlagValue(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	a := f.pdf(t, "a.pdf", "")

	code, _, stderr := f.run(a, a, "--dpi=-5")
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "invalid dpi")
}

func TestHistoryEmpty(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	code, stdout, _ := f.run("history")
	assert.Equal(t, exitEqual, code)
	assert.Contains(t, stdout, "No recorded runs.")
	assert.NoDirExists(t, filepath.Join(f.dir, "history"))
}

func TestVersion(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	code, stdout, _ := f.run("version")
	assert.Equal(t, exitEqual, code)
	assert.True(t, strings.HasPrefix(stdout, "pdfdiff version "))
	assert.Contains(t, stdout, "commit:")
}

func TestNewRootCmd(t *testing.T) {
	t.Parallel()
	cmd := NewRootCmd()
	for _, name := range []string{"dpi", "threshold", "workers", "report", "record", "log-format", "log-file", "no-tmpwatch"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("verbose"))

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "history")
	assert.Contains(t, names, "version")
}
