package sourcemap

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// line42Map maps compiled line 42, column 0 to line 10 of the first source.
func line42Map(source string) string {
	return `{"version":3,"file":"main.script","sources":["` + source + `"],"names":[],"mappings":"` +
		strings.Repeat(";", 41) + `AASA"}`
}

func TestOriginalPosition_When_MapCoversLine(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	compiled := filepath.Join(dir, "scripts", "main.script")
	require.NoError(t, os.MkdirAll(filepath.Dir(compiled), 0o755))
	require.NoError(t, os.WriteFile(compiled+".map", []byte(line42Map("../src/main.ts")), 0o644))

	c := NewCache(zaptest.NewLogger(t))
	pos, ok := c.OriginalPosition(compiled, 42, 0)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "src", "main.ts"), pos.Source)
	assert.Equal(t, 10, pos.Line)
}

func TestOriginalPosition_When_LineNotCovered(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	compiled := filepath.Join(dir, "main.script")
	require.NoError(t, os.WriteFile(compiled+".map", []byte(line42Map("main.ts")), 0o644))

	_, ok := NewCache(zaptest.NewLogger(t)).OriginalPosition(compiled, 3, 0)
	assert.False(t, ok)
}

func TestOriginalPosition_When_MapMissing(t *testing.T) {
	t.Parallel()

	c := NewCache(zaptest.NewLogger(t))
	_, ok := c.OriginalPosition(filepath.Join(t.TempDir(), "main.script"), 42, 0)
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())
}

func TestOriginalPosition_When_MapMalformed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	compiled := filepath.Join(dir, "main.script")
	require.NoError(t, os.WriteFile(compiled+".map", []byte("{not json"), 0o644))

	_, ok := NewCache(zaptest.NewLogger(t)).OriginalPosition(compiled, 42, 0)
	assert.False(t, ok)
}

func TestOriginalPosition_When_MapChangesDuringRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	compiled := filepath.Join(dir, "main.script")
	c := NewCache(zaptest.NewLogger(t))

	_, ok := c.OriginalPosition(compiled, 42, 0)
	require.False(t, ok)

	// The absent result is cached for the rest of the run.
	require.NoError(t, os.WriteFile(compiled+".map", []byte(line42Map("main.ts")), 0o644))
	_, ok = c.OriginalPosition(compiled, 42, 0)
	assert.False(t, ok)

	_, ok = NewCache(zaptest.NewLogger(t)).OriginalPosition(compiled, 42, 0)
	assert.True(t, ok)
}

// sparseMap maps compiled line 40 to original line 1 and line 45 to line 5,
// both at column 0.
func sparseMap() string {
	return `{"version":3,"sources":["main.ts"],"names":[],"mappings":"` +
		strings.Repeat(";", 39) + "AAAA" + strings.Repeat(";", 5) + `AAIA"}`
}

// indentedMap maps compiled line 40 to original line 1 and compiled line 50,
// column 4, to original line 3.
func indentedMap() string {
	return `{"version":3,"sources":["main.ts"],"names":[],"mappings":"` +
		strings.Repeat(";", 39) + "AAAA" + strings.Repeat(";", 10) + `IAEA"}`
}

func TestOriginalPosition_When_LineBetweenMappings(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	compiled := filepath.Join(dir, "main.script")
	require.NoError(t, os.WriteFile(compiled+".map", []byte(sparseMap()), 0o644))
	c := NewCache(zaptest.NewLogger(t))

	_, ok := c.OriginalPosition(compiled, 42, 0)
	assert.False(t, ok, "line 42 has no mapping of its own")

	pos, ok := c.OriginalPosition(compiled, 40, 0)
	require.True(t, ok)
	assert.Equal(t, 1, pos.Line)

	pos, ok = c.OriginalPosition(compiled, 45, 0)
	require.True(t, ok)
	assert.Equal(t, 5, pos.Line)
}

func TestOriginalPosition_When_LineMappingStartsAfterColumn(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	compiled := filepath.Join(dir, "main.script")
	require.NoError(t, os.WriteFile(compiled+".map", []byte(indentedMap()), 0o644))
	c := NewCache(zaptest.NewLogger(t))

	_, ok := c.OriginalPosition(compiled, 50, 0)
	assert.False(t, ok, "column 0 precedes the first mapping on line 50")

	pos, ok := c.OriginalPosition(compiled, 50, 4)
	require.True(t, ok)
	assert.Equal(t, 3, pos.Line)
}
