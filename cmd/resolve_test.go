//go:build !integration

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/phone-finder/internal/resolve"
)

func TestCollectNames_ArgsAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "names.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,city\nAfuri,Tokyo\n\nTsuta,Tokyo\n"), 0o644))

	saved := resolveFlags
	t.Cleanup(func() { resolveFlags = saved })
	resolveFlags.input = path
	resolveFlags.column = "name"
	resolveFlags.header = true

	names, err := collectNames([]string{" Ichiran ", ""})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ichiran", "Afuri", "Tsuta"}, names)
}

func TestCollectNames_MissingFile(t *testing.T) {
	saved := resolveFlags
	t.Cleanup(func() { resolveFlags = saved })
	resolveFlags.input = filepath.Join(t.TempDir(), "absent.csv")

	_, err := collectNames(nil)
	assert.Error(t, err)
}

func TestQueriesFor(t *testing.T) {
	area := &resolve.Area{Center: shibuya, RadiusMeters: 500}
	qs := queriesFor([]string{"a", "b"}, area)
	require.Len(t, qs, 2)
	assert.Equal(t, "a", qs[0].Name)
	assert.Same(t, area, qs[1].Area)

	assert.Empty(t, queriesFor(nil, nil))
}
