package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/chapter-geocoder/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const keyMountPleasant = "mount pleasant|michigan|united states"

func TestOpen_MissingFileIsEmpty(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "cache.json"))
	require.NoError(t, err)

	assert.Equal(t, 0, c.Len())
	_, ok := c.Get(keyMountPleasant)
	assert.False(t, ok)
}

func TestOpen_CorruptFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Open(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse cache")
}

func TestOpen_ReadsExistingEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"london|united kingdom":{"lat":51.5,"lng":-0.12}}`), 0o644))

	c, err := Open(path)
	require.NoError(t, err)

	got, ok := c.Get("london|united kingdom")
	require.True(t, ok)
	assert.Equal(t, domain.Coordinates{Lat: 51.5, Lng: -0.12}, got)
}

func TestPut_PersistsImmediately(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.json")
	c, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, c.Put(keyMountPleasant, domain.Coordinates{Lat: 43.59, Lng: -84.77}))

	reopened, err := Open(path)
	require.NoError(t, err)
	got, ok := reopened.Get(keyMountPleasant)
	require.True(t, ok)
	assert.Equal(t, 43.59, got.Lat)
	assert.NoFileExists(t, path+".tmp")
}

func TestPut_DeferredUntilFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	c, err := Open(path, WithPersistEachPut(false))
	require.NoError(t, err)

	require.NoError(t, c.Put(keyMountPleasant, domain.Coordinates{Lat: 1, Lng: 2}))
	assert.NoFileExists(t, path)

	require.NoError(t, c.Flush())
	reopened, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.Len())
}

func TestPut_EmptyKeyIgnored(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "cache.json"))
	require.NoError(t, err)

	require.NoError(t, c.Put("", domain.Coordinates{Lat: 1, Lng: 1}))
	assert.Equal(t, 0, c.Len())
}

func TestPut_OverwritesExisting(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "cache.json"))
	require.NoError(t, err)

	require.NoError(t, c.Put(keyMountPleasant, domain.Coordinates{Lat: 1, Lng: 1}))
	require.NoError(t, c.Put(keyMountPleasant, domain.Coordinates{Lat: 40, Lng: -75}))

	got, _ := c.Get(keyMountPleasant)
	assert.Equal(t, domain.Coordinates{Lat: 40, Lng: -75}, got)
	assert.Equal(t, 1, c.Len())
}

func TestFlush_NoChangesDoesNotCreateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	c, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, c.Flush())
	assert.NoFileExists(t, path)
}
