package cache_test

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/diffreport/diffreport/pkg/comparer/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToolVersion = "test-v1.0"

func TestConstants(t *testing.T) {
	assert.Equal(t, ".diffreport.cache", cache.FileName)
	assert.Equal(t, "1.0", cache.SchemaVersion)
	assert.Equal(t, "gob", cache.DefaultFormat)
	assert.Equal(t, "gob", cache.FormatGob)
	assert.Equal(t, "json", cache.FormatJSON)
}

func TestHashContent(t *testing.T) {
	// Known SHA-256 of "hello".
	assert.Equal(t,
		"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		cache.HashContent([]byte("hello")))
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		cache.HashContent(nil))
	assert.NotEqual(t, cache.HashContent([]byte("a")), cache.HashContent([]byte("b")))
}

func setupCacheTest(t *testing.T, format string) (cache.DigestCache, string, *bytes.Buffer) {
	t.Helper()
	logBuf := &bytes.Buffer{}
	handler := slog.NewTextHandler(logBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	if format == "" {
		format = cache.DefaultFormat
	}
	c := cache.NewFileDigestCache(handler, testToolVersion, format)
	require.NotNil(t, c)

	cachePath := filepath.Join(t.TempDir(), cache.FileName)
	t.Cleanup(func() {
		if t.Failed() {
			t.Logf("digest cache logs:\n%s", logBuf.String())
		}
	})
	return c, cachePath, logBuf
}

func writeCacheFile(t *testing.T, path, schemaVer, toolVer, format string, index map[string]cache.Entry) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()

	header := cache.FileHeader{SchemaVersion: schemaVer, ToolVersion: toolVer}
	if index == nil {
		index = make(map[string]cache.Entry)
	}

	if format == cache.FormatJSON {
		payload := struct {
			Header cache.FileHeader       `json:"header"`
			Index  map[string]cache.Entry `json:"index"`
		}{Header: header, Index: index}
		require.NoError(t, json.NewEncoder(file).Encode(payload))
	} else {
		encoder := gob.NewEncoder(file)
		require.NoError(t, encoder.Encode(header))
		require.NoError(t, encoder.Encode(index))
	}
}

func TestFileDigestCache_LoadRoundTrip(t *testing.T) {
	for _, format := range []string{cache.FormatGob, cache.FormatJSON} {
		t.Run(format, func(t *testing.T) {
			c, cachePath, _ := setupCacheTest(t, format)

			modTime := time.Now().Add(-1 * time.Hour).Truncate(time.Second)
			writeCacheFile(t, cachePath, cache.SchemaVersion, testToolVersion, format, map[string]cache.Entry{
				"left/a.c": {Size: 42, ModTime: modTime, Digest: "digestA", ToolVersion: testToolVersion},
			})

			require.NoError(t, c.Load(cachePath))
			digest, ok := c.Lookup("left/a.c", 42, modTime)
			assert.True(t, ok)
			assert.Equal(t, "digestA", digest)
		})
	}
}

func TestFileDigestCache_LoadFormatMismatch(t *testing.T) {
	// A gob file read by a JSON cache is a miss, not an error.
	jsonCache, gobPath, _ := setupCacheTest(t, cache.FormatJSON)
	writeCacheFile(t, gobPath, cache.SchemaVersion, testToolVersion, cache.FormatGob, map[string]cache.Entry{
		"a.c": {Size: 1, Digest: "d"},
	})
	require.NoError(t, jsonCache.Load(gobPath))
	_, ok := jsonCache.Lookup("a.c", 1, time.Time{})
	assert.False(t, ok)

	// And a JSON file read by a gob cache.
	gobCache, jsonPath, _ := setupCacheTest(t, cache.FormatGob)
	writeCacheFile(t, jsonPath, cache.SchemaVersion, testToolVersion, cache.FormatJSON, map[string]cache.Entry{
		"a.c": {Size: 1, Digest: "d"},
	})
	require.NoError(t, gobCache.Load(jsonPath))
	_, ok = gobCache.Lookup("a.c", 1, time.Time{})
	assert.False(t, ok)
}

func TestFileDigestCache_LoadFileNotFound(t *testing.T) {
	c, cachePath, _ := setupCacheTest(t, "")
	require.NoError(t, c.Load(cachePath))
	_, ok := c.Lookup("a.c", 1, time.Now())
	assert.False(t, ok)
}

func TestFileDigestCache_LoadEmptyFile(t *testing.T) {
	c, cachePath, _ := setupCacheTest(t, "")
	require.NoError(t, os.WriteFile(cachePath, nil, 0o644))
	require.NoError(t, c.Load(cachePath))
	_, ok := c.Lookup("a.c", 1, time.Now())
	assert.False(t, ok)
}

func TestFileDigestCache_LoadCorruptFile(t *testing.T) {
	c, cachePath, logBuf := setupCacheTest(t, "")
	require.NoError(t, os.WriteFile(cachePath, []byte("not a cache file {"), 0o644))
	require.NoError(t, c.Load(cachePath))
	_, ok := c.Lookup("a.c", 1, time.Now())
	assert.False(t, ok)
	assert.Contains(t, logBuf.String(), "unreadable")
}

func TestFileDigestCache_LoadCorruptIndex(t *testing.T) {
	c, cachePath, _ := setupCacheTest(t, cache.FormatGob)

	file, err := os.Create(cachePath)
	require.NoError(t, err)
	encoder := gob.NewEncoder(file)
	require.NoError(t, encoder.Encode(cache.FileHeader{SchemaVersion: cache.SchemaVersion, ToolVersion: testToolVersion}))
	_, err = file.Write([]byte("garbage after header"))
	require.NoError(t, err)
	require.NoError(t, file.Close())

	require.NoError(t, c.Load(cachePath))
	_, ok := c.Lookup("a.c", 1, time.Now())
	assert.False(t, ok)
}

func TestFileDigestCache_LoadSchemaMismatch(t *testing.T) {
	c, cachePath, logBuf := setupCacheTest(t, "")
	writeCacheFile(t, cachePath, "0.9", testToolVersion, cache.DefaultFormat, map[string]cache.Entry{
		"a.c": {Size: 1, Digest: "d"},
	})
	require.NoError(t, c.Load(cachePath))
	_, ok := c.Lookup("a.c", 1, time.Time{})
	assert.False(t, ok)
	assert.Contains(t, logBuf.String(), "schema version mismatch")
}

func TestFileDigestCache_LoadToolVersionMismatch(t *testing.T) {
	c, cachePath, _ := setupCacheTest(t, "")
	writeCacheFile(t, cachePath, cache.SchemaVersion, "test-v0.9", cache.DefaultFormat, map[string]cache.Entry{
		"a.c": {Size: 1, Digest: "d"},
	})
	require.NoError(t, c.Load(cachePath))
	_, ok := c.Lookup("a.c", 1, time.Time{})
	assert.False(t, ok)
}

func TestFileDigestCache_LoadDevVersionCompatibility(t *testing.T) {
	modTime := time.Now().Truncate(time.Second)
	entry := map[string]cache.Entry{"a.c": {Size: 1, ModTime: modTime, Digest: "d"}}

	cases := []struct {
		name        string
		toolVersion string
		fileVersion string
		wantHit     bool
	}{
		{"dev tool reads dev cache", "dev", "dev", true},
		{"dev tool reads versioned cache", "dev", testToolVersion, true},
		{"versioned tool reads dev cache", testToolVersion, "dev", true},
		{"versioned tool rejects other version", testToolVersion, "test-v1.1", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := cache.NewFileDigestCache(slog.NewTextHandler(io.Discard, nil), tc.toolVersion, cache.FormatGob)
			cachePath := filepath.Join(t.TempDir(), cache.FileName)
			writeCacheFile(t, cachePath, cache.SchemaVersion, tc.fileVersion, cache.FormatGob, entry)

			require.NoError(t, c.Load(cachePath))
			_, ok := c.Lookup("a.c", 1, modTime)
			assert.Equal(t, tc.wantHit, ok)
		})
	}
}

func TestFileDigestCache_Lookup(t *testing.T) {
	c, _, _ := setupCacheTest(t, "")

	modTime := time.Now().Truncate(time.Second)
	c.Store("left/a.c", 42, modTime, "digestA")

	digest, ok := c.Lookup("left/a.c", 42, modTime)
	assert.True(t, ok)
	assert.Equal(t, "digestA", digest)

	_, ok = c.Lookup("left/a.c", 43, modTime)
	assert.False(t, ok, "size change must miss")

	_, ok = c.Lookup("left/a.c", 42, modTime.Add(time.Second))
	assert.False(t, ok, "mtime change must miss")

	_, ok = c.Lookup("right/a.c", 42, modTime)
	assert.False(t, ok, "unknown path must miss")
}

func TestFileDigestCache_StoreReplaces(t *testing.T) {
	c, _, _ := setupCacheTest(t, "")

	modTime := time.Now().Truncate(time.Second)
	c.Store("a.c", 10, modTime, "old")
	c.Store("a.c", 11, modTime.Add(time.Minute), "new")

	_, ok := c.Lookup("a.c", 10, modTime)
	assert.False(t, ok)
	digest, ok := c.Lookup("a.c", 11, modTime.Add(time.Minute))
	assert.True(t, ok)
	assert.Equal(t, "new", digest)
}

func TestFileDigestCache_PersistRoundTrip(t *testing.T) {
	for _, format := range []string{cache.FormatGob, cache.FormatJSON} {
		t.Run(format, func(t *testing.T) {
			c, cachePath, _ := setupCacheTest(t, format)

			modTime := time.Now().Truncate(time.Second)
			c.Store("left/a.c", 42, modTime, "digestA")
			c.Store("right/b.h", 7, modTime.Add(-10*time.Minute), "digestB")

			require.NoError(t, c.Persist(cachePath))
			_, statErr := os.Stat(cachePath)
			require.NoError(t, statErr)

			reloaded := cache.NewFileDigestCache(slog.NewTextHandler(io.Discard, nil), testToolVersion, format)
			require.NoError(t, reloaded.Load(cachePath))

			digest, ok := reloaded.Lookup("left/a.c", 42, modTime)
			assert.True(t, ok)
			assert.Equal(t, "digestA", digest)
			digest, ok = reloaded.Lookup("right/b.h", 7, modTime.Add(-10*time.Minute))
			assert.True(t, ok)
			assert.Equal(t, "digestB", digest)
		})
	}
}

func TestFileDigestCache_PersistEmptyRemovesFile(t *testing.T) {
	c, cachePath, _ := setupCacheTest(t, "")

	writeCacheFile(t, cachePath, cache.SchemaVersion, testToolVersion, cache.DefaultFormat, map[string]cache.Entry{"stale": {}})
	_, statErr := os.Stat(cachePath)
	require.NoError(t, statErr)

	require.NoError(t, c.Persist(cachePath))
	_, statErr = os.Stat(cachePath)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestFileDigestCache_PersistPermissionError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("read-only directory semantics differ on Windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("running as root, directory permissions are not enforced")
	}
	c, _, _ := setupCacheTest(t, "")

	readOnlyDir := filepath.Join(t.TempDir(), "no_write")
	require.NoError(t, os.Mkdir(readOnlyDir, 0o555))
	defer os.Chmod(readOnlyDir, 0o755)

	c.Store("a.c", 1, time.Now(), "d")
	err := c.Persist(filepath.Join(readOnlyDir, cache.FileName))
	require.Error(t, err)
	assert.ErrorIs(t, err, cache.ErrCachePersist)
}

func TestFileDigestCache_ConcurrentStores(t *testing.T) {
	c, _, _ := setupCacheTest(t, "")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				path := fmt.Sprintf("file_%d_%d.txt", id, j)
				c.Store(path, int64(j), time.Now().Truncate(time.Second), "digest")
				c.Lookup(path, int64(j), time.Now())
			}
		}(i)
	}
	wg.Wait()
}

func TestNoOpDigestCache(t *testing.T) {
	var c cache.DigestCache = cache.NoOpDigestCache{}

	require.NoError(t, c.Load("/nonexistent/path"))
	c.Store("a.c", 1, time.Now(), "d")
	_, ok := c.Lookup("a.c", 1, time.Now())
	assert.False(t, ok)
	require.NoError(t, c.Persist(filepath.Join(t.TempDir(), cache.FileName)))
}
