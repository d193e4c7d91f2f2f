// Package cache persists content digests between runs so unchanged file
// pairs can be recognized as byte-identical without rereading them.
package cache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileName is the standard name for the digest cache file, created inside
// the report output directory.
const FileName = ".diffreport.cache"

// SchemaVersion is the current cache file structure version. Load
// invalidates any file carrying a different version.
const SchemaVersion = "1.0"

const (
	FormatGob     = "gob"
	FormatJSON    = "json"
	DefaultFormat = FormatGob
)

// ErrCacheLoad indicates the cache index file could not be read. Missing or
// corrupt files are treated as a miss instead; only critical I/O failures
// surface through this error.
var ErrCacheLoad = errors.New("failed to load digest cache")

// ErrCachePersist indicates the cache index could not be written back.
var ErrCachePersist = errors.New("failed to persist digest cache")

// Entry stores the digest recorded for one file, keyed by size and
// modification time so stale entries never satisfy a lookup.
type Entry struct {
	Size        int64     `json:"size"`
	ModTime     time.Time `json:"modTime"`
	Digest      string    `json:"digest"`
	ToolVersion string    `json:"toolVersion"`
}

// FileHeader precedes the index in a persisted cache file and carries the
// versions used to decide whether the index is still trustworthy.
type FileHeader struct {
	SchemaVersion string `json:"schemaVersion"`
	ToolVersion   string `json:"toolVersion"`
}

// DigestCache is the run-to-run store of content digests. Lookup and Store
// must be safe for concurrent use once Load has completed.
type DigestCache interface {
	// Load reads the cache index from cachePath. A missing, corrupt, or
	// version-mismatched file yields an empty index and a nil error; only
	// critical I/O failures return an error wrapping ErrCacheLoad.
	Load(cachePath string) error

	// Lookup returns the digest recorded for path if both size and modTime
	// still match.
	Lookup(path string, size int64, modTime time.Time) (digest string, ok bool)

	// Store records the digest for path under the given size and modTime.
	Store(path string, size int64, modTime time.Time, digest string)

	// Persist atomically writes the index to cachePath. An empty index
	// removes the file instead.
	Persist(cachePath string) error
}

// HashContent returns the hex SHA-256 digest of b, the digest form stored
// in the cache.
func HashContent(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

type fileDigestCache struct {
	index       map[string]Entry
	mu          sync.RWMutex
	logger      *slog.Logger
	toolVersion string
	format      string
}

// NewFileDigestCache returns a DigestCache backed by a single index file in
// the given serialization format ("gob" or "json", defaulting to gob).
func NewFileDigestCache(loggerHandler slog.Handler, toolVersion, format string) DigestCache {
	if loggerHandler == nil {
		loggerHandler = slog.NewTextHandler(io.Discard, nil)
	}
	format = strings.ToLower(format)
	if format != FormatJSON && format != FormatGob {
		format = DefaultFormat
	}
	if toolVersion == "" {
		toolVersion = "dev"
	}
	return &fileDigestCache{
		index:       make(map[string]Entry),
		logger:      slog.New(loggerHandler).With(slog.String("component", "digestCache"), slog.String("format", format)),
		toolVersion: toolVersion,
		format:      format,
	}
}

type jsonCacheFile struct {
	Header FileHeader       `json:"header"`
	Index  map[string]Entry `json:"index"`
}

func (c *fileDigestCache) Load(cachePath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.index = make(map[string]Entry)

	file, err := os.Open(cachePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.logger.Debug("cache file not found, starting empty", slog.String("path", cachePath))
			return nil
		}
		return fmt.Errorf("%w: open %s: %w", ErrCacheLoad, cachePath, err)
	}
	defer file.Close()

	var header FileHeader
	var loaded map[string]Entry
	var decodeErr error

	if c.format == FormatJSON {
		var data jsonCacheFile
		if decodeErr = json.NewDecoder(file).Decode(&data); decodeErr == nil {
			header = data.Header
			loaded = data.Index
		}
	} else {
		decoder := gob.NewDecoder(file)
		if decodeErr = decoder.Decode(&header); decodeErr == nil {
			decodeErr = decoder.Decode(&loaded)
		}
	}

	if decodeErr != nil {
		c.logger.Warn("cache file unreadable, treating as miss",
			slog.String("path", cachePath), slog.String("error", decodeErr.Error()))
		return nil
	}
	if header.SchemaVersion != SchemaVersion {
		c.logger.Warn("cache schema version mismatch, invalidating",
			slog.String("path", cachePath), slog.String("found", header.SchemaVersion))
		return nil
	}
	if header.ToolVersion != c.toolVersion && header.ToolVersion != "dev" && c.toolVersion != "dev" {
		c.logger.Warn("cache tool version mismatch, invalidating",
			slog.String("path", cachePath), slog.String("found", header.ToolVersion))
		return nil
	}

	if loaded == nil {
		loaded = make(map[string]Entry)
	}
	c.index = loaded
	c.logger.Debug("cache loaded", slog.String("path", cachePath), slog.Int("entries", len(c.index)))
	return nil
}

func (c *fileDigestCache) Lookup(path string, size int64, modTime time.Time) (string, bool) {
	c.mu.RLock()
	entry, found := c.index[path]
	c.mu.RUnlock()

	if !found || entry.Size != size || !entry.ModTime.Equal(modTime) {
		return "", false
	}
	return entry.Digest, true
}

func (c *fileDigestCache) Store(path string, size int64, modTime time.Time, digest string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index[path] = Entry{
		Size:        size,
		ModTime:     modTime,
		Digest:      digest,
		ToolVersion: c.toolVersion,
	}
}

func (c *fileDigestCache) Persist(cachePath string) error {
	c.mu.RLock()
	indexCopy := make(map[string]Entry, len(c.index))
	for k, v := range c.index {
		indexCopy[k] = v
	}
	c.mu.RUnlock()

	if len(indexCopy) == 0 {
		if err := os.Remove(cachePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("failed to remove empty cache file",
				slog.String("path", cachePath), slog.String("error", err.Error()))
		}
		return nil
	}

	cacheDir := filepath.Dir(cachePath)
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return fmt.Errorf("%w: mkdir %s: %w", ErrCachePersist, cacheDir, err)
	}

	tempFile, err := os.CreateTemp(cacheDir, filepath.Base(cachePath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp file in %s: %w", ErrCachePersist, cacheDir, err)
	}
	tempPath := tempFile.Name()
	defer os.Remove(tempPath)

	header := FileHeader{SchemaVersion: SchemaVersion, ToolVersion: c.toolVersion}
	var encodeErr error
	if c.format == FormatJSON {
		encoder := json.NewEncoder(tempFile)
		encoder.SetIndent("", "  ")
		encodeErr = encoder.Encode(jsonCacheFile{Header: header, Index: indexCopy})
	} else {
		encoder := gob.NewEncoder(tempFile)
		if encodeErr = encoder.Encode(header); encodeErr == nil {
			encodeErr = encoder.Encode(indexCopy)
		}
	}
	if encodeErr != nil {
		tempFile.Close()
		return fmt.Errorf("%w: encode %s cache to %s: %w", ErrCachePersist, c.format, tempPath, encodeErr)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", ErrCachePersist, tempPath, err)
	}

	if err := os.Rename(tempPath, cachePath); err != nil {
		return fmt.Errorf("%w: rename %s to %s: %w", ErrCachePersist, tempPath, cachePath, err)
	}
	c.logger.Debug("cache persisted", slog.String("path", cachePath), slog.Int("entries", len(indexCopy)))
	return nil
}

// NoOpDigestCache satisfies DigestCache while remembering nothing. It backs
// runs where caching is disabled.
type NoOpDigestCache struct{}

func (NoOpDigestCache) Load(string) error { return nil }

func (NoOpDigestCache) Lookup(string, int64, time.Time) (string, bool) { return "", false }

func (NoOpDigestCache) Store(string, int64, time.Time, string) {}

func (NoOpDigestCache) Persist(string) error { return nil }
