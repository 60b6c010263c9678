// Package assets handles glTF asset loading and caching.
package assets

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Faultbox/wg3d/pkg/convert"
	"github.com/Faultbox/wg3d/pkg/formats"
)

// Asset loading errors.
var (
	ErrInvalidBufferLength = errors.New("buffer length does not match its declaration")
	ErrInvalidDataURI      = errors.New("invalid data URI")
	ErrMissingBinChunk     = errors.New("buffer refers to a missing GLB binary chunk")
)

// Asset is a parsed document together with its resolved buffers.
type Asset struct {
	Path    string
	Doc     *formats.GLTF
	Buffers convert.Buffers

	dir     string
	manager *Manager
}

// LoadImage resolves an image URI relative to the asset. It satisfies
// convert.ImageLoader.
func (a *Asset) LoadImage(uri string) ([]byte, error) {
	return a.manager.resolveURI(a.dir, uri)
}

// Manager loads documents and the files they reference from disk. File
// contents are cached by path, so assets sharing a buffer or texture read
// it once.
type Manager struct {
	cache *Cache
	mu    sync.Mutex
}

// NewManager creates a new asset manager.
func NewManager() *Manager {
	return &Manager{
		cache: NewCache(),
	}
}

// Open reads and parses a .gltf or .glb file and resolves all of its
// buffers.
func (m *Manager) Open(path string) (*Asset, error) {
	data, err := m.Load(path)
	if err != nil {
		return nil, err
	}

	doc, err := formats.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	asset := &Asset{
		Path:    path,
		Doc:     doc,
		dir:     filepath.Dir(path),
		manager: m,
	}

	asset.Buffers = make(convert.Buffers, len(doc.Buffers))
	for i := range doc.Buffers {
		buf, err := m.loadBuffer(asset, i)
		if err != nil {
			return nil, fmt.Errorf("%s buffer %d: %w", path, i, err)
		}
		asset.Buffers[i] = buf
	}

	return asset, nil
}

// loadBuffer resolves one buffer and checks it against its declared
// length. The GLB binary chunk may carry up to 3 bytes of padding.
func (m *Manager) loadBuffer(asset *Asset, index int) ([]byte, error) {
	b := &asset.Doc.Buffers[index]

	if b.URI == "" {
		bin := asset.Doc.BinaryChunk
		if bin == nil || index != 0 {
			return nil, ErrMissingBinChunk
		}
		if len(bin) < b.ByteLength || len(bin) > b.ByteLength+3 {
			return nil, fmt.Errorf("%w: binary chunk has %d bytes, declared %d", ErrInvalidBufferLength, len(bin), b.ByteLength)
		}
		return bin[:b.ByteLength], nil
	}

	data, err := m.resolveURI(asset.dir, b.URI)
	if err != nil {
		return nil, err
	}
	if len(data) != b.ByteLength {
		return nil, fmt.Errorf("%w: %q has %d bytes, declared %d", ErrInvalidBufferLength, b.URI, len(data), b.ByteLength)
	}
	return data, nil
}

// resolveURI returns the bytes behind a data URI or a path relative to dir.
func (m *Manager) resolveURI(dir, uri string) ([]byte, error) {
	if strings.HasPrefix(uri, "data:") {
		return decodeDataURI(uri)
	}

	rel, err := url.PathUnescape(uri)
	if err != nil {
		return nil, fmt.Errorf("unescaping %q: %w", uri, err)
	}
	return m.Load(filepath.Join(dir, filepath.FromSlash(rel)))
}

// decodeDataURI decodes a base64 data URI.
func decodeDataURI(uri string) ([]byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("%w: only base64 payloads are supported", ErrInvalidDataURI)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	return data, nil
}

// Load reads a file from disk through the cache.
func (m *Manager) Load(path string) ([]byte, error) {
	path = filepath.Clean(path)
	if data, ok := m.cache.Get(path); ok {
		return data, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	m.cache.Set(path, data)
	return data, nil
}

// Stats reports cache hits, misses and the number of cached files.
func (m *Manager) Stats() (hits, misses, files int) {
	hits, misses = m.cache.Stats()
	return hits, misses, m.cache.Len()
}

// Close drops all cached files.
func (m *Manager) Close() {
	m.cache.Clear()
}

// Cache is a simple in-memory cache for loaded files.
type Cache struct {
	data map[string][]byte
	mu   sync.RWMutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string][]byte),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// Len returns the number of cached files.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
