package implib

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"pyimplib/internal/toolchain"
)

// Current schema version - increment when LibraryPayload format changes
const librarySchemaVersion uint16 = 1

// Digest identifies one (definition content, tool identity) pair.
// Paths are deliberately excluded so entries hit across output
// directories.
type Digest [sha256.Size]byte

func libraryKey(defContent []byte, flavor toolchain.Flavor) Digest {
	h := sha256.New()
	h.Write(defContent)
	for _, part := range flavorKeyParts(flavor) {
		h.Write([]byte{0})
		h.Write([]byte(part))
	}
	var digest Digest
	h.Sum(digest[:0])
	return digest
}

func flavorKeyParts(f toolchain.Flavor) []string {
	switch f := f.(type) {
	case toolchain.Mingw:
		return []string{"mingw", f.Program}
	case toolchain.Llvm:
		return []string{"llvm", f.Program, f.Machine}
	case toolchain.LibExe:
		return []string{"libexe", f.Program, f.Machine}
	case toolchain.Zig:
		return append([]string{"zig", f.Program, f.Machine}, f.PreArgs...)
	}
	return []string{toolchain.Name(f)}
}

// LibraryPayload stores one generated import library for reuse across
// runs against the same definition content and tool.
type LibraryPayload struct {
	// Schema version for safe invalidation when format changes
	Schema uint16

	Stem    string
	Flavor  string
	Library []byte
}

// Cache persists generated import libraries on disk.
// Thread-safe for concurrent access.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// OpenCache initializes and returns a library cache at the standard
// location ($XDG_CACHE_HOME/<app>, falling back to ~/.cache/<app>).
func OpenCache(app string) (*Cache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, app)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

// OpenCacheDir initializes a cache rooted at an explicit directory.
func OpenCacheDir(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

func (c *Cache) pathFor(key Digest) string {
	hexKey := hex.EncodeToString(key[:])
	// Libraries live in their own subdirectory for easy cleanup.
	return filepath.Join(c.dir, "libs", hexKey+".mp")
}

// Put serializes and writes a payload to the disk cache.
func (c *Cache) Put(key Digest, payload *LibraryPayload) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	enc := msgpack.NewEncoder(f)
	if err := enc.Encode(payload); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	// Atomic replace
	return os.Rename(f.Name(), p)
}

// Get reads and deserializes a payload from the disk cache. A payload
// with a stale schema version is treated as a miss.
func (c *Cache) Get(key Digest, out *LibraryPayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	dec := msgpack.NewDecoder(f)
	if err := dec.Decode(out); err != nil {
		return false, fmt.Errorf("corrupt cache entry: %w", err)
	}
	if out.Schema != librarySchemaVersion {
		return false, nil
	}
	return true, nil
}
