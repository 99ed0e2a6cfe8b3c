// Package forest implements the private forest: an encrypted directory
// index that records a bucket's full path structure (files, folders, and
// their metadata) while presenting the storage layer with only flat,
// opaque, CID-like keys. A server holding the encrypted index and every
// blob it references cannot recover folder structure, file counts per
// folder, or parent/child relationships without the bucket's DEK.
package forest

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"github.com/fula-project/gateway/pkg/blockcodec"
	"github.com/fula-project/gateway/pkg/crypto/aead"
	"github.com/fula-project/gateway/pkg/crypto/keys"
)

const (
	flatKeyDomain  = "fula/flat-namespace/key/v1"
	indexKeyDomain = "fula/private-forest/index/v1"
	forestAAD      = "fula:v2:private-forest"

	currentVersion = 1
)

// GenerateFlatKey derives the flat, CID-like storage key a file at
// originalPath is stored under: deterministic given the same DEK, path,
// and forest salt, so a client who already knows the path can recompute
// the key without reading the index first. The result never reveals the
// original path or its directory structure.
func GenerateFlatKey(originalPath string, dek keys.DekKey, salt []byte) string {
	h := blake3.NewDeriveKey(flatKeyDomain)
	h.Write(dek.Bytes())          //nolint:errcheck // hash.Hash.Write never returns an error
	h.Write([]byte(originalPath)) //nolint:errcheck
	h.Write(salt)                 //nolint:errcheck
	sum := h.Sum(nil)
	return "Qm" + hex.EncodeToString(sum[:22])
}

// GenerateRandomFlatKey returns a random CID-like key, for storage slots
// that have no deterministic path to derive from.
func GenerateRandomFlatKey() (string, error) {
	var buf [22]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("forest: generating random key: %w", err)
	}
	return "Qm" + hex.EncodeToString(buf[:]), nil
}

// DeriveIndexKey derives the storage key the forest's own encrypted index
// is stored under: deterministic given the bucket's DEK and name, so a
// client can locate it without any other bookkeeping.
func DeriveIndexKey(dek keys.DekKey, bucket string) string {
	h := blake3.NewDeriveKey(indexKeyDomain)
	h.Write(dek.Bytes())    //nolint:errcheck
	h.Write([]byte(bucket)) //nolint:errcheck
	sum := h.Sum(nil)
	return "Qm" + hex.EncodeToString(sum[:22])
}

// FileEntry is one file's record in the forest.
type FileEntry struct {
	Path         string            `cbor:"path"`
	StorageKey   string            `cbor:"storage_key"`
	Size         uint64            `cbor:"size"`
	ContentType  string            `cbor:"content_type,omitempty"`
	CreatedAt    int64             `cbor:"created_at"`
	ModifiedAt   int64             `cbor:"modified_at"`
	ContentHash  string            `cbor:"content_hash,omitempty"`
	UserMetadata map[string]string `cbor:"user_metadata,omitempty"`
}

// Filename returns the last path segment.
func (e FileEntry) Filename() string {
	if idx := strings.LastIndexByte(e.Path, '/'); idx >= 0 {
		return e.Path[idx+1:]
	}
	return e.Path
}

// ParentDir returns e's containing directory path.
func (e FileEntry) ParentDir() string {
	idx := strings.LastIndexByte(e.Path, '/')
	if idx < 0 {
		return ""
	}
	return e.Path[:idx]
}

// DirectoryEntry is one directory's record in the forest: its direct
// children only, not a recursive listing.
type DirectoryEntry struct {
	Path     string            `cbor:"path"`
	Files    []string          `cbor:"files,omitempty"`
	Subdirs  []string          `cbor:"subdirs,omitempty"`
	Metadata map[string]string `cbor:"metadata,omitempty"`
}

// Forest is the plaintext directory index: the full path structure of a
// bucket, indexed both by file path and by directory path.
type Forest struct {
	Version     uint8                     `cbor:"version"`
	Salt        []byte                    `cbor:"salt"`
	Files       map[string]FileEntry      `cbor:"files"`
	Directories map[string]DirectoryEntry `cbor:"directories"`
	Root        string                    `cbor:"root"`
	CreatedAt   int64                     `cbor:"created_at"`
	ModifiedAt  int64                     `cbor:"modified_at"`
}

// New returns an empty forest with a fresh random salt and a root
// directory entry.
func New(now time.Time) (*Forest, error) {
	salt := make([]byte, 32)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("forest: generating salt: %w", err)
	}
	return &Forest{
		Version: currentVersion,
		Salt:    salt,
		Files:   make(map[string]FileEntry),
		Directories: map[string]DirectoryEntry{
			"/": {Path: "/"},
		},
		Root:       "/",
		CreatedAt:  now.Unix(),
		ModifiedAt: now.Unix(),
	}, nil
}

// GenerateKey derives the flat storage key originalPath would be stored
// under in this forest (using the forest's own salt).
func (f *Forest) GenerateKey(originalPath string, dek keys.DekKey) string {
	return GenerateFlatKey(originalPath, dek, f.Salt)
}

// UpsertFile inserts or replaces entry, creating any missing parent
// directories along the way.
func (f *Forest) UpsertFile(entry FileEntry, now time.Time) {
	parent := entry.ParentDir()
	f.ensureDirectory(parent)

	dir := f.Directories[normalizeDir(parent)]
	if !containsString(dir.Files, entry.Path) {
		dir.Files = append(dir.Files, entry.Path)
		f.Directories[normalizeDir(parent)] = dir
	}

	f.Files[entry.Path] = entry
	f.ModifiedAt = now.Unix()
}

func (f *Forest) ensureDirectory(path string) {
	normalized := normalizeDir(path)
	if normalized == "" || normalized == "/" {
		return
	}
	if _, ok := f.Directories[normalized]; ok {
		return
	}

	f.Directories[normalized] = DirectoryEntry{Path: normalized}

	parent := "/"
	if idx := strings.LastIndexByte(strings.TrimSuffix(normalized, "/"), '/'); idx > 0 {
		parent = strings.TrimSuffix(normalized, "/")[:idx]
	}
	f.ensureDirectory(parent)

	parentEntry := f.Directories[normalizeDir(parent)]
	if !containsString(parentEntry.Subdirs, normalized) {
		parentEntry.Subdirs = append(parentEntry.Subdirs, normalized)
		f.Directories[normalizeDir(parent)] = parentEntry
	}
}

func normalizeDir(path string) string {
	if path == "" || path == "/" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// RemoveFile removes path from the forest, reporting its entry if present.
func (f *Forest) RemoveFile(path string) (FileEntry, bool) {
	entry, ok := f.Files[path]
	if !ok {
		return FileEntry{}, false
	}
	delete(f.Files, path)

	parent := normalizeDir(entry.ParentDir())
	if dir, ok := f.Directories[parent]; ok {
		kept := dir.Files[:0:0]
		for _, p := range dir.Files {
			if p != path {
				kept = append(kept, p)
			}
		}
		dir.Files = kept
		f.Directories[parent] = dir
	}
	return entry, true
}

// GetFile returns path's entry, if present.
func (f *Forest) GetFile(path string) (FileEntry, bool) {
	entry, ok := f.Files[path]
	return entry, ok
}

// GetStorageKey returns the flat storage key recorded for path.
func (f *Forest) GetStorageKey(path string) (string, bool) {
	entry, ok := f.Files[path]
	if !ok {
		return "", false
	}
	return entry.StorageKey, true
}

// ListAllFiles returns every file entry, sorted by path.
func (f *Forest) ListAllFiles() []FileEntry {
	out := make([]FileEntry, 0, len(f.Files))
	for _, entry := range f.Files {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// ListDirectory returns the direct file children of dirPath (not
// recursive), sorted by path.
func (f *Forest) ListDirectory(dirPath string) []FileEntry {
	dir, ok := f.Directories[normalizeDir(dirPath)]
	if !ok {
		return nil
	}
	out := make([]FileEntry, 0, len(dir.Files))
	for _, path := range dir.Files {
		if entry, ok := f.Files[path]; ok {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// ListSubdirs returns the direct subdirectory children of dirPath, sorted.
func (f *Forest) ListSubdirs(dirPath string) []string {
	dir, ok := f.Directories[normalizeDir(dirPath)]
	if !ok {
		return nil
	}
	out := append([]string(nil), dir.Subdirs...)
	sort.Strings(out)
	return out
}

// ListRecursive returns every file whose path falls under prefix, sorted.
func (f *Forest) ListRecursive(prefix string) []FileEntry {
	normalized := normalizeDir(prefix)
	if normalized == "/" {
		normalized = ""
	}
	var out []FileEntry
	for _, entry := range f.Files {
		if strings.HasPrefix(entry.Path, normalized) {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// FileCount returns the total number of files indexed.
func (f *Forest) FileCount() int { return len(f.Files) }

// TotalSize returns the sum of every file's recorded size.
func (f *Forest) TotalSize() uint64 {
	var total uint64
	for _, entry := range f.Files {
		total += entry.Size
	}
	return total
}

// FindByStorageKey reverse-looks-up the file entry holding storageKey.
func (f *Forest) FindByStorageKey(storageKey string) (FileEntry, bool) {
	for _, entry := range f.Files {
		if entry.StorageKey == storageKey {
			return entry, true
		}
	}
	return FileEntry{}, false
}

// ExtractSubtree returns a new forest containing only the files and
// directories under prefix, sharing the parent forest's salt (so flat keys
// generated against it remain consistent), suitable for handing to a
// subtree share recipient.
func (f *Forest) ExtractSubtree(prefix string, now time.Time) *Forest {
	subtree := &Forest{
		Version:     currentVersion,
		Salt:        append([]byte(nil), f.Salt...),
		Files:       make(map[string]FileEntry),
		Directories: make(map[string]DirectoryEntry),
		Root:        prefix,
		CreatedAt:   now.Unix(),
		ModifiedAt:  now.Unix(),
	}
	for path, entry := range f.Files {
		if strings.HasPrefix(path, prefix) {
			subtree.Files[path] = entry
		}
	}
	for path, dir := range f.Directories {
		if strings.HasPrefix(path, prefix) || strings.HasPrefix(prefix, path) {
			subtree.Directories[path] = dir
		}
	}
	return subtree
}

// EncryptedForest is a forest's AEAD-sealed on-wire form.
type EncryptedForest struct {
	Version    uint8  `cbor:"version"`
	Ciphertext []byte `cbor:"ciphertext"`
	Nonce      []byte `cbor:"nonce"`
}

// Encrypt serializes and seals forest under dek.
func Encrypt(forest *Forest, dek keys.DekKey) (*EncryptedForest, error) {
	plaintext, err := blockcodec.Encode(forest)
	if err != nil {
		return nil, fmt.Errorf("forest: encoding: %w", err)
	}

	key, err := dek.AsAEADKey(aead.AlgorithmAESGCM)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("forest: generating nonce: %w", err)
	}
	ciphertext, err := aead.Seal(key, nonce, plaintext, []byte(forestAAD))
	if err != nil {
		return nil, fmt.Errorf("forest: encrypting: %w", err)
	}

	return &EncryptedForest{Version: currentVersion, Ciphertext: ciphertext, Nonce: nonce}, nil
}

// Decrypt opens and deserializes e under dek.
func (e *EncryptedForest) Decrypt(dek keys.DekKey) (*Forest, error) {
	key, err := dek.AsAEADKey(aead.AlgorithmAESGCM)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(key, e.Nonce, e.Ciphertext, []byte(forestAAD))
	if err != nil {
		return nil, fmt.Errorf("forest: decrypting: %w", err)
	}

	var forest Forest
	if err := blockcodec.Decode(plaintext, &forest); err != nil {
		return nil, fmt.Errorf("forest: decoding: %w", err)
	}
	return &forest, nil
}

// ToBytes serializes e for storage.
func (e *EncryptedForest) ToBytes() ([]byte, error) {
	b, err := blockcodec.Encode(e)
	if err != nil {
		return nil, fmt.Errorf("forest: encoding encrypted forest: %w", err)
	}
	return b, nil
}

// EncryptedForestFromBytes deserializes the form produced by ToBytes.
func EncryptedForestFromBytes(b []byte) (*EncryptedForest, error) {
	var e EncryptedForest
	if err := blockcodec.Decode(b, &e); err != nil {
		return nil, fmt.Errorf("forest: decoding encrypted forest: %w", err)
	}
	return &e, nil
}
