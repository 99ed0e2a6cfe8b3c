// Package rotation implements key-encryption-key rotation: replacing the
// owner's long-term KEM keypair without re-encrypting every object,
// by re-wrapping each object's DEK from the old KEK to the new one. A
// rotation in progress keeps exactly one previous keypair alive so
// not-yet-rewrapped DEKs stay decryptable until the batch catches up.
package rotation

import (
	"errors"
	"fmt"
	"sync"

	"github.com/fula-project/gateway/pkg/crypto/hpke"
	"github.com/fula-project/gateway/pkg/crypto/keys"
)

// ErrUnknownKEKVersion is returned when a WrappedKeyInfo names a KEK
// version that is neither the current nor the single retained previous
// version.
var ErrUnknownKEKVersion = errors.New("rotation: unknown KEK version")

// ErrPreviousKeyUnavailable is returned when unwrapping requires the
// previous KEK but it has already been cleared.
var ErrPreviousKeyUnavailable = errors.New("rotation: previous keypair not available")

// ErrFileNotFound is returned by FileSystemRotation.UnwrapFile for an
// unregistered path.
var ErrFileNotFound = errors.New("rotation: file not registered")

// WrappedKeyInfo is one object's DEK, HPKE-wrapped to a specific KEK
// version.
type WrappedKeyInfo struct {
	WrappedDEK hpke.Sealed
	KEKVersion uint32
	ObjectPath string
}

// Failure pairs an object path with the error that occurred rewrapping it.
type Failure struct {
	Path  string
	Error string
}

// Result reports the outcome of a batch or full rewrap operation.
type Result struct {
	RotatedCount  int
	FailedCount   int
	Failures      []Failure
	NewKEKVersion uint32
}

// Manager tracks the current KEK and, during an in-progress rotation, the
// single previous KEK needed to decrypt not-yet-rewrapped DEKs.
type Manager struct {
	currentPublic  hpke.PublicKey
	currentPrivate hpke.PrivateKey
	currentVersion uint32

	previousPublic  *hpke.PublicKey
	previousPrivate *hpke.PrivateKey
	previousVersion *uint32
}

// NewManager starts a Manager at KEK version 1 with no previous key.
func NewManager(public hpke.PublicKey, private hpke.PrivateKey) *Manager {
	return &Manager{currentPublic: public, currentPrivate: private, currentVersion: 1}
}

// FromState reconstructs a Manager from persisted key-version bookkeeping,
// e.g. when resuming after a restart mid-rotation.
func FromState(currentPublic hpke.PublicKey, currentPrivate hpke.PrivateKey, currentVersion uint32, previousPublic *hpke.PublicKey, previousPrivate *hpke.PrivateKey, previousVersion *uint32) *Manager {
	return &Manager{
		currentPublic:   currentPublic,
		currentPrivate:  currentPrivate,
		currentVersion:  currentVersion,
		previousPublic:  previousPublic,
		previousPrivate: previousPrivate,
		previousVersion: previousVersion,
	}
}

// CurrentPublicKey returns the KEK currently used to wrap new DEKs.
func (m *Manager) CurrentPublicKey() hpke.PublicKey { return m.currentPublic }

// CurrentVersion returns the current KEK's version number.
func (m *Manager) CurrentVersion() uint32 { return m.currentVersion }

// RotateKEK generates a fresh KEK keypair, demotes the current one to
// "previous", and returns the new public key.
func (m *Manager) RotateKEK() (hpke.PublicKey, error) {
	newPublic, newPrivate, err := hpke.GenerateKeyPair()
	if err != nil {
		return hpke.PublicKey{}, fmt.Errorf("rotation: generating new KEK: %w", err)
	}

	oldPublic, oldPrivate, oldVersion := m.currentPublic, m.currentPrivate, m.currentVersion
	m.previousPublic = &oldPublic
	m.previousPrivate = &oldPrivate
	m.previousVersion = &oldVersion

	m.currentPublic = newPublic
	m.currentPrivate = newPrivate
	m.currentVersion++

	return m.currentPublic, nil
}

// WrapDEK wraps dek under the current KEK.
func (m *Manager) WrapDEK(dek keys.DekKey, objectPath string) (*WrappedKeyInfo, error) {
	wrapped, err := hpke.WrapDEK(m.currentPublic, dek.Bytes())
	if err != nil {
		return nil, fmt.Errorf("rotation: wrapping DEK: %w", err)
	}
	return &WrappedKeyInfo{WrappedDEK: wrapped, KEKVersion: m.currentVersion, ObjectPath: objectPath}, nil
}

func (m *Manager) privateKeyFor(version uint32) (hpke.PrivateKey, error) {
	if version == m.currentVersion {
		return m.currentPrivate, nil
	}
	if m.previousVersion != nil && version == *m.previousVersion {
		if m.previousPrivate == nil {
			return hpke.PrivateKey{}, ErrPreviousKeyUnavailable
		}
		return *m.previousPrivate, nil
	}
	return hpke.PrivateKey{}, fmt.Errorf("%w: %d (current: %d)", ErrUnknownKEKVersion, version, m.currentVersion)
}

// UnwrapDEK recovers info's DEK, using the current or previous KEK as
// appropriate.
func (m *Manager) UnwrapDEK(info *WrappedKeyInfo) (keys.DekKey, error) {
	private, err := m.privateKeyFor(info.KEKVersion)
	if err != nil {
		return keys.DekKey{}, err
	}
	raw, err := hpke.UnwrapDEK(private, info.WrappedDEK)
	if err != nil {
		return keys.DekKey{}, fmt.Errorf("rotation: unwrapping DEK: %w", err)
	}
	return keys.DekKeyFromBytes(raw)
}

// RewrapDEK re-wraps info's DEK under the current KEK, if it isn't
// already. A DEK already at the current version is returned unchanged.
func (m *Manager) RewrapDEK(info *WrappedKeyInfo) (*WrappedKeyInfo, error) {
	if info.KEKVersion == m.currentVersion {
		return info, nil
	}
	dek, err := m.UnwrapDEK(info)
	if err != nil {
		return nil, err
	}
	return m.WrapDEK(dek, info.ObjectPath)
}

// RewrapBatch re-wraps every entry in wrapped, collecting per-item
// failures rather than aborting on the first one.
func (m *Manager) RewrapBatch(wrapped []*WrappedKeyInfo) *Result {
	result := &Result{NewKEKVersion: m.currentVersion}
	for _, info := range wrapped {
		if _, err := m.RewrapDEK(info); err != nil {
			result.FailedCount++
			result.Failures = append(result.Failures, Failure{Path: info.ObjectPath, Error: err.Error()})
			continue
		}
		result.RotatedCount++
	}
	return result
}

// ClearPrevious drops the retained previous keypair. Call this only after
// every DEK wrapped under it has been rewrapped to the current KEK;
// afterward, WrappedKeyInfo entries still at the previous version can no
// longer be unwrapped. The previous version number is kept, so unwrapping
// at that version reports ErrPreviousKeyUnavailable.
func (m *Manager) ClearPrevious() {
	m.previousPublic = nil
	m.previousPrivate = nil
}

// HasPendingRotation reports whether a previous KEK is still retained.
func (m *Manager) HasPendingRotation() bool { return m.previousPrivate != nil }

// FileSystemRotation coordinates rotating every object's DEK across a
// whole bucket, in bounded batches so a large bucket can be rotated
// incrementally rather than in one long-running pass.
type FileSystemRotation struct {
	mu          sync.Mutex
	manager     *Manager
	wrappedKeys map[string]*WrappedKeyInfo
	batchSize   int
}

const defaultBatchSize = 100

// NewFileSystemRotation wraps a fresh Manager over public/private with the
// default batch size.
func NewFileSystemRotation(public hpke.PublicKey, private hpke.PrivateKey) *FileSystemRotation {
	return &FileSystemRotation{
		manager:     NewManager(public, private),
		wrappedKeys: make(map[string]*WrappedKeyInfo),
		batchSize:   defaultBatchSize,
	}
}

// WithBatchSize overrides the number of keys rewrapped per RotateBatch
// call.
func (f *FileSystemRotation) WithBatchSize(size int) *FileSystemRotation {
	f.batchSize = size
	return f
}

// RegisterFile records path's already-wrapped key, e.g. when loading an
// existing bucket's index.
func (f *FileSystemRotation) RegisterFile(path string, wrapped *WrappedKeyInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wrappedKeys[path] = wrapped
}

// GetWrappedKey returns path's registered wrapped key, if any.
func (f *FileSystemRotation) GetWrappedKey(path string) (*WrappedKeyInfo, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.wrappedKeys[path]
	return info, ok
}

// WrapNewFile wraps dek under the current KEK and registers it for path.
func (f *FileSystemRotation) WrapNewFile(path string, dek keys.DekKey) (*WrappedKeyInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wrapped, err := f.manager.WrapDEK(dek, path)
	if err != nil {
		return nil, err
	}
	f.wrappedKeys[path] = wrapped
	return wrapped, nil
}

// UnwrapFile recovers path's DEK.
func (f *FileSystemRotation) UnwrapFile(path string) (keys.DekKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.wrappedKeys[path]
	if !ok {
		return keys.DekKey{}, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	return f.manager.UnwrapDEK(info)
}

// Rotate starts a new KEK rotation, returning the new public key. Existing
// wrapped keys remain at their old version until rewrapped via RotateBatch
// or RotateAll.
func (f *FileSystemRotation) Rotate() (hpke.PublicKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.manager.RotateKEK()
}

// GetKeysNeedingRotation returns every registered key not yet at the
// current KEK version.
func (f *FileSystemRotation) GetKeysNeedingRotation() []*WrappedKeyInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	current := f.manager.CurrentVersion()
	var out []*WrappedKeyInfo
	for _, info := range f.wrappedKeys {
		if info.KEKVersion < current {
			out = append(out, info)
		}
	}
	return out
}

// RotateBatch rewraps up to the configured batch size of outdated keys.
func (f *FileSystemRotation) RotateBatch() *Result {
	f.mu.Lock()
	defer f.mu.Unlock()

	current := f.manager.CurrentVersion()
	var toRotate []string
	for path, info := range f.wrappedKeys {
		if len(toRotate) >= f.batchSize {
			break
		}
		if info.KEKVersion < current {
			toRotate = append(toRotate, path)
		}
	}

	result := &Result{NewKEKVersion: current}
	for _, path := range toRotate {
		rewrapped, err := f.manager.RewrapDEK(f.wrappedKeys[path])
		if err != nil {
			result.FailedCount++
			result.Failures = append(result.Failures, Failure{Path: path, Error: err.Error()})
			continue
		}
		f.wrappedKeys[path] = rewrapped
		result.RotatedCount++
	}
	return result
}

// RotateAll repeatedly calls RotateBatch until no further progress is
// made, then clears the previous KEK if every key rewrapped cleanly.
func (f *FileSystemRotation) RotateAll() *Result {
	total := &Result{}
	for {
		batch := f.RotateBatch()
		total.RotatedCount += batch.RotatedCount
		total.FailedCount += batch.FailedCount
		total.Failures = append(total.Failures, batch.Failures...)
		total.NewKEKVersion = batch.NewKEKVersion
		if batch.RotatedCount == 0 {
			break
		}
	}

	f.mu.Lock()
	if total.FailedCount == 0 && !f.manager.HasPendingRotation() {
		// Already cleared or rotation never started; nothing to do.
	} else if total.FailedCount == 0 {
		f.manager.ClearPrevious()
	}
	f.mu.Unlock()

	return total
}

// IsRotationComplete reports whether every registered key is at the
// current KEK version.
func (f *FileSystemRotation) IsRotationComplete() bool {
	return len(f.GetKeysNeedingRotation()) == 0
}

// RotationProgress returns (rotated, total) counts of registered keys
// currently at the latest KEK version.
func (f *FileSystemRotation) RotationProgress() (rotated, total int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	current := f.manager.CurrentVersion()
	total = len(f.wrappedKeys)
	for _, info := range f.wrappedKeys {
		if info.KEKVersion == current {
			rotated++
		}
	}
	return rotated, total
}

// State is a Manager's persistable snapshot: the current keypair and
// version plus, mid-rotation, the single retained previous one. Callers
// that persist key material across restarts (see pkg/client's keyring)
// round-trip through this rather than reaching into Manager's fields.
type State struct {
	CurrentPublic  hpke.PublicKey
	CurrentPrivate hpke.PrivateKey
	CurrentVersion uint32

	PreviousPublic  *hpke.PublicKey
	PreviousPrivate *hpke.PrivateKey
	PreviousVersion *uint32
}

// Snapshot captures m's current state for persistence.
func (m *Manager) Snapshot() State {
	return State{
		CurrentPublic:   m.currentPublic,
		CurrentPrivate:  m.currentPrivate,
		CurrentVersion:  m.currentVersion,
		PreviousPublic:  m.previousPublic,
		PreviousPrivate: m.previousPrivate,
		PreviousVersion: m.previousVersion,
	}
}

// FileSystemRotationFromState reconstructs a FileSystemRotation from a
// persisted Manager snapshot and the wrapped keys registered before the
// process stopped, so an interrupted rotation resumes where it left off.
func FileSystemRotationFromState(st State, wrapped []*WrappedKeyInfo) *FileSystemRotation {
	f := &FileSystemRotation{
		manager:     FromState(st.CurrentPublic, st.CurrentPrivate, st.CurrentVersion, st.PreviousPublic, st.PreviousPrivate, st.PreviousVersion),
		wrappedKeys: make(map[string]*WrappedKeyInfo, len(wrapped)),
		batchSize:   defaultBatchSize,
	}
	for _, info := range wrapped {
		f.wrappedKeys[info.ObjectPath] = info
	}
	return f
}

// Snapshot captures the underlying Manager's state for persistence.
func (f *FileSystemRotation) Snapshot() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.manager.Snapshot()
}

// AllWrappedKeys returns every registered wrapped key, for persistence.
func (f *FileSystemRotation) AllWrappedKeys() []*WrappedKeyInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*WrappedKeyInfo, 0, len(f.wrappedKeys))
	for _, info := range f.wrappedKeys {
		out = append(out, info)
	}
	return out
}

// CurrentVersion returns the underlying Manager's current KEK version.
func (f *FileSystemRotation) CurrentVersion() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.manager.CurrentVersion()
}

// ClearPrevious drops the retained previous KEK. See Manager.ClearPrevious
// for the irreversibility caveat.
func (f *FileSystemRotation) ClearPrevious() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.manager.ClearPrevious()
}

// HasPendingRotation reports whether the previous KEK is still retained.
func (f *FileSystemRotation) HasPendingRotation() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.manager.HasPendingRotation()
}
