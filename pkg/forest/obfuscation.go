package forest

import (
	"fmt"
	"path"

	"github.com/fula-project/gateway/pkg/crypto/keys"
)

// KeyObfuscationMode selects how a logical path maps to the storage key the
// server sees, for callers that store individual objects without
// maintaining a full forest index.
type KeyObfuscationMode int

const (
	// DeterministicHash maps the same path to the same opaque key every
	// time. Enables deduplication across uploads of the same path, at the
	// cost of letting the server observe that two uploads target the same
	// (still unknown) path.
	DeterministicHash KeyObfuscationMode = iota

	// RandomUUID assigns a fresh opaque key per upload. Nothing links two
	// uploads of the same path, but the caller must record the key
	// somewhere to ever find the object again.
	RandomUUID

	// PreserveStructure hides only filenames: directory segments pass
	// through unchanged, and the final segment is replaced by its
	// deterministic opaque form. Listing by directory prefix keeps
	// working server-side.
	PreserveStructure
)

func (m KeyObfuscationMode) String() string {
	switch m {
	case RandomUUID:
		return "random-uuid"
	case PreserveStructure:
		return "preserve-structure"
	default:
		return "deterministic-hash"
	}
}

// ObfuscateKey maps originalPath to the storage key mode prescribes. dek
// and salt are unused by RandomUUID; PreserveStructure obfuscates only the
// final path segment.
func ObfuscateKey(mode KeyObfuscationMode, originalPath string, dek keys.DekKey, salt []byte) (string, error) {
	switch mode {
	case RandomUUID:
		return GenerateRandomFlatKey()
	case PreserveStructure:
		dir, file := path.Split(originalPath)
		return dir + GenerateFlatKey(file, dek, salt), nil
	case DeterministicHash:
		return GenerateFlatKey(originalPath, dek, salt), nil
	default:
		return "", fmt.Errorf("forest: unknown obfuscation mode %d", mode)
	}
}
