package config

// KEMMode selects the key-encapsulation mechanism used when wrapping DEKs
// for a recipient's public key, in pkg/crypto/hpke and pkg/crypto/hybridkem.
type KEMMode string

const (
	// KEMModeClassic uses standard HPKE (X25519-based KEM).
	KEMModeClassic KEMMode = "classic"

	// KEMModeHybrid uses the X25519 + ML-KEM hybrid KEM, giving
	// post-quantum confidentiality for wrapped DEKs.
	KEMModeHybrid KEMMode = "hybrid"
)

// CryptoConfig selects the default cryptographic primitives used for new
// DEKs, recipient key wrapping, and share tokens. Existing ciphertext
// already on disk is unaffected by changing these defaults; only newly
// sealed data picks up the new mode.
type CryptoConfig struct {
	// KEMMode selects the default KEM for new recipient key pairs:
	// "classic" or "hybrid".
	KEMMode KEMMode `mapstructure:"kem_mode" validate:"required,oneof=classic hybrid" yaml:"kem_mode"`

	// KeyRotationInterval is the recommended interval after which the
	// owner's KEK should be rotated with 'fulactl identity rotate'. Zero
	// disables the recommendation; rotation remains available on demand
	// regardless.
	KeyRotationInterval string `mapstructure:"key_rotation_interval" yaml:"key_rotation_interval,omitempty"`
}
