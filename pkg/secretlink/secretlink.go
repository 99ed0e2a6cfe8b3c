// Package secretlink packages a sharing.Token into a URL whose fragment
// carries the capability and is never sent to the server, and an opaque
// path segment the server does see (suitable for access logging, rate
// limiting, and revocation lookup by token ID alone).
package secretlink

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fula-project/gateway/pkg/sharing"
)

// PayloadVersion is the only fragment payload version this package emits
// or accepts.
const PayloadVersion = 1

var (
	// ErrUnsupportedVersion is returned when a fragment payload names a
	// version other than PayloadVersion.
	ErrUnsupportedVersion = errors.New("secretlink: unsupported payload version")
	// ErrMalformedURL is returned when a URL lacks the expected
	// "<gateway>/fula/share/<opaque_id>#<fragment>" shape.
	ErrMalformedURL = errors.New("secretlink: malformed share url")
	// ErrMalformedFragment is returned when the fragment is not valid
	// URL-safe base64 or does not decode to a well-formed payload.
	ErrMalformedFragment = errors.New("secretlink: malformed fragment payload")
	// ErrOpaqueIDMismatch is returned when the opaque path segment does
	// not match the token ID embedded in the fragment payload.
	ErrOpaqueIDMismatch = errors.New("secretlink: opaque id does not match token")
)

const sharePathPrefix = "/fula/share/"

// payload is the JSON object carried in the URL fragment, base64url
// encoded with no padding.
type payload struct {
	Version  int             `json:"version"`
	Token    *sharing.Token  `json:"token"`
	Label    string          `json:"label,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// Link is a secret-link URL's decomposed form: the gateway origin, the
// opaque server-visible token ID, and the capability payload.
type Link struct {
	GatewayURL string
	OpaqueID   string
	Token      *sharing.Token
	Label      string
	Metadata   json.RawMessage
}

// New builds a Link around a token for a given gateway origin (e.g.
// "https://gateway.example.com"). The opaque ID is always the token's own
// ID, so the server and the fragment agree on it by construction.
func New(gatewayURL string, token *sharing.Token) *Link {
	return &Link{
		GatewayURL: strings.TrimRight(gatewayURL, "/"),
		OpaqueID:   token.ID,
		Token:      token,
	}
}

// WithLabel attaches a human-readable label to the fragment payload.
func (l *Link) WithLabel(label string) *Link {
	l.Label = label
	return l
}

// WithMetadata attaches an opaque JSON metadata blob to the fragment
// payload. Pass nil to clear it.
func (l *Link) WithMetadata(metadata json.RawMessage) *Link {
	l.Metadata = metadata
	return l
}

// ToURL renders the link as "<gateway>/fula/share/<opaque_id>#<fragment>".
func ToURL(link *Link) (string, error) {
	if link.Token == nil {
		return "", fmt.Errorf("secretlink: link has no token")
	}
	if link.OpaqueID == "" {
		return "", fmt.Errorf("secretlink: link has no opaque id")
	}

	p := payload{
		Version:  PayloadVersion,
		Token:    link.Token,
		Label:    link.Label,
		Metadata: link.Metadata,
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("secretlink: encoding payload: %w", err)
	}
	fragment := base64.RawURLEncoding.EncodeToString(raw)

	return fmt.Sprintf("%s%s%s#%s", link.GatewayURL, sharePathPrefix, link.OpaqueID, fragment), nil
}

// Parse inverts ToURL: it splits the gateway origin, opaque ID, and
// fragment, decodes the fragment payload, and verifies the opaque ID
// matches the token carried in the fragment.
func Parse(rawURL string) (*Link, error) {
	urlPart, fragment, ok := strings.Cut(rawURL, "#")
	if !ok {
		return nil, ErrMalformedURL
	}

	idx := strings.Index(urlPart, sharePathPrefix)
	if idx < 0 {
		return nil, ErrMalformedURL
	}
	gatewayURL := urlPart[:idx]
	opaqueID := urlPart[idx+len(sharePathPrefix):]
	if opaqueID == "" || strings.Contains(opaqueID, "/") {
		return nil, ErrMalformedURL
	}

	raw, err := base64.RawURLEncoding.DecodeString(fragment)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFragment, err)
	}

	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFragment, err)
	}
	if p.Version != PayloadVersion {
		return nil, fmt.Errorf("%w: got %d", ErrUnsupportedVersion, p.Version)
	}
	if p.Token == nil {
		return nil, fmt.Errorf("%w: missing token", ErrMalformedFragment)
	}
	if p.Token.ID != opaqueID {
		return nil, ErrOpaqueIDMismatch
	}

	return &Link{
		GatewayURL: gatewayURL,
		OpaqueID:   opaqueID,
		Token:      p.Token,
		Label:      p.Label,
		Metadata:   p.Metadata,
	}, nil
}
