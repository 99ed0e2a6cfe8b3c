package share

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fula-project/gateway/pkg/client"
	"github.com/fula-project/gateway/pkg/crypto/hpke"
)

// connFlags are the gateway connection flags shared by share subcommands
// that act on the owner's behalf.
type connFlags struct {
	endpoint    string
	identity    string
	bearerToken string
	region      string
}

func registerConnFlags(cmd *cobra.Command, f *connFlags) {
	cmd.Flags().StringVar(&f.endpoint, "endpoint", "", "Gateway base URL (required)")
	cmd.Flags().StringVar(&f.identity, "identity", "", "Path to the owner identity file (required)")
	cmd.Flags().StringVar(&f.bearerToken, "token", "", "Bearer access token (required)")
	cmd.Flags().StringVar(&f.region, "region", "", "SigV4 region sent to the gateway (not validated server-side)")
	_ = cmd.MarkFlagRequired("endpoint")
	_ = cmd.MarkFlagRequired("identity")
	_ = cmd.MarkFlagRequired("token")
}

func (f *connFlags) newClient() (*client.Client, error) {
	mgr, err := client.LoadIdentity(f.identity)
	if err != nil {
		return nil, err
	}
	return client.New(client.Config{Endpoint: f.endpoint, BearerToken: f.bearerToken, Region: f.region}, mgr)
}

func parseRecipient(hexKey string) (hpke.PublicKey, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return hpke.PublicKey{}, fmt.Errorf("decoding --recipient: %w", err)
	}
	return hpke.ParsePublicKey(raw)
}
