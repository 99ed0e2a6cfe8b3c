package object

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fula-project/gateway/pkg/client"
)

// connFlags are the gateway connection flags shared by every object
// subcommand.
type connFlags struct {
	endpoint    string
	identity    string
	bearerToken string
	region      string
}

func registerConnFlags(cmd *cobra.Command, f *connFlags) {
	cmd.Flags().StringVar(&f.endpoint, "endpoint", "", "Gateway base URL, e.g. https://gateway.example.com (required)")
	cmd.Flags().StringVar(&f.identity, "identity", "", "Path to the owner identity file (required; see 'fulactl identity init')")
	cmd.Flags().StringVar(&f.bearerToken, "token", "", "Bearer access token (required; see 'fulactl token issue')")
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
	c, err := client.New(client.Config{
		Endpoint:    f.endpoint,
		BearerToken: f.bearerToken,
		Region:      f.region,
	}, mgr)
	if err != nil {
		return nil, fmt.Errorf("connecting to gateway: %w", err)
	}
	return c, nil
}
