package token

import (
	"fmt"

	"github.com/spf13/cobra"

	apiauth "github.com/fula-project/gateway/pkg/api/auth"
	"github.com/fula-project/gateway/pkg/config"
)

var (
	issueConfigFile string
	issueSubject    string
	issueAdmin      bool
)

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a bearer access token for a bucket owner",
	Long: `Sign a new bearer access token under the gateway's configured JWT
secret (auth.jwt.secret), identifying the caller as --subject.

The resulting token is accepted at the wire boundary either directly as
"Authorization: Bearer <token>", or embedded in an AWS SigV4 access key as
"JWT:<token>".

Examples:
  fulactl token issue --subject alice
  fulactl token issue --subject ops-admin --admin`,
	RunE: runIssue,
}

func init() {
	issueCmd.Flags().StringVar(&issueConfigFile, "config", "", "Path to config file (default: $XDG_CONFIG_HOME/fula-gateway/config.yaml)")
	issueCmd.Flags().StringVar(&issueSubject, "subject", "", "Bucket owner id the token identifies (required)")
	issueCmd.Flags().BoolVar(&issueAdmin, "admin", false, "Mark the token as an administrator token")
	_ = issueCmd.MarkFlagRequired("subject")
}

func runIssue(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(issueConfigFile)
	if err != nil {
		return err
	}
	if cfg.Auth.JWT.Secret == "" {
		return fmt.Errorf("auth.jwt.secret is not configured; set FULA_AUTH_JWT_SECRET or edit the config file")
	}

	svc := apiauth.NewJWTService(cfg.Auth.JWT)
	tokenString, expiresAt, err := svc.IssueAccessToken(issueSubject, issueAdmin)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), tokenString)
	fmt.Fprintf(cmd.ErrOrStderr(), "subject: %s, expires: %s\n", issueSubject, expiresAt.Format("2006-01-02T15:04:05Z07:00"))
	return nil
}
