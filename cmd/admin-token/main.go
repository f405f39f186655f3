// Command admin-token issues and checks the bearer tokens accepted by the
// portal's admin endpoints.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/auth"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/config"
)

var (
	configPath string
	envPath    string
	subject    string
	ttl        time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "admin-token",
	Short: "Manage portal admin tokens",
	Long: `Issue and verify the bearer tokens accepted by /api/v1/admin.

Tokens are signed with auth.jwt_secret (or JWT_SECRET) from the portal
configuration, so both commands need the same config the server runs with.`,
	SilenceUsage: true,
}

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue an admin token",
	Example: `  admin-token issue --subject editor@kisanandolan.org
  admin-token issue --subject ops --ttl 1h`,
	RunE: runIssue,
}

var verifyCmd = &cobra.Command{
	Use:   "verify <token>",
	Short: "Check an admin token and print its claims",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "portal configuration file")
	rootCmd.PersistentFlags().StringVar(&envPath, "env", ".env", "env file loaded before the configuration")

	issueCmd.Flags().StringVarP(&subject, "subject", "s", "", "who the token is issued to (required)")
	issueCmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to auth.token_ttl)")
	_ = issueCmd.MarkFlagRequired("subject")

	rootCmd.AddCommand(issueCmd, verifyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadTokens() (*auth.Tokens, *config.Config, error) {
	cfg, err := config.Load(configPath, envPath)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.AdminEnabled() {
		return nil, nil, auth.ErrMissingSecret
	}
	return auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.Issuer), cfg, nil
}

func runIssue(cmd *cobra.Command, args []string) error {
	if subject == "" {
		return fmt.Errorf("--subject must not be empty")
	}
	tokens, cfg, err := loadTokens()
	if err != nil {
		return err
	}
	lifetime := ttl
	if lifetime <= 0 {
		lifetime = cfg.Auth.TokenTTL
	}

	token, err := tokens.Issue(subject, lifetime)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", time.Now().Add(lifetime).UTC().Format(time.RFC3339))
	return nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	tokens, _, err := loadTokens()
	if err != nil {
		return err
	}
	claims, err := tokens.Validate(args[0])
	if err != nil {
		return fmt.Errorf("token rejected: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "subject: %s\n", claims.Subject)
	fmt.Fprintf(out, "role:    %s\n", claims.Role)
	fmt.Fprintf(out, "issuer:  %s\n", claims.Issuer)
	if claims.ExpiresAt != nil {
		fmt.Fprintf(out, "expires: %s\n", claims.ExpiresAt.UTC().Format(time.RFC3339))
	}
	return nil
}
