// Command token mints bot and operator tokens for the relay API.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/go-like-relay/internal/config"
	jwtinfra "github.com/go-like-relay/internal/infrastructure/jwt"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type signer interface {
	Sign(subject, role string) (string, error)
}

func main() {
	if err := newTokenCommand(loadSigner).Execute(); err != nil {
		os.Exit(1)
	}
}

// loadSigner builds a provider from the same environment the API reads.
// JWT_PRIVATE_KEY_PATH must be set.
func loadSigner() (signer, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}
	cfg := config.Load()
	if cfg.JWTPrivateKeyPath == "" {
		return nil, fmt.Errorf("JWT_PRIVATE_KEY_PATH is required to mint tokens")
	}
	p, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func newTokenCommand(load func() (signer, error)) *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:          "token <subject>",
		Short:        "Mint a signed API token",
		Long:         "Mint an RS256 token for a bot or operator. The token is printed to stdout.",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if role != jwtinfra.RoleBot && role != jwtinfra.RoleOperator {
				return fmt.Errorf("invalid role %q: must be %s or %s", role, jwtinfra.RoleBot, jwtinfra.RoleOperator)
			}
			s, err := load()
			if err != nil {
				return fmt.Errorf("load signing key: %w", err)
			}
			tok, err := s.Sign(args[0], role)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", jwtinfra.RoleBot, "token role (bot|operator)")
	return cmd
}
