package cli

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"eco_gateway/internal/utils"
)

const apiKeyPrefix = "eco_"

// newAPIKey returns a random key with a recognisable prefix.
func newAPIKey() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return apiKeyPrefix + hex.EncodeToString(buf), nil
}

func newHashKeyCmd() *cobra.Command {
	var id string
	var key string

	cmd := &cobra.Command{
		Use:   "hash-key",
		Short: "Create an API key entry for GATEWAY_API_KEY_HASHES",
		Long: `Generates a random API key (or hashes the one given with --key) and prints
the key together with the "id=<argon2id hash>" entry to append to
GATEWAY_API_KEY_HASHES, separated from other entries by ';'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id = strings.TrimSpace(id)
			if id == "" || strings.ContainsAny(id, "=;") {
				return fmt.Errorf("--id must be non-empty and must not contain '=' or ';'")
			}
			if key == "" {
				var err error
				if key, err = newAPIKey(); err != nil {
					return err
				}
			}
			hash, err := utils.HashPasswordArgon2(key)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "API key: %s\n", key)
			fmt.Fprintf(out, "Entry:   %s=%s\n", id, hash)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Key identifier used for billing and rate limits")
	cmd.Flags().StringVar(&key, "key", "", "Existing key to hash instead of generating one")
	return cmd
}
