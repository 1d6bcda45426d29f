package cmd

import (
	"fmt"

	"mailwatch/core/secrets"

	"github.com/spf13/cobra"
)

// keygenCmd prints a fresh sealing key for SECRETS_KEY.
var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a new password sealing key",
	Long: `Generate a random 32-byte key, base64-encoded, for sealing server
passwords at rest. Put it in the environment as SECRETS_KEY before adding
servers. Rotating the key invalidates every stored password.`,
	RunE: runKeygen,
}

func init() {
	RootCmd.AddCommand(keygenCmd)
}

func runKeygen(cmd *cobra.Command, args []string) error {
	key, err := secrets.GenerateKey()
	if err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}
	fmt.Println(key)
	return nil
}
