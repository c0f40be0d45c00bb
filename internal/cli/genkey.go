package cli

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/agency-connect/internal/adapters/driven/secrets"
)

var genKeyBase64 bool

// genKeyCmd prints a fresh key suitable for OAUTH_STATE_SECRET or TOKEN_ENCRYPTION_KEY
var genKeyCmd = &cobra.Command{
	Use:   "gen-key",
	Short: "Print a random 32-byte key",
	Long: `Print a random 32-byte key, hex encoded by default.

Generate one key per purpose; OAUTH_STATE_SECRET and TOKEN_ENCRYPTION_KEY
must not share a value.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := secrets.GenerateKey()
		if err != nil {
			return err
		}
		if genKeyBase64 {
			fmt.Fprintln(cmd.OutOrStdout(), base64.StdEncoding.EncodeToString(key))
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(key))
		return nil
	},
}

func init() {
	genKeyCmd.Flags().BoolVar(&genKeyBase64, "base64", false, "Print standard base64 instead of hex")
	RootCmd.AddCommand(genKeyCmd)
}
