package cli

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"
)

func newKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "Generate TOKEN_ENC_KEY and voucher link keys (base64)",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, name := range []string{"TOKEN_ENC_KEY", "VOUCHER_LINK_HASH_KEY", "VOUCHER_LINK_BLOCK_KEY"} {
				b := make([]byte, 32)
				if _, err := rand.Read(b); err != nil {
					return err
				}
				fmt.Fprintf(out, "export %s=%s\n", name, base64.StdEncoding.EncodeToString(b))
			}
			return nil
		},
	}
}
