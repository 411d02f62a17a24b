package ledger

import (
	"github.com/spf13/cobra"

	"github.com/upisim/upig/cmd/upig-cli/app/ledger/verify"
)

var LedgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the bank transaction ledgers",
}

func init() {
	LedgerCmd.AddCommand(verify.Cmd)
}
