package verify

import (
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/upisim/upig/cmd/upig-cli/helper"
	"github.com/upisim/upig/internal/ledger"
)

// Cmd runs on the bank host: it loads the named bank's ledger snapshot from
// the bank data directory and walks the chain links.
var Cmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the link integrity of a bank ledger",
	RunE: func(_ *cobra.Command, _ []string) error {
		registry, err := ledger.NewRegistry(helper.GetString("ledgerDataDir"))
		if err != nil {
			return err
		}

		chain, err := registry.Chain(helper.GetString("ledgerBank"))
		if err != nil {
			return err
		}

		if !chain.Validate() {
			return errors.New("ledger is broken")
		}

		fmt.Printf("ledger ok, %d blocks\n", chain.Len())
		return nil
	},
}

func init() {
	var err error

	Cmd.Flags().String("bank", "", "Bank name of the ledger to verify")
	err = viper.BindPFlag("ledgerBank", Cmd.Flags().Lookup("bank"))
	if err != nil {
		log.Fatal(err)
	}

	Cmd.Flags().String("dataDir", "./data/bank", "Bank data directory")
	err = viper.BindPFlag("ledgerDataDir", Cmd.Flags().Lookup("dataDir"))
	if err != nil {
		log.Fatal(err)
	}
}
