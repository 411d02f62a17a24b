package app

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/upisim/upig/cmd/upig-cli/app/auth"
	"github.com/upisim/upig/cmd/upig-cli/app/descriptor"
	"github.com/upisim/upig/cmd/upig-cli/app/ledger"
	"github.com/upisim/upig/cmd/upig-cli/app/pay"
	"github.com/upisim/upig/cmd/upig-cli/app/register"
)

var RootCmd = &cobra.Command{
	Use:   "upig-cli",
	Short: "cli tool to interact with a upig payment gateway",
}

func init() {
	var err error

	RootCmd.PersistentFlags().String("bankAddr", "localhost:9001", "Address of the bank server")
	err = viper.BindPFlag("bankAddr", RootCmd.PersistentFlags().Lookup("bankAddr"))
	if err != nil {
		log.Fatal(err)
	}

	RootCmd.PersistentFlags().String("terminalAddr", "localhost:9002", "Address of the merchant terminal")
	err = viper.BindPFlag("terminalAddr", RootCmd.PersistentFlags().Lookup("terminalAddr"))
	if err != nil {
		log.Fatal(err)
	}

	RootCmd.AddCommand(register.RegisterCmd)
	RootCmd.AddCommand(auth.AuthCmd)
	RootCmd.AddCommand(descriptor.DescriptorCmd)
	RootCmd.AddCommand(pay.PayCmd)
	RootCmd.AddCommand(ledger.LedgerCmd)
}

func Execute() error {
	return RootCmd.Execute()
}
