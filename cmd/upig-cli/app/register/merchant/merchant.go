package merchant

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/upisim/upig/cmd/upig-cli/helper"
	"github.com/upisim/upig/internal/upi"
)

var Cmd = &cobra.Command{
	Use:   "merchant",
	Short: "Register a merchant account at the bank",
	RunE: func(_ *cobra.Command, _ []string) error {
		res, err := helper.NewDevice().RegisterMerchant(context.Background(), &upi.RegisterMerchantRequest{
			Name:           helper.GetString("merchantName"),
			BankCode:       helper.GetString("merchantBankCode"),
			Password:       helper.GetString("merchantPassword"),
			InitialBalance: helper.GetFloat64("merchantBalance"),
		})
		if err != nil {
			return err
		}

		fmt.Printf("mid: %s\n", res.MerchantID)
		return nil
	},
}

func init() {
	var err error

	Cmd.Flags().String("name", "", "Merchant name")
	err = viper.BindPFlag("merchantName", Cmd.Flags().Lookup("name"))
	if err != nil {
		log.Fatal(err)
	}

	Cmd.Flags().String("bankCode", "", "11 character bank branch code")
	err = viper.BindPFlag("merchantBankCode", Cmd.Flags().Lookup("bankCode"))
	if err != nil {
		log.Fatal(err)
	}

	Cmd.Flags().String("password", "", "Merchant password")
	err = viper.BindPFlag("merchantPassword", Cmd.Flags().Lookup("password"))
	if err != nil {
		log.Fatal(err)
	}

	Cmd.Flags().Float64("balance", 0, "Initial account balance")
	err = viper.BindPFlag("merchantBalance", Cmd.Flags().Lookup("balance"))
	if err != nil {
		log.Fatal(err)
	}
}
