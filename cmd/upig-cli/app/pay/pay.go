package pay

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/upisim/upig/cmd/upig-cli/helper"
)

var PayCmd = &cobra.Command{
	Use:   "pay",
	Short: "Pay a scanned payment descriptor",
	RunE: func(_ *cobra.Command, _ []string) error {
		payer := helper.NewDevice()

		descriptor, err := payer.ParseDescriptor(helper.GetString("payDescriptor"))
		if err != nil {
			return fmt.Errorf("failed to parse descriptor: %w", err)
		}

		transactionID, err := payer.Pay(context.Background(),
			helper.GetString("payUid"),
			helper.GetString("payPin"),
			descriptor,
			helper.GetFloat64("payAmount"),
			helper.GetString("payDesc"),
		)
		if err != nil {
			return err
		}

		fmt.Printf("transaction: %s\n", transactionID)
		return nil
	},
}

func init() {
	var err error

	PayCmd.Flags().String("descriptor", "", "Scanned payment descriptor text")
	err = viper.BindPFlag("payDescriptor", PayCmd.Flags().Lookup("descriptor"))
	if err != nil {
		log.Fatal(err)
	}

	PayCmd.Flags().String("uid", "", "Permanent user identifier of the payer")
	err = viper.BindPFlag("payUid", PayCmd.Flags().Lookup("uid"))
	if err != nil {
		log.Fatal(err)
	}

	PayCmd.Flags().String("pin", "", "Payment PIN")
	err = viper.BindPFlag("payPin", PayCmd.Flags().Lookup("pin"))
	if err != nil {
		log.Fatal(err)
	}

	PayCmd.Flags().Float64("amount", 0, "Amount, overrides the descriptor pre-fill")
	err = viper.BindPFlag("payAmount", PayCmd.Flags().Lookup("amount"))
	if err != nil {
		log.Fatal(err)
	}

	PayCmd.Flags().String("desc", "", "Description, overrides the descriptor pre-fill")
	err = viper.BindPFlag("payDesc", PayCmd.Flags().Lookup("desc"))
	if err != nil {
		log.Fatal(err)
	}
}
