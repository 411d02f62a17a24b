package user

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
	Use:   "user",
	Short: "Register a user account at the bank",
	RunE: func(_ *cobra.Command, _ []string) error {
		res, err := helper.NewDevice().RegisterUser(context.Background(), &upi.RegisterUserRequest{
			Name:           helper.GetString("userName"),
			BankCode:       helper.GetString("userBankCode"),
			MobileNumber:   helper.GetString("userMobile"),
			Password:       helper.GetString("userPassword"),
			PIN:            helper.GetString("userPin"),
			InitialBalance: helper.GetFloat64("userBalance"),
		})
		if err != nil {
			return err
		}

		fmt.Printf("uid: %s\nmmid: %s\n", res.UserID, res.MMID)
		return nil
	},
}

func init() {
	var err error

	Cmd.Flags().String("name", "", "Account holder name")
	err = viper.BindPFlag("userName", Cmd.Flags().Lookup("name"))
	if err != nil {
		log.Fatal(err)
	}

	Cmd.Flags().String("bankCode", "", "11 character bank branch code")
	err = viper.BindPFlag("userBankCode", Cmd.Flags().Lookup("bankCode"))
	if err != nil {
		log.Fatal(err)
	}

	Cmd.Flags().String("mobile", "", "Mobile number linked to the account")
	err = viper.BindPFlag("userMobile", Cmd.Flags().Lookup("mobile"))
	if err != nil {
		log.Fatal(err)
	}

	Cmd.Flags().String("password", "", "Account password")
	err = viper.BindPFlag("userPassword", Cmd.Flags().Lookup("password"))
	if err != nil {
		log.Fatal(err)
	}

	Cmd.Flags().String("pin", "", "Payment PIN")
	err = viper.BindPFlag("userPin", Cmd.Flags().Lookup("pin"))
	if err != nil {
		log.Fatal(err)
	}

	Cmd.Flags().Float64("balance", 0, "Initial account balance")
	err = viper.BindPFlag("userBalance", Cmd.Flags().Lookup("balance"))
	if err != nil {
		log.Fatal(err)
	}
}
