package auth

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/upisim/upig/cmd/upig-cli/helper"
)

var AuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authenticate a user by uid or mmid",
	RunE: func(_ *cobra.Command, _ []string) error {
		res, err := helper.NewDevice().Authenticate(context.Background(),
			helper.GetString("authUid"),
			helper.GetString("authMmid"),
			helper.GetString("authPassword"),
		)
		if err != nil {
			return err
		}

		fmt.Printf("uid: %s\nmmid: %s\n", res.UserID, res.MMID)
		return nil
	},
}

func init() {
	var err error

	AuthCmd.Flags().String("uid", "", "Permanent user identifier")
	err = viper.BindPFlag("authUid", AuthCmd.Flags().Lookup("uid"))
	if err != nil {
		log.Fatal(err)
	}

	AuthCmd.Flags().String("mmid", "", "Mobile-linked alias identifier")
	err = viper.BindPFlag("authMmid", AuthCmd.Flags().Lookup("mmid"))
	if err != nil {
		log.Fatal(err)
	}

	AuthCmd.Flags().String("password", "", "Account password")
	err = viper.BindPFlag("authPassword", AuthCmd.Flags().Lookup("password"))
	if err != nil {
		log.Fatal(err)
	}
}
