package register

import (
	"github.com/spf13/cobra"

	"github.com/upisim/upig/cmd/upig-cli/app/register/merchant"
	"github.com/upisim/upig/cmd/upig-cli/app/register/user"
)

var RegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a user or merchant account at the bank",
}

func init() {
	RegisterCmd.AddCommand(user.Cmd)
	RegisterCmd.AddCommand(merchant.Cmd)
}
