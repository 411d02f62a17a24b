package descriptor

import (
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/upisim/upig/cmd/upig-cli/helper"
	"github.com/upisim/upig/internal/terminal"
	"github.com/upisim/upig/internal/transport"
	"github.com/upisim/upig/internal/vmid"
)

// DescriptorCmd runs on the terminal host: it issues an ephemeral merchant
// identifier against the terminal's mapping store and prints the payment
// descriptor a device would scan.
var DescriptorCmd = &cobra.Command{
	Use:   "descriptor",
	Short: "Issue a payment descriptor for a merchant terminal",
	RunE: func(_ *cobra.Command, _ []string) error {
		logger := helper.GetLogger()

		mappings, err := vmid.NewFileMappingStore(
			filepath.Join(helper.GetString("dataDir"), "vmid_mappings.json"),
			time.Minute,
		)
		if err != nil {
			return fmt.Errorf("failed to open vmid mapping store: %v", err)
		}

		term := terminal.New(logger,
			helper.GetString("merchantId"),
			helper.GetString("bankAddr"),
			transport.NewClient(logger),
			mappings,
		)

		descriptor, err := term.CreateDescriptor(helper.GetFloat64("descriptorAmount"), helper.GetString("descriptorDesc"))
		if err != nil {
			return err
		}

		encoded, err := descriptor.Encode()
		if err != nil {
			return err
		}

		fmt.Println(encoded)
		return nil
	},
}

func init() {
	var err error

	DescriptorCmd.Flags().String("merchantId", "", "Permanent merchant identifier of the terminal")
	err = viper.BindPFlag("merchantId", DescriptorCmd.Flags().Lookup("merchantId"))
	if err != nil {
		log.Fatal(err)
	}

	DescriptorCmd.Flags().String("dataDir", "./data/terminal", "Terminal data directory")
	err = viper.BindPFlag("dataDir", DescriptorCmd.Flags().Lookup("dataDir"))
	if err != nil {
		log.Fatal(err)
	}

	DescriptorCmd.Flags().Float64("amount", 0, "Pre-filled payment amount")
	err = viper.BindPFlag("descriptorAmount", DescriptorCmd.Flags().Lookup("amount"))
	if err != nil {
		log.Fatal(err)
	}

	DescriptorCmd.Flags().String("desc", "", "Pre-filled payment description")
	err = viper.BindPFlag("descriptorDesc", DescriptorCmd.Flags().Lookup("desc"))
	if err != nil {
		log.Fatal(err)
	}
}
