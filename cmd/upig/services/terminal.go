package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/upisim/upig/config"
	"github.com/upisim/upig/internal/terminal"
	"github.com/upisim/upig/internal/transport"
	"github.com/upisim/upig/internal/vmid"
)

// StartTerminal starts the merchant terminal. It blocks until the configured
// bank answers, then serves payment requests from devices.
func StartTerminal(logger *slog.Logger, upigConfig *config.UpigConfig) (func(), error) {
	logger = logger.With(slog.String("service", "terminal"))

	mappings, err := vmid.NewFileMappingStore(
		filepath.Join(upigConfig.Terminal.DataDir, "vmid_mappings.json"),
		upigConfig.Terminal.VmidCacheTTL,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open vmid mapping store: %v", err)
	}

	client := transport.NewClient(logger,
		transport.WithDialTimeout(upigConfig.Transport.DialTimeout),
		transport.WithResponseTimeout(upigConfig.Transport.ResponseTimeout),
	)

	term := terminal.New(logger, upigConfig.Terminal.MerchantID, upigConfig.Terminal.BankAddr, client, mappings)

	err = term.WaitForBank(context.Background())
	if err != nil {
		return nil, fmt.Errorf("bank not reachable at %s: %v", upigConfig.Terminal.BankAddr, err)
	}

	server := transport.NewServer(logger, upigConfig.Terminal.ListenAddr,
		transport.WithMaxConnections(upigConfig.Transport.MaxConnections),
	)
	term.RegisterHandlers(server)

	err = server.ListenAndServe()
	if err != nil {
		return nil, fmt.Errorf("failed to start terminal server: %v", err)
	}

	logger.Info("Terminal listening", slog.String("addr", server.Addr()))

	return server.Shutdown, nil
}
