package services

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/upisim/upig/config"
	"github.com/upisim/upig/internal/bank"
	"github.com/upisim/upig/internal/bank/store/filestore"
	"github.com/upisim/upig/internal/ledger"
	"github.com/upisim/upig/internal/transport"
)

// StartBank wires the account store, the per-bank ledgers and the transaction
// processor together and starts serving the bank protocol.
func StartBank(logger *slog.Logger, upigConfig *config.UpigConfig) (func(), error) {
	logger = logger.With(slog.String("service", "bank"))

	accounts, err := filestore.New(upigConfig.Bank.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open account store: %v", err)
	}

	err = bank.SeedDefaultBanks(accounts)
	if err != nil {
		return nil, fmt.Errorf("failed to seed banks: %v", err)
	}

	ledgers, err := ledger.NewRegistry(upigConfig.Bank.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger registry: %v", err)
	}

	processor := bank.NewProcessor(logger, accounts, ledgers,
		bank.WithAutoRegisterPayee(upigConfig.Bank.AutoRegisterPayee),
		bank.WithStats(bank.NewStats(prometheus.DefaultRegisterer)),
	)

	server := transport.NewServer(logger, upigConfig.Bank.ListenAddr,
		transport.WithMaxConnections(upigConfig.Transport.MaxConnections),
	)
	bank.NewServer(logger, processor).RegisterHandlers(server)

	err = server.ListenAndServe()
	if err != nil {
		return nil, fmt.Errorf("failed to start bank server: %v", err)
	}

	logger.Info("Bank listening", slog.String("addr", server.Addr()))

	return server.Shutdown, nil
}
