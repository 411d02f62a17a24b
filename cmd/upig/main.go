package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	cmd "github.com/upisim/upig/cmd/upig/services"
	"github.com/upisim/upig/config"
	upigLogger "github.com/upisim/upig/internal/logger"
)

func main() {
	err := run()
	if err != nil {
		log.Fatalf("failed to run upig: %v", err)
	}

	os.Exit(0)
}

func run() error {
	configDir, startBank, startTerminal := parseFlags()

	upigConfig, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("failed to load app config: %w", err)
	}

	logger, err := upigLogger.NewLogger(upigConfig.LogLevel, upigConfig.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to create logger: %v", err)
	}

	hostname, err := os.Hostname()
	if err != nil {
		return fmt.Errorf("failed to get host name: %v", err)
	}

	logger = logger.With(slog.String("host", hostname))

	logger.Info("Starting upig")

	shutdownFns := make([]func(), 0)

	go func() {
		if upigConfig.ProfilerAddr != "" {
			logger.Info(fmt.Sprintf("Starting profiler on http://%s/debug/pprof", upigConfig.ProfilerAddr))

			err := http.ListenAndServe(upigConfig.ProfilerAddr, nil)
			if err != nil {
				logger.Error("failed to start profiler server", slog.String("err", err.Error()))
			}
		}
	}()

	go func() {
		if upigConfig.PrometheusAddr != "" {
			logger.Info("Starting prometheus", slog.String("addr", upigConfig.PrometheusAddr))
			http.Handle("/metrics", promhttp.Handler())
			err = http.ListenAndServe(upigConfig.PrometheusAddr, nil)
			if err != nil {
				logger.Error("failed to start prometheus server", slog.String("err", err.Error()))
			}
		}
	}()

	if !isAnyFlagPassed("bank", "terminal") {
		logger.Info("No service selected, starting all")
		startBank = true
		startTerminal = true
	}

	if startBank {
		logger.Info("Starting bank")
		shutdown, err := cmd.StartBank(logger, upigConfig)
		if err != nil {
			return fmt.Errorf("failed to start bank: %v", err)
		}
		shutdownFns = append(shutdownFns, shutdown)
	}

	if startTerminal {
		logger.Info("Starting terminal")
		shutdown, err := cmd.StartTerminal(logger, upigConfig)
		if err != nil {
			return fmt.Errorf("failed to start terminal: %v", err)
		}
		shutdownFns = append(shutdownFns, shutdown)
	}

	// setup signal catching
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-signalChan
	logger.Info("Received shutdown signal", slog.String("reason", sig.String()))

	appCleanup(logger, shutdownFns)

	return nil
}

func appCleanup(logger *slog.Logger, shutdownFns []func()) {
	logger.Info("cleaning up")
	for _, fn := range shutdownFns {
		fn()
	}
}

func parseFlags() (string, bool, bool) {
	startBank := flag.Bool("bank", false, "start bank server")
	startTerminal := flag.Bool("terminal", false, "start merchant terminal")
	help := flag.Bool("help", false, "Show help")
	configDir := flag.String("config", "", "path to configuration file")

	flag.Parse()

	if *help {
		fmt.Println("usage: main [options]")
		fmt.Println("where options are:")
		fmt.Println("")
		fmt.Println("    -bank=<true|false>")
		fmt.Println("          whether to start the bank server (default=true)")
		fmt.Println("")
		fmt.Println("    -terminal=<true|false>")
		fmt.Println("          whether to start the merchant terminal (default=true)")
		fmt.Println("")
		fmt.Println("    -config=/location")
		fmt.Println("          directory to look for config (default='')")
		fmt.Println("")
		os.Exit(0)
	}

	return *configDir, *startBank, *startTerminal
}

func isAnyFlagPassed(flags ...string) bool {
	for _, name := range flags {
		found := false
		flag.Visit(func(f *flag.Flag) {
			if f.Name == name {
				found = true
			}
		})
		if found {
			return true
		}
	}
	return false
}
