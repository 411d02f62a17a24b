package main

import (
	"fmt"
	"log"
	"os"

	"github.com/upisim/upig/cmd/upig-cli/app"
)

func main() {
	err := run()
	if err != nil {
		log.Fatalf("failed to run upig-cli: %v", err)
	}

	os.Exit(0)
}

func run() error {
	err := app.Execute()
	if err != nil {
		return fmt.Errorf("failed to execute root command: %w", err)
	}

	return nil
}
