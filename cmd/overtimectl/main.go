// Command overtimectl administers the overtime ledger from the shell:
// rebuilds, balance and summary queries, year-end rollover and holiday
// refreshes. It reads the same configuration as the server.
package main

import (
	"fmt"
	"os"

	"github.com/warp/overtime-engine/app"
	"github.com/warp/overtime-engine/config"
	"github.com/warp/overtime-engine/logger"
)

const serviceName = "overtimectl"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr so command output stays pipeable.
	log := logger.NewWithWriter(os.Stderr, serviceName, cfg.Log.Level)

	a, err := app.New(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open ledger: %v\n", err)
		os.Exit(1)
	}

	err = SetupCommands(a).Execute()
	a.Close()
	if err != nil {
		os.Exit(1)
	}
}
