package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/chainsafe/vault-etl/pkg/app"
	"github.com/chainsafe/vault-etl/pkg/app/etl"
	"github.com/chainsafe/vault-etl/pkg/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	var runner app.Runner = etl.NewServer(cfg)
	if err := runner.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "vault-etl failed: %v\n", err)
		os.Exit(1)
	}
}
