package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/pflag"

	"github.com/aussiebroadwan/searchlab/internal/auth/app"
)

func main() {
	var (
		envFiles    []string
		showVersion bool
		checkConfig bool
	)
	pflag.StringSliceVar(&envFiles, "env-file", nil, "load environment from these files (default .env)")
	pflag.BoolVar(&showVersion, "version", false, "print the build version and exit")
	pflag.BoolVar(&checkConfig, "check-config", false, "validate the configuration and exit")
	pflag.Parse()

	if showVersion {
		fmt.Println(app.BuildVersion)
		return
	}

	cfg := app.LoadConfig(envFiles...)
	if checkConfig {
		if err := cfg.Validate(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println("configuration ok")
		return
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
