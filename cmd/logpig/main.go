package main

import (
	"fmt"
	"os"

	"github.com/jademcosta/logpig/pkg/app"
	"github.com/jademcosta/logpig/pkg/config"
	"github.com/jademcosta/logpig/pkg/logger"
	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"
)

const version = "0.1.0"

var configPath *string

func main() {
	rootCmd := &cobra.Command{
		Use:   "logpig --config <FILE_PATH>",
		Short: "Appends stdin to time-rolled log files, compressing and uploading every elapsed one",
		RunE:  start,
	}

	setupCommandFlags(rootCmd)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func setupCommandFlags(rootCmd *cobra.Command) {
	configPath = rootCmd.Flags().StringP("config", "c", "", "[required]The path for the config file")
	err := rootCmd.MarkFlagRequired("config")
	if err != nil {
		panic(fmt.Sprintf("err on flags setup: %v", err))
	}
}

func start(cmd *cobra.Command, _ []string) error {
	conf, err := initializeConfig()
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	l := logger.New(&conf.Log)
	return app.New(conf, l, os.Stdin).Start()
}

func initializeConfig() (*config.Config, error) {
	confData, err := os.ReadFile(*configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	c, err := config.New(confData)
	if err != nil {
		return nil, fmt.Errorf("error initializing/parsing config: %w", err)
	}

	c.Version = version
	return c, nil
}
