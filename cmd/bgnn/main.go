// Command bgnn trains a Boost-GNN model on graph data stored in local files.
package main

import (
	"fmt"
	"os"

	"github.com/YuminosukeSato/bgnn/pkg/log"
	"github.com/spf13/cobra"
)

type rootCmdConfig struct {
	logLevel string
	jsonLogs bool
}

func main() {
	if err := cliParser().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func cliParser() *cobra.Command {
	config := &rootCmdConfig{}
	rootCmd := &cobra.Command{
		Use:           "bgnn",
		Short:         "bgnn trains gradient boosted trees and a graph network together",
		Long:          `A tool to fit Boost-GNN models for node regression and classification from CSV and YAML files`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.setupLogging(cmd)
		},
	}
	rootCmd.PersistentFlags().StringVar(&config.logLevel, "log-level", "info", "debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&config.jsonLogs, "json-logs", false, "write logs as JSON lines")
	rootCmd.AddCommand(versionCmd(), fitCmd(config), initCmd())
	return rootCmd
}

func (c *rootCmdConfig) setupLogging(cmd *cobra.Command) error {
	level, err := log.ParseLevel(c.logLevel)
	if err != nil {
		return err
	}
	w := cmd.ErrOrStderr()
	if c.jsonLogs {
		log.SetProvider(log.NewZerologProvider(w, level))
		return nil
	}
	log.SetProvider(log.NewConsoleProvider(w, level))
	return nil
}
