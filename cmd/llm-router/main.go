// Package main is the entry point for llm-router.
package main

import (
	"context"
	"os"

	"charm.land/fang/v2"
	"github.com/spf13/cobra"
)

const defaultConfigFile = "config.yaml"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "llm-router",
	Short: "Local proxy and admin surface for LLM providers",
	Long: `llm-router is a local proxy that sits between desktop tooling and LLM
backends (local servers, cloud proxies, direct cloud APIs). It relays traffic
to the active provider, records request telemetry, and exposes an admin API
for providers and settings.`,
}

func init() {
	// Global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file path (default: ./"+defaultConfigFile+" or ~/.config/llm-router/"+defaultConfigFile+")")
}

func main() {
	if err := fang.Execute(context.Background(), rootCmd); err != nil {
		os.Exit(1)
	}
}
