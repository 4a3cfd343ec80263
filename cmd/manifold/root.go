package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"manifold/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "manifold",
	Short: "Bedrock provider-format gateway",
	Long:  `Manifold exposes one chat completion API and adapts it to the wire formats of the model families hosted behind a Bedrock-compatible upstream.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(func() { config.Init(cfgFile) })

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/config.yaml)")
}
