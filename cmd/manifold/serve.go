package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"manifold/internal/config"
	"manifold/internal/pkg/logger"
	"manifold/internal/server"
	"manifold/internal/transport"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the manifold server",
	Long:  `Start the manifold HTTP server and begin accepting chat completion requests.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logLevel := viper.GetString("log.level")
		if logLevel == "" {
			logLevel = "info"
		}

		log, err := logger.New(logLevel)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer log.Sync()

		transportCfg, err := config.Transport()
		if err != nil {
			return err
		}

		tc, err := transport.NewClient(transportCfg, logger.Named(log, "transport"))
		if err != nil {
			return fmt.Errorf("failed to build transport: %w", err)
		}

		port := viper.GetInt("server.port")
		if port == 0 {
			port = 8080
		}

		host := viper.GetString("server.host")
		if host == "" {
			host = "0.0.0.0"
		}

		addr := fmt.Sprintf("%s:%d", host, port)
		srv := server.New(addr, log, tc)
		return srv.Start()
	},
}

func SetupServeCmd() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "Server port")
	serveCmd.Flags().StringP("host", "H", "0.0.0.0", "Server host")

	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
}
