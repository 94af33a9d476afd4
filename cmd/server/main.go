package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"lexassist-backend/internal/config"
	"lexassist-backend/internal/logger"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "lexassist",
	Short: "LexAssist legal assistant API",
	Long: `LexAssist serves the legal assistant UI: streaming chat, document analysis,
translation and the legal agent swarm.

Run without a subcommand to start the HTTP server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		return logger.Init(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	},
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd, agentsCmd, tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("exiting")
		os.Exit(1)
	}
}
