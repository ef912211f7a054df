package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/nkeiba/racecast/internal/httpapi"
	"github.com/nkeiba/racecast/internal/resilience"
	"github.com/nkeiba/racecast/internal/telemetry"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API (predict, backtest, simulate, health, metrics)",
		RunE:  runServe,
	}
	cmd.Flags().String("host", "127.0.0.1", "bind host")
	cmd.Flags().Int("port", 8090, "bind port")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	pipe, cleanup, err := buildPipeline(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	host, _ := cmd.Flags().GetString("host")
	port, _ := cmd.Flags().GetInt("port")

	metrics := telemetry.NewRegistry()
	guards := map[string]*resilience.Guard{pipe.guard.Name(): pipe.guard}

	handlers := httpapi.NewHandlers(pipe.predictor, pipe.source, pipe.calc, pipe.combine, pipe.repo, pipe.resolver, metrics, guards, pipe.predictCache)

	serverCfg := httpapi.DefaultServerConfig()
	serverCfg.Host = host
	serverCfg.Port = port

	server, err := httpapi.NewServer(serverCfg, handlers)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Info().Msg("racecast: shutdown signal received")
		ctx, cancel := context.WithTimeout(context.Background(), serverCfg.ReadTimeout)
		defer cancel()
		return server.Shutdown(ctx)
	}
}
