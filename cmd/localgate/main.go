// localgate serves a local OpenAI/Ollama-compatible HTTP API in front of an
// on-device text-generation engine.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/applelocal/localgate/internal/config"
	"github.com/applelocal/localgate/internal/gateway"
	"github.com/applelocal/localgate/internal/provider"
	"github.com/applelocal/localgate/internal/router"
	"github.com/applelocal/localgate/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	port := flag.Int("port", 0, "listen port override")
	flag.Parse()

	// .env is optional; ignore a missing file.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Configuration invalid")
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	initLogging(cfg.LogLevel)

	gen := buildGenerator(cfg)
	gw := gateway.New(cfg, gen)
	srv := server.New(cfg.Server.Host, cfg.Server.Port, router.New(gw))

	go logEvents(srv)

	if err := srv.Start(); err != nil {
		log.Error().Err(err).Msg("Listener failed to start")
		os.Exit(1)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigc
	log.Info().Str("signal", sig.String()).Msg("Shutting down")
	srv.Stop()
}

func initLogging(level string) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

func buildGenerator(cfg *config.Config) provider.TextGenerator {
	if cfg.Provider.Endpoint == "" {
		log.Warn().Msg("No provider endpoint configured; generation calls will fail as unavailable")
		return provider.GenerateFunc(func(context.Context, provider.GenerateParams) (string, error) {
			return "", provider.ErrUnavailable
		})
	}

	var gen provider.TextGenerator = provider.NewHTTPGenerator(
		cfg.Provider.Endpoint,
		cfg.Provider.Model,
		cfg.Provider.Temperature,
		cfg.Provider.Timeout,
	)
	if cfg.Provider.Serialize {
		gen = provider.Serialize(gen)
	}
	return gen
}

func logEvents(srv *server.Server) {
	for ev := range srv.Events() {
		switch ev.State {
		case server.StateReady:
			log.Info().Str("addr", ev.Addr).Msg("Server ready")
		case server.StateFailed:
			log.Error().Err(ev.Err).Msg("Server failed")
		case server.StateStopped:
			log.Info().Msg("Server stopped")
		}
	}
}
