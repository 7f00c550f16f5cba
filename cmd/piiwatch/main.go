package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/aleister1102/piiwatch/internal/config"
	"github.com/aleister1102/piiwatch/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = config.DefaultHealthVersion

func main() {
	flags := parseFlags()
	if flags.showVersion {
		fmt.Println(version)
		return
	}

	gCfg, err := config.LoadGlobalConfig(flags.globalConfigFile)
	if err != nil {
		log.Fatalf("[FATAL] Main: Could not load global config using path '%s': %v", flags.globalConfigFile, err)
	}
	if gCfg.HealthConfig.Version == "" || gCfg.HealthConfig.Version == config.DefaultHealthVersion {
		gCfg.HealthConfig.Version = version
	}

	zLogger, err := logger.NewForService(gCfg.LogConfig, gCfg.HealthConfig.ServiceName)
	if err != nil {
		log.Fatalf("[FATAL] Main: Could not initialize logger: %v", err)
	}

	if err := config.ValidateConfig(gCfg); err != nil {
		zLogger.Fatal().Err(err).Msg("Configuration validation failed")
	}
	zLogger.Info().
		Int("channels", len(gCfg.SlackConfig.Channels)).
		Int("databases", len(gCfg.NotionConfig.DatabaseIDs)).
		Dur("interval", gCfg.SchedulerConfig.Interval()).
		Msg("Configuration validated successfully.")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := buildApplication(ctx, gCfg, zLogger)
	if err != nil {
		zLogger.Fatal().Err(err).Msg("Failed to initialize services")
	}
	if err := app.start(); err != nil {
		app.close()
		zLogger.Fatal().Err(err).Msg("Failed to start services")
	}

	<-ctx.Done()
	zLogger.Info().Msg("Received interrupt signal, initiating graceful shutdown...")
	app.shutdown(context.Background())
	zLogger.Info().Msg("Shutdown complete.")
}
