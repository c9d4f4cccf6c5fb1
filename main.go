package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/devduo/studio-backend/api"
	"github.com/devduo/studio-backend/app"
	"github.com/devduo/studio-backend/config"
)

func main() {
	fmt.Println("Initializing app...")

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: Error loading .env file: %v\n", err)
	}

	c := config.New()
	app.SetupLogger(c, os.Stderr)

	ctx := context.Background()
	if n, err := config.OverlaySSM(ctx, c); err != nil {
		log.Fatal().Err(err).Msg("Error loading SSM parameters")
	} else if n > 0 {
		log.Info().Int("parameters", n).Msg("Loaded configuration from SSM")
		app.SetupLogger(c, os.Stderr)
	}

	a, err := app.Build(ctx, c, app.WithProcessMetrics())
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing app")
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing storage")
		}
	}()

	if err := a.Store.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("Projects loaded with errors")
	}
	log.Info().Int("projects", len(a.Store.Projects())).Bool("usingRemote", a.Store.UsingRemote()).Msg("Project store ready")

	// both senders may fire, so neither must block after main stops receiving
	errChannel := make(chan error, 2)

	server, err := api.NewServer(api.Dependencies{
		Store:    a.Store,
		Verifier: a.Verifier,
		Tokens:   a.Tokens,
		Local:    a.Local,
		Uploader: a.Uploader,
		Metrics:  a.Metrics,
		Gatherer: a.Registry,
		Alerts:   a.Notifier,
	}, c)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing server")
	}

	go server.Start(errChannel)

	// Listen for interrupt signals to gracefully shutdown the server
	go listenToInterrupt(errChannel)

	fatalErr := <-errChannel
	log.Info().Msgf("Closing server: %v", fatalErr)

	server.ShutdownGracefully(30 * time.Second)
}

// listenToInterrupt waits for SIGINT or SIGTERM and then sends an error to the error channel.
func listenToInterrupt(errChannel chan<- error) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	errChannel <- fmt.Errorf("%s", <-c)
}
