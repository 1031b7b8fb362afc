// main.go
// In main.go we wire everything together: load the config, start the client manager loop,
// serve the WebSocket endpoint and the health routes, and shut both down on a signal.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/Netflix/go-env"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	// A missing .env is fine, the environment may already be set.
	_ = godotenv.Load()

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if err := config.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	os.Exit(run(config, log))
}

func run(config Config, log *slog.Logger) int {
	manager := NewClientManager(log)
	managerCtx, stopManager := context.WithCancel(context.Background())
	defer stopManager()
	go manager.Run(managerCtx)

	server := NewServer(manager, config.Limits(), config.Origins(), log)
	httpServer := &http.Server{
		Addr:    config.Address(),
		Handler: server.Routes(),
	}

	go func() {
		log.Info("Relay listening", "address", config.Address(), "origins", config.Origins())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server stopped", "error", err)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		config.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				return httpServer.Shutdown(ctx)
			},
			"client-manager": func(_ context.Context) error {
				stopManager()
				manager.Wait()
				return nil
			},
		},
	)

	exitCode := <-wait
	log.Info("Relay stopped", "exit_code", exitCode)
	return exitCode
}
