// Command packapi serves the in-memory pack API for local load runs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/torosent/packstorm/internal/fakeapi"
	"github.com/torosent/packstorm/internal/logging"
)

func main() {
	port := flag.Int("port", 3300, "Listening port")
	latency := flag.Duration("latency", 0, "Delay added to every request")
	failureRate := flag.Float64("failure-rate", 0, "Probability of answering 500")
	seed := flag.Uint64("seed", 1, "Seed for failure injection")
	flag.Parse()

	logger, err := logging.New(os.Stderr, "info", logging.FormatConsole)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *port <= 0 {
		logger.Fatal().Msg("port must be > 0")
	}

	api := fakeapi.New(fakeapi.Options{Latency: *latency, FailureRate: *failureRate, Seed: *seed})
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", *port),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", srv.Addr).Dur("latency", *latency).Float64("failure_rate", *failureRate).Msg("pack api listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("serve")
	}
	logger.Info().Interface("packs", api.Count()).Msg("stopped")
}
