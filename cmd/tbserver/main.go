// tbserver serves the tablebase probe API over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/freeeve/tablebase/internal/httpapi"
	"github.com/freeeve/tablebase/internal/logx"
	"github.com/freeeve/tablebase/internal/tb"
)

func main() {
	var (
		addr    = flag.String("addr", ":8017", "listen address")
		tbPath  = flag.String("tb", os.Getenv("SYZYGY_PATH"), "tablebase search path list")
		noFifty = flag.Bool("no-50move", false, "ignore the fifty-move rule when ranking")
	)
	flag.Parse()

	logger := logx.NewLogger()

	if *tbPath == "" {
		logger.Fatal().Msg("no tablebase path: set -tb or SYZYGY_PATH")
	}

	tbs := tb.New(tb.Config{
		Paths:                *tbPath,
		DisableFiftyMoveRule: *noFifty,
		Logger:               logger,
	})
	defer tbs.Close()

	logger.Info().
		Int("tables", tbs.Size()).
		Int("max_cardinality", tbs.MaxCardinality()).
		Str("addr", *addr).
		Msg("starting probe server")

	srv := &http.Server{
		Addr:              *addr,
		Handler:           httpapi.NewRouter(logger, tbs),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
}
