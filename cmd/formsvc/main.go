// Command formsvc runs the reference form service: form CRUD, public
// submission and payment endpoints, and the translator, over an in-memory
// store. It exists for local development and integration testing of hosts
// that embed the engine.
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

	"go.uber.org/zap"

	"github.com/parishkit/formengine/internal/httpapi"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	addr := flag.String("addr", envOr("FORMSVC_ADDR", ":8080"), "listen address")
	approvalBase := flag.String("approval-base", envOr("FORMSVC_APPROVAL_BASE", ""), "payment approval URL base")
	flag.Parse()

	handler := httpapi.NewHandler(httpapi.Config{
		Logger:       logger,
		ApprovalBase: *approvalBase,
	})

	server := &http.Server{
		Addr:              *addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("form service listening", zap.String("addr", *addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
