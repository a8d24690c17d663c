// Command invoicedesk-cli is a terminal client for the invoicedesk server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/polkiloo/invoicedesk/internal/client"
	"github.com/polkiloo/invoicedesk/internal/client/api"
	"github.com/polkiloo/invoicedesk/internal/client/dashboard"
	"github.com/polkiloo/invoicedesk/internal/logger"
)

func main() {
	cfg, err := client.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invoicedesk-cli: %v\n", err)
		os.Exit(2)
	}
	log := logger.NewConsole(os.Stderr, logger.ParseLevel(cfg.LogLevel))

	conns, err := api.NewConnections(cfg, log)
	if err != nil {
		log.Error("connection setup failed", slog.Any("error", err))
		conns = &client.Connections{}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, dashboard.New(conns, cfg, log), os.Stdin, os.Stdout)
	stop()
	os.Exit(code)
}
