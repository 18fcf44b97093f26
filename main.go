package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelrelay/modelrelay/internal/config"
	"github.com/modelrelay/modelrelay/internal/proxy"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: modelrelay <command> [flags]")
		fmt.Fprintln(os.Stderr, "Commands: serve")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		os.Exit(cmdServe())
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		fmt.Fprintln(os.Stderr, "Commands: serve")
		os.Exit(1)
	}
}

func cmdServe() int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfg := config.DefaultFromEnv()

	fs.StringVar(&cfg.Host, "host", cfg.Host, "Bind host")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "Listen port")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Enable verbose logging")
	fs.StringVar(&cfg.ReasoningEffort, "reasoning-effort", cfg.ReasoningEffort, "Default reasoning effort (none|auto|minimal|low|medium|high)")
	fs.StringVar(&cfg.Instructions, "instructions", cfg.Instructions, "System instructions for the Responses-style backend")
	fs.IntVar(&cfg.ToolNameLimit, "tool-name-limit", cfg.ToolNameLimit, "Maximum backend tool name length (0 for default)")
	fs.Parse(os.Args[2:])

	if cfg.Verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	srv := proxy.New(cfg)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	slog.Info("ModelRelay starting", "host", cfg.Host, "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err.Error() != "http: Server closed" {
		slog.Error("server error", "error", err)
		return 1
	}
	return 0
}
