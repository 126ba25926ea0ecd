package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"scalpflow/config"
	"scalpflow/internal/engine"
	"scalpflow/internal/logger"
)

func main() {
	cfg := config.Load()
	closeLog, err := logger.Setup(cfg.LogFile)
	if err != nil {
		log.Fatalf("[sigengine] log setup failed: %v", err)
	}
	defer closeLog()
	log.Println("[sigengine] starting...")

	os.MkdirAll("data", 0o755)

	svc, err := engine.New(cfg)
	if err != nil {
		log.Fatalf("[sigengine] init failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigCh
		log.Printf("[sigengine] received %s, stopping after in-flight symbol", s)
		cancel()
	}()

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("[sigengine] run failed: %v", err)
	}
	log.Println("[sigengine] stopped")
}
