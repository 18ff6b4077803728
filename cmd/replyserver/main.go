package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/chatbox/pkg/llm"
	"github.com/papercomputeco/chatbox/pkg/logger"
	"github.com/papercomputeco/chatbox/server"
)

func main() {
	// Parse command line flags
	listenAddr := flag.String("listen", ":8080", "Address to listen on")
	upstreamURL := flag.String("upstream", "", "Upstream LLM provider URL (e.g., Ollama at http://localhost:11434); empty echoes the last message")
	model := flag.String("model", "llama3.2", "Model requested from the upstream provider")
	temperature := flag.Float64("temperature", -1, "Sampling temperature forwarded upstream (negative for the provider default)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Set up logger
	log := logger.NewLogger(*debug, nil)
	defer log.Sync()

	log.Info("chatbox reply server starting",
		zap.String("listen", *listenAddr),
		zap.String("upstream", *upstreamURL),
		zap.Bool("debug", *debug),
	)

	config := server.Config{
		ListenAddr:  *listenAddr,
		UpstreamURL: *upstreamURL,
		Model:       *model,
	}
	if *temperature >= 0 {
		config.Options = &llm.Options{Temperature: temperature}
	}

	s := server.New(config, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown failed", zap.Error(err))
		}
	}()

	if err := s.Run(); err != nil {
		log.Fatal("reply server failed", zap.Error(err))
	}
}
