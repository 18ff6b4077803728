package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/papercomputeco/chatbox/cmd/chatbox/chatboxcmder"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := chatboxcmder.NewChatboxCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
