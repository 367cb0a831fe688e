package main

import (
	"context"
	"io"
	"log/slog"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestShutdownContext_FirstSignalCancels(t *testing.T) {
	parent, parentCancel := context.WithCancel(context.Background())
	defer parentCancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, stop := shutdownContext(parent, logger)
	defer stop()

	// Deliver SIGINT to ourselves; the handler must cancel the context.
	err := syscall.Kill(syscall.Getpid(), syscall.SIGINT)
	require.NoError(t, err)

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not canceled after SIGINT")
	}
}

func TestShutdownContext_StopReleasesHandler(t *testing.T) {
	parent, parentCancel := context.WithCancel(context.Background())
	defer parentCancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, stop := shutdownContext(parent, logger)

	stop()

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not canceled after stop")
	}
}

func TestShutdownContext_ParentCancelPropagates(t *testing.T) {
	parent, parentCancel := context.WithCancel(context.Background())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, stop := shutdownContext(parent, logger)
	defer stop()

	// Canceling the parent must cancel the derived context too.
	parentCancel()

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not canceled after parent cancel")
	}
}
