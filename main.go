package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ytpush/ytpush/internal/creds"
	"github.com/ytpush/ytpush/internal/uploader"
	"github.com/ytpush/ytpush/internal/youtube"
)

// Exit codes, one per error class. Scripts rely on them to tell
// "re-authorize" apart from "the service said no" and "gave up retrying".
const (
	exitGeneric   = 1
	exitAuth      = 2
	exitProtocol  = 3
	exitExhausted = 4
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		exitOnError(err)
	}
}

// exitOnError prints a classified error message to stderr and exits.
// Subcommands return errors; the decision to exit lives only here.
func exitOnError(err error) {
	code, class := classifyExit(err)
	if class != "" {
		fmt.Fprintf(os.Stderr, "Error (%s): %v\n", class, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}

	os.Exit(code)
}

// classifyExit maps an error chain to its exit code and class label.
// Exhaustion is checked first because an exhausted upload wraps the
// retriable cause that drained the budget.
func classifyExit(err error) (int, string) {
	switch {
	case errors.Is(err, uploader.ErrRetriesExhausted):
		return exitExhausted, "retries exhausted"

	case errors.Is(err, creds.ErrNotLoggedIn),
		errors.Is(err, creds.ErrAuthorizationFailed),
		errors.Is(err, creds.ErrRefreshExhausted),
		errors.Is(err, youtube.ErrUnauthorized):
		return exitAuth, "auth"

	case errors.Is(err, uploader.ErrMalformedReply):
		return exitProtocol, "protocol"
	}

	var apiErr *youtube.APIError
	if errors.As(err, &apiErr) && !youtube.IsRetriable(err) {
		return exitProtocol, "protocol"
	}

	return exitGeneric, ""
}
