// Mints the end-to-end test credential: runs the interactive authorization
// against the test client secrets and writes the credential record into
// .testdata/, where the e2e suite expects it.
//
// Usage: go run ./cmd/e2e-bootstrap [--browser]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/ytpush/ytpush/internal/creds"
	"github.com/ytpush/ytpush/internal/youtube"
)

func main() {
	secrets := flag.String("secrets", ".testdata/client_secrets.json", "OAuth client secrets file")
	out := flag.String("out", ".testdata/credentials.json", "credential file to write")
	browser := flag.Bool("browser", false, "authorize via a local browser instead of copy-paste")
	flag.Parse()

	ctx := context.Background()

	m := creds.New(creds.Options{
		TokenPath:        *out,
		SecretsPath:      *secrets,
		Scopes:           youtube.Scopes,
		AllowInteractive: true,
		Browser:          *browser,
		Logger:           slog.Default(),
	})

	if _, err := m.Ensure(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "authorization failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Authorization successful. Credential saved to " + *out)

	// The allowlist wants the channel ID, which nobody knows by heart.
	client := youtube.NewClient(youtube.DefaultBaseURL, nil, m.Source(ctx), slog.Default(), "")

	channel, err := client.MyChannel(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not fetch channel identity: %v\n", err)

		return
	}

	fmt.Printf("Authorized channel: %s (%s)\n", channel.Title, channel.ID)
	fmt.Printf("Add to .env:\n  YTPUSH_TEST_CHANNEL=%s\n  YTPUSH_ALLOWED_TEST_CHANNELS=%s\n", channel.ID, channel.ID)
}
