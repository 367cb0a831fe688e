package creds

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/ytpush/ytpush/internal/tokenfile"
)

// oobRedirectURL makes the authorization server display the code for the
// user to copy instead of redirecting anywhere.
const oobRedirectURL = "urn:ietf:wg:oauth:2.0:oob"

// stateTokenBytes is the number of random bytes in the OAuth2 state parameter.
const stateTokenBytes = 16

// callbackShutdownTimeout bounds both header reads on the callback server
// and its drain on shutdown.
const callbackShutdownTimeout = 5 * time.Second

// loadSecrets reads and parses the OAuth2 client-secrets file.
func (m *Manager) loadSecrets() (*oauth2.Config, error) {
	data, err := os.ReadFile(m.opts.SecretsPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("creds: client secrets file %s not found, download it from the Google API console: %w",
				m.opts.SecretsPath, err)
		}

		return nil, fmt.Errorf("creds: reading client secrets: %w", err)
	}

	cfg, err := google.ConfigFromJSON(data, m.opts.Scopes...)
	if err != nil {
		return nil, fmt.Errorf("creds: parsing client secrets %s: %w", m.opts.SecretsPath, err)
	}

	return cfg, nil
}

// authorize runs the interactive OAuth2 flow selected by the options and
// persists the resulting record.
func (m *Manager) authorize(ctx context.Context) (*tokenfile.Record, error) {
	cfg, err := m.loadSecrets()
	if err != nil {
		return nil, err
	}

	ctx = m.withHTTPClient(ctx)

	var tok *oauth2.Token
	if m.opts.Browser {
		tok, err = m.browserAuth(ctx, cfg)
	} else {
		tok, err = m.manualAuth(ctx, cfg)
	}

	if err != nil {
		return nil, err
	}

	if tok.Expiry.IsZero() {
		tok.Expiry = m.now().Add(time.Hour)
	}

	rec := &tokenfile.Record{
		Token:        tok,
		Scopes:       m.opts.Scopes,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
	}

	if err := tokenfile.Save(m.opts.TokenPath, rec); err != nil {
		return nil, fmt.Errorf("creds: saving credentials: %w", err)
	}

	m.logger.Info("authorization complete",
		slog.String("path", m.opts.TokenPath),
		slog.Time("expiry", tok.Expiry),
	)

	return rec, nil
}

// manualAuth prints the authorization URL and reads the resulting code
// through the prompt. Works over SSH and inside containers where no
// browser or reachable localhost exists.
func (m *Manager) manualAuth(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	cfg.RedirectURL = oobRedirectURL

	authURL := cfg.AuthCodeURL("", oauth2.AccessTypeOffline, oauth2.ApprovalForce)

	m.logger.Info("starting manual authorization flow")

	code, err := m.prompt(authURL)
	if err != nil {
		return nil, fmt.Errorf("creds: reading authorization code: %w", err)
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("creds: empty authorization code: %w", ErrAuthorizationFailed)
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("creds: exchanging authorization code: %w: %w", ErrAuthorizationFailed, err)
	}

	return tok, nil
}

// callbackResult carries the authorization code or error out of the
// callback handler.
type callbackResult struct {
	code string
	err  error
}

// browserAuth performs the authorization code + PKCE flow with a loopback
// redirect: bind 127.0.0.1 on an ephemeral port, open the browser, receive
// the state-checked callback, exchange the code.
func (m *Manager) browserAuth(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	resultCh := make(chan callbackResult, 1)
	mux := http.NewServeMux()

	srv, port, err := m.startCallbackServer(ctx, mux, resultCh)
	if err != nil {
		return nil, err
	}

	defer m.shutdownCallbackServer(srv)

	cfg.RedirectURL = fmt.Sprintf("http://127.0.0.1:%d/callback", port)

	verifier := oauth2.GenerateVerifier()

	state, err := generateState()
	if err != nil {
		return nil, fmt.Errorf("creds: generating state token: %w", err)
	}

	// Method-qualified mux patterns need Go 1.22; restrict to GET/HEAD by
	// hand so other methods get 405 exactly as a "GET /callback" pattern
	// would produce.
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)

			return
		}

		handleCallback(w, r, state, resultCh)
	})

	authURL := cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.S256ChallengeOption(verifier),
	)

	m.launchBrowser(authURL)

	code, err := waitForCallback(ctx, resultCh)
	if err != nil {
		return nil, err
	}

	m.logger.Info("received authorization code, exchanging for token")

	tok, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("creds: exchanging authorization code: %w: %w", ErrAuthorizationFailed, err)
	}

	return tok, nil
}

// startCallbackServer binds 127.0.0.1:0 and serves the redirect endpoint
// until the flow finishes.
func (m *Manager) startCallbackServer(ctx context.Context, mux *http.ServeMux, resultCh chan<- callbackResult) (*http.Server, int, error) {
	lc := net.ListenConfig{}

	listener, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		return nil, 0, fmt.Errorf("creds: binding callback listener: %w", err)
	}

	tcpAddr, ok := listener.Addr().(*net.TCPAddr)
	if !ok {
		listener.Close()

		return nil, 0, fmt.Errorf("creds: callback listener address is not TCP")
	}

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: callbackShutdownTimeout,
	}

	go func() {
		if serveErr := srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			resultCh <- callbackResult{err: fmt.Errorf("creds: callback server: %w", serveErr)}
		}
	}()

	m.logger.Info("callback server listening", slog.Int("port", tcpAddr.Port))

	return srv, tcpAddr.Port, nil
}

// handleCallback validates the state, extracts the code, and reports the
// result. The response body is what the user sees in the browser tab.
func handleCallback(w http.ResponseWriter, r *http.Request, state string, resultCh chan<- callbackResult) {
	query := r.URL.Query()

	if query.Get("state") != state {
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		resultCh <- callbackResult{err: fmt.Errorf("creds: authorization state mismatch: %w", ErrAuthorizationFailed)}

		return
	}

	if errParam := query.Get("error"); errParam != "" {
		http.Error(w, "Authorization failed: "+errParam, http.StatusBadRequest)
		resultCh <- callbackResult{err: fmt.Errorf("creds: authorization denied (%s): %w", errParam, ErrAuthorizationFailed)}

		return
	}

	code := query.Get("code")
	if code == "" {
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		resultCh <- callbackResult{err: fmt.Errorf("creds: callback missing authorization code: %w", ErrAuthorizationFailed)}

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<html><body><h1>Authorization complete</h1>"+
		"<p>You can close this window and return to the terminal.</p></body></html>")
	resultCh <- callbackResult{code: code}
}

// shutdownCallbackServer drains the callback server. Failures are logged,
// not propagated, since this runs in a defer after the flow decided.
func (m *Manager) shutdownCallbackServer(srv *http.Server) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), callbackShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		m.logger.Warn("callback server shutdown error", slog.String("error", err.Error()))
	}
}

// launchBrowser opens the authorization URL, falling back to printing it
// when the opener fails.
func (m *Manager) launchBrowser(authURL string) {
	m.logger.Info("opening browser for authorization")

	if err := m.openURL(authURL); err != nil {
		m.logger.Warn("failed to open browser, printing URL",
			slog.String("error", err.Error()),
		)

		fmt.Fprintf(os.Stderr, "Open this URL in your browser:\n%s\n", authURL)
	}
}

// waitForCallback blocks until the redirect fires or the context ends.
func waitForCallback(ctx context.Context, resultCh <-chan callbackResult) (string, error) {
	select {
	case result := <-resultCh:
		if result.err != nil {
			return "", result.err
		}

		return result.code, nil
	case <-ctx.Done():
		return "", fmt.Errorf("creds: authorization canceled: %w", ctx.Err())
	}
}

// generateState produces a cryptographically random hex string for the
// OAuth2 state parameter.
func generateState() (string, error) {
	b := make([]byte, stateTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}

// stdinPrompt is the default prompt: instructions on stderr, code on stdin.
func stdinPrompt(authURL string) (string, error) {
	fmt.Fprintf(os.Stderr, "Open this URL in a browser and authorize the application:\n\n%s\n\nEnter the authorization code: ", authURL)

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}

	return strings.TrimSpace(line), nil
}

// defaultOpenURL launches the platform browser.
func defaultOpenURL(u string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", u).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", u).Start()
	default:
		return exec.Command("xdg-open", u).Start()
	}
}
