package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"moodcal/internal/cli"
	"moodcal/internal/config"
	"moodcal/internal/export"
)

// newSheetsAuthCommand runs the OAuth installed-app flow once and stores
// the resulting token for the Sheets export target.
func newSheetsAuthCommand(a *app) *cobra.Command {
	var (
		port      string
		tokenFile string
		timeout   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "sheets-auth",
		Short: "Authorize Google Sheets export with an OAuth client and save the token",
		Args:  cobra.NoArgs,
		// No store is needed; only the OAuth client settings.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.cfg = config.Load()
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if tokenFile == "" {
				tokenFile = a.cfg.GoogleOAuthTokenFile
			}
			if tokenFile == "" {
				tokenFile = "token.json"
			}

			oauthCfg, err := export.OAuthConfig(cli.SheetsCredentials(a.cfg), "http://localhost:"+port+"/callback")
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			ln, err := net.Listen("tcp", "localhost:"+port)
			if err != nil {
				return fmt.Errorf("listen for OAuth redirect: %w", err)
			}
			state := uuid.NewString()
			a.printf("Open this URL to authorize:\n%s\n", oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline))
			code, err := awaitCode(ctx, ln, state)
			if err != nil {
				return err
			}
			tok, err := oauthCfg.Exchange(ctx, code)
			if err != nil {
				return fmt.Errorf("token exchange: %w", err)
			}
			if err := export.SaveToken(tokenFile, tok); err != nil {
				return err
			}
			a.printf("Saved token to %s; set GOOGLE_OAUTH_TOKEN_FILE=%s\n", tokenFile, tokenFile)
			return nil
		},
	}
	cmd.Flags().StringVar(&port, "port", "8085", "local port for the OAuth redirect")
	cmd.Flags().StringVar(&tokenFile, "token-file", "", "where to save the token (default GOOGLE_OAUTH_TOKEN_FILE or token.json)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "how long to wait for authorization")
	return cmd
}

// awaitCode serves the redirect URI on ln until a callback carrying state
// delivers the authorization code. Callbacks with any other state are
// rejected and the wait continues.
func awaitCode(ctx context.Context, ln net.Listener, state string) (string, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if subtle.ConstantTimeCompare([]byte(q.Get("state")), []byte(state)) != 1 {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		if errStr := q.Get("error"); errStr != "" {
			http.Error(w, "OAuth error: "+errStr, http.StatusBadRequest)
			select {
			case errCh <- fmt.Errorf("authorization denied: %s", errStr):
			default:
			}
			return
		}
		fmt.Fprintln(w, "You may close this window and return to the terminal.")
		select {
		case codeCh <- q.Get("code"):
		default:
		}
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case errCh <- err:
			default:
			}
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	select {
	case code := <-codeCh:
		return code, nil
	case err := <-errCh:
		return "", err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", errors.New("authorization timed out")
		}
		return "", ctx.Err()
	}
}
