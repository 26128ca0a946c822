package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/ytb/internal/server"
	"github.com/desertthunder/ytb/internal/services"
	"github.com/desertthunder/ytb/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// AuthLogin performs the OAuth2 authorization code flow for YouTube.
//
// Starts a temporary callback server, opens the browser, and stores the
// resulting tokens for the given user.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.String("user")

	creds := r.config.Credentials.YouTube
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return fmt.Errorf("%w: YouTube client_id and client_secret must be set in config.toml", shared.ErrInvalidArgument)
	}

	token, err := r.doOAuth(services.NewOAuthConfig(creds))
	if err != nil {
		return err
	}

	db, cleanup, err := r.database()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := r.build(db).accounts.SaveToken(userID, token); err != nil {
		return fmt.Errorf("failed to save tokens: %w", err)
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved for user %s\n\n", userID)
	r.writePlain("You can now use: ytb bulk add --playlist <id> --video <id>\n")

	return nil
}

// AuthStatus reports whether stored credentials exist for a user.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.String("user")

	db, cleanup, err := r.database()
	if err != nil {
		return err
	}
	defer cleanup()

	token, err := r.build(db).accounts.Token(userID)
	if err != nil {
		if errors.Is(err, shared.ErrNoTokens) {
			r.writePlain("✗ No stored credentials for user %s\n", userID)
			r.writePlain("Run 'ytb auth login --user %s' to authenticate\n", userID)
			return nil
		}
		return err
	}

	r.writePlain("✓ Credentials stored for user %s\n", userID)
	if !token.Expiry.IsZero() {
		if token.Expiry.Before(time.Now()) {
			r.writePlain("Access token expired at %s (refreshed on next use)\n", token.Expiry.Format(time.RFC3339))
		} else {
			r.writePlain("Access token valid until %s\n", token.Expiry.Format(time.RFC3339))
		}
	}
	return nil
}

// doOAuth runs the full authorization code dance through a local callback server.
func (r *Runner) doOAuth(oauthConfig *oauth2.Config) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline)
	oauthHandler := server.NewOAuthHandler(oauthConfig, state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	serverAddr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback server at %v", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for YouTube authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
		// Got result from callback
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("no token received")
	}

	return result.Token, nil
}
