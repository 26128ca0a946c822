package services

import (
	"context"
	"net/http"

	"github.com/desertthunder/ytb/internal/repositories"
	"github.com/desertthunder/ytb/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// youtubeScope grants playlist read/write access.
const youtubeScope = "https://www.googleapis.com/auth/youtube"

// NewOAuthConfig builds the oauth2 config for the YouTube Data API from the
// application configuration.
func NewOAuthConfig(cfg shared.YouTubeConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       []string{youtubeScope},
		Endpoint:     google.Endpoint,
	}
}

// OAuthProviderResolver builds authenticated providers from stored tokens.
//
// The oauth2 client refreshes expired access tokens transparently using the
// stored refresh token.
type OAuthProviderResolver struct {
	config   *oauth2.Config
	accounts *repositories.AccountRepository
	baseURL  string
}

// NewOAuthProviderResolver creates a resolver over the account token store.
func NewOAuthProviderResolver(config *oauth2.Config, accounts *repositories.AccountRepository, baseURL string) *OAuthProviderResolver {
	return &OAuthProviderResolver{
		config:   config,
		accounts: accounts,
		baseURL:  baseURL,
	}
}

// Provider returns a [PlaylistProvider] authenticated as the given user.
//
// Fails with [shared.ErrNoTokens] when the user has no stored credentials.
func (r *OAuthProviderResolver) Provider(ctx context.Context, userID string) (PlaylistProvider, error) {
	token, err := r.accounts.Token(userID)
	if err != nil {
		return nil, err
	}

	var client *http.Client
	if r.config != nil {
		client = r.config.Client(ctx, token)
	} else {
		client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	}

	return NewYouTubeProvider(r.baseURL, client), nil
}
