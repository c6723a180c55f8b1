package registry

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Config keys the credential supplier writes. All are sensitive.
const (
	configAuthToken   = "auth_token"
	configAuthCookie  = "auth_cookie"
	configAuthExpires = "auth_expires_at"
)

// SetCredentials accepts opaque credentials for a cloud provider from the
// browser authentication flow. The token and cookie blob are stored into the
// provider's config map as sensitive entries; their internal structure is
// never parsed or validated here.
func (r *Registry) SetCredentials(ctx context.Context, providerID, token, cookie string, expiresAt time.Time) error {
	provider, err := r.Get(ctx, providerID)
	if err != nil {
		return err
	}

	provider.Config[configAuthToken] = ConfigValue{Value: token, IsSensitive: true}
	provider.Config[configAuthCookie] = ConfigValue{Value: cookie, IsSensitive: true}
	provider.Config[configAuthExpires] = ConfigValue{
		Value:       strconv.FormatInt(expiresAt.Unix(), 10),
		IsSensitive: true,
	}

	if _, err := r.persist(ctx, provider); err != nil {
		return fmt.Errorf("registry: store credentials for %q: %w", providerID, err)
	}

	log.Info().Str("provider", providerID).Time("expires_at", expiresAt).
		Msg("provider credentials updated")
	return nil
}

// Credentials returns the stored credentials for a provider as an OAuth2
// token (access token + expiry) plus the opaque cookie blob. The second
// return is false when no token is stored.
func (r *Registry) Credentials(ctx context.Context, providerID string) (*oauth2.Token, string, bool) {
	provider, err := r.Get(ctx, providerID)
	if err != nil {
		log.Debug().Err(err).Str("provider", providerID).Msg("credentials lookup failed")
		return nil, "", false
	}

	tokenValue := provider.Config[configAuthToken].Value
	if tokenValue == "" {
		return nil, "", false
	}

	token := &oauth2.Token{AccessToken: tokenValue, TokenType: "Bearer"}
	if raw := provider.Config[configAuthExpires].Value; raw != "" {
		if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
			token.Expiry = time.Unix(unix, 0).UTC()
		}
	}
	return token, provider.Config[configAuthCookie].Value, true
}
