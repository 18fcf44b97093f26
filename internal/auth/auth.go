// Package auth provides credentials for the Codex backend: a static access
// token or an oauth2 refresh-token flow, plus JWT claim helpers for deriving
// the backend account id.
package auth

import (
	"context"
	"errors"

	"golang.org/x/oauth2"
)

var (
	// ErrInvalidJWT is returned for tokens that are not three-segment JWTs.
	ErrInvalidJWT = errors.New("invalid JWT token")

	// ErrNoCredentials is returned when no Codex credentials are configured.
	ErrNoCredentials = errors.New("no backend credentials configured")
)

// NewTokenSource builds a token source for the Codex backend. A static
// access token wins when present; otherwise the refresh token is exchanged
// through the standard oauth2 flow and the result cached until expiry.
func NewTokenSource(ctx context.Context, accessToken, refreshToken, clientID, tokenURL string) (oauth2.TokenSource, error) {
	if accessToken != "" {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}), nil
	}
	if refreshToken == "" {
		return nil, ErrNoCredentials
	}

	conf := &oauth2.Config{
		ClientID: clientID,
		Endpoint: oauth2.Endpoint{
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	ts := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	return oauth2.ReuseTokenSource(nil, ts), nil
}
