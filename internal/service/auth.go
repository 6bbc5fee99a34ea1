package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/target/reportfetch/internal/core"
	"github.com/target/reportfetch/internal/domain/model"
	apperrors "github.com/target/reportfetch/internal/errors"
	"golang.org/x/oauth2"
)

// AuthenticatorOptions groups dependencies for Authenticator.
type AuthenticatorOptions struct {
	Transport core.Transport // Required: API transport
	TokenURL  string         // Required: password-grant token endpoint
	Logger    *slog.Logger   // Optional: structured logger
}

// Authenticator exchanges credentials for a session.
type Authenticator struct {
	transport core.Transport
	tokenURL  string
	logger    *slog.Logger
}

// NewAuthenticator constructs a new Authenticator.
func NewAuthenticator(opts AuthenticatorOptions) (*Authenticator, error) {
	if opts.Transport == nil {
		return nil, errors.New("transport is required")
	}
	tokenURL := strings.TrimSpace(opts.TokenURL)
	if tokenURL == "" {
		return nil, errors.New("token URL is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		transport: opts.Transport,
		tokenURL:  tokenURL,
		logger:    logger.With("component", "authenticator"),
	}, nil
}

type tokenRequest struct {
	GrantType string `json:"grant_type"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

// Authenticate performs the password grant. It succeeds only when the response is 2xx
// and carries both an access token and a resource server base URI. There is no retry.
func (a *Authenticator) Authenticate(ctx context.Context, creds model.Credentials) (model.Session, error) {
	if err := creds.Validate(); err != nil {
		return model.Session{}, apperrors.Wrap(err, apperrors.ErrCodeAuthentication, "invalid credentials")
	}

	header := http.Header{}
	header.Set("Authorization", "Basic "+creds.BasicAuthKey())

	resp, err := a.transport.Do(ctx, core.Request{
		Method: http.MethodPost,
		URL:    a.tokenURL,
		Header: header,
		Body: tokenRequest{
			GrantType: "password",
			Username:  creds.Username,
			Password:  creds.Password,
		},
	})
	if err != nil {
		return model.Session{}, apperrors.Wrap(err, apperrors.ErrCodeAuthentication, "request token")
	}
	if !resp.OK() {
		return model.Session{}, apperrors.Newf(apperrors.ErrCodeAuthentication,
			"request token: unexpected status %d", resp.StatusCode)
	}

	accessToken := fieldAccessToken.String(resp.Body)
	if accessToken == "" {
		return model.Session{}, apperrors.Authentication("token response missing access_token")
	}
	baseURI := fieldResourceServer.String(resp.Body)
	if baseURI == "" {
		return model.Session{}, apperrors.Authentication("token response missing " + model.ResourceServerBaseURIField)
	}

	token := &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   fieldTokenType.String(resp.Body),
	}
	if secs, ok := fieldExpiresIn.Int64(resp.Body); ok && secs > 0 {
		token.Expiry = time.Now().Add(time.Duration(secs) * time.Second)
	}
	token = token.WithExtra(map[string]any{model.ResourceServerBaseURIField: baseURI})

	a.logger.DebugContext(ctx, "token issued",
		"user", creds.String(),
		"api_base_url", baseURI,
		"expiry", token.Expiry,
	)
	return model.Session{Token: token, APIBaseURL: baseURI}, nil
}
