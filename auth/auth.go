// Package auth obtains OAuth2 access tokens with the client-credentials
// grant for record store backends that do not use a service account.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ClientCred caches a client-credentials token and refreshes it on expiry.
type ClientCred struct {
	conf  clientcredentials.Config
	mu    sync.Mutex
	token *oauth2.Token
}

func NewClientCred(conf Conf) *ClientCred {
	return &ClientCred{
		conf: conf.toOauth2Config(),
	}
}

// GetToken returns the cached access token while it is valid and requests
// a new one otherwise.
func (c *ClientCred) GetToken(ctx context.Context) (string, error) {
	t, err := c.valid(ctx)
	if err != nil {
		return "", err
	}
	return t.AccessToken, nil
}

// ForceRefresh discards the cached token and requests a new one.
func (c *ClientCred) ForceRefresh(ctx context.Context) (string, error) {
	c.mu.Lock()
	c.token = nil
	c.mu.Unlock()
	return c.GetToken(ctx)
}

// SetAuthHeader sets "Authorization: Bearer <token>" on r.
func (c *ClientCred) SetAuthHeader(r *http.Request) error {
	t, err := c.valid(r.Context())
	if err != nil {
		return err
	}
	t.SetAuthHeader(r)
	return nil
}

// TokenSource adapts the cache to oauth2.TokenSource so it can be handed to
// API clients. ctx bounds every token request.
func (c *ClientCred) TokenSource(ctx context.Context) oauth2.TokenSource {
	return tokenSource{ctx: ctx, c: c}
}

type tokenSource struct {
	ctx context.Context
	c   *ClientCred
}

func (s tokenSource) Token() (*oauth2.Token, error) { return s.c.valid(s.ctx) }

func (c *ClientCred) valid(ctx context.Context) (*oauth2.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != nil && c.token.Valid() {
		return c.token, nil
	}
	t, err := c.conf.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	c.token = t
	return t, nil
}
