package api

import (
	"context"
	"net/http"

	"github.com/polkiloo/invoicedesk/internal/domain/model"
	"github.com/polkiloo/invoicedesk/internal/server/http/dto"
)

func (c *Client) SignIn(ctx context.Context, email, password string) (model.Identity, error) {
	return c.startSession(ctx, "/api/user/login", dto.AuthRequest{Email: email, Password: password})
}

func (c *Client) SignUp(ctx context.Context, email, password string) (model.Identity, error) {
	return c.startSession(ctx, "/api/user/register", dto.AuthRequest{Email: email, Password: password})
}

func (c *Client) SignInAnonymously(ctx context.Context) (model.Identity, error) {
	return c.startSession(ctx, "/api/user/anonymous", nil)
}

func (c *Client) SignInWithCustomToken(ctx context.Context, token string) (model.Identity, error) {
	return c.startSession(ctx, "/api/user/token", dto.CustomTokenRequest{Token: token})
}

// SignOut revokes the bearer token. The local session is cleared even when
// the server call fails.
func (c *Client) SignOut(ctx context.Context) error {
	var err error
	if c.bearer() != "" {
		err = c.doJSON(ctx, http.MethodPost, "/api/user/logout", nil, nil)
	}
	c.setSession("", nil)
	return err
}

// WatchAuthState delivers the current identity first. The channel is closed
// once ctx is done.
func (c *Client) WatchAuthState(ctx context.Context) <-chan *model.Identity {
	ch, unsubscribe := c.auth.Subscribe()
	go func() {
		<-ctx.Done()
		unsubscribe()
	}()
	return ch
}

func (c *Client) startSession(ctx context.Context, path string, in any) (model.Identity, error) {
	var out dto.SessionResponse
	if err := c.doJSON(ctx, http.MethodPost, path, in, &out); err != nil {
		return model.Identity{}, err
	}
	identity := model.Identity{UID: out.UID, Email: out.Email, Anonymous: out.Anonymous}
	c.setSession(out.Token, &identity)
	return identity, nil
}

func (c *Client) setSession(token string, identity *model.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.identity = identity
	c.auth.Publish(identity)
}

// Identity returns the signed-in identity or nil.
func (c *Client) Identity() *model.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.identity == nil {
		return nil
	}
	identity := *c.identity
	return &identity
}
