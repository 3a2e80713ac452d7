package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cinesorte/apperr"
	"cinesorte/identity"
)

var _ identity.Provider = (*Client)(nil)

type credentials struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login signs in and then confirms the session cookie was kept by asking
// for the current user. If that check comes back unauthorized the cookie
// was dropped and ErrCookieBlocked is returned.
func (c *Client) Login(ctx context.Context, email, password string) (identity.User, error) {
	const op = "backend.Login"
	status, err := c.do(ctx, http.MethodPost, "/users/login", credentials{Email: email, Password: password}, nil)
	if err != nil {
		if status == http.StatusUnauthorized || status == http.StatusBadRequest || status == http.StatusNotFound {
			return identity.User{}, &apperr.Error{Kind: apperr.KindValidation, Op: op, Message: "Email ou senha inválidos.", Err: identity.ErrInvalidCredentials}
		}
		return identity.User{}, apperr.Network(op, err)
	}

	u, err := c.CurrentUser(ctx)
	if errors.Is(err, identity.ErrNotAuthenticated) {
		c.log.Warn().Str("email", email).Msg("Session cookie not kept after login")
		return identity.User{}, &apperr.Error{Kind: apperr.KindCookieBlocked, Op: op, Err: identity.ErrCookieBlocked}
	}
	if err != nil {
		return identity.User{}, err
	}
	return u, nil
}

// Register creates an account. It does not sign in.
func (c *Client) Register(ctx context.Context, name, email, password string) error {
	const op = "backend.Register"
	status, err := c.do(ctx, http.MethodPost, "/users/register", credentials{Name: name, Email: email, Password: password}, nil)
	if err != nil {
		if status == http.StatusConflict {
			return &apperr.Error{Kind: apperr.KindValidation, Op: op, Message: "Este email já está cadastrado.", Err: identity.ErrEmailInUse}
		}
		if status == http.StatusBadRequest {
			return &apperr.Error{Kind: apperr.KindValidation, Op: op, Message: "Falha ao criar conta. Verifique os dados e tente novamente.", Err: err}
		}
		return apperr.Network(op, err)
	}
	return nil
}

func (c *Client) Logout(ctx context.Context) error {
	if _, err := c.do(ctx, http.MethodPost, "/users/logout", nil, nil); err != nil {
		return apperr.Network("backend.Logout", err)
	}
	return nil
}

// CurrentUser returns identity.ErrNotAuthenticated when the service does
// not recognise the session.
func (c *Client) CurrentUser(ctx context.Context) (identity.User, error) {
	const op = "backend.CurrentUser"
	var u identity.User
	status, err := c.do(ctx, http.MethodGet, "/users/me", nil, &u)
	if err != nil {
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			return identity.User{}, fmt.Errorf("%s: %w", op, identity.ErrNotAuthenticated)
		}
		return identity.User{}, apperr.Network(op, err)
	}
	return u, nil
}
