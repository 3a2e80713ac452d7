// Package identity tracks who is signed in. A single Session is shared by
// the whole process; other packages read the current user through it.
package identity

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"cinesorte/apperr"
	"cinesorte/logging"
	"cinesorte/validation"
)

var (
	// ErrCookieBlocked means login succeeded but the session cookie was not
	// kept, so the next request is anonymous again.
	ErrCookieBlocked      = errors.New("identity: session cookie blocked")
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
	ErrEmailInUse         = errors.New("identity: email already registered")
	ErrNotAuthenticated   = errors.New("identity: not authenticated")
)

// User is the signed-in account.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Provider talks to the account service.
type Provider interface {
	Login(ctx context.Context, email, password string) (User, error)
	Register(ctx context.Context, name, email, password string) error
	Logout(ctx context.Context) error
	// CurrentUser returns ErrNotAuthenticated when there is no session.
	CurrentUser(ctx context.Context) (User, error)
}

// RegisterForm is the sign-up input.
type RegisterForm struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"password"`
	ConfirmPassword string `json:"confirmPassword" validate:"eqfield=Password"`
}

// Session holds the current user.
type Session struct {
	provider Provider
	validate *validation.Validator
	log      zerolog.Logger

	mu   sync.RWMutex
	user *User
}

func NewSession(p Provider) *Session {
	return &Session{
		provider: p,
		validate: validation.New(),
		log:      logging.With("identity"),
	}
}

// Init restores an existing session. Having none is not an error, and
// neither is a failure to ask; both leave the session anonymous.
func (s *Session) Init(ctx context.Context) {
	u, err := s.provider.CurrentUser(ctx)
	if err != nil {
		if !errors.Is(err, ErrNotAuthenticated) {
			s.log.Warn().Err(err).Msg("Could not restore session")
		}
		s.set(nil)
		return
	}
	s.set(&u)
	s.log.Info().Str("user", u.Email).Msg("Session restored")
}

// Login signs in. Both fields must be non-empty.
func (s *Session) Login(ctx context.Context, email, password string) (User, error) {
	const op = "identity.Login"
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return User{}, apperr.Validation(op, "Por favor, preencha todos os campos.")
	}

	u, err := s.provider.Login(ctx, email, password)
	if err != nil {
		s.log.Warn().Err(err).Str("email", email).Msg("Login failed")
		return User{}, err
	}
	s.set(&u)
	s.log.Info().Str("user", u.Email).Msg("Logged in")
	return u, nil
}

// Register checks the form locally, creates the account and signs in.
func (s *Session) Register(ctx context.Context, form RegisterForm) (User, error) {
	const op = "identity.Register"
	form.Name = strings.TrimSpace(form.Name)
	form.Email = strings.TrimSpace(form.Email)

	if form.Password != form.ConfirmPassword {
		return User{}, apperr.Validation(op, "As senhas não coincidem.")
	}
	if !validation.PasswordChecks(form.Password).OK() {
		return User{}, apperr.Validation(op, "Por favor, cumpra todos os requisitos da senha.")
	}
	if err := s.validate.Validate(op, form); err != nil {
		return User{}, err
	}

	if err := s.provider.Register(ctx, form.Name, form.Email, form.Password); err != nil {
		return User{}, err
	}
	s.log.Info().Str("user", form.Email).Msg("Account created")
	return s.Login(ctx, form.Email, form.Password)
}

// Logout ends the session. On failure the user stays signed in.
func (s *Session) Logout(ctx context.Context) error {
	if err := s.provider.Logout(ctx); err != nil {
		return err
	}
	s.set(nil)
	return nil
}

// CurrentUser returns the signed-in user, if any.
func (s *Session) CurrentUser() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

func (s *Session) set(u *User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
}

// UserMessage renders err for the login and register screens.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCookieBlocked):
		return apperr.UserMessage(apperr.CookieBlocked(""))
	case errors.Is(err, ErrInvalidCredentials):
		return "Email ou senha inválidos."
	case errors.Is(err, ErrEmailInUse):
		return "Este email já está cadastrado."
	}
	return apperr.UserMessage(err)
}
