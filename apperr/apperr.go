// Package apperr defines the error kinds surfaced to users of the roulette.
//
// Every failure that reaches a user action is one of a small set of kinds.
// Callers compare with errors.Is against the Err* sentinels and render
// UserMessage(err) instead of the raw error text.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error for presentation.
type Kind string

const (
	KindNetwork       Kind = "network"
	KindEmptyResult   Kind = "empty_result"
	KindValidation    Kind = "validation"
	KindCookieBlocked Kind = "cookie_blocked"
	KindBootstrap     Kind = "bootstrap"
)

// Sentinels matched by errors.Is on any *Error of the same kind.
var (
	ErrNetwork       = &Error{Kind: KindNetwork}
	ErrEmptyResult   = &Error{Kind: KindEmptyResult}
	ErrValidation    = &Error{Kind: KindValidation}
	ErrCookieBlocked = &Error{Kind: KindCookieBlocked}
	ErrBootstrap     = &Error{Kind: KindBootstrap}
)

// Error is a classified error. Message, when set, is already localized and
// is shown to the user verbatim.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality so that errors.Is(err, ErrNetwork) matches any
// network error regardless of op or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Network wraps an upstream failure (unreachable host, non-2xx status).
func Network(op string, err error) error {
	return &Error{Kind: KindNetwork, Op: op, Err: err}
}

// EmptyResult reports a valid response with zero matches.
func EmptyResult(op string) error {
	return &Error{Kind: KindEmptyResult, Op: op}
}

// Validation reports input rejected before any network call.
func Validation(op, message string) error {
	return &Error{Kind: KindValidation, Op: op, Message: message}
}

// ValidationFields is Validation with per-field messages.
func ValidationFields(op, message string, fields map[string]string) error {
	return &Error{Kind: KindValidation, Op: op, Message: message, Fields: fields}
}

// CookieBlocked reports that the session cookie was not kept by the client.
func CookieBlocked(op string) error {
	return &Error{Kind: KindCookieBlocked, Op: op}
}

// Bootstrap reports that initial data loading exhausted its retry budget.
func Bootstrap(op string, attempts int, err error) error {
	return &Error{Kind: KindBootstrap, Op: op, Err: fmt.Errorf("gave up after %d attempts: %w", attempts, err)}
}

// KindOf returns the kind of err, or "" when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// UserMessage returns the localized text shown for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Message != "" {
			return e.Message
		}
		if msg, ok := messages[e.Kind]; ok {
			return msg
		}
	}
	return messages[""]
}

var messages = map[Kind]string{
	KindNetwork:       "Falha ao buscar. Tente novamente.",
	KindEmptyResult:   "Nenhum resultado encontrado. Tente filtros mais abertos.",
	KindValidation:    "Verifique os dados e tente novamente.",
	KindCookieBlocked: "O seu navegador está a bloquear os cookies necessários para manter a sessão. Ative os cookies para este site e atualize a página.",
	KindBootstrap:     "Não foi possível carregar os dados iniciais. Recarregue a página.",
	"":                "Ocorreu um erro inesperado.",
}
