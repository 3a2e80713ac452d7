// Package lists manages the user's named lists of titles and spins the
// roulette over one of them.
package lists

import (
	"context"
	"errors"
	"slices"

	"cinesorte/apperr"
	"cinesorte/catalog"
)

// MinSpinItems is the smallest list that can be spun.
const MinSpinItems = 2

var (
	ErrNotFound     = errors.New("lists: list not found")
	ErrNameTaken    = errors.New("lists: list name already in use")
	ErrEmptyName    = errors.New("lists: empty list name")
	ErrDuplicate    = errors.New("lists: title already in list")
	ErrListFull     = errors.New("lists: list is full")
	ErrTooFewItems  = errors.New("lists: not enough items to spin")
	ErrNoActiveList = errors.New("lists: no active list")
)

// NamedList is a user-curated list of titles. Names are unique per user and
// no title appears twice.
type NamedList struct {
	ID    string              `json:"id"`
	Name  string              `json:"name"`
	Items []catalog.Candidate `json:"movies"`
}

// Contains reports whether the list already holds the title id.
func (l NamedList) Contains(id int) bool {
	return slices.ContainsFunc(l.Items, func(c catalog.Candidate) bool { return c.ID == id })
}

// Store persists named lists.
type Store interface {
	ListAll(ctx context.Context) ([]NamedList, error)
	// Save creates the list or replaces its items.
	Save(ctx context.Context, name string, items []catalog.Candidate) error
	Delete(ctx context.Context, name string) error
	RemoveItem(ctx context.Context, name string, id int) error
}

// invalid builds a validation error that shows msg and matches sentinel.
func invalid(op, msg string, sentinel error) error {
	return &apperr.Error{Kind: apperr.KindValidation, Op: op, Message: msg, Err: sentinel}
}
