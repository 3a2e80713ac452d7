package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"cinesorte/apperr"
	"cinesorte/catalog"
	"cinesorte/lists"
)

var _ lists.Store = (*Client)(nil)

type wireList struct {
	ID       string              `json:"id"`
	ListName string              `json:"listName"`
	Name     string              `json:"name"`
	Movies   []catalog.Candidate `json:"movies"`
}

func (w wireList) named() lists.NamedList {
	name := w.ListName
	if name == "" {
		name = w.Name
	}
	items := w.Movies
	if items == nil {
		items = []catalog.Candidate{}
	}
	return lists.NamedList{ID: w.ID, Name: name, Items: items}
}

type saveRequest struct {
	ListName string              `json:"listName"`
	Movies   []catalog.Candidate `json:"movies"`
}

// ListAll returns every list of the signed-in user.
func (c *Client) ListAll(ctx context.Context) ([]lists.NamedList, error) {
	const op = "backend.ListAll"
	var wire []wireList
	if _, err := c.do(ctx, http.MethodGet, "/users/lists", nil, &wire); err != nil {
		return nil, apperr.Network(op, err)
	}
	out := make([]lists.NamedList, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.named())
	}
	return out, nil
}

// Save creates the list or replaces its items; the service matches by name.
func (c *Client) Save(ctx context.Context, name string, items []catalog.Candidate) error {
	const op = "backend.Save"
	if items == nil {
		items = []catalog.Candidate{}
	}
	if _, err := c.do(ctx, http.MethodPost, "/users/lists", saveRequest{ListName: name, Movies: items}, nil); err != nil {
		return apperr.Network(op, err)
	}
	c.log.Debug().Str("list", name).Int("items", len(items)).Msg("List saved")
	return nil
}

// Delete removes the list named name.
func (c *Client) Delete(ctx context.Context, name string) error {
	const op = "backend.Delete"
	id, err := c.listID(ctx, op, name)
	if err != nil {
		return err
	}
	if _, err := c.do(ctx, http.MethodDelete, "/users/lists/"+url.PathEscape(id), nil, nil); err != nil {
		return apperr.Network(op, err)
	}
	return nil
}

// RemoveItem removes title id from the list named name.
func (c *Client) RemoveItem(ctx context.Context, name string, id int) error {
	const op = "backend.RemoveItem"
	listID, err := c.listID(ctx, op, name)
	if err != nil {
		return err
	}
	path := fmt.Sprintf("/users/lists/%s/movies/%d", url.PathEscape(listID), id)
	if _, err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return apperr.Network(op, err)
	}
	return nil
}

// listID resolves a list name to the service's id.
func (c *Client) listID(ctx context.Context, op, name string) (string, error) {
	all, err := c.ListAll(ctx)
	if err != nil {
		return "", err
	}
	for _, l := range all {
		if l.Name == name {
			return l.ID, nil
		}
	}
	return "", &apperr.Error{Kind: apperr.KindValidation, Op: op, Message: "Lista não encontrada.", Err: lists.ErrNotFound}
}
