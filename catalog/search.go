package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"cinesorte/apperr"
)

// MinQueryLength is the shortest query sent to a search endpoint.
const MinQueryLength = 3

func checkQuery(op, query string) (string, error) {
	q := strings.TrimSpace(query)
	if utf8.RuneCountInString(q) < MinQueryLength {
		return "", apperr.Validation(op, fmt.Sprintf("Digite pelo menos %d caracteres.", MinQueryLength))
	}
	return q, nil
}

// SearchMulti runs a free-text search across movies and series. Person
// results and titles without a poster are dropped.
func (c *Client) SearchMulti(ctx context.Context, query string) ([]Candidate, error) {
	const op = "catalog.SearchMulti"
	q, err := checkQuery(op, query)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("query", q)
	params.Set("page", "1")
	params.Set("include_adult", "false")

	var resp pageResponse
	if err := c.get(ctx, op, "/search/multi", params, &resp); err != nil {
		return nil, err
	}

	out := make([]Candidate, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.MediaType != Movie && r.MediaType != Series {
			continue
		}
		cand := r.candidate()
		if cand.PosterPath == "" {
			continue
		}
		out = append(out, cand)
	}
	return out, nil
}

// SearchKeywords looks up keyword tags by name for the filter form.
func (c *Client) SearchKeywords(ctx context.Context, query string) ([]Keyword, error) {
	const op = "catalog.SearchKeywords"
	q, err := checkQuery(op, query)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("query", q)
	params.Set("page", "1")

	var resp struct {
		Results []Keyword `json:"results"`
	}
	if err := c.get(ctx, op, "/search/keyword", params, &resp); err != nil {
		return nil, err
	}
	if resp.Results == nil {
		return []Keyword{}, nil
	}
	return resp.Results, nil
}

// Genres returns the genre list for kind.
func (c *Client) Genres(ctx context.Context, kind MediaKind) ([]Genre, error) {
	const op = "catalog.Genres"
	var resp struct {
		Genres []Genre `json:"genres"`
	}
	if err := c.get(ctx, op, fmt.Sprintf("/genre/%s/list", kind), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Genres == nil {
		return []Genre{}, nil
	}
	return resp.Genres, nil
}
