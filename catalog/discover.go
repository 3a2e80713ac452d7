package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"golang.org/x/sync/errgroup"

	"cinesorte/logging"
)

type pageResponse struct {
	Page       int            `json:"page"`
	Results    []rawCandidate `json:"results"`
	TotalPages int            `json:"total_pages"`
}

// Discover returns the candidates matching filters for kind. Pages 1..N are
// fetched concurrently and merged in page order; duplicates keep their first
// occurrence and entries without a poster or overview are dropped. Zero
// matches is an empty slice, not an error.
func (c *Client) Discover(ctx context.Context, kind MediaKind, filters FilterSet) ([]Candidate, error) {
	const op = "catalog.Discover"
	if err := filters.Validate(); err != nil {
		return nil, err
	}

	base := filters.Params(kind, c.region)
	path := fmt.Sprintf("/discover/%s", kind)
	pages := make([][]rawCandidate, c.pages)

	g, gctx := errgroup.WithContext(ctx)
	for i := range pages {
		page := i + 1
		g.Go(func() error {
			params := cloneValues(base)
			params.Set("page", strconv.Itoa(page))
			var resp pageResponse
			if err := c.get(gctx, op, path, params, &resp); err != nil {
				return err
			}
			pages[page-1] = resp.Results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := mergePages(pages, kind)
	logging.Ctx(ctx).Debug().Str("kind", string(kind)).Int("pages", c.pages).Int("candidates", len(out)).Msg("discovery complete")
	return out, nil
}

func mergePages(pages [][]rawCandidate, kind MediaKind) []Candidate {
	seen := make(map[int]struct{})
	out := make([]Candidate, 0)
	for _, results := range pages {
		for _, r := range results {
			if _, dup := seen[r.ID]; dup {
				continue
			}
			seen[r.ID] = struct{}{}
			cand := r.candidate()
			if r.MediaType == "" {
				cand.MediaKind = kind
			}
			if !cand.HasArtwork() {
				continue
			}
			out = append(out, cand)
		}
	}
	return out
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
