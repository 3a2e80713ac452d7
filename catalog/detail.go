package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// maxCast is how many cast members a detail record keeps.
const maxCast = 8

type regionProviders struct {
	Link     string     `json:"link"`
	Flatrate []Provider `json:"flatrate"`
}

type providersResponse struct {
	Results map[string]regionProviders `json:"results"`
}

func (p providersResponse) flatrate(region string) []Provider {
	if r, ok := p.Results[strings.ToUpper(region)]; ok && r.Flatrate != nil {
		return r.Flatrate
	}
	return []Provider{}
}

type detailResponse struct {
	rawCandidate
	Tagline             string    `json:"tagline"`
	Genres              []Genre   `json:"genres"`
	Runtime             int       `json:"runtime"`
	EpisodeRunTime      []int     `json:"episode_run_time"`
	Status              string    `json:"status"`
	Budget              int64     `json:"budget"`
	Revenue             int64     `json:"revenue"`
	NumberOfSeasons     int       `json:"number_of_seasons"`
	ProductionCompanies []Company `json:"production_companies"`
	CreatedBy           []struct {
		Name string `json:"name"`
	} `json:"created_by"`
	Credits struct {
		Cast []CastMember `json:"cast"`
		Crew []CrewMember `json:"crew"`
	} `json:"credits"`
	Videos struct {
		Results []Video `json:"results"`
	} `json:"videos"`
	WatchProviders providersResponse `json:"watch/providers"`
}

// Detail fetches the extended record of one title, including cast, crew,
// trailer and the watch providers of the client's region.
func (c *Client) Detail(ctx context.Context, kind MediaKind, id int) (DetailRecord, error) {
	const op = "catalog.Detail"
	params := url.Values{}
	params.Set("append_to_response", "credits,videos,watch/providers")

	var resp detailResponse
	if err := c.get(ctx, op, fmt.Sprintf("/%s/%d", kind, id), params, &resp); err != nil {
		return DetailRecord{}, err
	}

	item := resp.candidate()
	item.MediaKind = kind

	rec := DetailRecord{
		Item:                item,
		Tagline:             resp.Tagline,
		Genres:              resp.Genres,
		Runtime:             resp.Runtime,
		Status:              resp.Status,
		Budget:              resp.Budget,
		Revenue:             resp.Revenue,
		NumberOfSeasons:     resp.NumberOfSeasons,
		ProductionCompanies: resp.ProductionCompanies,
		Providers:           resp.WatchProviders.flatrate(c.region),
		Trailer:             pickTrailer(resp.Videos.Results),
	}
	if rec.Runtime == 0 && len(resp.EpisodeRunTime) > 0 {
		rec.Runtime = resp.EpisodeRunTime[0]
	}
	for _, p := range resp.CreatedBy {
		rec.Creators = append(rec.Creators, p.Name)
	}
	for i := range resp.Credits.Crew {
		if resp.Credits.Crew[i].Job == "Director" {
			d := resp.Credits.Crew[i]
			rec.Director = &d
			break
		}
	}
	rec.Cast = resp.Credits.Cast
	if len(rec.Cast) > maxCast {
		rec.Cast = rec.Cast[:maxCast]
	}
	return rec, nil
}

// pickTrailer prefers an official YouTube trailer, then any YouTube trailer.
func pickTrailer(videos []Video) *Video {
	var fallback *Video
	for i := range videos {
		v := videos[i]
		if v.Type != "Trailer" || v.URL() == "" {
			continue
		}
		if v.Official {
			return &v
		}
		if fallback == nil {
			fallback = &v
		}
	}
	return fallback
}

// Providers returns the streaming services for a title in the client's
// region; an empty slice when there are none.
func (c *Client) Providers(ctx context.Context, kind MediaKind, id int) ([]Provider, error) {
	const op = "catalog.Providers"
	var resp providersResponse
	if err := c.get(ctx, op, fmt.Sprintf("/%s/%d/watch/providers", kind, id), nil, &resp); err != nil {
		return nil, err
	}
	return resp.flatrate(c.region), nil
}
