package catalog

import (
	"net/url"
	"strconv"
	"strings"

	"cinesorte/validation"
)

// Sort keys accepted by discovery.
const (
	SortPopularity   = "popularity.desc"
	SortRating       = "vote_average.desc"
	SortReleaseDate  = "release_date.desc"
	SortPrimaryDate  = "primary_release_date.desc"
	SortFirstAirDate = "first_air_date.desc"
	SortRevenue      = "revenue.desc"
)

// MaxKeywords bounds the keyword tags of one filter set.
const MaxKeywords = 3

// animationGenreID is TMDB's genre id for Animation, the same for movie and tv.
const animationGenreID = 16

// FilterSet narrows the discovery pool.
type FilterSet struct {
	SortBy           string    `json:"sort_by" validate:"required,oneof=popularity.desc vote_average.desc release_date.desc primary_release_date.desc first_air_date.desc revenue.desc"`
	Genre            int       `json:"genre,omitempty" validate:"min=0"`
	ReleaseYear      int       `json:"release_year,omitempty" validate:"omitempty,min=1900,max=2100"`
	MinRating        float64   `json:"min_rating" validate:"min=0,max=10"`
	MaxRuntime       int       `json:"max_runtime" validate:"min=0,max=400"`
	ExcludeAnimation bool      `json:"exclude_animation"`
	Keywords         []Keyword `json:"keywords,omitempty" validate:"max=3,dive"`
}

// DefaultFilters matches the initial state of the filter form.
func DefaultFilters() FilterSet {
	return FilterSet{
		SortBy:     SortPopularity,
		MinRating:  7,
		MaxRuntime: 150,
	}
}

var validate = validation.New()

// Validate checks the filter bounds.
func (f FilterSet) Validate() error {
	return validate.Validate("catalog.FilterSet", f)
}

// Params builds the discover query parameters for kind. A zero MaxRuntime
// means no runtime bound.
func (f FilterSet) Params(kind MediaKind, region string) url.Values {
	v := url.Values{}
	v.Set("sort_by", f.SortBy)
	v.Set("vote_average.gte", strconv.FormatFloat(f.MinRating, 'f', -1, 64))
	if f.MaxRuntime > 0 {
		v.Set("with_runtime.lte", strconv.Itoa(f.MaxRuntime))
	}
	v.Set("include_adult", "false")
	if region != "" {
		v.Set("watch_region", region)
	}
	if f.Genre > 0 {
		v.Set("with_genres", strconv.Itoa(f.Genre))
	}
	if f.ReleaseYear > 0 {
		if kind == Movie {
			v.Set("primary_release_year", strconv.Itoa(f.ReleaseYear))
		} else {
			v.Set("first_air_date_year", strconv.Itoa(f.ReleaseYear))
		}
	}
	if f.ExcludeAnimation {
		v.Set("without_genres", strconv.Itoa(animationGenreID))
	}
	if len(f.Keywords) > 0 {
		ids := make([]string, 0, len(f.Keywords))
		for _, k := range f.Keywords {
			ids = append(ids, strconv.Itoa(k.ID))
		}
		v.Set("with_keywords", strings.Join(ids, ","))
	}
	return v
}

// Key identifies the candidate pool a filter set produces for kind.
func (f FilterSet) Key(kind MediaKind) string {
	return string(kind) + "?" + f.Params(kind, "").Encode()
}
