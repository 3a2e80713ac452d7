package catalog

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// MediaKind is the TMDB media type of a title.
type MediaKind string

const (
	Movie  MediaKind = "movie"
	Series MediaKind = "tv"
)

// ParseMediaKind accepts "movie", "tv" and the aliases "series"/"serie".
func ParseMediaKind(s string) (MediaKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie", "filme":
		return Movie, nil
	case "tv", "series", "serie":
		return Series, nil
	default:
		return "", fmt.Errorf("unknown media kind %q", s)
	}
}

// Candidate is one title returned by the catalog. It is built fresh from
// each response and never mutated afterwards.
type Candidate struct {
	ID            int       `json:"id"`
	Title         string    `json:"title"`
	OriginalTitle string    `json:"original_title,omitempty"`
	Overview      string    `json:"overview"`
	PosterPath    string    `json:"poster_path"`
	BackdropPath  string    `json:"backdrop_path,omitempty"`
	ReleaseDate   string    `json:"release_date,omitempty"`
	VoteAverage   float64   `json:"vote_average"`
	GenreIDs      []int     `json:"genre_ids,omitempty"`
	MediaKind     MediaKind `json:"media_type"`
}

// rawCandidate covers the movie, tv and multi-search shapes of a TMDB result.
type rawCandidate struct {
	ID            int       `json:"id"`
	Title         string    `json:"title"`
	Name          string    `json:"name"`
	OriginalTitle string    `json:"original_title"`
	OriginalName  string    `json:"original_name"`
	Overview      string    `json:"overview"`
	PosterPath    string    `json:"poster_path"`
	BackdropPath  string    `json:"backdrop_path"`
	ReleaseDate   string    `json:"release_date"`
	FirstAirDate  string    `json:"first_air_date"`
	VoteAverage   float64   `json:"vote_average"`
	GenreIDs      []int     `json:"genre_ids"`
	MediaType     MediaKind `json:"media_type"`
}

func (r rawCandidate) candidate() Candidate {
	c := Candidate{
		ID:            r.ID,
		Title:         r.Title,
		OriginalTitle: r.OriginalTitle,
		Overview:      r.Overview,
		PosterPath:    r.PosterPath,
		BackdropPath:  r.BackdropPath,
		ReleaseDate:   r.ReleaseDate,
		VoteAverage:   r.VoteAverage,
		GenreIDs:      r.GenreIDs,
		MediaKind:     r.MediaType,
	}
	if c.Title == "" {
		c.Title = r.Name
	}
	if c.OriginalTitle == "" {
		c.OriginalTitle = r.OriginalName
	}
	if c.ReleaseDate == "" {
		c.ReleaseDate = r.FirstAirDate
	}
	// Saved items from older clients carry no media_type; a movie always has "title".
	if c.MediaKind == "" {
		if r.Title != "" {
			c.MediaKind = Movie
		} else if r.Name != "" {
			c.MediaKind = Series
		}
	}
	return c
}

// UnmarshalJSON accepts both movie ("title") and tv ("name") shapes.
func (c *Candidate) UnmarshalJSON(b []byte) error {
	var r rawCandidate
	if err := json.Unmarshal(b, &r); err != nil {
		return err
	}
	*c = r.candidate()
	return nil
}

// HasArtwork reports whether the candidate can be shown on a card.
func (c Candidate) HasArtwork() bool {
	return c.PosterPath != "" && c.Overview != ""
}

// Year returns the release year, or "" when unknown.
func (c Candidate) Year() string {
	if len(c.ReleaseDate) >= 4 {
		return c.ReleaseDate[:4]
	}
	return ""
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Keyword struct {
	ID   int    `json:"id" validate:"gt=0"`
	Name string `json:"name"`
}

// Provider is a streaming service offering a title in the configured region.
type Provider struct {
	ID       int    `json:"provider_id"`
	Name     string `json:"provider_name"`
	LogoPath string `json:"logo_path"`
	Priority int    `json:"display_priority"`
}

type CastMember struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character"`
	ProfilePath string `json:"profile_path"`
}

type CrewMember struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Job  string `json:"job"`
}

type Company struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	LogoPath string `json:"logo_path"`
}

type Video struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Site     string `json:"site"`
	Type     string `json:"type"`
	Official bool   `json:"official"`
}

// URL returns the watch URL for YouTube videos, "" otherwise.
func (v Video) URL() string {
	if !strings.EqualFold(v.Site, "YouTube") || v.Key == "" {
		return ""
	}
	return "https://www.youtube.com/watch?v=" + v.Key
}

// DetailRecord is the extended metadata of one title.
type DetailRecord struct {
	Item                Candidate    `json:"item"`
	Tagline             string       `json:"tagline,omitempty"`
	Genres              []Genre      `json:"genres"`
	Runtime             int          `json:"runtime"`
	Status              string       `json:"status"`
	Budget              int64        `json:"budget"`
	Revenue             int64        `json:"revenue"`
	NumberOfSeasons     int          `json:"number_of_seasons,omitempty"`
	Director            *CrewMember  `json:"director,omitempty"`
	Creators            []string     `json:"creators,omitempty"`
	Cast                []CastMember `json:"cast"`
	Providers           []Provider   `json:"providers"`
	Trailer             *Video       `json:"trailer,omitempty"`
	ProductionCompanies []Company    `json:"production_companies,omitempty"`
}
