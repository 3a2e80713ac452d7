package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"cinesorte/apperr"
)

func TestFormatCurrency(t *testing.T) {
	assert.Equal(t, "Não divulgado", FormatCurrency(0))
	assert.Equal(t, "$1,000,000", FormatCurrency(1_000_000))
	assert.Equal(t, "$950", FormatCurrency(950))
}

func TestRuntimeText(t *testing.T) {
	assert.Equal(t, "N/A", RuntimeText(0))
	assert.Equal(t, "2h 5m", RuntimeText(125))
	assert.Equal(t, "0h 45m", RuntimeText(45))
}

func TestTranslateStatus(t *testing.T) {
	assert.Equal(t, "N/A", TranslateStatus(""))
	assert.Equal(t, "Em Exibição", TranslateStatus("Returning Series"))
	assert.Equal(t, "Pilot", TranslateStatus("Pilot"))
}

func TestImageURLs(t *testing.T) {
	base := "https://image.tmdb.org/t/p"
	assert.Equal(t, base+"/w500/x.jpg", PosterURL(base, "/x.jpg"))
	assert.Equal(t, placeholderPoster, PosterURL(base, ""))
	assert.Equal(t, base+"/w1280/y.jpg", BackdropURL(base, "/y.jpg"))
	assert.Equal(t, "", BackdropURL(base, ""))
}

func TestParseMediaKind(t *testing.T) {
	for in, want := range map[string]MediaKind{"movie": Movie, " TV ": Series, "series": Series} {
		got, err := ParseMediaKind(in)
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseMediaKind("anime")
	assert.Error(t, err)
}

func TestFilterParams(t *testing.T) {
	f := FilterSet{
		SortBy:           SortRating,
		Genre:            28,
		ReleaseYear:      1999,
		MinRating:        6.5,
		ExcludeAnimation: true,
		Keywords:         []Keyword{{ID: 1}, {ID: 2}},
	}
	movieParams := f.Params(Movie, "BR")
	assert.Equal(t, "1999", movieParams.Get("primary_release_year"))
	assert.Equal(t, "", movieParams.Get("first_air_date_year"))
	assert.Equal(t, "6.5", movieParams.Get("vote_average.gte"))
	assert.Equal(t, "", movieParams.Get("with_runtime.lte"))
	assert.Equal(t, "28", movieParams.Get("with_genres"))
	assert.Equal(t, "16", movieParams.Get("without_genres"))
	assert.Equal(t, "1,2", movieParams.Get("with_keywords"))

	tvParams := f.Params(Series, "")
	assert.Equal(t, "1999", tvParams.Get("first_air_date_year"))
	assert.Equal(t, "", tvParams.Get("watch_region"))

	assert.NotEqual(t, f.Key(Movie), f.Key(Series))
	assert.Equal(t, f.Key(Movie), f.Key(Movie))
}

func TestFilterValidate(t *testing.T) {
	assert.NoError(t, DefaultFilters().Validate())

	tests := []struct {
		name   string
		mutate func(*FilterSet)
	}{
		{"unknown sort", func(f *FilterSet) { f.SortBy = "title.asc" }},
		{"rating above 10", func(f *FilterSet) { f.MinRating = 10.5 }},
		{"negative rating", func(f *FilterSet) { f.MinRating = -1 }},
		{"runtime too long", func(f *FilterSet) { f.MaxRuntime = 401 }},
		{"year too old", func(f *FilterSet) { f.ReleaseYear = 1800 }},
		{"four keywords", func(f *FilterSet) { f.Keywords = []Keyword{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}} }},
		{"keyword without id", func(f *FilterSet) { f.Keywords = []Keyword{{Name: "x"}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := DefaultFilters()
			tt.mutate(&f)
			assert.True(t, errors.Is(f.Validate(), apperr.ErrValidation))
		})
	}
}
