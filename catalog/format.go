package catalog

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const placeholderPoster = "https://placehold.co/500x750/0f172a/94a3b8?text=Cinesorte"

var usd = message.NewPrinter(language.AmericanEnglish)

// FormatCurrency renders a USD amount with thousands separators, or
// "Não divulgado" when the amount is unknown.
func FormatCurrency(amount int64) string {
	if amount <= 0 {
		return "Não divulgado"
	}
	return usd.Sprintf("$%d", amount)
}

// RuntimeText renders minutes as "2h 5m", or "N/A" when unknown.
func RuntimeText(minutes int) string {
	if minutes <= 0 {
		return "N/A"
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

var statusNames = map[string]string{
	"Rumored":          "Rumor",
	"Planned":          "Planejado",
	"In Production":    "Em Produção",
	"Post Production":  "Pós-Produção",
	"Released":         "Lançado",
	"Canceled":         "Cancelado",
	"Returning Series": "Em Exibição",
	"Ended":            "Finalizada",
}

// TranslateStatus returns the pt-BR label of a TMDB status.
func TranslateStatus(status string) string {
	if status == "" {
		return "N/A"
	}
	if s, ok := statusNames[status]; ok {
		return s
	}
	return status
}

// PosterURL returns the w500 poster URL, or a placeholder image.
func PosterURL(imageBase, path string) string {
	if path == "" {
		return placeholderPoster
	}
	return imageBase + "/w500" + path
}

// BackdropURL returns the w1280 backdrop URL, or "" when there is none.
func BackdropURL(imageBase, path string) string {
	if path == "" {
		return ""
	}
	return imageBase + "/w1280" + path
}
