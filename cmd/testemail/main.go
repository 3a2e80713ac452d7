package main

import (
	"errors"
	"flag"
	"os"
	"time"

	"cinesorte/catalog"
	"cinesorte/config"
	"cinesorte/logging"
	"cinesorte/notifier"
)

// Sends a sample daily pick email to check the SMTP settings.
func main() {
	envFile := flag.String("env", ".env", "Path to a dotenv file")
	flag.Parse()

	if err := config.LoadFile(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Fatal().Err(err).Msg("Error loading env file")
	}
	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log := logging.With("testemail")

	log.Info().
		Str("host", cfg.Email.SMTPHost).
		Int("port", cfg.Email.SMTPPort).
		Str("sender", cfg.Email.SenderEmail).
		Str("token", mask(cfg.Email.SenderPassword)).
		Str("recipient", cfg.Email.RecipientEmail).
		Msg("Email configuration")

	n, err := notifier.NewEmailNotifier(cfg.Email, cfg.TMDB.ImageBaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Email is not configured")
	}

	sample := notifier.Pick{
		Item: catalog.Candidate{
			ID:          603,
			Title:       "Matrix",
			Overview:    "Email de teste do Cinesorte para verificar a configuração SMTP.",
			PosterPath:  "/f89U3ADr1oiB1s9GkdPOEpXUk5H.jpg",
			ReleaseDate: "1999-03-30",
			VoteAverage: 8.2,
			MediaKind:   catalog.Movie,
		},
		Providers: []catalog.Provider{{ID: 8, Name: "Netflix"}},
		Filters:   "teste",
		At:        time.Now(),
	}

	log.Info().Msg("Attempting to send test email...")
	if err := n.NotifyDailyPick(sample); err != nil {
		log.Fatal().Err(err).Msg("Failed to send email")
	}
	log.Info().Msg("Email sent successfully")
}

func mask(secret string) string {
	switch {
	case secret == "":
		return ""
	case len(secret) > 8:
		return secret[:4] + "..." + secret[len(secret)-4:]
	default:
		return "***"
	}
}
