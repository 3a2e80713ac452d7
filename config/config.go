package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full runtime configuration, read from the environment.
type Config struct {
	TMDB      TMDBConfig
	Backend   BackendConfig
	Roulette  RouletteConfig
	DailyPick DailyPickConfig
	Email     EmailConfig

	DataPath     string
	LocalListMax int
	RunMode      string
	LogLevel     string
	LogFormat    string
}

type TMDBConfig struct {
	APIKey        string
	BaseURL       string
	ImageBaseURL  string
	Language      string
	Region        string
	RPS           float64
	Burst         int
	Timeout       time.Duration
	DiscoverPages int
}

type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

type RouletteConfig struct {
	SpinDelay            time.Duration
	SearchDebounce       time.Duration
	BootstrapRetryDelay  time.Duration
	BootstrapMaxAttempts int
	HistorySize          int
}

type DailyPickConfig struct {
	Cron       string
	MediaKind  string
	Genre      int
	MinRating  float64
	MaxRuntime int
	Keywords   []int
	RunAtStart bool
}

type EmailConfig struct {
	SMTPHost       string
	SMTPPort       int
	SenderEmail    string
	SenderPassword string
	RecipientEmail string
}

// Enabled reports whether enough is configured to send mail.
func (e EmailConfig) Enabled() bool {
	return e.SMTPHost != "" && e.RecipientEmail != ""
}

// LoadFile loads variables from a dotenv file into the process environment
// without overriding variables that are already set.
func LoadFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Load reads the configuration from the environment.
func Load() Config {
	return Config{
		TMDB: TMDBConfig{
			APIKey:        getenv("TMDB_API_KEY", ""),
			BaseURL:       strings.TrimRight(getenv("TMDB_BASE_URL", "https://api.themoviedb.org/3"), "/"),
			ImageBaseURL:  strings.TrimRight(getenv("TMDB_IMAGE_BASE_URL", "https://image.tmdb.org/t/p"), "/"),
			Language:      getenv("TMDB_LANGUAGE", "pt-BR"),
			Region:        getenv("TMDB_REGION", "BR"),
			RPS:           getenvFloat("TMDB_RPS", 20),
			Burst:         getenvInt("TMDB_BURST", 10),
			Timeout:       getenvDuration("TMDB_TIMEOUT", 15*time.Second),
			DiscoverPages: getenvInt("DISCOVER_PAGES", 5),
		},
		Backend: BackendConfig{
			BaseURL: strings.TrimRight(getenv("API_BASE_URL", ""), "/"),
			Timeout: getenvDuration("API_TIMEOUT", 15*time.Second),
		},
		Roulette: RouletteConfig{
			SpinDelay:            getenvDuration("SPIN_DELAY", 3*time.Second),
			SearchDebounce:       getenvDuration("SEARCH_DEBOUNCE", 500*time.Millisecond),
			BootstrapRetryDelay:  getenvDuration("BOOTSTRAP_RETRY_DELAY", 3*time.Second),
			BootstrapMaxAttempts: getenvInt("BOOTSTRAP_MAX_ATTEMPTS", 5),
			HistorySize:          getenvInt("HISTORY_SIZE", 10),
		},
		DailyPick: DailyPickConfig{
			Cron:       getenv("DAILY_PICK_CRON", "0 0 18 * * *"),
			MediaKind:  getenv("DAILY_PICK_MEDIA", "movie"),
			Genre:      getenvInt("DAILY_PICK_GENRE", 0),
			MinRating:  getenvFloat("DAILY_PICK_MIN_RATING", 7),
			MaxRuntime: getenvInt("DAILY_PICK_MAX_RUNTIME", 150),
			Keywords:   getenvInts("DAILY_PICK_KEYWORDS"),
			RunAtStart: getenvBool("RUN_AT_STARTUP", false),
		},
		Email: EmailConfig{
			SMTPHost:       getenv("EMAIL_SMTP_HOST", ""),
			SMTPPort:       getenvInt("EMAIL_SMTP_PORT", 587),
			SenderEmail:    getenv("EMAIL_SENDER", ""),
			SenderPassword: getenv("EMAIL_PASSWORD", ""),
			RecipientEmail: getenv("EMAIL_RECIPIENT", ""),
		},
		DataPath:     getenv("DATA_PATH", "./data"),
		LocalListMax: getenvInt("LOCAL_LIST_MAX", 10),
		RunMode:      strings.ToLower(getenv("RUN_MODE", "scheduler")),
		LogLevel:     getenv("LOG_LEVEL", "info"),
		LogFormat:    getenv("LOG_FORMAT", "console"),
	}
}

// helpers
func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return def
}

func getenvDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return def
}

func getenvBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

// getenvInts parses a comma-separated list, skipping malformed entries.
func getenvInts(k string) []int {
	v := os.Getenv(k)
	if strings.TrimSpace(v) == "" {
		return nil
	}
	var out []int
	for _, part := range strings.Split(v, ",") {
		if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			out = append(out, n)
		}
	}
	return out
}
