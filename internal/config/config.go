package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	AppName     = "fitfind"
	EnvFileName = "config.env"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config is the typed view of the process environment.
type Config struct {
	Port       string
	DBPath     string
	UploadDir  string
	ResultsDir string

	VisionProvider string
	VisionModel    string
	GeminiAPIKey   string
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	BrandHints     bool

	SerpAPIKey    string
	SearchWorkers int
	Country       string
	Language      string

	ExtractDirectLinks bool
	LinkWorkers        int
	LinkMaxRetries     int
	LinkBackoff        float64
	LinkBaseDelay      time.Duration
	LinkRPS            float64

	SessionRetention time.Duration

	SupabaseURL    string
	SupabaseKey    string
	SupabaseBucket string

	LogLevel string
}

// UseSupabase reports whether image blobs go to Supabase Storage.
func (c Config) UseSupabase() bool {
	return c.SupabaseURL != "" && c.SupabaseKey != ""
}

// ConfigDir returns the application's config directory path.
func ConfigDir() (string, error) {
	configBase, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configBase, AppName), nil
}

// EnvFilePath returns the full path to the config file.
func EnvFilePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, EnvFileName), nil
}

// LoadEnvFile loads environment variables from a local .env and the config
// file in the user's config directory. Errors are ignored since the files may
// not exist. Variables already set in the environment win.
func LoadEnvFile() {
	_ = godotenv.Load(".env")
	if path, err := EnvFilePath(); err == nil {
		_ = godotenv.Load(path)
	}
}

// RequiredEnvVars lists the variables that must be set for the given
// vision provider.
func RequiredEnvVars(provider string) []string {
	if strings.EqualFold(provider, ProviderOpenAI) {
		return []string{"OPENAI_API_KEY", "SERPAPI_API_KEY"}
	}
	return []string{"GEMINI_API_KEY", "SERPAPI_API_KEY"}
}

// CheckRequired returns the names of any missing required variables.
func CheckRequired() []string {
	var missing []string
	for _, v := range RequiredEnvVars(os.Getenv("VISION_PROVIDER")) {
		if os.Getenv(v) == "" {
			missing = append(missing, v)
		}
	}
	return missing
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var errs []string
	p := parser{errs: &errs}

	cfg := Config{
		Port:       p.str("PORT", "8080"),
		DBPath:     p.str("DB_PATH", "fitfind.db"),
		UploadDir:  p.str("UPLOAD_DIR", "uploads"),
		ResultsDir: p.str("RESULTS_DIR", "results"),

		VisionProvider: strings.ToLower(p.str("VISION_PROVIDER", ProviderGemini)),
		VisionModel:    p.str("VISION_MODEL", ""),
		GeminiAPIKey:   p.str("GEMINI_API_KEY", ""),
		OpenAIAPIKey:   p.str("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  p.str("OPENAI_BASE_URL", ""),
		BrandHints:     p.boolean("BRAND_HINTS", true),

		SerpAPIKey:    p.str("SERPAPI_API_KEY", ""),
		SearchWorkers: p.integer("SEARCH_WORKERS", 5),
		Country:       p.str("SEARCH_COUNTRY", "us"),
		Language:      p.str("SEARCH_LANGUAGE", "en"),

		ExtractDirectLinks: p.boolean("EXTRACT_DIRECT_LINKS", true),
		LinkWorkers:        p.integer("LINK_WORKERS", 20),
		LinkMaxRetries:     p.integer("LINK_MAX_RETRIES", 1),
		LinkBackoff:        p.float("LINK_BACKOFF", 1.5),
		LinkBaseDelay:      p.duration("LINK_BASE_DELAY", 0),
		LinkRPS:            p.float("LINK_RPS", 0),

		SessionRetention: p.duration("SESSION_RETENTION", 720*time.Hour),

		SupabaseURL:    p.str("SUPABASE_URL", ""),
		SupabaseKey:    p.str("SUPABASE_SERVICE_ROLE_KEY", ""),
		SupabaseBucket: p.str("SUPABASE_BUCKET", "outfit-images"),

		LogLevel: p.str("LOG_LEVEL", "info"),
	}

	switch cfg.VisionProvider {
	case ProviderGemini, ProviderOpenAI:
	default:
		errs = append(errs, fmt.Sprintf("VISION_PROVIDER must be %q or %q", ProviderGemini, ProviderOpenAI))
	}

	if len(errs) > 0 {
		return cfg, fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

type parser struct {
	errs *[]string
}

func (p parser) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (p parser) integer(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		*p.errs = append(*p.errs, key+" must be a non-negative integer")
		return def
	}
	return n
}

func (p parser) float(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		*p.errs = append(*p.errs, key+" must be a non-negative number")
		return def
	}
	return f
}

func (p parser) boolean(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*p.errs = append(*p.errs, key+" must be true or false")
		return def
	}
	return b
}

func (p parser) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		*p.errs = append(*p.errs, key+" must be a duration such as 500ms or 24h")
		return def
	}
	return d
}
