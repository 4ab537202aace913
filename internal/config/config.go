package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort               = 8080
	defaultDebounce           = 300 * time.Millisecond
	defaultSize               = 256
	defaultMinSize            = 100
	defaultContainerWidth     = 0
	defaultEngine             = "standard"
	defaultRenderTimeout      = 10 * time.Second
	defaultSessionTTL         = 30 * time.Minute
	defaultMaxSessions        = 256
	defaultRateLimitPerMin    = 120
	defaultRateLimitBurst     = 30
	defaultLogLevel           = "info"
	defaultLogFormat          = "text"
	maximumSize               = 4096
	maximumConfiguredSessions = 65536
)

// Config captures startup settings for the server and the CLI.
type Config struct {
	Port            int
	Debounce        time.Duration
	DefaultSize     int
	MinSize         int
	ContainerWidth  int
	Engine          string
	VerifyScans     bool
	RenderTimeout   time.Duration
	SessionTTL      time.Duration
	MaxSessions     int
	RateLimitPerMin int
	RateLimitBurst  int
	LogLevel        string
	LogFormat       string
	GlyphFont       string
	EmojiFont       string
}

// Addr is the listen address for Port.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// LoadDotEnv loads the given .env files (default ".env") into the process
// environment without overriding variables that are already set. Missing
// files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// LoadFromEnv loads runtime configuration from environment variables.
func LoadFromEnv() (Config, error) {
	port, err := readInt("PORT", defaultPort, 1, 65535)
	if err != nil {
		return Config{}, err
	}

	debounce, err := readDuration("QRSTUDIO_DEBOUNCE", defaultDebounce)
	if err != nil {
		return Config{}, err
	}

	size, err := readInt("QRSTUDIO_DEFAULT_SIZE", defaultSize, 1, maximumSize)
	if err != nil {
		return Config{}, err
	}

	minSize, err := readInt("QRSTUDIO_MIN_SIZE", defaultMinSize, 1, maximumSize)
	if err != nil {
		return Config{}, err
	}

	width, err := readInt("QRSTUDIO_CONTAINER_WIDTH", defaultContainerWidth, 0, maximumSize)
	if err != nil {
		return Config{}, err
	}

	engine, err := readRequiredOrDefault("QRSTUDIO_ENGINE", defaultEngine)
	if err != nil {
		return Config{}, err
	}
	if engine != "standard" && engine != "basic" {
		return Config{}, fmt.Errorf("QRSTUDIO_ENGINE must be standard or basic, got %q", engine)
	}

	verify, err := readBool("QRSTUDIO_VERIFY_SCANS", false)
	if err != nil {
		return Config{}, err
	}

	renderTimeout, err := readDuration("QRSTUDIO_RENDER_TIMEOUT", defaultRenderTimeout)
	if err != nil {
		return Config{}, err
	}

	sessionTTL, err := readDuration("QRSTUDIO_SESSION_TTL", defaultSessionTTL)
	if err != nil {
		return Config{}, err
	}

	maxSessions, err := readInt("QRSTUDIO_MAX_SESSIONS", defaultMaxSessions, 1, maximumConfiguredSessions)
	if err != nil {
		return Config{}, err
	}

	perMin, err := readInt("QRSTUDIO_RATE_LIMIT_PER_MIN", defaultRateLimitPerMin, 1, 100000)
	if err != nil {
		return Config{}, err
	}

	burst, err := readInt("QRSTUDIO_RATE_LIMIT_BURST", defaultRateLimitBurst, 1, 100000)
	if err != nil {
		return Config{}, err
	}

	level, err := readRequiredOrDefault("QRSTUDIO_LOG_LEVEL", defaultLogLevel)
	if err != nil {
		return Config{}, err
	}

	format, err := readRequiredOrDefault("QRSTUDIO_LOG_FORMAT", defaultLogFormat)
	if err != nil {
		return Config{}, err
	}
	if format != "text" && format != "json" {
		return Config{}, fmt.Errorf("QRSTUDIO_LOG_FORMAT must be text or json, got %q", format)
	}

	return Config{
		Port:            port,
		Debounce:        debounce,
		DefaultSize:     size,
		MinSize:         minSize,
		ContainerWidth:  width,
		Engine:          engine,
		VerifyScans:     verify,
		RenderTimeout:   renderTimeout,
		SessionTTL:      sessionTTL,
		MaxSessions:     maxSessions,
		RateLimitPerMin: perMin,
		RateLimitBurst:  burst,
		LogLevel:        level,
		LogFormat:       format,
		GlyphFont:       strings.TrimSpace(os.Getenv("QRSTUDIO_GLYPH_FONT")),
		EmojiFont:       strings.TrimSpace(os.Getenv("QRSTUDIO_EMOJI_FONT")),
	}, nil
}

func readRequiredOrDefault(key, fallback string) (string, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%s must not be empty", key)
	}

	return raw, nil
}

func readInt(key string, fallback, min, max int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	if parsed < min || parsed > max {
		return 0, fmt.Errorf("%s must be between %d and %d", key, min, max)
	}

	return parsed, nil
}

func readDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration: %w", key, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}

	return parsed, nil
}

func readBool(key string, fallback bool) (bool, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}

	return parsed, nil
}
