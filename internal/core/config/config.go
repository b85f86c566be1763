package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type RefreshCfg struct {
	Enabled bool
	Topic   string
	GroupID string
	Dataset string
}

type SelectionEventsCfg struct {
	Enabled bool
	Topic   string
}

type Config struct {
	Addr       string
	LogLevel   string
	LogConsole bool
	LogSampleN int

	BoundarySource string
	DataURL        string
	DetailURL      string
	DetailIDParam  string
	MapToken       string

	IDPrefix      string
	IDWidth       int
	IDField       string
	ValueField    string
	ForecastField string
	H3Res         int

	ColorClamp  bool
	DefaultMode string

	MaxSessions       int
	SessionIdleTTL    time.Duration
	SessionSweepEvery time.Duration
	CORSOrigins       []string

	UpstreamTimeout time.Duration
	UpstreamRPS     float64

	PanelWidth  float64
	PanelHeight float64
	PanelMargin float64

	RedisAddr          string
	DetailCacheEnabled bool
	DetailCacheTTL     time.Duration

	KafkaBrokers    []string
	Refresh         RefreshCfg
	SelectionEvents SelectionEventsCfg

	MetricsEnabled bool
	MetricsAddr    string
	MetricsPath    string
}

// LoadDotEnv reads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func FromEnv() Config {
	return Config{
		Addr:       getenv("ADDR", ":8090"),
		LogLevel:   getenv("LOG_LEVEL", "info"),
		LogConsole: getbool("LOG_CONSOLE", false),
		LogSampleN: getint("LOG_SAMPLE_N", 0),

		BoundarySource: getenv("BOUNDARY_SOURCE", "data/counties.geojson"),
		DataURL:        getenv("DATA_URL", ""),
		DetailURL:      getenv("DETAIL_URL", ""),
		DetailIDParam:  getenv("DETAIL_ID_PARAM", "geoid"),
		MapToken:       getenv("MAP_TOKEN", ""),

		IDPrefix:      getenv("ID_PREFIX", "0500000US"),
		IDWidth:       getint("ID_WIDTH", 5),
		IDField:       getenv("ID_FIELD", "GEOID"),
		ValueField:    getenv("VALUE_FIELD", "value"),
		ForecastField: getenv("FORECAST_FIELD", ""),
		H3Res:         getint("H3_RES", 5),

		ColorClamp:  getbool("COLOR_CLAMP", false),
		DefaultMode: getenv("DEFAULT_MODE", "value"),

		MaxSessions:       getint("MAX_SESSIONS", 1024),
		SessionIdleTTL:    getduration("SESSION_IDLE_TTL", 30*time.Minute),
		SessionSweepEvery: getduration("SESSION_SWEEP_EVERY", time.Minute),
		CORSOrigins:       splitCSV(getenv("CORS_ORIGINS", "*")),

		UpstreamTimeout: getduration("UPSTREAM_TIMEOUT", 10*time.Second),
		UpstreamRPS:     getfloat("UPSTREAM_RPS", 0),

		PanelWidth:  getfloat("PANEL_WIDTH", 240),
		PanelHeight: getfloat("PANEL_HEIGHT", 320),
		PanelMargin: getfloat("PANEL_MARGIN", 32),

		RedisAddr:          getenv("REDIS_ADDR", "localhost:6379"),
		DetailCacheEnabled: getbool("DETAIL_CACHE_ENABLED", false),
		DetailCacheTTL:     getduration("DETAIL_CACHE_TTL", 10*time.Minute),

		KafkaBrokers: splitCSV(getenv("KAFKA_BROKERS", "localhost:9092")),
		Refresh: RefreshCfg{
			Enabled: getbool("REFRESH_ENABLED", false),
			Topic:   getenv("REFRESH_TOPIC", "county-data-refresh"),
			GroupID: getenv("REFRESH_GROUP_ID", "county-overlay"),
			Dataset: getenv("REFRESH_DATASET", ""),
		},
		SelectionEvents: SelectionEventsCfg{
			Enabled: getbool("SELECTION_EVENTS_ENABLED", false),
			Topic:   getenv("SELECTION_EVENTS_TOPIC", "county-selections"),
		},

		MetricsEnabled: getbool("METRICS_ENABLED", true),
		MetricsAddr:    getenv("METRICS_ADDR", ""),
		MetricsPath:    getenv("METRICS_PATH", "/metrics"),
	}
}

// Validate reports settings the service cannot start with.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.BoundarySource) == "" {
		errs = append(errs, errors.New("BOUNDARY_SOURCE is required"))
	}
	if c.IDWidth < 0 {
		errs = append(errs, errors.New("ID_WIDTH must be >= 0"))
	}
	if c.H3Res > 15 {
		errs = append(errs, errors.New("H3_RES must be <= 15"))
	}
	if c.MaxSessions <= 0 {
		errs = append(errs, errors.New("MAX_SESSIONS must be > 0"))
	}
	if c.DefaultMode != "value" && c.DefaultMode != "forecast" {
		errs = append(errs, fmt.Errorf("DEFAULT_MODE %q must be value or forecast", c.DefaultMode))
	}
	if (c.Refresh.Enabled || c.SelectionEvents.Enabled) && len(c.KafkaBrokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is required when kafka features are enabled"))
	}
	if c.DetailCacheEnabled && c.RedisAddr == "" {
		errs = append(errs, errors.New("REDIS_ADDR is required when DETAIL_CACHE_ENABLED"))
	}
	return errors.Join(errs...)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
