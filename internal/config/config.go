package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	AuthProviderRemote = "remote"
	AuthProviderLocal  = "local"
)

// Config holds every setting read from the environment.
type Config struct {
	HTTPAddr    string
	CORSOrigins []string

	DBDriver   string
	DBSource   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBTimezone string

	AuthProvider        string
	AuthURL             string
	AuthAnonKey         string
	AuthJWTSecret       string
	AdminEmail          string
	AdminPasswordHash   string
	SessionTTL          time.Duration
	SessionCookieSecure bool

	RemoteTimeout    time.Duration
	StatsRefreshSpec string
	SnapshotSpec     string

	ArchiveBucket      string
	ArchiveDir         string
	GCSCredentialsFile string

	LogLevel  string
	LogFormat string

	Campus Campus
}

// Campus describes the static map layer: where the campus is, its buildings
// and the fixed safety resources shown next to incident markers.
type Campus struct {
	Name      string     `yaml:"name"`
	Center    LatLng     `yaml:"center"`
	Zoom      int        `yaml:"zoom"`
	Bounds    []LatLng   `yaml:"bounds"`
	Buildings []Building `yaml:"buildings"`
	Resources []Resource `yaml:"resources"`
	Tiles     TileSource `yaml:"tiles"`
}

type LatLng struct {
	Lat float64 `yaml:"lat" json:"lat"`
	Lng float64 `yaml:"lng" json:"lng"`
}

type Building struct {
	ID     string   `yaml:"id" json:"id"`
	Name   string   `yaml:"name" json:"name"`
	Coords []LatLng `yaml:"coords" json:"coords"`
}

type Resource struct {
	Type string  `yaml:"type" json:"type"`
	Name string  `yaml:"name" json:"name"`
	Lat  float64 `yaml:"lat" json:"lat"`
	Lng  float64 `yaml:"lng" json:"lng"`
	Icon string  `yaml:"icon" json:"icon"`
}

type TileSource struct {
	URL         string `yaml:"url" json:"url"`
	Attribution string `yaml:"attribution" json:"attribution"`
	MaxZoom     int    `yaml:"max_zoom" json:"max_zoom"`
}

// Load reads .env when present, then the environment, then the optional
// campus YAML named by DASHBOARD_CONFIG.
func Load() (*Config, error) {
	// .env is optional outside local development
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		CORSOrigins: splitList(os.Getenv("CORS_ORIGINS")),

		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DBSource:   os.Getenv("DB_SOURCE"),
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBSSLMode:  getEnv("DB_SSLMODE", "require"),
		DBTimezone: getEnv("DB_TIMEZONE", "UTC"),

		AuthProvider:      strings.ToLower(getEnv("AUTH_PROVIDER", AuthProviderRemote)),
		AuthURL:           strings.TrimRight(os.Getenv("AUTH_URL"), "/"),
		AuthAnonKey:       os.Getenv("AUTH_ANON_KEY"),
		AuthJWTSecret:     os.Getenv("AUTH_JWT_SECRET"),
		AdminEmail:        os.Getenv("ADMIN_EMAIL"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),

		StatsRefreshSpec: getEnv("STATS_REFRESH_SPEC", "@every 30s"),
		SnapshotSpec:     getEnv("SNAPSHOT_SPEC", "0 5 1 * *"),

		ArchiveBucket:      os.Getenv("ARCHIVE_BUCKET"),
		ArchiveDir:         os.Getenv("ARCHIVE_DIR"),
		GCSCredentialsFile: os.Getenv("GCS_CREDENTIALS_FILE"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		Campus: DefaultCampus(),
	}

	var err error
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 12*time.Hour); err != nil {
		return nil, err
	}
	if cfg.RemoteTimeout, err = getDuration("REMOTE_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if v := os.Getenv("SESSION_COOKIE_SECURE"); v != "" {
		secure, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("SESSION_COOKIE_SECURE: %w", err)
		}
		cfg.SessionCookieSecure = secure
	}

	if path := os.Getenv("DASHBOARD_CONFIG"); path != "" {
		campus, err := LoadCampus(path)
		if err != nil {
			return nil, err
		}
		cfg.Campus = campus
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first missing or inconsistent setting.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres", "mysql":
		if c.DBSource == "" && (c.DBHost == "" || c.DBUser == "" || c.DBName == "") {
			return fmt.Errorf("database settings missing: DB_HOST, DB_USER and DB_NAME are required for %s", c.DBDriver)
		}
	case "sqlite":
		if c.DBSource == "" {
			c.DBSource = "dashboard.db"
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}

	switch c.AuthProvider {
	case AuthProviderRemote:
		if c.AuthURL == "" || c.AuthAnonKey == "" {
			return fmt.Errorf("AUTH_URL and AUTH_ANON_KEY are required for the remote auth provider")
		}
		if c.AuthJWTSecret == "" {
			return fmt.Errorf("AUTH_JWT_SECRET is required to verify sessions")
		}
	case AuthProviderLocal:
		if c.AdminEmail == "" || c.AdminPasswordHash == "" {
			return fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD_HASH are required for the local auth provider")
		}
		if c.AuthJWTSecret == "" {
			return fmt.Errorf("AUTH_JWT_SECRET is required to sign sessions")
		}
	default:
		return fmt.Errorf("unsupported AUTH_PROVIDER %q", c.AuthProvider)
	}
	return nil
}

// LoadCampus reads the campus map definition from a YAML file. Fields left
// out of the file keep their defaults.
func LoadCampus(path string) (Campus, error) {
	campus := DefaultCampus()
	data, err := os.ReadFile(path)
	if err != nil {
		return campus, fmt.Errorf("read campus config: %w", err)
	}
	if err := yaml.Unmarshal(data, &campus); err != nil {
		return campus, fmt.Errorf("parse campus config: %w", err)
	}
	if campus.Tiles.URL == "" {
		campus.Tiles = defaultTiles()
	}
	return campus, nil
}

// DefaultCampus is the map used when no campus file is configured.
func DefaultCampus() Campus {
	return Campus{
		Name:   "Main Campus",
		Center: LatLng{Lat: 40.7128, Lng: -74.0060},
		Zoom:   16,
		Bounds: []LatLng{
			{Lat: 40.7120, Lng: -74.0075},
			{Lat: 40.7120, Lng: -74.0045},
			{Lat: 40.7136, Lng: -74.0045},
			{Lat: 40.7136, Lng: -74.0075},
		},
		Buildings: []Building{
			{ID: "library", Name: "Main Library", Coords: []LatLng{{40.7125, -74.0060}, {40.7125, -74.0055}, {40.7128, -74.0055}, {40.7128, -74.0060}}},
			{ID: "science", Name: "Science Building", Coords: []LatLng{{40.7129, -74.0065}, {40.7129, -74.0060}, {40.7132, -74.0060}, {40.7132, -74.0065}}},
			{ID: "dorm-a", Name: "Dormitory A", Coords: []LatLng{{40.7122, -74.0070}, {40.7122, -74.0065}, {40.7125, -74.0065}, {40.7125, -74.0070}}},
			{ID: "admin", Name: "Administration Building", Coords: []LatLng{{40.7130, -74.0050}, {40.7130, -74.0045}, {40.7133, -74.0045}, {40.7133, -74.0050}}},
		},
		Resources: []Resource{
			{Type: "emergency", Name: "Emergency Phone #1", Lat: 40.7124, Lng: -74.0062, Icon: "fas fa-phone"},
			{Type: "firstaid", Name: "First Aid Station - Library", Lat: 40.7126, Lng: -74.0057, Icon: "fas fa-first-aid"},
			{Type: "security", Name: "Security Office", Lat: 40.7130, Lng: -74.0050, Icon: "fas fa-shield-alt"},
			{Type: "emergency", Name: "Emergency Phone #2", Lat: 40.7128, Lng: -74.0068, Icon: "fas fa-phone"},
			{Type: "firstaid", Name: "First Aid Station - Dorms", Lat: 40.7122, Lng: -74.0067, Icon: "fas fa-first-aid"},
		},
		Tiles: defaultTiles(),
	}
}

func defaultTiles() TileSource {
	return TileSource{
		URL:         "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
		Attribution: "© OpenStreetMap contributors",
		MaxZoom:     19,
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
