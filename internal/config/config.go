package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const appID = "pawshop"

// Config is read from the environment (optionally seeded from a .env file).
type Config struct {
	HTTPAddress string `envconfig:"http_address" default:":8080"`
	BaseURL     string `envconfig:"base_url" default:"http://localhost:8080"`
	LogLevel    string `envconfig:"log_level" default:"info"`
	LogFormat   string `envconfig:"log_format" default:"json"`

	DBDriver    string        `envconfig:"db_driver" default:"sqlite"`
	DBDSN       string        `envconfig:"db_dsn" default:"file:petshop.db?_txlock=immediate&_time_format=sqlite"`
	DBPoolSize  int           `envconfig:"db_pool_size" default:"8"`
	LockTimeout time.Duration `envconfig:"db_lock_timeout" default:"5s"`

	JWTSecret     string        `envconfig:"jwt_secret" default:"change-me-in-production"`
	TokenTTL      time.Duration `envconfig:"token_ttl" default:"72h"`
	SessionCookie string        `envconfig:"session_cookie" default:"pawshop_session"`
	SessionTTL    time.Duration `envconfig:"session_ttl" default:"720h"`
	CORSOrigins   []string      `envconfig:"cors_origins" default:"http://localhost:5173"`

	CatalogTTL   time.Duration `envconfig:"cache_catalog_ttl" default:"10m"`
	StockTTL     time.Duration `envconfig:"cache_stock_ttl" default:"1m"`
	CampaignsTTL time.Duration `envconfig:"cache_campaigns_ttl" default:"30s"`

	PaymentChatURL string `envconfig:"payment_chat_url" default:"https://wa.me/905422192125"`
	Currency       string `envconfig:"currency" default:"TL"`

	SMTPHost     string `envconfig:"smtp_host"`
	SMTPPort     int    `envconfig:"smtp_port" default:"587"`
	SMTPUser     string `envconfig:"smtp_user"`
	SMTPPassword string `envconfig:"smtp_password"`
	SMTPFrom     string `envconfig:"smtp_from" default:"shop@pawshop.local"`
	AdminEmail   string `envconfig:"admin_email"`

	NotifyWorkers int `envconfig:"notify_workers" default:"4"`
	NotifyQueue   int `envconfig:"notify_queue" default:"256"`

	UploadDir string `envconfig:"upload_dir" default:"./static/uploads"`
}

// Load reads .env (when present) and parses PAWSHOP_* variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn("could not load .env file, relying on system environment variables")
	}

	c := &Config{}
	if err := envconfig.Process(appID, c); err != nil {
		return nil, errors.Wrap(err, "failed to parse env")
	}
	return c, nil
}

// SetupLogger applies level and format to the global logrus logger.
func (c *Config) SetupLogger() {
	if c.LogFormat == "text" {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&log.JSONFormatter{})
	}

	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.WithError(err).Warn("unknown log level, falling back to info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
