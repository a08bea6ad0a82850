package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	App        App        `yaml:"app"`
	HTTP       HTTP       `yaml:"http"`
	Log        Log        `yaml:"log"`
	Database   Database   `yaml:"database"`
	Redis      Redis      `yaml:"redis"`
	Redeam     Redeam     `yaml:"redeam"`
	SmartOrder SmartOrder `yaml:"smartorder"`
	Cache      Cache      `yaml:"cache"`
	Sync       Sync       `yaml:"sync"`
	Breaker    Breaker    `yaml:"circuit_breaker"`
	RateLimit  RateLimit  `yaml:"rate_limiting"`
	Voucher    Voucher    `yaml:"voucher"`
	Tokens     Tokens     `yaml:"tokens"`
}

type App struct {
	Name    string `yaml:"name" env:"APP_NAME" env-default:"themepark-booking"`
	DevMode bool   `yaml:"dev_mode" env:"DEV_MODE"`
}

type HTTP struct {
	Addr string `yaml:"addr" env:"HTTP_ADDR" env-default:":8080"`
	// Base URL used when building voucher download links.
	PublicURL string `yaml:"public_url" env:"PUBLIC_URL" env-default:"http://localhost:8080"`
}

type Log struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

type Database struct {
	Driver     string `yaml:"driver" env:"DB_DRIVER" env-default:"postgres"` // postgres | sqlite
	URL        string `yaml:"url" env:"DATABASE_URL"`
	SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH" env-default:"themepark.db"`
}

type Redis struct {
	Enabled  bool   `yaml:"enabled" env:"REDIS_ENABLED"`
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

type Redeam struct {
	BaseURL   string        `yaml:"base_url" env:"REDEAM_BASE_URL" env-default:"https://booking.redeam.io/v1.2"`
	APIKey    string        `yaml:"api_key" env:"REDEAM_API_KEY"`
	APISecret string        `yaml:"api_secret" env:"REDEAM_API_SECRET"`
	Timeout   time.Duration `yaml:"timeout" env:"REDEAM_TIMEOUT" env-default:"600s"`
	Insecure  bool          `yaml:"insecure_skip_verify" env:"REDEAM_INSECURE_SKIP_VERIFY"`

	Disney      Park `yaml:"disney" env-prefix:"REDEAM_DISNEY_"`
	UnitedParks Park `yaml:"united_parks" env-prefix:"REDEAM_UNITED_PARKS_"`
}

// Park adapters are on unless Disabled.
type Park struct {
	Disabled   bool   `yaml:"disabled" env:"DISABLED"`
	SupplierID string `yaml:"supplier_id" env:"SUPPLIER_ID"`
}

func (p Park) Enabled() bool { return !p.Disabled }

type SmartOrder struct {
	Disabled       bool          `yaml:"disabled" env:"SMARTORDER_DISABLED"`
	BaseURL        string        `yaml:"base_url" env:"SMARTORDER_BASE_URL" env-default:"https://QACorpAPI.ucdp.net"`
	CustomerID     string        `yaml:"customer_id" env:"SMARTORDER_CUSTOMER_ID"`
	ClientUsername string        `yaml:"client_username" env:"SMARTORDER_CLIENT_USERNAME"`
	ClientSecret   string        `yaml:"client_secret" env:"SMARTORDER_CLIENT_SECRET"`
	ApprovedSuffix string        `yaml:"approved_suffix" env:"SMARTORDER_APPROVED_SUFFIX" env-default:"-2KNOW"`
	SalesProgramID string        `yaml:"sales_program_id" env:"SMARTORDER_SALES_PROGRAM_ID" env-default:"4638"`
	Timeout        time.Duration `yaml:"timeout" env:"SMARTORDER_TIMEOUT" env-default:"600s"`
	Insecure       bool          `yaml:"insecure_skip_verify" env:"SMARTORDER_INSECURE_SKIP_VERIFY"`
}

func (s SmartOrder) Enabled() bool { return !s.Disabled }

type Cache struct {
	DefaultTTL      time.Duration `yaml:"default_ttl" env:"CACHE_DEFAULT_TTL" env-default:"3600s"`
	AvailabilityTTL time.Duration `yaml:"availability_ttl" env:"CACHE_AVAILABILITY_TTL" env-default:"60s"`
	ProductsTTL     time.Duration `yaml:"products_ttl" env:"CACHE_PRODUCTS_TTL" env-default:"3600s"`
	PricingTTL      time.Duration `yaml:"pricing_ttl" env:"CACHE_PRICING_TTL" env-default:"300s"`
}

type Sync struct {
	Interval      time.Duration `yaml:"interval" env:"SYNC_INTERVAL" env-default:"6h"`
	RetryAttempts int           `yaml:"retry_attempts" env:"SYNC_RETRY_ATTEMPTS" env-default:"3"`
	RetryDelay    time.Duration `yaml:"retry_delay" env:"SYNC_RETRY_DELAY" env-default:"5s"`
}

type Breaker struct {
	Disabled         bool          `yaml:"disabled" env:"CIRCUIT_BREAKER_DISABLED"`
	FailureThreshold int           `yaml:"failure_threshold" env:"CIRCUIT_BREAKER_FAILURE_THRESHOLD" env-default:"5"`
	OpenTimeout      time.Duration `yaml:"timeout" env:"CIRCUIT_BREAKER_TIMEOUT" env-default:"60s"`
	SuccessThreshold int           `yaml:"success_threshold" env:"CIRCUIT_BREAKER_SUCCESS_THRESHOLD" env-default:"2"`
}

type RateLimit struct {
	Disabled          bool `yaml:"disabled" env:"RATE_LIMIT_DISABLED"`
	RequestsPerMinute int  `yaml:"requests_per_minute" env:"RATE_LIMIT_RPM" env-default:"60"`
	Burst             int  `yaml:"burst" env:"RATE_LIMIT_BURST" env-default:"10"`
}

type Voucher struct {
	Disk       string `yaml:"disk" env:"VOUCHER_DISK" env-default:"local"` // local | s3 | gcs
	LocalRoot  string `yaml:"local_root" env:"VOUCHER_LOCAL_ROOT" env-default:"storage"`
	Bucket     string `yaml:"bucket" env:"VOUCHER_BUCKET"`
	Region     string `yaml:"region" env:"VOUCHER_REGION" env-default:"us-east-1"`
	Endpoint   string `yaml:"endpoint" env:"VOUCHER_ENDPOINT"`
	Prefix     string `yaml:"prefix" env:"VOUCHER_PREFIX"`
	ExpiryDays int    `yaml:"expiry_days" env:"VOUCHER_EXPIRY_DAYS" env-default:"365"`

	// base64 keys for signed download links
	LinkHashKey  string `yaml:"link_hash_key" env:"VOUCHER_LINK_HASH_KEY"`
	LinkBlockKey string `yaml:"link_block_key" env:"VOUCHER_LINK_BLOCK_KEY"`
}

type Tokens struct {
	// base64, 32 bytes; empty stores cached tokens unsealed
	EncKey string `yaml:"enc_key" env:"TOKEN_ENC_KEY"`
}

// FromEnv reads path (when it exists) and then applies environment overrides.
func FromEnv(path string) (Config, error) {
	var cfg Config
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, &cfg); err != nil {
				return cfg, fmt.Errorf("config %s: %w", path, err)
			}
			return cfg, cfg.Validate()
		}
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("config env: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "postgres":
		if strings.TrimSpace(c.Database.URL) == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	case "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.Database.Driver))
	}
	switch c.Voucher.Disk {
	case "local", "s3", "gcs":
	default:
		errs = append(errs, fmt.Errorf("unknown voucher disk %q", c.Voucher.Disk))
	}
	if k, err := c.TokenKey(); err != nil {
		errs = append(errs, err)
	} else if k != nil && len(k) != 32 {
		errs = append(errs, fmt.Errorf("TOKEN_ENC_KEY must decode to 32 bytes (got %d)", len(k)))
	}
	return errors.Join(errs...)
}

func (c Config) TokenKey() ([]byte, error) { return optionalB64("TOKEN_ENC_KEY", c.Tokens.EncKey) }

func (c Config) LinkKeys() (hash, block []byte, err error) {
	hash, err = optionalB64("VOUCHER_LINK_HASH_KEY", c.Voucher.LinkHashKey)
	if err != nil {
		return nil, nil, err
	}
	block, err = optionalB64("VOUCHER_LINK_BLOCK_KEY", c.Voucher.LinkBlockKey)
	return hash, block, err
}

func optionalB64(name, v string) ([]byte, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	if b, err := base64.StdEncoding.DecodeString(v); err == nil {
		return b, nil
	}
	b, err := base64.RawStdEncoding.DecodeString(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return b, nil
}
