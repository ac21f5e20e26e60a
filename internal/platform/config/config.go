// Package config carga la configuración del proceso desde env (y .env si existe).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port    string `env:"PORT" envDefault:"8080"`
	AppName string `env:"APP_NAME" envDefault:"pharmabot"`

	// DBDriver: memory | sqlite | postgres
	DBDriver string `env:"DB_DRIVER" envDefault:"memory"`
	DBDSN    string `env:"DB_DSN"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	Device Device `envPrefix:"DEVICE_"`
	IAM    IAM    `envPrefix:"IAM_"`
}

type Device struct {
	// OnlineTimeout: sin heartbeat por más que esto, el dispositivo cuenta como offline.
	OnlineTimeout time.Duration `env:"TIMEOUT" envDefault:"300s"`
	HTTPTimeout   time.Duration `env:"HTTP_TIMEOUT" envDefault:"5s"`
	StrictPairing bool          `env:"STRICT_PAIRING" envDefault:"false"`

	RatePerSec float64 `env:"RATE_PER_SEC" envDefault:"5"`
	RateBurst  int     `env:"RATE_BURST" envDefault:"10"`
}

type IAM struct {
	BaseURL string `env:"BASE_URL"`
	APIKey  string `env:"API_KEY"`
}

// Load lee .env (opcional) y después el entorno. Las variables ya
// exportadas ganan sobre el archivo.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.DBDriver)) {
	case "memory":
	case "sqlite", "postgres":
		if strings.TrimSpace(c.DBDSN) == "" {
			return fmt.Errorf("DB_DSN is required for DB_DRIVER=%s", c.DBDriver)
		}
	default:
		return fmt.Errorf("invalid DB_DRIVER %q", c.DBDriver)
	}
	if c.Device.OnlineTimeout <= 0 {
		return errors.New("DEVICE_TIMEOUT must be > 0")
	}
	if c.Device.RatePerSec < 0 || c.Device.RateBurst < 0 {
		return errors.New("DEVICE_RATE_* must be >= 0")
	}
	return nil
}

func (c Config) Addr() string {
	p := strings.TrimSpace(c.Port)
	if strings.HasPrefix(p, ":") {
		return p
	}
	return ":" + p
}

// IAMEnabled: sin IAM el server corre en modo dev (X-Debug-User-ID).
func (c Config) IAMEnabled() bool {
	return strings.TrimSpace(c.IAM.BaseURL) != "" && strings.TrimSpace(c.IAM.APIKey) != ""
}
