package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Port     string
	Debug    bool
	Database DatabaseConfig
	CORS     CORSConfig
}

type DatabaseConfig struct {
	Driver          string // postgres | mysql | sqlite
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	DSN             string // overrides the discrete fields when set
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

// Load reads configs/.env when present and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetDefault("port", "8080")
	v.SetDefault("app_debug", false)
	v.SetDefault("db_driver", DriverPostgres)
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "postgres")
	v.SetDefault("db_password", "postgres")
	v.SetDefault("db_name", "postgres")
	v.SetDefault("db_sslmode", "disable")
	v.SetDefault("db_dsn", "")
	v.SetDefault("db_sqlite_path", "./data/pos.db")
	v.SetDefault("db_max_open_conns", 25)
	v.SetDefault("db_max_idle_conns", 5)
	v.SetDefault("db_conn_max_lifetime", "1h")
	v.SetDefault("cors_allowed_origins", "http://localhost:5173,http://127.0.0.1:5173")
	v.AutomaticEnv()

	cfg := &Config{
		Port:  v.GetString("port"),
		Debug: v.GetBool("app_debug"),
		Database: DatabaseConfig{
			Driver:          strings.ToLower(v.GetString("db_driver")),
			Host:            v.GetString("db_host"),
			Port:            v.GetString("db_port"),
			User:            v.GetString("db_user"),
			Password:        v.GetString("db_password"),
			Name:            v.GetString("db_name"),
			SSLMode:         v.GetString("db_sslmode"),
			DSN:             v.GetString("db_dsn"),
			SQLitePath:      v.GetString("db_sqlite_path"),
			MaxOpenConns:    v.GetInt("db_max_open_conns"),
			MaxIdleConns:    v.GetInt("db_max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("db_conn_max_lifetime"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("cors_allowed_origins")),
		},
	}

	switch cfg.Database.Driver {
	case DriverPostgres, DriverMySQL, DriverSQLite:
	default:
		return nil, fmt.Errorf("config: unknown DB_DRIVER %q", cfg.Database.Driver)
	}
	return cfg, nil
}

// PostgresDSN returns DSN when set, otherwise a URL built from the discrete fields.
func (c DatabaseConfig) PostgresDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + c.Port + "/" + c.Name + "?sslmode=" + c.SSLMode
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
