package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

type Config struct {
	Addr string `env:"ADDR"`

	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"postgres"`
	DatabaseURL    string `env:"DATABASE_URL"`
	DBUser         string `env:"DB_USER" envDefault:"postgres"`
	DBPassword     string `env:"DB_PASSWORD"`
	DBHost         string `env:"DB_HOST" envDefault:"localhost"`
	DBPort         string `env:"DB_PORT" envDefault:"5432"`
	DBName         string `env:"DB_NAME" envDefault:"todo_db"`
	DBAdminName    string `env:"DB_ADMIN_NAME" envDefault:"postgres"`
	DBSSLMode      string `env:"DB_SSLMODE" envDefault:"disable"`
	SQLitePath     string `env:"SQLITE_PATH" envDefault:"todo.db"`
	AutoMigrate    bool   `env:"AUTO_MIGRATE" envDefault:"false"`

	CacheDriver string        `env:"CACHE_DRIVER" envDefault:"none"`
	RedisURL    string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	CacheTTL    time.Duration `env:"CACHE_TTL" envDefault:"1h"`

	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	IdleTimeout  time.Duration `env:"IDLE_TIMEOUT" envDefault:"120s"`
}

// Load 从环境变量读取配置，未设置时使用默认值
func Load(defaultAddr string) (Config, error) {
	cfg := Config{Addr: defaultAddr}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.DatabaseDriver = strings.ToLower(strings.TrimSpace(cfg.DatabaseDriver))
	cfg.CacheDriver = strings.ToLower(strings.TrimSpace(cfg.CacheDriver))

	switch cfg.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return Config{}, fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}
	switch cfg.CacheDriver {
	case "", CacheNone:
		cfg.CacheDriver = CacheNone
	case CacheMemory, CacheRedis:
	default:
		return Config{}, fmt.Errorf("unsupported CACHE_DRIVER %q", cfg.CacheDriver)
	}
	if cfg.CacheTTL <= 0 {
		return Config{}, fmt.Errorf("CACHE_TTL must be positive, got %s", cfg.CacheTTL)
	}

	if cfg.DatabaseURL == "" && cfg.DatabaseDriver == DriverPostgres {
		cfg.DatabaseURL = cfg.PostgresDSN(cfg.DBName)
	}
	return cfg, nil
}

// PostgresDSN 按 DB_* 拼接连接串，dbName 允许指向维护库
func (c Config) PostgresDSN(dbName string) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.DBHost, c.DBPort),
		Path:   "/" + dbName,
	}
	if c.DBPassword != "" {
		u.User = url.UserPassword(c.DBUser, c.DBPassword)
	} else {
		u.User = url.User(c.DBUser)
	}
	if c.DBSSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {c.DBSSLMode}}.Encode()
	}
	return u.String()
}

// AdminDSN 返回用于建库的维护库连接串
func (c Config) AdminDSN() string {
	return c.PostgresDSN(c.DBAdminName)
}

// BootstrapTarget 从 DatabaseURL 推出维护库连接串和目标库名，保证建库与迁移落在同一台服务器上
func (c Config) BootstrapTarget() (adminDSN, dbName string, err error) {
	if c.DatabaseURL == "" {
		return c.AdminDSN(), c.DBName, nil
	}
	u, err := url.Parse(c.DatabaseURL)
	if err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
		return "", "", fmt.Errorf("DATABASE_URL must be a postgres:// URL to create the database")
	}
	dbName = strings.TrimPrefix(u.Path, "/")
	if dbName == "" {
		return "", "", fmt.Errorf("DATABASE_URL does not name a database")
	}
	admin := *u
	admin.Path = "/" + c.DBAdminName
	admin.RawPath = ""
	return admin.String(), dbName, nil
}
