// Package config предоставляет функции для работы с конфигурацией приложения
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

// EnvPrefix префикс переменных окружения: BOOKING_JWT_SECRET, BOOKING_DATABASE_HOST
const EnvPrefix = "BOOKING"

// Config основная структура конфигурации приложения
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Health   HealthConfig   `mapstructure:"health"`
}

// ServerConfig конфигурация HTTP и gRPC серверов
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	GRPCPort        int           `mapstructure:"grpc_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig конфигурация базы данных
type DatabaseConfig struct {
	Driver         string `mapstructure:"driver"` // pgx, postgres или memory
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	DBName         string `mapstructure:"dbname"`
	SSLMode        string `mapstructure:"sslmode"`
	MaxOpenConns   int    `mapstructure:"max_open_conns"`
	ConnectRetries uint64 `mapstructure:"connect_retries"`
	AutoMigrate    bool   `mapstructure:"auto_migrate"`
}

// GetDSN формирует строку подключения к PostgreSQL
func (d DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// InMemory сообщает, что данные хранятся в памяти процесса
func (d DatabaseConfig) InMemory() bool {
	return d.Driver == "memory"
}

// JWTConfig конфигурация JWT
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// AuthConfig параметры хранения паролей
type AuthConfig struct {
	BcryptCost int `mapstructure:"bcrypt_cost"`
}

// LogConfig параметры журналирования
type LogConfig struct {
	Verbosity int `mapstructure:"verbosity"`
}

// HealthConfig параметры проверки готовности
type HealthConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.grpc_port", 9090)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.driver", "pgx")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "booking")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.connect_retries", 5)
	v.SetDefault("database.auto_migrate", false)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiration", 24*time.Hour)

	v.SetDefault("auth.bcrypt_cost", 0)
	v.SetDefault("log.verbosity", 0)
	v.SetDefault("health.interval", 10*time.Second)
}

// LoadConfig загружает конфигурацию из YAML файла и переменных окружения.
// Пустой путь означает, что файл не используется.
func LoadConfig(filename string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if filename != "" {
		v.SetConfigFile(filename)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет конфигурацию и возвращает все найденные ошибки разом
func (c *Config) Validate() error {
	var err error

	if c.JWT.Secret == "" {
		err = multierr.Append(err, errors.New("jwt.secret must be set"))
	}
	if c.JWT.Expiration <= 0 {
		err = multierr.Append(err, errors.New("jwt.expiration must be positive"))
	}

	switch c.Database.Driver {
	case "pgx", "postgres", "memory":
	default:
		err = multierr.Append(err, fmt.Errorf("database.driver %q is not supported", c.Database.Driver))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		err = multierr.Append(err, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		err = multierr.Append(err, fmt.Errorf("server.grpc_port %d is out of range", c.Server.GRPCPort))
	}
	if c.Server.GRPCPort != 0 && c.Server.GRPCPort == c.Server.Port {
		err = multierr.Append(err, errors.New("server.grpc_port must differ from server.port"))
	}

	if c.Health.Interval <= 0 {
		err = multierr.Append(err, errors.New("health.interval must be positive"))
	}

	// 4..31 диапазон bcrypt, 0 означает стоимость по умолчанию
	if c.Auth.BcryptCost != 0 && (c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31) {
		err = multierr.Append(err, fmt.Errorf("auth.bcrypt_cost %d is out of range", c.Auth.BcryptCost))
	}

	return err
}
