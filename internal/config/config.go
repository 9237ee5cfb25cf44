package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Database DatabaseConfig
	Worker   WorkerConfig
	Log      LogConfig
	Costs    CostsConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type DatabaseConfig struct {
	Driver          string // sqlite or postgres
	DSN             string // postgres connection string
	Path            string // sqlite file path
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type WorkerConfig struct {
	Concurrency int
}

type LogConfig struct {
	Level  string
	Format string
}

type CostsConfig struct {
	Path string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("server.port", "3000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "")
	viper.SetDefault("database.path", "data/leadscout.db")
	viper.SetDefault("database.max_idle_conns", 2)
	viper.SetDefault("database.max_open_conns", 10)
	viper.SetDefault("database.conn_max_lifetime", "1h")
	viper.SetDefault("database.auto_migrate", true)
	viper.SetDefault("worker.concurrency", 10)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")
	viper.SetDefault("costs.path", "config/costs.yaml")

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
			Env:  viper.GetString("server.env"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Database: DatabaseConfig{
			Driver:          viper.GetString("database.driver"),
			DSN:             viper.GetString("database.dsn"),
			Path:            viper.GetString("database.path"),
			MaxIdleConns:    viper.GetInt("database.max_idle_conns"),
			MaxOpenConns:    viper.GetInt("database.max_open_conns"),
			ConnMaxLifetime: viper.GetDuration("database.conn_max_lifetime"),
			AutoMigrate:     viper.GetBool("database.auto_migrate"),
		},
		Worker: WorkerConfig{
			Concurrency: viper.GetInt("worker.concurrency"),
		},
		Log: LogConfig{
			Level:  viper.GetString("log.level"),
			Format: viper.GetString("log.format"),
		},
		Costs: CostsConfig{
			Path: viper.GetString("costs.path"),
		},
	}

	return cfg, nil
}
