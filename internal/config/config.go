package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	DriverFile     = "file"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

type Config struct {
	Env        string         `yaml:"env" env:"ENV" env-default:"local"`
	Store      StoreConfig    `yaml:"store"`
	HTTPServer HTTPServer     `yaml:"http_server"`
	GRPC       GRPCConfig     `yaml:"grpc"`
	Launcher   LauncherConfig `yaml:"launcher"`
}

// StoreConfig selects the durable store that keeps the database snapshot.
type StoreConfig struct {
	Driver   string         `yaml:"driver" env:"STORE_DRIVER" env-default:"file"`
	Key      string         `yaml:"key" env:"STORE_KEY" env-default:"profiles"`
	Dir      string         `yaml:"dir" env:"STORE_DIR" env-default:"./data"`
	Watch    bool           `yaml:"watch" env:"STORE_WATCH" env-default:"false"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	Prefix   string `yaml:"prefix" env:"REDIS_PREFIX" env-default:"profilekeeper:"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn" env:"DSN_STRING"`
}

type HTTPServer struct {
	Address       string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	Timeout       time.Duration `yaml:"timeout" env-default:"15s"`
	IdleTimeout   time.Duration `yaml:"idle_timeout" env-default:"60s"`
	MaxImportSize int64         `yaml:"max_import_size" env-default:"33554432"`
}

type GRPCConfig struct {
	Port    int           `yaml:"port" env:"GRPC_PORT" env-default:"44044"`
	Timeout time.Duration `yaml:"timeout" env-default:"10s"`
}

// LauncherConfig describes the command used to open a profile. {id} and
// {name} in Args are replaced with the profile's values. An empty Command
// only logs open requests.
type LauncherConfig struct {
	Command string   `yaml:"command" env:"LAUNCHER_COMMAND"`
	Args    []string `yaml:"args" env:"LAUNCHER_ARGS" env-default:"-P,{name},-no-remote"`
}

// Be careful with panics, we use them only in app launching
func MustLoad() *Config {
	cfg, err := Load(fetchConfigPath())
	if err != nil {
		panic(err)
	}

	return cfg
}

// MustLoadPath loads the config from the given file.
func MustLoadPath(configPath string) *Config {
	if configPath == "" {
		panic("config path is empty")
	}

	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load reads configPath when set, otherwise only the environment.
// Environment variables override file values.
func Load(configPath string) (*Config, error) {
	var cfg Config

	if configPath == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("read env: %w", err)
		}
	} else {
		if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file does not exist: %s", configPath)
		}
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case DriverFile:
		if c.Store.Dir == "" {
			return errors.New("store.dir is required for the file driver")
		}
	case DriverRedis:
		if c.Store.Redis.Addr == "" {
			return errors.New("store.redis.addr is required for the redis driver")
		}
	case DriverPostgres:
		if c.Store.Postgres.DSN == "" {
			return errors.New("store.postgres.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	if c.Store.Key == "" {
		return errors.New("store.key is required")
	}
	if c.Store.Watch && c.Store.Driver != DriverFile {
		return errors.New("store.watch is only supported by the file driver")
	}

	return nil
}

// Fetches config path from command line flag or environment variable
// Priority: flag > env > default (empty string)
func fetchConfigPath() string {
	var res string

	// "--config" is flag name
	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}
