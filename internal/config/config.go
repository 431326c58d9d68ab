package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/ecoppen/freqdash/internal/tunnel"
)

// minScrapeInterval is the floor for the reconciliation ticker; the public
// exchange APIs and the remote bots are not built for tighter polling.
const minScrapeInterval = 60

type Config struct {
	Environment string         `mapstructure:"environment"`
	LogLevel    string         `mapstructure:"log_level"`
	Server      ServerConfig   `mapstructure:"server"`
	Database    DatabaseConfig `mapstructure:"database"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Scraper     ScraperConfig  `mapstructure:"scraper"`
	Instances   []Instance     `mapstructure:"instances"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	DatabaseURL string `mapstructure:"database_url"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ScraperConfig struct {
	IntervalSeconds int      `mapstructure:"interval_seconds"`
	NewsSources     []string `mapstructure:"news_sources"`
	SSHKeysFolder   string   `mapstructure:"ssh_keys_folder"`
}

// Instance describes one remote bot reachable over SSH. Either ssh_password
// or ssh_keyfile must be set; ssh_keyfile is resolved against the scraper's
// ssh_keys_folder.
type Instance struct {
	SSHHost     string `mapstructure:"ssh_host"`
	SSHPort     int    `mapstructure:"ssh_port"`
	SSHUsername string `mapstructure:"ssh_username"`
	SSHPassword string `mapstructure:"ssh_password"`
	SSHKeyFile  string `mapstructure:"ssh_keyfile"`
	RemoteHost  string `mapstructure:"remote_host"`
	RemotePort  int    `mapstructure:"remote_port"`
	APIUsername string `mapstructure:"api_username"`
	APIPassword string `mapstructure:"api_password"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	// Enable environment variable support
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	if c.Scraper.IntervalSeconds < minScrapeInterval {
		return fmt.Errorf("scraper interval_seconds must be at least %d, got %d",
			minScrapeInterval, c.Scraper.IntervalSeconds)
	}

	seen := make(map[string]struct{}, len(c.Scraper.NewsSources))
	for _, source := range c.Scraper.NewsSources {
		name := strings.ToLower(source)
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate news source %q", source)
		}
		seen[name] = struct{}{}
	}

	for i, inst := range c.Instances {
		if inst.SSHHost == "" {
			return fmt.Errorf("instance %d: ssh_host is required", i)
		}
		if inst.SSHPort <= 0 || inst.SSHPort > 65535 {
			return fmt.Errorf("instance %d: ssh_port %d out of range", i, inst.SSHPort)
		}
		if inst.SSHUsername == "" {
			return fmt.Errorf("instance %d: ssh_username is required", i)
		}
		if inst.SSHPassword == "" && inst.SSHKeyFile == "" {
			return fmt.Errorf("instance %d: one of ssh_password or ssh_keyfile is required", i)
		}
		if inst.RemotePort <= 0 || inst.RemotePort > 65535 {
			return fmt.Errorf("instance %d: remote_port %d out of range", i, inst.RemotePort)
		}
	}

	return nil
}

// TunnelConfigs converts the instance descriptors into tunnel configs,
// resolving key filenames against the configured keys folder.
func (c *Config) TunnelConfigs() []tunnel.Config {
	configs := make([]tunnel.Config, 0, len(c.Instances))
	for _, inst := range c.Instances {
		keyPath := ""
		if inst.SSHKeyFile != "" {
			keyPath = filepath.Join(c.Scraper.SSHKeysFolder, inst.SSHKeyFile)
		}
		configs = append(configs, tunnel.Config{
			SSHHost:     inst.SSHHost,
			SSHPort:     inst.SSHPort,
			SSHUsername: inst.SSHUsername,
			SSHPassword: inst.SSHPassword,
			SSHKeyPath:  keyPath,
			RemoteHost:  inst.RemoteHost,
			RemotePort:  inst.RemotePort,
			APIUsername: inst.APIUsername,
			APIPassword: inst.APIPassword,
		})
	}
	return configs
}

func setDefaults() {
	// Environment
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server
	viper.SetDefault("server.port", 8080)

	// Set database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "freqdash")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.database_url", "")

	// Redis
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Scraper
	viper.SetDefault("scraper.interval_seconds", 60)
	viper.SetDefault("scraper.news_sources", []string{"binance", "bybit", "okx"})
	viper.SetDefault("scraper.ssh_keys_folder", "ssh_keys")
}
