package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Database struct {
		Driver   string `mapstructure:"driver"` // "postgres" or "sqlite"
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		Path     string `mapstructure:"path"` // sqlite only
	} `mapstructure:"database"`
	Scraper struct {
		StationsFile string `mapstructure:"stations_file"`
		MetricsPort  string `mapstructure:"metrics_port"`
		FetchRetries int    `mapstructure:"fetch_retries"`
	} `mapstructure:"scraper"`
	Normalizer struct {
		DelaySeconds float64 `mapstructure:"delay_seconds"`
	} `mapstructure:"normalizer"`
	Elasticsearch struct {
		URL   string `mapstructure:"url"`
		Index string `mapstructure:"index"`
	} `mapstructure:"elasticsearch"`
	Services struct {
		LastFMAPIKey string `mapstructure:"lastfm_api_key"`
		ContactEmail string `mapstructure:"contact_email"`
	} `mapstructure:"services"`
	API struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"api"`
}

func Load() *Config {
	viper.SetEnvPrefix("RADIOSTATS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Register keys
	viper.BindEnv("database.driver")
	viper.BindEnv("database.host")
	viper.BindEnv("database.port")
	viper.BindEnv("database.user")
	viper.BindEnv("database.password")
	viper.BindEnv("database.name")
	viper.BindEnv("database.path")

	viper.BindEnv("scraper.stations_file")
	viper.BindEnv("scraper.metrics_port")
	viper.BindEnv("scraper.fetch_retries")

	viper.BindEnv("normalizer.delay_seconds")

	viper.BindEnv("elasticsearch.url")
	viper.BindEnv("elasticsearch.index")

	viper.BindEnv("services.lastfm_api_key")
	viper.BindEnv("services.contact_email")

	viper.BindEnv("api.port")

	// Defaults
	viper.SetDefault("database.driver", "postgres")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", "5432")
	viper.SetDefault("database.name", "radiostats")
	viper.SetDefault("database.path", "radiostats.db")

	viper.SetDefault("scraper.stations_file", "stations.yaml")
	viper.SetDefault("scraper.metrics_port", ":9091")
	viper.SetDefault("scraper.fetch_retries", 10)

	viper.SetDefault("normalizer.delay_seconds", 1.0)

	viper.SetDefault("elasticsearch.url", "http://localhost:9200")
	viper.SetDefault("elasticsearch.index", "plays")

	viper.SetDefault("api.port", ":8080")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("Warning: Config error: %s", err)
		} else {
			log.Println("Info: config.yaml not found, using Environment Variables only.")
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		log.Fatalf("Unable to decode config: %v", err)
	}

	return &cfg
}

// RequireLastFM aborts when the Last.fm API key is missing. The scraper
// can run without it as long as no Last.fm-backed adapter is enabled, so
// each binary decides whether the key is critical.
func (c *Config) RequireLastFM() {
	if c.Services.LastFMAPIKey == "" {
		log.Fatal("Critical: Last.fm API key is missing (RADIOSTATS_SERVICES_LASTFM_API_KEY)")
	}
}
