// Package config loads crawler settings from defaults, an optional YAML file,
// a .env file and OLX_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"olx-go-crawler/internal/collector"
	"olx-go-crawler/internal/extractor"
)

const envPrefix = "OLX"

// Output formats.
const (
	FormatCSV    = "csv"
	FormatNDJSON = "ndjson"
	FormatSQLite = "sqlite"
)

type Config struct {
	BaseURL         string        `mapstructure:"base_url"`
	CategoriesFile  string        `mapstructure:"categories_file"`
	Concurrency     int           `mapstructure:"concurrency"`
	FetchTimeout    time.Duration `mapstructure:"fetch_timeout"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout"`
	CategoryTimeout time.Duration `mapstructure:"category_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	UserAgent       string        `mapstructure:"user_agent"`
	RateLimit       float64       `mapstructure:"rate_limit"`
	RateBurst       int           `mapstructure:"rate_burst"`
	Output          Output        `mapstructure:"output"`
	Log             Log           `mapstructure:"log"`
	Selectors       Selectors     `mapstructure:"selectors"`
	Server          Server        `mapstructure:"server"`
}

type Output struct {
	Dir        string   `mapstructure:"dir"`
	Formats    []string `mapstructure:"formats"`
	SQLitePath string   `mapstructure:"sqlite_path"`
}

type Log struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type Selectors struct {
	Ad      extractor.Selectors `mapstructure:"ad"`
	Listing collector.Selectors `mapstructure:"listing"`
}

type Server struct {
	Addr string `mapstructure:"addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base_url", "https://www.olx.ua/uk/")
	v.SetDefault("categories_file", "")
	v.SetDefault("concurrency", 11)
	v.SetDefault("fetch_timeout", 30*time.Second)
	v.SetDefault("dial_timeout", 5*time.Second)
	v.SetDefault("category_timeout", 30*time.Minute)
	v.SetDefault("max_body_bytes", 5*1024*1024)
	v.SetDefault("user_agent", "")
	v.SetDefault("rate_limit", 0)
	v.SetDefault("rate_burst", 1)
	v.SetDefault("output.dir", ".")
	v.SetDefault("output.formats", []string{FormatCSV})
	v.SetDefault("output.sqlite_path", "ads.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("server.addr", ":8080")

	ad := extractor.DefaultSelectors()
	v.SetDefault("selectors.ad.heading", ad.Heading)
	v.SetDefault("selectors.ad.description", ad.Description)
	v.SetDefault("selectors.ad.price", ad.Price)
	v.SetDefault("selectors.ad.status", ad.Status)
	v.SetDefault("selectors.ad.date", ad.Date)

	ls := collector.DefaultSelectors()
	v.SetDefault("selectors.listing.container", ls.Container)
	v.SetDefault("selectors.listing.entry", ls.Entry)
	v.SetDefault("selectors.listing.entry_link", ls.EntryLink)
	v.SetDefault("selectors.listing.pager", ls.Pager)
	v.SetDefault("selectors.listing.category", ls.Category)
	v.SetDefault("selectors.listing.category_link", ls.CategoryLink)
}

// Load reads configuration. cfgFile may be empty, in which case config.yaml
// is looked up in the working directory and ./config, and its absence is
// not an error.
func Load(cfgFile string) (*Config, error) {
	// .env is optional; existing environment variables win
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var (
	ErrNoBaseURL     = errors.New("base_url must be set")
	ErrConcurrency   = errors.New("concurrency must be at least 1")
	ErrOutputFormat  = errors.New("unknown output format")
	ErrNoOutput      = errors.New("at least one output format is required")
	ErrEmptySelector = errors.New("selector must not be empty")
)

func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" && c.CategoriesFile == "" {
		return ErrNoBaseURL
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("%w: got %d", ErrConcurrency, c.Concurrency)
	}
	if len(c.Output.Formats) == 0 {
		return ErrNoOutput
	}
	for i, f := range c.Output.Formats {
		f = strings.ToLower(strings.TrimSpace(f))
		switch f {
		case FormatCSV, FormatNDJSON, FormatSQLite:
			c.Output.Formats[i] = f
		default:
			return fmt.Errorf("%w: %q", ErrOutputFormat, f)
		}
	}
	required := map[string]string{
		"selectors.ad.heading":         c.Selectors.Ad.Heading,
		"selectors.ad.status":          c.Selectors.Ad.Status,
		"selectors.listing.container":  c.Selectors.Listing.Container,
		"selectors.listing.entry":      c.Selectors.Listing.Entry,
		"selectors.listing.entry_link": c.Selectors.Listing.EntryLink,
		"selectors.listing.pager":      c.Selectors.Listing.Pager,
	}
	for key, val := range required {
		if strings.TrimSpace(val) == "" {
			return fmt.Errorf("%w: %s", ErrEmptySelector, key)
		}
	}
	return nil
}
