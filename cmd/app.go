// Package cmd implements the rbl command line application.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/rebalance"
	"github.com/etnz/rebalance/eodhd"
	"github.com/etnz/rebalance/logger"
	"github.com/etnz/rebalance/yahoo"
	"github.com/google/subcommands"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&planCmd{}, "rebalancing")
	c.Register(&valueCmd{}, "rebalancing")

	c.Register(&quoteCmd{}, "market")
	c.Register(&searchCmd{}, "market")

	c.Register(&topicCmd{}, "help")
	c.Register(&assistCmd{}, "help")
	c.Register(c.HelpCommand(), "help")
	c.Register(c.FlagsCommand(), "help")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	configFile   = flag.String("config", "rbl.yaml", "Configuration file, ignored when missing")
	currencyFlag = flag.String("currency", "", "Default currency when the trade plan has none")
	providerFlag = flag.String("provider", "", "Price provider: yahoo, eodhd or none")
	eodhdAPIFlag = flag.String("eodhd-api-key", "", "EODHD API key. This flag takes precedence over the "+envEODHDAPIKey+" environment variable. You can get one at https://eodhd.com/")
	Verbose      = flag.Bool("v", false, "Verbose logs on stderr")
)

// stdout is where reports are printed.
var stdout io.Writer = os.Stdout

const (
	envEODHDAPIKey = "EODHD_API_KEY"
	envCurrency    = "RBL_CURRENCY"
	envProvider    = "RBL_PROVIDER"
	envConfig      = "RBL_CONFIG"
	envVerbose     = "RBL_VERBOSE"
)

// Config holds the settings shared by all commands.
type Config struct {
	Currency       string        `yaml:"currency"`
	Provider       string        `yaml:"provider"`
	Placeholder    float64       `yaml:"placeholder"`
	Timeout        time.Duration `yaml:"timeout"`
	MinTradeAmount float64       `yaml:"min_trade_amount"`
	CacheDir       string        `yaml:"cache_dir"`
	EODHDAPIKey    string        `yaml:"-"`
}

// DefaultConfig is used for settings missing from every other source.
func DefaultConfig() Config {
	opts := rebalance.DefaultOptions()
	cfg := Config{
		Provider:       "yahoo",
		Timeout:        opts.LookupTimeout,
		MinTradeAmount: opts.MinTradeAmount.InexactFloat64(),
	}
	if dir, err := os.UserCacheDir(); err == nil {
		cfg.CacheDir = filepath.Join(dir, "rbl")
	}
	return cfg
}

// DecodeConfig reads a YAML configuration over cfg.
func DecodeConfig(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// LoadConfig resolves the settings: flags win over the environment, which
// wins over the configuration file.
func LoadConfig() (Config, error) {
	// .env only sets variables that are not already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("cannot read .env: %w", err)
	}

	cfg := DefaultConfig()
	filename := *configFile
	if v := os.Getenv(envConfig); v != "" && !isFlagSet("config") {
		filename = v
	}
	f, err := os.Open(filename)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		defer f.Close()
		if err := DecodeConfig(f, &cfg); err != nil {
			return cfg, fmt.Errorf("format error in %q: %w", filename, err)
		}
		cfg.override(cfg.Currency, cfg.Provider, "")
	}
	cfg.override(os.Getenv(envCurrency), os.Getenv(envProvider), os.Getenv(envEODHDAPIKey))
	cfg.override(*currencyFlag, *providerFlag, *eodhdAPIFlag)
	return cfg, cfg.validate()
}

// override sets non empty values.
func (c *Config) override(currency, provider, apiKey string) {
	if currency != "" {
		c.Currency = strings.ToUpper(currency)
	}
	if provider != "" {
		c.Provider = strings.ToLower(provider)
	}
	if apiKey != "" {
		c.EODHDAPIKey = apiKey
	}
}

func (c *Config) validate() error {
	switch c.Provider {
	case "yahoo", "eodhd", "none":
	default:
		return fmt.Errorf("unknown price provider %q, expected yahoo, eodhd or none", c.Provider)
	}
	if c.Placeholder < 0 || c.MinTradeAmount < 0 || c.Timeout < 0 {
		return errors.New("placeholder, min_trade_amount and timeout cannot be negative")
	}
	return nil
}

// Options returns the planning options.
func (c *Config) Options() rebalance.Options {
	opts := rebalance.DefaultOptions()
	opts.LookupTimeout = c.Timeout
	opts.MinTradeAmount = decimal.NewFromFloat(c.MinTradeAmount)
	if c.Placeholder > 0 {
		opts.Placeholder = rebalance.FixedPlaceholder(decimal.NewFromFloat(c.Placeholder))
	}
	return opts
}

// NewProvider returns the configured price provider, nil for "none".
// Every ticker is looked up once per run.
func (c *Config) NewProvider() (rebalance.PriceProvider, error) {
	switch c.Provider {
	case "none":
		return nil, nil
	case "eodhd":
		if c.EODHDAPIKey == "" {
			return nil, fmt.Errorf("EODHD API key is not set. Use -eodhd-api-key flag or %s environment variable", envEODHDAPIKey)
		}
		var opts []eodhd.Option
		if c.CacheDir != "" {
			opts = append(opts, eodhd.WithCache(c.CacheDir, eodhd.DefaultCacheTTL))
		}
		return rebalance.Memo(eodhd.New(c.EODHDAPIKey, opts...)), nil
	default:
		return rebalance.Memo(yahoo.New()), nil
	}
}

// NewContext returns ctx carrying the application logger.
func NewContext(ctx context.Context) context.Context {
	return logger.WithContext(ctx, logger.New(*Verbose))
}

// isFlagSet reports whether the global flag name was set on the command line.
func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// printMarkdown renders md for the terminal, or prints it as is when it
// cannot be rendered.
func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			fmt.Fprint(stdout, out)
			return
		}
	}
	fmt.Fprint(stdout, md)
}
