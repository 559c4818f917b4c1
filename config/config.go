package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/semihalev/zlog/v2"
)

const configver = "1.0.0"

// Config type
type Config struct {
	Version         string
	Bind            string
	UDPSize         int
	Upstream        string
	Timeout         Duration
	Denylist        string
	WatchDenylist   bool
	SweepInterval   Duration
	NegativeTTL     uint32
	MaxTTL          uint32
	CacheSize       int
	MaxConcurrent   int64
	AccessList      []string
	ClientRateLimit int
	LogLevel        string
	AccessLog       string
	API             string

	sVersion string
}

// ServerVersion return current server version
func (c *Config) ServerVersion() string {
	return c.sVersion
}

// Duration type
type Duration struct {
	time.Duration
}

// UnmarshalText for duration type
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText for duration type
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Minimum receive buffer a DNS server must accept over UDP.
const minUDPSize = 512

var defaultConfig = `
# Config version, config and build versions can be different.
version = "%s"

# Address to bind to for the DNS server (UDP)
bind = ":53"

# Receive buffer size for incoming datagrams, larger datagrams are truncated. Minimum 512.
udpsize = 1024

# Upstream resolver address with port. Every query not blocked or cached is forwarded here.
upstream = "8.8.8.8:53"

# Network timeout for each upstream lookup in duration
timeout = "2s"

# Denylist file, one domain per line. Adblock style "||example.com^" and hosts file lines are accepted.
denylist = "./denylist.txt"

# Rebuild the denylist when the file changes on disk
watchdenylist = false

# How often expired cache entries are removed
sweepinterval = "60s"

# Cache TTL in seconds for answers without records
negativettl = 30

# Upper bound in seconds for any cache TTL
maxttl = 86400

# Cache size (total entries in cache), 0 for unbounded
cachesize = 256000

# Maximum number of queries processed at once, datagrams over the limit are dropped. 0 for unbounded
maxconcurrent = 0

# Which clients allowed to make queries
accesslist = [
"0.0.0.0/0",
"::0/0"
]

# Client ip address based ratelimit per minute, 0 for disabled
clientratelimit = 0

# What kind of information should be logged, Log verbosity level [error,warn,info,debug]
loglevel = "info"

# The location of access log file, left blank for disabled.
# accesslog = ""

# Address to bind to for the http API server, left blank for disabled
api = "127.0.0.1:8080"
`

// Default returns a config holding the documented defaults.
func Default() *Config {
	return &Config{
		Version:       configver,
		Bind:          ":53",
		UDPSize:       1024,
		Upstream:      "8.8.8.8:53",
		Timeout:       Duration{2 * time.Second},
		Denylist:      "./denylist.txt",
		SweepInterval: Duration{60 * time.Second},
		NegativeTTL:   30,
		MaxTTL:        86400,
		CacheSize:     256000,
		AccessList:    []string{"0.0.0.0/0", "::0/0"},
		LogLevel:      "info",
		API:           "127.0.0.1:8080",
	}
}

// Load loads the given config file, generating a default one when it does
// not exist.
func Load(cfgfile, version string) (*Config, error) {
	if _, err := os.Stat(cfgfile); errors.Is(err, os.ErrNotExist) && cfgfile != "" {
		if err := generateConfig(cfgfile); err != nil {
			return nil, err
		}
	}

	zlog.Info("Loading config file", "path", cfgfile)

	config := Default()
	if _, err := toml.DecodeFile(cfgfile, config); err != nil {
		return nil, fmt.Errorf("could not load config: %w", err)
	}

	if config.Version != configver {
		zlog.Warn("Config file is out of version, you can generate new one and check the changes.")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	config.sVersion = version

	return config, nil
}

// Validate checks value ranges that would otherwise fail at runtime.
func (c *Config) Validate() error {
	if c.Bind == "" {
		return errors.New("config: bind is required")
	}

	if c.Upstream == "" {
		return errors.New("config: upstream is required")
	}

	if c.UDPSize < minUDPSize {
		return fmt.Errorf("config: udpsize %d is below %d", c.UDPSize, minUDPSize)
	}

	if c.NegativeTTL == 0 {
		return errors.New("config: negativettl must be positive")
	}

	if c.Timeout.Duration <= 0 {
		return errors.New("config: timeout must be positive")
	}

	if c.SweepInterval.Duration <= 0 {
		return errors.New("config: sweepinterval must be positive")
	}

	if c.CacheSize < 0 || c.MaxConcurrent < 0 || c.ClientRateLimit < 0 {
		return errors.New("config: cachesize, maxconcurrent and clientratelimit must not be negative")
	}

	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown loglevel %q", c.LogLevel)
	}

	return nil
}

func generateConfig(path string) error {
	output, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not generate config: %w", err)
	}

	defer func() {
		err := output.Close()
		if err != nil {
			zlog.Warn("Config generation failed while file closing", "error", err.Error())
		}
	}()

	r := strings.NewReader(fmt.Sprintf(defaultConfig, configver))
	if _, err := io.Copy(output, r); err != nil {
		return fmt.Errorf("could not copy default config: %w", err)
	}

	if abs, err := filepath.Abs(path); err == nil {
		zlog.Info("Default config file generated", "config", abs)
	}

	return nil
}
