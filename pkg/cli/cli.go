package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"

	"github.com/dmdmdm-nz/tzwatchd/pkg/version"
)

// Environment variables seeding the flag defaults.
const (
	EnvHost              = "TZWATCHD_HOST"
	EnvPort              = "TZWATCHD_PORT"
	EnvLogLevel          = "TZWATCHD_LOG_LEVEL"
	EnvFetchInterval     = "TZWATCHD_FETCH_INTERVAL"
	EnvReconcileInterval = "TZWATCHD_RECONCILE_INTERVAL"
	EnvDebounce          = "TZWATCHD_DEBOUNCE"
	EnvLocaltime         = "TZWATCHD_LOCALTIME"
	EnvTimezoneFile      = "TZWATCHD_TIMEZONE_FILE"
	EnvNotificationTitle = "TZWATCHD_NOTIFICATION_TITLE"
	EnvNotificationBody  = "TZWATCHD_NOTIFICATION_BODY"
	EnvAdvertise         = "TZWATCHD_ADVERTISE"
)

// Config holds the application configuration from CLI flags
type Config struct {
	Host     string `validate:"required"`
	Port     int    `validate:"gte=0,lte=65535"`
	LogLevel string `validate:"oneof=trace debug info warn error"`

	FetchInterval     time.Duration `validate:"gte=0"`
	ReconcileInterval time.Duration `validate:"gte=0"`
	Debounce          time.Duration `validate:"gte=0"`

	Localtime    string `validate:"required"`
	TimezoneFile string `validate:"required"`

	NotificationTitle string
	NotificationBody  string
	Advertise         bool

	ShowVersion bool
}

// ParseFlags parses the process arguments and returns a Config. It exits on
// -version and on invalid input.
func ParseFlags() *Config {
	cfg, err := ParseArgs(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if cfg.ShowVersion {
		fmt.Printf("tzwatchd version %s (commit: %s, built at: %s, bridge protocol: %s)\n",
			version.Version,
			version.CommitHash,
			version.BuildTime,
			version.BridgeProtocol)
		os.Exit(0)
	}

	return cfg
}

// ParseArgs parses args with defaults taken from TZWATCHD_* variables and
// validates the result.
func ParseArgs(args []string, output io.Writer) (*Config, error) {
	cfg := &Config{}

	fs := flag.NewFlagSet("tzwatchd", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&cfg.Host, "host", envString(EnvHost, "127.0.0.1"), "Host to bind the bridge to")
	fs.IntVar(&cfg.Port, "port", envInt(EnvPort, 60125), "Port to listen on (0 picks a free port)")
	fs.StringVar(&cfg.LogLevel, "log-level", envString(EnvLogLevel, "info"), "Log level (trace, debug, info, warn, error)")
	fs.DurationVar(&cfg.FetchInterval, "fetch-interval", envDuration(EnvFetchInterval, 15*time.Minute), "Background fetch interval (0 disables)")
	fs.DurationVar(&cfg.ReconcileInterval, "reconcile-interval", envDuration(EnvReconcileInterval, time.Minute), "Periodic re-check interval (0 disables)")
	fs.DurationVar(&cfg.Debounce, "debounce", envDuration(EnvDebounce, 250*time.Millisecond), "Quiet period after a timezone file change")
	fs.StringVar(&cfg.Localtime, "localtime", envString(EnvLocaltime, "/etc/localtime"), "Path of the localtime symlink")
	fs.StringVar(&cfg.TimezoneFile, "timezone-file", envString(EnvTimezoneFile, "/etc/timezone"), "Path of the timezone name file")
	fs.StringVar(&cfg.NotificationTitle, "notification-title", envString(EnvNotificationTitle, ""), "Title of the change notification")
	fs.StringVar(&cfg.NotificationBody, "notification-body", envString(EnvNotificationBody, ""), "Body of the change notification")
	fs.BoolVar(&cfg.Advertise, "advertise", envBool(EnvAdvertise, false), "Advertise the bridge over mDNS")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, errors.Newf("unexpected arguments: %v", fs.Args())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks the configuration for out of range values.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	return nil
}

// String returns a string representation of the Config
func (c *Config) String() string {
	return fmt.Sprintf("Host: %s, Port: %d, LogLevel: %s, FetchInterval: %s, ReconcileInterval: %s, Debounce: %s, Localtime: %s, TimezoneFile: %s, Advertise: %t",
		c.Host, c.Port, c.LogLevel, c.FetchInterval, c.ReconcileInterval, c.Debounce, c.Localtime, c.TimezoneFile, c.Advertise)
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return def
}
