package config

import (
	"os"
	"strings"

	"codeberg.org/mutker/pwmctl/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultSysfsRoot = "/sys"
	DefaultLogLevel  = string(LogLevelWarning)
	DefaultHistoryDB = "/var/lib/pwmctl/history.db"
	DefaultMQTTTopic = "pwmctl"

	configEnv  = "PWMCTL_CONFIG"
	envPrefix  = "PWMCTL"
	configName = "pwmctl"
	configDir  = "/etc"
)

type Config struct {
	SysfsRoot   string `mapstructure:"sysfs_root"`
	LogLevel    string `mapstructure:"log_level"`
	Debug       bool   `mapstructure:"debug"`
	Verbose     bool   `mapstructure:"verbose"`
	Output      string `mapstructure:"output"`
	History     bool   `mapstructure:"history"`
	HistoryDB   string `mapstructure:"history_db"`
	ShowHistory int    `mapstructure:"show_history"`
	MQTTBroker  string `mapstructure:"mqtt_broker"`
	MQTTTopic   string `mapstructure:"mqtt_topic"`
	LockDir     string `mapstructure:"lock_dir"`

	// Args holds the positional arguments left after flag parsing.
	Args []string `mapstructure:"-"`
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"sysfs-root":   "sysfs_root",
	"log-level":    "log_level",
	"debug":        "debug",
	"verbose":      "verbose",
	"output":       "output",
	"history":      "history",
	"history-db":   "history_db",
	"show-history": "show_history",
	"mqtt-broker":  "mqtt_broker",
	"mqtt-topic":   "mqtt_topic",
	"lock-dir":     "lock_dir",
}

// Load reads configuration from defaults, the config file, PWMCTL_*
// environment variables and args, later sources winning.
func Load(args []string) (*Config, error) {
	errFactory := errors.New()
	v := viper.New()

	v.SetDefault("sysfs_root", DefaultSysfsRoot)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("debug", false)
	v.SetDefault("verbose", false)
	v.SetDefault("output", string(OutputText))
	v.SetDefault("history", false)
	v.SetDefault("history_db", DefaultHistoryDB)
	v.SetDefault("show_history", 0)
	v.SetDefault("mqtt_broker", "")
	v.SetDefault("mqtt_topic", DefaultMQTTTopic)
	v.SetDefault("lock_dir", os.TempDir())

	// Define flags
	flags := pflag.NewFlagSet("pwmctl", pflag.ContinueOnError)
	flags.String("sysfs-root", DefaultSysfsRoot, "Where sysfs is mounted")
	flags.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	flags.Bool("debug", false, "Enable debugging mode")
	flags.Bool("verbose", false, "Enable verbose logging")
	flags.StringP("output", "o", string(OutputText), "Listing format (text, yaml)")
	flags.Bool("history", false, "Record applied settings in the history database")
	flags.String("history-db", DefaultHistoryDB, "Path to the history database")
	flags.Int("show-history", 0, "Print the last N recorded settings and exit")
	flags.String("mqtt-broker", "", "Publish channel state to this MQTT broker")
	flags.String("mqtt-topic", DefaultMQTTTopic, "MQTT topic prefix")
	flags.String("lock-dir", os.TempDir(), "Directory for per-channel PID files")

	// Parse flags
	if err := flags.Parse(args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// Load configuration from file
	if path := os.Getenv(configEnv); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}
	config.Args = flags.Args()

	// Debug and verbose are shorthands for a log level
	if config.Debug {
		config.LogLevel = string(LogLevelDebug)
	} else if config.Verbose && config.LogLevel == DefaultLogLevel {
		config.LogLevel = string(LogLevelInfo)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks values a file or the environment could have gotten wrong.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if !LogLevel(strings.ToLower(c.LogLevel)).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}
	if !OutputFormat(c.Output).IsValid() {
		return errFactory.WithData(errors.ErrInvalidOutput, c.Output)
	}
	if c.SysfsRoot == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "sysfs_root must not be empty")
	}
	if c.History && c.HistoryDB == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "history_db must be set when history is enabled")
	}
	if c.ShowHistory < 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "show_history must not be negative")
	}

	return nil
}

// GetOutput returns the listing format.
func (c *Config) GetOutput() OutputFormat { return OutputFormat(c.Output) }
