package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/20after4/configdir"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	appName = "musicwidget"

	defaultLogLevel       = "info"
	defaultBusPrefix      = "org.mpris.MediaPlayer2."
	defaultQueryTimeout   = 3 * time.Second
	defaultCommandTimeout = 3 * time.Second
	defaultRefreshDelay   = 100 * time.Millisecond
	defaultArtSize        = 96
	defaultArtDebounce    = 500 * time.Millisecond
)

var defaultPreferredPlayers = []string{
	"org.mpris.MediaPlayer2.audacious",
	"org.mpris.MediaPlayer2.spotify",
	"org.mpris.MediaPlayer2.rhythmbox",
	"org.mpris.MediaPlayer2.vlc",
	"org.mpris.MediaPlayer2.lollypop",
	"org.mpris.MediaPlayer2.clementine",
}

// AppConfig holds application configuration
type AppConfig struct {
	logger *zap.Logger

	logLevel         string
	busPrefix        string
	preferredPlayers []string
	reconcileOnStart bool
	queryTimeout     time.Duration
	commandTimeout   time.Duration
	refreshDelay     time.Duration
	artSize          int
	artDebounce      time.Duration
}

// NewAppConfig loads configuration from the file named by WIDGET_CONFIG, or
// config.yaml in the user config directory, then WIDGET_* environment variables.
func NewAppConfig(logger *zap.Logger) (*AppConfig, error) {
	return Load(logger, os.Getenv("WIDGET_CONFIG"))
}

// Load reads configuration. An empty path searches the default locations;
// a missing file there is not an error.
func Load(logger *zap.Logger, path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(configdir.LocalConfig(appName))
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("WIDGET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &AppConfig{
		logger:           logger,
		logLevel:         v.GetString("log_level"),
		busPrefix:        v.GetString("bus_prefix"),
		preferredPlayers: v.GetStringSlice("preferred_players"),
		reconcileOnStart: v.GetBool("reconcile_on_start"),
		queryTimeout:     v.GetDuration("query_timeout"),
		commandTimeout:   v.GetDuration("command_timeout"),
		refreshDelay:     v.GetDuration("refresh_delay"),
		artSize:          v.GetInt("art_size"),
		artDebounce:      v.GetDuration("art_debounce"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger.Info("Configuration loaded",
		zap.String("file", v.ConfigFileUsed()),
		zap.String("busPrefix", cfg.busPrefix),
		zap.Strings("preferredPlayers", cfg.preferredPlayers),
		zap.Bool("reconcileOnStart", cfg.reconcileOnStart),
		zap.Duration("queryTimeout", cfg.queryTimeout))

	return cfg, nil
}

// Default returns the built-in configuration without reading files or environment.
func Default(logger *zap.Logger) *AppConfig {
	return &AppConfig{
		logger:           logger,
		logLevel:         defaultLogLevel,
		busPrefix:        defaultBusPrefix,
		preferredPlayers: append([]string(nil), defaultPreferredPlayers...),
		reconcileOnStart: true,
		queryTimeout:     defaultQueryTimeout,
		commandTimeout:   defaultCommandTimeout,
		refreshDelay:     defaultRefreshDelay,
		artSize:          defaultArtSize,
		artDebounce:      defaultArtDebounce,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", defaultLogLevel)
	v.SetDefault("bus_prefix", defaultBusPrefix)
	v.SetDefault("preferred_players", defaultPreferredPlayers)
	v.SetDefault("reconcile_on_start", true)
	v.SetDefault("query_timeout", defaultQueryTimeout)
	v.SetDefault("command_timeout", defaultCommandTimeout)
	v.SetDefault("refresh_delay", defaultRefreshDelay)
	v.SetDefault("art_size", defaultArtSize)
	v.SetDefault("art_debounce", defaultArtDebounce)
}

func (c *AppConfig) validate() error {
	if c.busPrefix == "" {
		return errors.New("bus_prefix must not be empty")
	}
	if c.queryTimeout <= 0 {
		return fmt.Errorf("query_timeout must be positive, got %s", c.queryTimeout)
	}
	if c.commandTimeout <= 0 {
		return fmt.Errorf("command_timeout must be positive, got %s", c.commandTimeout)
	}
	if c.artSize <= 0 {
		return fmt.Errorf("art_size must be positive, got %d", c.artSize)
	}
	return nil
}

func (c *AppConfig) GetLogLevel() string {
	return c.logLevel
}

// GetBusPrefix returns the well-known name prefix identifying media players
func (c *AppConfig) GetBusPrefix() string {
	return c.busPrefix
}

// GetPreferredPlayers returns player names in binding priority order for startup reconciliation
func (c *AppConfig) GetPreferredPlayers() []string {
	return c.preferredPlayers
}

func (c *AppConfig) GetReconcileOnStart() bool {
	return c.reconcileOnStart
}

func (c *AppConfig) GetQueryTimeout() time.Duration {
	return c.queryTimeout
}

func (c *AppConfig) GetCommandTimeout() time.Duration {
	return c.commandTimeout
}

// GetRefreshDelay returns how long the widget waits after a transport command before re-querying
func (c *AppConfig) GetRefreshDelay() time.Duration {
	return c.refreshDelay
}

func (c *AppConfig) GetArtSize() int {
	return c.artSize
}

func (c *AppConfig) GetArtDebounce() time.Duration {
	return c.artDebounce
}
