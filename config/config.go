package config

import (
	"log"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"github.com/ttacon/chalk"
)

// There are config constants
const (
	EnvPrefix         = "ATTEST"
	DefaultPort       = "3000"
	JunglebusEndpoint = "https://junglebus.gorillapool.io/"
	GitHubEndpoint    = "https://api.github.com"
	TwitterEndpoint   = "https://api.twitter.com"
	Database          = "attest"
	RecordsCollection = "records"
	ConnectorTimeout  = 15 * time.Second
	ConnectorRetries  = 3 // attempts against a provider before giving up
	NonceTTL          = 5 * time.Minute
	SessionTTL        = time.Hour
	ChainTipInterval  = time.Minute
)

// Config is the runtime configuration of the attestation service.
type Config struct {
	Port string `mapstructure:"port"`

	// Ledger record book. Empty MongoURL keeps records in memory.
	MongoURL string `mapstructure:"mongo_url"`
	// Challenge nonces. Empty RedisURL keeps nonces in memory.
	RedisURL string `mapstructure:"redis_url"`
	// Empty JunglebusURL disables chain tip stamping.
	JunglebusURL string `mapstructure:"junglebus_url"`

	JWTSecret string `mapstructure:"jwt_secret"`

	GitHubURL    string `mapstructure:"github_url"`
	GitHubToken  string `mapstructure:"github_token"`
	TwitterURL   string `mapstructure:"twitter_url"`
	TwitterToken string `mapstructure:"twitter_token"`
	DiscordToken string `mapstructure:"discord_token"`

	ConnectorTimeout time.Duration `mapstructure:"connector_timeout"`
	ConnectorRetries int           `mapstructure:"connector_retries"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", DefaultPort)
	v.SetDefault("junglebus_url", "")
	v.SetDefault("github_url", GitHubEndpoint)
	v.SetDefault("twitter_url", TwitterEndpoint)
	v.SetDefault("connector_timeout", ConnectorTimeout)
	v.SetDefault("connector_retries", ConnectorRetries)
	for _, key := range []string{"mongo_url", "redis_url", "jwt_secret", "github_token", "twitter_token", "discord_token"} {
		v.SetDefault(key, "")
	}
}

// New returns a viper instance reading ATTEST_* variables, with PORT
// honoured as well.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("port", EnvPrefix+"_PORT", "PORT")
	return v
}

// Load reads the optional config file and decodes the settings.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config %s", file)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Port) == "" {
		return errors.New("port is required")
	}
	if len(c.JWTSecret) < 16 {
		return errors.New("jwt_secret must be at least 16 characters")
	}
	if c.ConnectorTimeout <= 0 {
		c.ConnectorTimeout = ConnectorTimeout
	}
	if c.ConnectorRetries <= 0 {
		c.ConnectorRetries = 1
	}
	return nil
}

// Watch logs config file changes. Connector tokens and storage URLs are
// read once at start, so a change takes effect on restart.
func Watch(v *viper.Viper, onChange func(fsnotify.Event)) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		log.Printf("%s[INFO]: config %s changed (%s), restart to apply%s", chalk.Yellow, e.Name, e.Op, chalk.Reset)
		if onChange != nil {
			onChange(e)
		}
	})
	v.WatchConfig()
}
