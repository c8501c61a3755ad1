package config

import (
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"github.com/turtacn/tokengate/pkg/constants"
	"github.com/turtacn/tokengate/pkg/errors"
)

// EnvPrefix is prepended to every environment override, e.g. TOKENGATE_JWT_ISSUER.
const EnvPrefix = "TOKENGATE"

// DefaultDisposableEmailDomains are blocked at registration unless overridden.
var DefaultDisposableEmailDomains = []string{
	"mailinator",
	"guerrillamail",
	"10minutemail",
	"tempmail",
	"yopmail",
}

// DefaultPublicPaths are reachable without a bearer token.
var DefaultPublicPaths = []string{
	"/api/v1/auth/login",
	"/api/v1/auth/register",
	"/api/v1/auth/refresh",
	"/v2/api-docs",
	"/v3/api-docs",
	"/v3/api-docs/**",
	"/swagger-resources",
	"/swagger-resources/**",
	"/configuration/ui",
	"/configuration/security",
	"/swagger-ui/**",
	"/webjars/**",
	"/swagger-ui.html",
	"/.well-known/jwks.json",
	"/health/**",
	"/metrics",
}

// Loader reads configuration from defaults, an optional YAML file and the environment.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a Loader. When configFile is empty, config.yaml is searched
// for in the working directory and /etc/tokengate/.
func NewLoader(configFile string) *Loader {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/tokengate/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{v: v}
}

// Load reads and validates the configuration. A missing config file is not an error.
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.ErrInvalidConfig.WithMessage("failed to read config file").WithError(err)
		}
	}
	return l.decode()
}

// Watch re-decodes the configuration whenever the config file changes and hands
// the result to onChange. Invalid revisions are reported to onError and skipped.
func (l *Loader) Watch(onChange func(*Config), onError func(error)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := l.decode()
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	l.v.WatchConfig()
}

// ConfigFileUsed returns the path of the config file that was read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, errors.ErrInvalidConfig.WithMessage("failed to unmarshal config").WithError(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig is a convenience wrapper around NewLoader(configFile).Load().
func LoadConfig(configFile string) (*Config, error) {
	return NewLoader(configFile).Load()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15)
	v.SetDefault("server.write_timeout", 15)
	v.SetDefault("server.shutdown_timeout", 30)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "tokengate")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "tokengate")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.sqlite_path", "tokengate.db")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_conn_lifetime", 30)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("jwt.access_token_expiration", constants.AccessTokenDefaultTTL.Milliseconds())
	v.SetDefault("jwt.refresh_token_expiration", constants.RefreshTokenDefaultTTL.Milliseconds())
	v.SetDefault("jwt.issuer", "")

	v.SetDefault("keys.dir", constants.DefaultKeysDir)
	v.SetDefault("keys.lock_timeout", 5*time.Second)

	v.SetDefault("security.public_paths", DefaultPublicPaths)
	v.SetDefault("security.bcrypt_cost", 10)
	v.SetDefault("security.disposable_email_domains", DefaultDisposableEmailDomains)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.limit", 10)
	v.SetDefault("rate_limit.window", time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.service_name", "tokengate")
	v.SetDefault("tracing.sampling_rate", 1.0)

	v.SetDefault("cors.allow_origins", []string{"*"})
	v.SetDefault("monitoring.pprof_enabled", false)
}
