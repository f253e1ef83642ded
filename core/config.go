package core

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const defaultDatabaseName = "kusoma"

var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")
	ErrMissingSecretKey   = errors.New("SECRET_KEY is required to sign session tokens")
)

type (
	Config struct {
		AppName      string
		Build        string
		Env          string // DEV (local; default), TEST, QA, PROD
		Debug        bool
		TestMode     bool
		SecretKey    string
		RollbarToken string

		Server   ServerConfig
		Database DatabaseConfig
		Auth     AuthConfig
	}

	ServerConfig struct {
		Address                   string
		DebugAddress              string
		Host                      string
		ShutdownTimeout           time.Duration
		DisableReqLogs            bool
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	// DatabaseConfig is fixed at process start; the Manager never re-reads it.
	DatabaseConfig struct {
		URI            string
		Name           string
		ConnectTimeout time.Duration
		SocketTimeout  time.Duration
		MaxPoolSize    uint64
		MinPoolSize    uint64
	}

	AuthConfig struct {
		GoogleClientID     string
		GoogleClientSecret string
		GoogleRedirectURL  string
		PostLoginRedirect  string
		StrictOwnership    bool
		SecureCookies      bool
	}
)

// OAuthEnabled reports whether the Google sign-in flow can be offered.
func (a AuthConfig) OAuthEnabled() bool {
	return a.GoogleClientID != "" && a.GoogleClientSecret != ""
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Kusoma")
	v.SetDefault("build", "develop")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugAddress", ":4000")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.shutdownTimeout", 10*time.Second)
	v.SetDefault("server.disableReqLogs", false)
	v.SetDefault("jwtExpirationDelta", 24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 30*24*time.Hour)

	v.SetDefault("database.name", "")
	v.SetDefault("database.connectTimeout", 10*time.Second)
	v.SetDefault("database.socketTimeout", 45*time.Second)
	v.SetDefault("database.maxPoolSize", uint64(10))
	v.SetDefault("database.minPoolSize", uint64(0))

	v.SetDefault("auth.googleClientID", "")
	v.SetDefault("auth.googleClientSecret", "")
	v.SetDefault("auth.googleRedirectURL", "http://localhost:8000/api/auth/callback/google")
	v.SetDefault("auth.postLoginRedirect", "/dashboard")
	v.SetDefault("auth.strictOwnership", false)
	v.SetDefault("auth.secureCookies", false)
}

func bindEnv(v *viper.Viper) {
	// well-known names shared with the web frontend
	_ = v.BindEnv("database.uri", "DATABASE_URL")
	_ = v.BindEnv("secretKey", "SECRET_KEY", "NEXTAUTH_SECRET")
	_ = v.BindEnv("auth.googleClientID", "GOOGLE_CLIENT_ID")
	_ = v.BindEnv("auth.googleClientSecret", "GOOGLE_CLIENT_SECRET")
	_ = v.BindEnv("rollbarToken", "ROLLBAR_TOKEN")
}

// NewConfig loads the configuration from the environment (and `config/.env.<env>` if present).
// It fails when the database URL or the signing secret are missing.
func NewConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "stat %s", dotEnvPath)
	}

	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	conf := &Config{
		AppName:      v.GetString("appName"),
		Build:        v.GetString("build"),
		Env:          env,
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		SecretKey:    v.GetString("secretKey"),
		RollbarToken: v.GetString("rollbarToken"),
		Server: ServerConfig{
			Address:                   v.GetString("server.address"),
			DebugAddress:              v.GetString("server.debugAddress"),
			Host:                      v.GetString("server.host"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			DisableReqLogs:            v.GetBool("server.disableReqLogs"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			URI:            v.GetString("database.uri"),
			Name:           v.GetString("database.name"),
			ConnectTimeout: v.GetDuration("database.connectTimeout"),
			SocketTimeout:  v.GetDuration("database.socketTimeout"),
			MaxPoolSize:    v.GetUint64("database.maxPoolSize"),
			MinPoolSize:    v.GetUint64("database.minPoolSize"),
		},
		Auth: AuthConfig{
			GoogleClientID:     v.GetString("auth.googleClientID"),
			GoogleClientSecret: v.GetString("auth.googleClientSecret"),
			GoogleRedirectURL:  v.GetString("auth.googleRedirectURL"),
			PostLoginRedirect:  v.GetString("auth.postLoginRedirect"),
			StrictOwnership:    v.GetBool("auth.strictOwnership"),
			SecureCookies:      v.GetBool("auth.secureCookies"),
		},
	}

	if conf.Database.URI == "" {
		return nil, ErrMissingDatabaseURL
	}
	if conf.SecretKey == "" {
		return nil, ErrMissingSecretKey
	}
	if conf.Database.Name == "" {
		conf.Database.Name = databaseNameFromURI(conf.Database.URI)
	}
	return conf, nil
}

// databaseNameFromURI returns the database named in the connection string path, if any.
func databaseNameFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return defaultDatabaseName
	}
	if name := strings.Trim(u.Path, "/"); name != "" {
		return name
	}
	return defaultDatabaseName
}
