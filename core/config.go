package core

import (
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Address                   string
		Host                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		MaxUploadSize             int64
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		QueryTimeout  time.Duration
	}

	StorageConfig struct {
		Driver          string // supabase | oss | local | memory
		Bucket          string
		PublicURL       string
		ServiceKey      string
		Endpoint        string
		AccessKeyID     string
		AccessKeySecret string
		LocalDir        string
		CoverMaxWidth   int
	}

	Config struct {
		AppName      string
		Build        string
		Env          string
		Debug        bool
		TestMode     bool
		SecretKey    string
		RollbarToken string
		Server       ServerConfig
		Database     DatabaseConfig
		Storage      StorageConfig
	}
)

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, dbc.Port)
}

// NewConfig loads the application settings from defaults, an optional `config/.env.<env>` file
// and the environment (prefixed by the env name, eg. PROD_SECRETKEY).
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("appName", "Conecta EBD")
	conf.SetDefault("build", "develop")
	conf.SetDefault("debug", true)
	conf.SetDefault("testMode", false)
	conf.SetDefault("secretKey", "ebd-dev-secret-3k9$w!p2x@q7r#v5n8m")
	conf.SetDefault("rollbarToken", "")

	conf.SetDefault("serverAddress", ":8000")
	conf.SetDefault("serverHost", "localhost")
	conf.SetDefault("serverDebugHost", "localhost:4000")
	conf.SetDefault("serverShutdownTimeout", 5*time.Second)
	conf.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("jwtRefreshExpirationDelta", 30*24*time.Hour)
	conf.SetDefault("maxUploadSize", int64(20<<20))

	conf.SetDefault("dbEngine", "postgres")
	conf.SetDefault("dbHost", "localhost")
	conf.SetDefault("dbPort", "5432")
	conf.SetDefault("dbName", "conecta_ebd")
	conf.SetDefault("dbUser", "ebd")
	conf.SetDefault("dbPassword", "ebd")
	conf.SetDefault("dbAdminUser", "")
	conf.SetDefault("dbAdminPassword", "")
	conf.SetDefault("dbDisableTLS", true)
	conf.SetDefault("dbQueryTimeout", 5*time.Second)

	conf.SetDefault("storageDriver", "local")
	conf.SetDefault("storageBucket", "materials")
	conf.SetDefault("storagePublicURL", "http://localhost:8000/uploads")
	conf.SetDefault("storageServiceKey", "")
	conf.SetDefault("storageEndpoint", "")
	conf.SetDefault("storageAccessKeyID", "")
	conf.SetDefault("storageAccessKeySecret", "")
	conf.SetDefault("storageLocalDir", "uploads")
	conf.SetDefault("coverMaxWidth", 600)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		AppName:      conf.GetString("appName"),
		Build:        conf.GetString("build"),
		Env:          env,
		Debug:        conf.GetBool("debug"),
		TestMode:     conf.GetBool("testMode"),
		SecretKey:    conf.GetString("secretKey"),
		RollbarToken: conf.GetString("rollbarToken"),
		Server: ServerConfig{
			Address:                   conf.GetString("serverAddress"),
			Host:                      conf.GetString("serverHost"),
			DebugHost:                 conf.GetString("serverDebugHost"),
			ShutdownTimeout:           conf.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        conf.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("jwtRefreshExpirationDelta"),
			MaxUploadSize:             conf.GetInt64("maxUploadSize"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("dbEngine"),
			Host:          conf.GetString("dbHost"),
			Port:          conf.GetString("dbPort"),
			Name:          conf.GetString("dbName"),
			User:          conf.GetString("dbUser"),
			Password:      conf.GetString("dbPassword"),
			AdminUser:     conf.GetString("dbAdminUser"),
			AdminPassword: conf.GetString("dbAdminPassword"),
			DisableTLS:    conf.GetBool("dbDisableTLS"),
			QueryTimeout:  conf.GetDuration("dbQueryTimeout"),
		},
		Storage: StorageConfig{
			Driver:          conf.GetString("storageDriver"),
			Bucket:          conf.GetString("storageBucket"),
			PublicURL:       strings.TrimRight(conf.GetString("storagePublicURL"), "/"),
			ServiceKey:      conf.GetString("storageServiceKey"),
			Endpoint:        conf.GetString("storageEndpoint"),
			AccessKeyID:     conf.GetString("storageAccessKeyID"),
			AccessKeySecret: conf.GetString("storageAccessKeySecret"),
			LocalDir:        conf.GetString("storageLocalDir"),
			CoverMaxWidth:   conf.GetInt("coverMaxWidth"),
		},
	}
}

// NewTestConfig returns settings suitable for tests: no files, no env lookups.
func NewTestConfig() *Config {
	return &Config{
		AppName:   "Conecta EBD",
		Build:     "test",
		Env:       "TEST",
		TestMode:  true,
		SecretKey: "test-secret",
		Server: ServerConfig{
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
			MaxUploadSize:             1 << 20,
		},
		Database: DatabaseConfig{Engine: "postgres", QueryTimeout: 5 * time.Second},
		Storage: StorageConfig{
			Driver:        "memory",
			Bucket:        "materials",
			PublicURL:     "http://storage.test/materials",
			CoverMaxWidth: 300,
		},
	}
}

func (c *Config) String() string {
	return fmt.Sprintf("%s [%s] build=%s debug=%t", c.AppName, c.Env, c.Build, c.Debug)
}
