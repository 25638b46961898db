package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values.  Each field
// corresponds to an environment variable; required variables are
// enforced by must() and missing values halt startup with a fatal log
// message.
type Config struct {
	Env           string        // application environment (e.g. "dev", "prod")
	Port          string        // HTTP port to listen on
	DBUser        string        // database username
	DBPass        string        // database password (optional)
	DBHost        string        // database host address
	DBPort        string        // database port number
	DBName        string        // database name
	JWTSecret     string        // secret used to verify JWTs issued upstream
	LeaseTTL      time.Duration // default lifetime of a capacity lease
	SweepInterval time.Duration // how often the lease sweeper runs
}

// Load reads configuration values from environment variables and
// returns a Config.  Lease timing values have sensible defaults so
// only the service identity and database coordinates are mandatory.
func Load() Config {
	return Config{
		Env:           must("APP_ENV"),
		Port:          must("APP_PORT"),
		DBUser:        must("DB_USER"),
		DBPass:        os.Getenv("DB_PASS"), // empty allowed
		DBHost:        must("DB_HOST"),
		DBPort:        must("DB_PORT"),
		DBName:        must("DB_NAME"),
		JWTSecret:     must("JWT_SECRET"),
		LeaseTTL:      secondsOr("LEASE_TTL_SECONDS", 120),
		SweepInterval: secondsOr("LEASE_SWEEP_INTERVAL_SECONDS", 60),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and
// exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// secondsOr reads an integer number of seconds from the environment,
// falling back to def when unset.  Invalid values are fatal rather
// than silently defaulted: a mistyped lease TTL should not shorten
// holds in production.
func secondsOr(key string, def int) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return time.Duration(def) * time.Second
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Fatalf("invalid value for %s: %q", key, v)
	}
	return time.Duration(n) * time.Second
}
