package config // package config loads application configuration from environment variables

import (
	"log" // log is used to report configuration errors and halt execution
	"os"  // os provides access to environment variables
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, durations for the
// scheduler cadence.
type Config struct {
	Env       string // application environment (e.g. "dev", "prod")
	Port      string // HTTP port to listen on
	DBUser    string // database username
	DBPass    string // database password (optional)
	DBHost    string // database host address
	DBPort    string // database port number
	DBName    string // database name
	JWTSecret string // secret used to verify identity tokens

	RabbitURL string // AMQP connection string for notification events (optional)

	SweepInterval          time.Duration // cadence of the lifecycle sweeper ticks
	HorizonDays            int           // rolling recurrence-generation horizon, in days
	WaitlistResponseWindow time.Duration // how long a notified waitlist entry stays claimable
	NotificationRetention  time.Duration // notifications older than this are pruned
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Scheduler knobs are
// optional and fall back to sensible defaults.
func Load() Config {
	return Config{
		Env:       must("APP_ENV"),      // environment (dev/test/prod)
		Port:      must("APP_PORT"),     // port to bind the HTTP server
		DBUser:    must("DB_USER"),      // database user
		DBPass:    os.Getenv("DB_PASS"), // database password (empty allowed)
		DBHost:    must("DB_HOST"),      // database host
		DBPort:    must("DB_PORT"),      // database port
		DBName:    must("DB_NAME"),      // database name
		JWTSecret: must("JWT_SECRET"),   // secret used to verify identity tokens

		RabbitURL: os.Getenv("RABBITMQ_URL"), // empty disables event publishing

		SweepInterval:          envDur("SWEEP_INTERVAL", time.Minute),
		HorizonDays:            envInt("RECURRENCE_HORIZON_DAYS", 28),
		WaitlistResponseWindow: envDur("WAITLIST_RESPONSE_WINDOW", 30*time.Minute),
		NotificationRetention:  envDur("NOTIFICATION_RETENTION", 30*24*time.Hour),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
