package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints and bools for
// tuning knobs.
type Config struct {
	Env        string // application environment (e.g. "dev", "prod")
	Port       string // HTTP port to listen on
	DBUser     string // database username
	DBPass     string // database password (optional)
	DBHost     string // database host address
	DBPort     string // database port number
	DBName     string // database name
	JWTSecret  string // secret used to sign JWTs
	BcryptCost int    // bcrypt cost for password hashing

	S3Endpoint  string // object storage endpoint (host:port)
	S3AccessKey string // object storage access key
	S3SecretKey string // object storage secret key
	S3Bucket    string // bucket holding uploaded documents
	S3Region    string // bucket region (optional for MinIO)
	S3UseSSL    bool   // connect to object storage over TLS

	SMTPHost     string // mail server host
	SMTPPort     int    // mail server port
	SMTPUser     string // mail server username (empty disables auth)
	SMTPPassword string // mail server password
	SMTPFrom     string // From address on outgoing notification mail
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Mail settings are
// optional so local development works without an SMTP server.
func Load() Config {
	return Config{
		Env:        must("APP_ENV"),        // environment (dev/test/prod)
		Port:       must("APP_PORT"),       // port to bind the HTTP server
		DBUser:     must("DB_USER"),        // database user
		DBPass:     os.Getenv("DB_PASS"),   // database password (empty allowed)
		DBHost:     must("DB_HOST"),        // database host
		DBPort:     must("DB_PORT"),        // database port
		DBName:     must("DB_NAME"),        // database name
		JWTSecret:  must("JWT_SECRET"),     // secret used for signing JWTs
		BcryptCost: mustInt("BCRYPT_COST"), // bcrypt cost factor

		S3Endpoint:  must("S3_ENDPOINT"),   // object storage endpoint
		S3AccessKey: must("S3_ACCESS_KEY"), // object storage access key
		S3SecretKey: must("S3_SECRET_KEY"), // object storage secret key
		S3Bucket:    must("S3_BUCKET"),     // document bucket
		S3Region:    envStr("S3_REGION", "us-east-1"),
		S3UseSSL:    envBool("S3_USE_SSL", false),

		SMTPHost:     envStr("SMTP_HOST", "localhost"),
		SMTPPort:     envInt("SMTP_PORT", 587),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     envStr("SMTP_FROM", "no-reply@permits.local"),
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

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
