package config

import (
	"os"      // For environment variables
	"sort"    // For stable error output
	"strconv" // For string to int conversion
	"strings" // For joining missing keys
	"time"    // For durations

	"github.com/joho/godotenv" // For loading .env files
	"github.com/pkg/errors"    // Error helpers
)

// Supported database drivers
const (
	DriverMySQL  = "mysql"  // Production driver
	DriverSQLite = "sqlite" // Embedded driver for local runs
)

// Config holds the application configuration
type Config struct {
	AppPort    string        // Application port
	IsProd     bool          // Is production environment
	SecretKey  string        // Session token signing key
	SessionTTL time.Duration // Session lifetime

	DBDriver   string // mysql or sqlite
	DBDSN      string // Full connection string, overrides the parts below
	DBUser     string // Database user
	DBPassword string // Database password
	DBHost     string // Database host
	DBPort     string // Database port
	DBName     string // Database name
	DBPath     string // SQLite file path

	RedisAddr string // Redis server address
	RedisPass string // Redis password
	RedisDB   int    // Redis database number

	FinnhubAPIKey   string        // Quote API token
	QuoteBaseURL    string        // Quote API base URL
	QuoteTimeout    time.Duration // Bound on a single quote lookup
	QuoteRatePerSec float64       // Outbound quote requests per second

	MailHost     string        // SMTP host
	MailPort     int           // SMTP port (implicit TLS)
	MailUser     string        // Mailbox used as sender and recipient
	MailPassword string        // Mailbox password
	MailTimeout  time.Duration // Bound on a single send

	LockTTL  time.Duration // Per-account lock lease
	LockWait time.Duration // How long a request waits for the account lock

	SeedAdminEmail    string // Operator account created by migrate when the table is empty
	SeedAdminPassword string // Operator account password

	LogLevel      string // logrus level
	LogFile       string // Optional rotating log file
	LogMaxSizeMB  int    // Rotate after this many megabytes
	LogMaxBackups int    // Rotated files to keep
	LogMaxAgeDays int    // Days to keep rotated files

	invalid []string // Keys that were set but did not parse
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	env := &envReader{} // Collects malformed values
	cfg := &Config{
		AppPort:    getEnv("APP_PORT", "10000"),               // Application port
		IsProd:     os.Getenv("IS_PROD") == "true",            // Is production environment
		SecretKey:  os.Getenv("SECRET_KEY"),                   // Session signing key
		SessionTTL: env.duration("SESSION_TTL", 24*time.Hour), // Session lifetime

		DBDriver:   getEnv("DB_DRIVER", DriverMySQL),        // Database driver
		DBDSN:      os.Getenv("DB_DSN"),                     // Full DSN
		DBUser:     os.Getenv("DB_USER"),                    // Database user
		DBPassword: os.Getenv("DB_PASSWORD"),                // Database password
		DBHost:     os.Getenv("DB_HOST"),                    // Database host
		DBPort:     getEnv("DB_PORT", "3306"),               // Database port
		DBName:     os.Getenv("DB_NAME"),                    // Database name
		DBPath:     getEnv("DB_PATH", "stock_simulator.db"), // SQLite file

		RedisAddr: os.Getenv("REDIS_ADDR"), // Redis server address
		RedisPass: os.Getenv("REDIS_PASS"), // Redis password
		RedisDB:   env.int("REDIS_DB", 0),  // Redis database number

		FinnhubAPIKey:   os.Getenv("FINNHUB_API_KEY"),                          // Quote API token
		QuoteBaseURL:    getEnv("QUOTE_BASE_URL", "https://finnhub.io/api/v1"), // Quote API base URL
		QuoteTimeout:    env.duration("QUOTE_TIMEOUT", 5*time.Second),          // Quote timeout
		QuoteRatePerSec: env.float("QUOTE_RATE_PER_SEC", 1),                    // Quote rate limit

		MailHost:     getEnv("MAIL_HOST", "smtp.gmail.com"),        // SMTP host
		MailPort:     env.int("MAIL_PORT", 465),                    // SMTP port
		MailUser:     os.Getenv("MAIL_USER"),                       // SMTP user
		MailPassword: os.Getenv("MAIL_PASSWORD"),                   // SMTP password
		MailTimeout:  env.duration("MAIL_TIMEOUT", 10*time.Second), // Send timeout

		LockTTL:  env.duration("LOCK_TTL", 30*time.Second), // Lock lease
		LockWait: env.duration("LOCK_WAIT", 5*time.Second), // Lock wait

		SeedAdminEmail:    os.Getenv("SEED_ADMIN_EMAIL"),    // Seed operator email
		SeedAdminPassword: os.Getenv("SEED_ADMIN_PASSWORD"), // Seed operator password

		LogLevel:      getEnv("LOG_LEVEL", "info"),     // Log level
		LogFile:       os.Getenv("LOG_FILE"),           // Log file
		LogMaxSizeMB:  env.int("LOG_MAX_SIZE_MB", 100), // Max size before rotation
		LogMaxBackups: env.int("LOG_MAX_BACKUPS", 5),   // Rotated files to keep
		LogMaxAgeDays: env.int("LOG_MAX_AGE_DAYS", 28), // Days to keep
	}
	cfg.invalid = env.invalid
	return cfg
}

// Validate checks every value the server needs and reports all missing keys at once
func (c *Config) Validate() error {
	missing := c.missingDatabase() // Database keys first
	// Required keys for the server process
	required := map[string]string{
		"SECRET_KEY":      c.SecretKey,
		"REDIS_ADDR":      c.RedisAddr,
		"FINNHUB_API_KEY": c.FinnhubAPIKey,
		"MAIL_USER":       c.MailUser,
		"MAIL_PASSWORD":   c.MailPassword,
	}
	for key, val := range required {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, key) // Collect missing key
		}
	}
	if err := report(missing); err != nil {
		return err
	}
	if len(c.invalid) > 0 {
		invalid := append([]string(nil), c.invalid...)
		sort.Strings(invalid)
		return errors.Errorf("config: invalid values: %s", strings.Join(invalid, ", "))
	}
	// Sanity checks on numeric values
	if c.QuoteRatePerSec <= 0 {
		return errors.New("config: QUOTE_RATE_PER_SEC must be positive")
	}
	if c.SessionTTL <= 0 || c.QuoteTimeout <= 0 || c.MailTimeout <= 0 || c.LockTTL <= 0 || c.LockWait <= 0 {
		return errors.New("config: durations must be positive")
	}
	return nil
}

// ValidateDatabase checks only the keys needed to reach the database
func (c *Config) ValidateDatabase() error {
	return report(c.missingDatabase())
}

// DSN returns the connection string for the configured driver
func (c *Config) DSN() string {
	if c.DBDSN != "" {
		return c.DBDSN // Explicit DSN wins
	}
	if c.DBDriver == DriverSQLite {
		return c.DBPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)" // SQLite file with FKs on
	}
	// Data Source Name (DSN) for MySQL connection
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
}

// missingDatabase lists required database keys that are unset
func (c *Config) missingDatabase() []string {
	var missing []string
	switch c.DBDriver {
	case DriverSQLite:
		if c.DBDSN == "" && c.DBPath == "" {
			missing = append(missing, "DB_PATH")
		}
	case DriverMySQL:
		if c.DBDSN != "" {
			break // Full DSN given
		}
		for key, val := range map[string]string{"DB_USER": c.DBUser, "DB_HOST": c.DBHost, "DB_NAME": c.DBName} {
			if val == "" {
				missing = append(missing, key)
			}
		}
	default:
		missing = append(missing, "DB_DRIVER (mysql|sqlite)") // Unknown driver
	}
	return missing
}

// report turns a list of missing keys into an error
func report(missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing) // Stable order for operators
	return errors.Errorf("config: missing required values: %s", strings.Join(missing, ", "))
}

// getEnv returns the variable or a fallback
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envReader parses typed variables and remembers the ones it had to reject
type envReader struct {
	invalid []string
}

// lookup returns the trimmed value, or false when the variable is unset
func (r *envReader) lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

// reject records a malformed value
func (r *envReader) reject(key string) {
	r.invalid = append(r.invalid, key)
}

// int parses an integer variable, falling back when unset
func (r *envReader) int(key string, fallback int) int {
	raw, ok := r.lookup(key)
	if !ok {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		r.reject(key)
		return fallback
	}
	return v
}

// float parses a float variable, falling back when unset
func (r *envReader) float(key string, fallback float64) float64 {
	raw, ok := r.lookup(key)
	if !ok {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		r.reject(key)
		return fallback
	}
	return v
}

// duration parses a duration such as "5s", falling back when unset
func (r *envReader) duration(key string, fallback time.Duration) time.Duration {
	raw, ok := r.lookup(key)
	if !ok {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		r.reject(key)
		return fallback
	}
	return v
}
