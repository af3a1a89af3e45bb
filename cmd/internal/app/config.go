package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr string
	LogLevel string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodyBytes      int64

	// CORS origin allowed on the coupon surface; "*" allows any caller.
	AllowedOrigin string

	DatabaseURL string
	DBSchema    string
	DBMaxConns  int32
	DBMinConns  int32

	// If true:
	// - /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	// Inventory document. An empty API base selects the in-memory
	// document store (dev mode); the seed file, when set, is loaded into
	// it at startup.
	DocumentPath        string
	DocumentAPIBase     string
	DocumentAccessToken string
	DocumentSeedFile    string

	// Refresh-exchange parameters for the document-store credential,
	// used when no static access token is set.
	DocumentTokenURL     string
	DocumentClientID     string
	DocumentClientSecret string

	AllocationMaxAttempts int

	// Ticketing vendor.
	VendorAPIBase      string
	VendorCompanyID    string
	VendorTokenURL     string
	VendorClientID     string
	VendorClientSecret string
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr: EnvString("COUPOND_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel: EnvString("COUPOND_LOG_LEVEL", "info"),

		ReadHeaderTimeout: EnvDuration("COUPOND_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("COUPOND_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("COUPOND_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("COUPOND_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("COUPOND_HTTP_MAX_HEADER_BYTES", 1<<20),
		MaxBodyBytes:   EnvInt64("COUPOND_HTTP_MAX_BODY_BYTES", 64<<10),

		AllowedOrigin: EnvString("COUPOND_ALLOWED_ORIGIN", "*"),

		DatabaseURL: EnvString("COUPOND_DATABASE_URL", ""),
		DBSchema:    EnvString("COUPOND_DB_SCHEMA", "coupond"),
		DBMaxConns:  EnvInt32("COUPOND_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("COUPOND_DB_MIN_CONNS", 0),

		ReadinessRequireDB: EnvBool("COUPOND_READINESS_REQUIRE_DB", false),

		DocumentPath:        EnvString("COUPOND_DOCUMENT_PATH", "/discount_codes.json"),
		DocumentAPIBase:     EnvString("COUPOND_DOCUMENT_API_BASE", ""),
		DocumentAccessToken: EnvString("COUPOND_DOCUMENT_ACCESS_TOKEN", ""),
		DocumentSeedFile:    EnvString("COUPOND_DOCUMENT_SEED_FILE", ""),

		DocumentTokenURL:     EnvString("COUPOND_DOCUMENT_TOKEN_URL", "https://api.dropbox.com/oauth2/token"),
		DocumentClientID:     EnvString("COUPOND_DOCUMENT_CLIENT_ID", ""),
		DocumentClientSecret: EnvString("COUPOND_DOCUMENT_CLIENT_SECRET", ""),

		AllocationMaxAttempts: EnvInt("COUPOND_ALLOCATION_MAX_ATTEMPTS", 5),

		VendorAPIBase:      EnvString("COUPOND_VENDOR_API_BASE", "https://api.eventix.io"),
		VendorCompanyID:    EnvString("COUPOND_VENDOR_COMPANY_ID", ""),
		VendorTokenURL:     EnvString("COUPOND_VENDOR_TOKEN_URL", "https://auth.openticket.tech/tokens"),
		VendorClientID:     EnvString("COUPOND_VENDOR_CLIENT_ID", ""),
		VendorClientSecret: EnvString("COUPOND_VENDOR_CLIENT_SECRET", ""),
	}
}
