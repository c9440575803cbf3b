package types

type Config struct {
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	ServerPort      uint   `envconfig:"SERVER_PORT" default:"8080"`
	DatabaseURL     string `envconfig:"DATABASE_URL"`
	DBMaxConns      int32  `envconfig:"DB_MAX_CONNS" default:"8"`
	DBMinConns      int32  `envconfig:"DB_MIN_CONNS" default:"2"`
	ReadTimeoutSec  uint   `envconfig:"READ_TIMEOUT_SEC" default:"10"`
	WriteTimeoutSec uint   `envconfig:"WRITE_TIMEOUT_SEC" default:"15"`

	// Identity provider used by the auth middleware
	AuthIssuerURL string `envconfig:"AUTH_ISSUER_URL"`

	// Object storage for pitch assets
	AssetBucket        string `envconfig:"ASSET_BUCKET" default:"pitch-assets"`
	AssetPublicBaseURL string `envconfig:"ASSET_PUBLIC_BASE_URL"`

	// Draft change-feed poll interval
	WatchIntervalSec uint `envconfig:"WATCH_INTERVAL_SEC" default:"5"`

	// Auth Configuration
	CookieName       string `envconfig:"SESSION_COOKIE_NAME" default:"session_id"`
	SessionMaxAgeSec int    `envconfig:"SESSION_MAX_AGE_SEC" default:"604800"` // 7 days

	// Cookie encryption keys (base64 encoded)
	// openssl rand -base64 32
	// to generate values
	CookieHashKey  string `envconfig:"COOKIE_HASH_KEY"`  // 32 or 64 bytes
	CookieBlockKey string `envconfig:"COOKIE_BLOCK_KEY"` // 16, 24, or 32 bytes
}
