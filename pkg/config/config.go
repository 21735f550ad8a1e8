package config

import (
	"time"
)

type DB struct {
	// Url is the Postgres DSN. When empty the server runs on the in-memory store.
	Url             string        `envconfig:"URL"`
	Migrate         bool          `envconfig:"MIGRATE" default:"true"`
	MaxOpenConns    int           `envconfig:"MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"MAX_IDLE_CONNS" default:"25"`
	ConnMaxLifetime time.Duration `envconfig:"CONN_MAX_LIFETIME" default:"1h"`
}

type Jwt struct {
	Secret string        `envconfig:"SECRET" required:"true"`
	Expiry time.Duration `envconfig:"EXPIRY" default:"15m"`
}

type Auth struct {
	Jwt *Jwt `envconfig:"JWT"`
}

type Credential struct {
	BcryptCost int `envconfig:"BCRYPT_COST" default:"10"`
	Length     int `envconfig:"LENGTH" default:"4"`
}

type Ledger struct {
	HistoryDefaultLimit int `envconfig:"HISTORY_DEFAULT_LIMIT" default:"10"`
	HistoryMaxLimit     int `envconfig:"HISTORY_MAX_LIMIT" default:"100"`
}

type Redis struct {
	URL          string        `envconfig:"URL" default:"redis://localhost:6379/0"`
	KeyPrefix    string        `envconfig:"KEY_PREFIX" default:"vatm:"`
	PoolSize     int           `envconfig:"POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"3s"`
}

type Kafka struct {
	Brokers       string `envconfig:"BROKERS" default:"localhost:9092"`
	GroupID       string `envconfig:"GROUP_ID" default:"vatm"`
	TopicPrefix   string `envconfig:"TOPIC_PREFIX" default:"vatm.events"`
	SASLUsername  string `envconfig:"SASL_USERNAME"`
	SASLPassword  string `envconfig:"SASL_PASSWORD"`
	TLSEnabled    bool   `envconfig:"TLS_ENABLED" default:"false"`
	TLSSkipVerify bool   `envconfig:"TLS_SKIP_VERIFY" default:"false"`
}

type EventBus struct {
	Driver string `envconfig:"DRIVER" default:"memory"` // memory, redis or kafka
}

type RateLimit struct {
	MaxRequests int           `envconfig:"MAX_REQUESTS" default:"100"`
	Window      time.Duration `envconfig:"WINDOW" default:"1m"`
}

type Idempotency struct {
	Enabled bool          `envconfig:"ENABLED" default:"true"`
	Store   string        `envconfig:"STORE" default:"memory"` // memory or redis
	TTL     time.Duration `envconfig:"TTL" default:"24h"`
}

type Log struct {
	Level      int    `envconfig:"LEVEL" default:"0"`
	Format     string `envconfig:"FORMAT" default:"json"`
	TimeFormat string `envconfig:"TIME_FORMAT" default:"2006-01-02 15:04:05"`
	Prefix     string `envconfig:"PREFIX" default:"[vatm]"`
}

type Server struct {
	Scheme       string        `envconfig:"SCHEME" default:"http"`
	Host         string        `envconfig:"HOST" default:"localhost"`
	Port         int           `envconfig:"PORT" default:"3000"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s"`
}

type App struct {
	Env         string       `envconfig:"APP_ENV" default:"development"`
	SeedDemo    bool         `envconfig:"SEED_DEMO" default:"false"`
	Server      *Server      `envconfig:"SERVER"`
	Log         *Log         `envconfig:"LOG"`
	DB          *DB          `envconfig:"DATABASE"`
	Auth        *Auth        `envconfig:"AUTH"`
	Credential  *Credential  `envconfig:"CREDENTIAL"`
	Ledger      *Ledger      `envconfig:"LEDGER"`
	Redis       *Redis       `envconfig:"REDIS"`
	Kafka       *Kafka       `envconfig:"KAFKA"`
	EventBus    *EventBus    `envconfig:"EVENTBUS"`
	RateLimit   *RateLimit   `envconfig:"RATE_LIMIT"`
	Idempotency *Idempotency `envconfig:"IDEMPOTENCY"`
}
