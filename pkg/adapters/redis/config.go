package redis

import "time"

// Config describes the Redis host connection. Fields are populated from the
// environment by internal/config (with the HASHFSM_ prefix).
type Config struct {
	ConnectionURL  string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"` // e.g. "redis://:password@localhost:6379/0"
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"2s"`
	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" envDefault:"10s"`
	// ConfigureKeyspace enables hash keyspace notifications on the server
	// (CONFIG SET notify-keyspace-events Kh) before subscribing.
	ConfigureKeyspace bool `env:"CONFIGURE_KEYSPACE" envDefault:"false"`
}
