package config

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

const (
	defaultServerAddress = ":8080"
	defaultDatabaseDSN   = ""
	defaultLogLevel      = "info"
	defaultPollInterval  = 3 * time.Second
	defaultTokenTTL      = 24 * time.Hour
	defaultTokenKey      = "f53ac685bbceebd75043e6be2e06ee07"
)

type Config struct {
	ServerAddr         string
	DatabaseDSN        string
	LogLevel           string
	TokenKey           string
	TokenTTL           time.Duration
	PollInterval       time.Duration
	AMQPURL            string
	StrictTransitions  bool
	AccurateCascadeLog bool
	// StaffToken prints a staff token for the given subject and exits
	StaffToken string
}

// TokenKeyBytes returns decoded HMAC key
func (c *Config) TokenKeyBytes() ([]byte, error) {
	key, err := hex.DecodeString(c.TokenKey)
	if err != nil {
		return nil, fmt.Errorf("token key must be hex: %w", err)
	}
	return key, nil
}

var (
	once      sync.Once
	singleton *Config
	parseErr  error
)

// New returns new Config. It parses command line and environment variables only once.
func New() (*Config, error) {
	once.Do(func() {
		singleton, parseErr = parse(os.Args[0], os.Args[1:], os.Getenv)
	})

	return singleton, parseErr
}

func parse(name string, args []string, getenv func(string) string) (*Config, error) {
	cfg := Config{}

	// initialize flags
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&cfg.ServerAddr, "a", defaultServerAddress, "brewtrack server address")
	fs.StringVar(&cfg.DatabaseDSN, "d", defaultDatabaseDSN, "database DSN, in-memory store if empty")
	fs.StringVar(&cfg.LogLevel, "l", defaultLogLevel, "log level")
	fs.StringVar(&cfg.TokenKey, "k", defaultTokenKey, "hex HMAC key for tokens")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", defaultTokenTTL, "token lifetime")
	fs.DurationVar(&cfg.PollInterval, "p", defaultPollInterval, "stream session poll interval")
	fs.StringVar(&cfg.AMQPURL, "m", "", "AMQP broker URL for change fan-out")
	fs.BoolVar(&cfg.StrictTransitions, "strict", true, "reject transitions outside the status flow")
	fs.BoolVar(&cfg.AccurateCascadeLog, "accurate-cascade-log", false, "log real prior status of cascaded items")
	fs.StringVar(&cfg.StaffToken, "staff-token", "", "print staff token for subject and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// if environment variable is set, then using it
	if runAddrEnv := getenv("RUN_ADDRESS"); runAddrEnv != "" {
		cfg.ServerAddr = runAddrEnv
	}
	if dataBaseURIEnv := getenv("DATABASE_URI"); dataBaseURIEnv != "" {
		cfg.DatabaseDSN = dataBaseURIEnv
	}
	if logLevelEnv := getenv("LOG_LEVEL"); logLevelEnv != "" {
		cfg.LogLevel = logLevelEnv
	}
	if tokenKeyEnv := getenv("TOKEN_KEY"); tokenKeyEnv != "" {
		cfg.TokenKey = tokenKeyEnv
	}
	if amqpEnv := getenv("AMQP_URL"); amqpEnv != "" {
		cfg.AMQPURL = amqpEnv
	}
	if ttlEnv := getenv("TOKEN_TTL"); ttlEnv != "" {
		ttl, err := time.ParseDuration(ttlEnv)
		if err != nil {
			return nil, fmt.Errorf("TOKEN_TTL: %w", err)
		}
		cfg.TokenTTL = ttl
	}
	if pollEnv := getenv("POLL_INTERVAL"); pollEnv != "" {
		poll, err := time.ParseDuration(pollEnv)
		if err != nil {
			return nil, fmt.Errorf("POLL_INTERVAL: %w", err)
		}
		cfg.PollInterval = poll
	}
	if strictEnv := getenv("STRICT_TRANSITIONS"); strictEnv != "" {
		strict, err := strconv.ParseBool(strictEnv)
		if err != nil {
			return nil, fmt.Errorf("STRICT_TRANSITIONS: %w", err)
		}
		cfg.StrictTransitions = strict
	}
	if accurateEnv := getenv("ACCURATE_CASCADE_LOG"); accurateEnv != "" {
		accurate, err := strconv.ParseBool(accurateEnv)
		if err != nil {
			return nil, fmt.Errorf("ACCURATE_CASCADE_LOG: %w", err)
		}
		cfg.AccurateCascadeLog = accurate
	}

	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", cfg.PollInterval)
	}

	return &cfg, nil
}
