package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"postgres"` // postgres | sqlite
	DatabaseURL    string `env:"DATABASE_URL,required,notEmpty"`

	CORSAllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	CORSAllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"false"`

	JWTSecret string `env:"JWT_SECRET,required,notEmpty"`

	// Optional: empty disables the redis sent cache.
	RedisURL string `env:"REDIS_URL"`

	// Optional: empty server token falls back to the log notifier.
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL" envDefault:"reminders@teamdesk.local"`

	Worker Worker
	Sweep  Sweep
}

type Worker struct {
	Concurrency  int           `env:"WORKER_CONCURRENCY" envDefault:"5"`
	PollInterval time.Duration `env:"WORKER_POLL_INTERVAL" envDefault:"800ms"`
	LockTimeout  time.Duration `env:"WORKER_LOCK_TIMEOUT" envDefault:"5m"`
	MaxAttempts  int           `env:"JOB_MAX_ATTEMPTS" envDefault:"3"`
	BackoffBase  time.Duration `env:"JOB_BACKOFF_BASE" envDefault:"2s"`
}

type Sweep struct {
	Interval          time.Duration `env:"SWEEP_INTERVAL" envDefault:"30m"`
	BackfillWindow    time.Duration `env:"BACKFILL_WINDOW" envDefault:"30m"`
	BackfillDrift     time.Duration `env:"BACKFILL_DRIFT" envDefault:"5m"`
	ReminderRetention time.Duration `env:"REMINDER_RETENTION" envDefault:"25h"`
	JobRetention      time.Duration `env:"JOB_RETENTION" envDefault:"72h"`
}

func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}

	origins := cfg.CORSAllowedOrigins[:0]
	for _, o := range cfg.CORSAllowedOrigins {
		o = strings.TrimSpace(o)
		if o != "" {
			origins = append(origins, o)
		}
	}
	cfg.CORSAllowedOrigins = origins
	cfg.DatabaseDriver = strings.ToLower(strings.TrimSpace(cfg.DatabaseDriver))

	return cfg, nil
}
