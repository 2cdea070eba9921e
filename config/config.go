package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel string `env:"LOG_LEVEL"`
	HTTP     HTTP
	Postgres Postgres
	Redis    Redis
	API      API
	Cache    Cache
	Jobs     Jobs
	Simvest  Simvest
	Minvest  Minvest
}

type HTTP struct {
	Port            int           `env:"HTTP_PORT"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	AllowedOrigins  []string      `env:"HTTP_ALLOWED_ORIGINS" envSeparator:","`
}

type Postgres struct {
	Host            string `env:"PG_HOST"`
	Port            int    `env:"PG_PORT"`
	DbName          string `env:"PG_DB_NAME"`
	Password        string `env:"PG_PASSWORD"`
	User            string `env:"PG_USER"`
	MaxOpenConns    int    `env:"PG_MAX_OPEN_CONNS"`
	ConnMaxLifetime int    `env:"PG_CONN_MAX_LIFETIME"`
	MaxIdleConns    int    `env:"PG_MAX_IDLE_CONNS"`
	ConnMaxIdleTime int    `env:"PG_CONN_MAX_IDLE_TIME"`
	MigrationDir    string `env:"PG_MIGRATION_DIR"`
}

type Redis struct {
	Host     string `env:"REDIS_HOST"`
	Port     int    `env:"REDIS_PORT"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB"`
}

type API struct {
	Debug   bool          `env:"API_DEBUG"`
	Timeout time.Duration `env:"API_TIMEOUT"`
	Fmp     Fmp
}

type Fmp struct {
	Url    string `env:"FMP_API_URL"`
	ApiKey string `env:"FMP_API_KEY"`
}

type Cache struct {
	QuotesExpiration time.Duration `env:"CACHE_QUOTES_EXPIRATION"`
}

type Jobs struct {
	RefreshQuotesInterval time.Duration `env:"REFRESH_QUOTES_JOB_INTERVAL"`
}

type Simvest struct {
	StartingCash     float64       `env:"SIMVEST_STARTING_CASH" envDefault:"5000"`
	HistoryBars      int           `env:"SIMVEST_HISTORY_BARS" envDefault:"450"`
	ChartBars        int           `env:"SIMVEST_CHART_BARS" envDefault:"250"`
	ShortMAWindow    int           `env:"SIMVEST_SHORT_MA_WINDOW" envDefault:"50"`
	LongMAWindow     int           `env:"SIMVEST_LONG_MA_WINDOW" envDefault:"200"`
	GapFillThreshold time.Duration `env:"SIMVEST_GAP_FILL_THRESHOLD" envDefault:"24h"`
}

type Minvest struct {
	ArticlePoints float64 `env:"MINVEST_ARTICLE_POINTS" envDefault:"25"`
}

func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg := &Config{}

	opts := env.Options{RequiredIfNoDef: true}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	return cfg
}
