package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	ServiceName string
	ServerPort  int
	LogLevel    string

	DatabaseURL   string
	StoreTimeout  time.Duration
	DBAutoMigrate bool

	JWTSecret []byte
	TokenTTL  time.Duration

	OrderVisibility      string
	CatalogRequireSeller bool

	KafkaBrokers []string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RateLimitAPI    int
	RateLimitAuth   int
	RateLimitWindow time.Duration

	CORSOrigins []string
}

func defaults(v *viper.Viper) {
	v.SetDefault("SERVICE_NAME", "shop-api")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_TIMEOUT", "5s")
	v.SetDefault("DB_AUTOMIGRATE", false)
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("ORDER_VISIBILITY", "all")
	v.SetDefault("CATALOG_REQUIRE_SELLER", false)
	v.SetDefault("ES_INDEX", "products")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("RATE_LIMIT_API", 100)
	v.SetDefault("RATE_LIMIT_AUTH", 15)
	v.SetDefault("RATE_LIMIT_WINDOW", "15m")
}

// Load reads envFile when it exists, then the process environment.
// Environment variables win over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			log.Printf("Notice: %s not loaded: %v. Using system environment variables", envFile, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	defaults(v)

	cfg := Config{
		ServiceName: v.GetString("SERVICE_NAME"),
		ServerPort:  v.GetInt("SERVER_PORT"),
		LogLevel:    v.GetString("LOG_LEVEL"),

		DatabaseURL:   v.GetString("DATABASE_URL"),
		StoreTimeout:  v.GetDuration("STORE_TIMEOUT"),
		DBAutoMigrate: v.GetBool("DB_AUTOMIGRATE"),

		JWTSecret: []byte(v.GetString("JWT_SECRET")),
		TokenTTL:  v.GetDuration("TOKEN_TTL"),

		OrderVisibility:      strings.ToLower(v.GetString("ORDER_VISIBILITY")),
		CatalogRequireSeller: v.GetBool("CATALOG_REQUIRE_SELLER"),

		KafkaBrokers: CSV(v.GetString("KAFKA_BROKERS")),

		ESURL:      v.GetString("ES_URL"),
		ESUser:     v.GetString("ES_USER"),
		ESPassword: v.GetString("ES_PASSWORD"),
		ESIndex:    v.GetString("ES_INDEX"),

		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),

		RateLimitAPI:    v.GetInt("RATE_LIMIT_API"),
		RateLimitAuth:   v.GetInt("RATE_LIMIT_AUTH"),
		RateLimitWindow: v.GetDuration("RATE_LIMIT_WINDOW"),

		CORSOrigins: CSV(v.GetString("CORS_ORIGINS")),
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("missing required env DATABASE_URL"))
	}
	if len(c.JWTSecret) == 0 {
		errs = append(errs, errors.New("missing required env JWT_SECRET"))
	}
	if c.StoreTimeout <= 0 {
		errs = append(errs, fmt.Errorf("STORE_TIMEOUT must be positive, got %s", c.StoreTimeout))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL))
	}
	if c.RateLimitWindow <= 0 || c.RateLimitAPI <= 0 || c.RateLimitAuth <= 0 {
		errs = append(errs, errors.New("rate limits and RATE_LIMIT_WINDOW must be positive"))
	}
	return errors.Join(errs...)
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
