package config

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppEnv         string  `mapstructure:"APP_ENV"`
	Port           string  `mapstructure:"PORT"`
	DatabaseURL    string  `mapstructure:"DATABASE_URL"`
	MigrationsPath string  `mapstructure:"MIGRATIONS_PATH"`
	RedisURL       string  `mapstructure:"REDIS_URL"`
	RedisPassword  string  `mapstructure:"REDIS_PASSWORD"`
	NATSURL        string  `mapstructure:"NATS_URL"`
	SessionSecret  string  `mapstructure:"SESSION_SECRET"`
	SessionMaxAge  int     `mapstructure:"SESSION_MAX_AGE"`
	GeoIPDBPath    string  `mapstructure:"GEOIP_DB_PATH"`
	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`
	FeedSize       int     `mapstructure:"FEED_SIZE"`
}

func LoadConfig() (config Config, err error) {
	// .env is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	viper.SetDefault("APP_ENV", "local")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DATABASE_URL", "sqlite://warbler.db")
	viper.SetDefault("MIGRATIONS_PATH", "file://migration")
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("NATS_URL", "")
	viper.SetDefault("SESSION_SECRET", "it's a secret")
	viper.SetDefault("SESSION_MAX_AGE", 3600*16)
	viper.SetDefault("GEOIP_DB_PATH", "./geoip/GeoLite2-City.mmdb")
	viper.SetDefault("RATE_LIMIT_RPS", 5)
	viper.SetDefault("RATE_LIMIT_BURST", 10)
	viper.SetDefault("FEED_SIZE", 100)

	viper.AutomaticEnv()

	err = viper.Unmarshal(&config)
	if err != nil {
		log.Printf("unable to decode into struct, %v", err)
		return
	}

	return
}

func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}
