// README: Config loader; viper with defaults, optional config.yaml, and HAILER_* env overrides.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AllocationConfig carries the dispatch tunables. Defaults match the
// production values; tests shrink the timeout to keep runs fast.
type AllocationConfig struct {
	InitialRadiusKm    float64
	RadiusIncrementKm  float64
	MaxRadiusKm        float64
	MaxDriversToNotify int
	ResponseTimeout    time.Duration
}

// RankingConfig holds the scoring weights. They should sum to 1.0 but
// nothing enforces that; operators own the tradeoff.
type RankingConfig struct {
	DistanceWeight   float64
	RatingWeight     float64
	ExperienceWeight float64
	ResponseWeight   float64
}

type RegistryConfig struct {
	FreshnessWindow time.Duration
	SnapshotEvery   time.Duration
}

type Config struct {
	HTTP struct {
		Addr string
	}
	DB struct {
		DSN string
	}
	Redis struct {
		Addr string
	}
	AMQP struct {
		URL      string
		Exchange string
	}
	Kafka struct {
		Brokers string
		Topic   string
	}
	Allocation AllocationConfig
	Ranking    RankingConfig
	Registry   RegistryConfig
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("db.dsn", "")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("amqp.url", "")
	v.SetDefault("amqp.exchange", "location_fanout")
	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "allocation_decisions")
	v.SetDefault("allocation.initialradiuskm", 2.0)
	v.SetDefault("allocation.radiusincrementkm", 1.0)
	v.SetDefault("allocation.maxradiuskm", 10.0)
	v.SetDefault("allocation.maxdriverstonotify", 5)
	v.SetDefault("allocation.responsetimeout", 15*time.Second)
	v.SetDefault("ranking.distanceweight", 0.40)
	v.SetDefault("ranking.ratingweight", 0.30)
	v.SetDefault("ranking.experienceweight", 0.20)
	v.SetDefault("ranking.responseweight", 0.10)
	v.SetDefault("registry.freshnesswindow", 30*time.Second)
	v.SetDefault("registry.snapshotevery", 60*time.Second)

	v.SetEnvPrefix("HAILER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional; defaults plus env are enough to run.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultAllocation returns the production dispatch tunables without
// touching the environment. Tests start from this and shrink the timeout.
func DefaultAllocation() AllocationConfig {
	return AllocationConfig{
		InitialRadiusKm:    2.0,
		RadiusIncrementKm:  1.0,
		MaxRadiusKm:        10.0,
		MaxDriversToNotify: 5,
		ResponseTimeout:    15 * time.Second,
	}
}
