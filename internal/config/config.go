package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Storage   StorageConfig
	Engine    EngineConfig
	Worker    WorkerConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Root        string
	StemFormat  string
	MaxUploadMB int
}

type EngineConfig struct {
	ServiceURL string
	Timeout    int // seconds
	SampleRate int
}

// WorkerConfig controls how jobs are executed. Mode "push" consumes the
// Asynq queue; mode "poll" scans the job store for queued rows instead.
type WorkerConfig struct {
	Mode           string
	Concurrency    int
	PollInterval   int // seconds, poll mode only
	MaxRetry       int
	RetryBaseDelay int // seconds
	RetryMaxDelay  int // seconds
	HardTimeLimit  int // seconds
	SoftTimeLimit  int // seconds
}

type RateLimitConfig struct {
	UploadPerHour int
	JobsPerHour   int
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("storage.root", "STORAGE_ROOT")
	_ = viper.BindEnv("storage.stem_format", "STEM_FORMAT")
	_ = viper.BindEnv("storage.max_upload_mb", "MAX_UPLOAD_MB")
	_ = viper.BindEnv("engine.service_url", "ENGINE_SERVICE_URL")
	_ = viper.BindEnv("engine.timeout", "ENGINE_TIMEOUT")
	_ = viper.BindEnv("engine.sample_rate", "ENGINE_SAMPLE_RATE")
	_ = viper.BindEnv("worker.mode", "WORKER_MODE")
	_ = viper.BindEnv("worker.concurrency", "WORKER_CONCURRENCY")
	_ = viper.BindEnv("worker.poll_interval", "WORKER_POLL_INTERVAL")
	_ = viper.BindEnv("worker.max_retry", "WORKER_MAX_RETRY")
	_ = viper.BindEnv("worker.retry_base_delay", "WORKER_RETRY_BASE_DELAY")
	_ = viper.BindEnv("worker.retry_max_delay", "WORKER_RETRY_MAX_DELAY")
	_ = viper.BindEnv("worker.hard_time_limit", "WORKER_HARD_TIME_LIMIT")
	_ = viper.BindEnv("worker.soft_time_limit", "WORKER_SOFT_TIME_LIMIT")
	_ = viper.BindEnv("ratelimit.upload_per_hour", "RATELIMIT_UPLOAD_PER_HOUR")
	_ = viper.BindEnv("ratelimit.jobs_per_hour", "RATELIMIT_JOBS_PER_HOUR")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("storage.root", "./tmp")
	viper.SetDefault("storage.stem_format", "wav")
	viper.SetDefault("storage.max_upload_mb", 50)
	viper.SetDefault("engine.service_url", "http://localhost:8084")
	viper.SetDefault("engine.timeout", 3300)
	viper.SetDefault("engine.sample_rate", 44100)
	viper.SetDefault("worker.mode", "push")
	viper.SetDefault("worker.concurrency", 1)
	viper.SetDefault("worker.poll_interval", 5)
	viper.SetDefault("worker.max_retry", 3)
	viper.SetDefault("worker.retry_base_delay", 2)
	viper.SetDefault("worker.retry_max_delay", 600)
	viper.SetDefault("worker.hard_time_limit", 3600)
	viper.SetDefault("worker.soft_time_limit", 3300)
	viper.SetDefault("ratelimit.upload_per_hour", 50)
	viper.SetDefault("ratelimit.jobs_per_hour", 20)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Storage: StorageConfig{
			Root:        viper.GetString("storage.root"),
			StemFormat:  viper.GetString("storage.stem_format"),
			MaxUploadMB: viper.GetInt("storage.max_upload_mb"),
		},
		Engine: EngineConfig{
			ServiceURL: viper.GetString("engine.service_url"),
			Timeout:    viper.GetInt("engine.timeout"),
			SampleRate: viper.GetInt("engine.sample_rate"),
		},
		Worker: WorkerConfig{
			Mode:           viper.GetString("worker.mode"),
			Concurrency:    viper.GetInt("worker.concurrency"),
			PollInterval:   viper.GetInt("worker.poll_interval"),
			MaxRetry:       viper.GetInt("worker.max_retry"),
			RetryBaseDelay: viper.GetInt("worker.retry_base_delay"),
			RetryMaxDelay:  viper.GetInt("worker.retry_max_delay"),
			HardTimeLimit:  viper.GetInt("worker.hard_time_limit"),
			SoftTimeLimit:  viper.GetInt("worker.soft_time_limit"),
		},
		RateLimit: RateLimitConfig{
			UploadPerHour: viper.GetInt("ratelimit.upload_per_hour"),
			JobsPerHour:   viper.GetInt("ratelimit.jobs_per_hour"),
		},
	}

	return cfg, nil
}
