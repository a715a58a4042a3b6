package config

import (
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env       string          `yaml:"env" env-default:"local"`
	Storage   StorageConfig   `yaml:"storage"`
	Tarantool TarantoolConfig `yaml:"tarantool"`
	VoteAPI   VoteAPIConfig   `yaml:"vote_api"`
}

type StorageConfig struct {
	// Enabled turns durable poll records and the write-ahead log on.
	// When off, polls live in memory only and votes are not replayed
	// after a restart.
	Enabled bool `yaml:"enabled" env-default:"true"`
}

type TarantoolConfig struct {
	Address  string `yaml:"address" env:"TT_ADDRESS" env-default:"127.0.0.1:3301"`
	User     string `yaml:"user" env:"TT_USER" env-required:"true"`
	Password string `yaml:"password" env:"TT_PASSWORD" env-required:"true"`
}

type VoteAPIConfig struct {
	BaseURL string        `yaml:"base_url" env:"VOTE_API_URL" env-required:"true"`
	Token   string        `yaml:"token" env:"VOTE_API_TOKEN" env-required:"true"`
	Timeout time.Duration `yaml:"timeout" env-default:"5s"`
}

func Load(path string) *Config {
	var config Config
	err := cleanenv.ReadConfig(path, &config)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &config
}
