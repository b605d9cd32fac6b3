package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

var EnvFile = ".env"

func parseEnv(cfg *Config) {
	if _, err := os.Stat(EnvFile); err == nil {
		if err := godotenv.Load(EnvFile); err != nil {
			panic(err)
		}
	}

	if v, ok := os.LookupEnv("CREDEVAL_SERVER_ADDR"); ok {
		cfg.ServerEndpointAddr = v
	}
	if v, ok := os.LookupEnv("CREDEVAL_TOKEN"); ok {
		cfg.AccessToken = v
	}
	if v, ok := os.LookupEnv("CREDEVAL_SECRET_KEY"); ok {
		cfg.SecretKey = v
	}
	if v, ok := os.LookupEnv("CREDEVAL_REQUEST_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(err)
		}
		cfg.RequestTimeout = d
	}
}
