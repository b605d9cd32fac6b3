package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvFile is loaded if present; variables already set in the process
// environment win over the file.
var EnvFile = ".env"

// parseEnv overlays CREDEVAL_* environment variables. Unparsable numeric
// values panic, like malformed JSON does.
func parseEnv(config *Config) {
	if _, err := os.Stat(EnvFile); err == nil {
		if err := godotenv.Load(EnvFile); err != nil {
			panic(err)
		}
	}

	envString("CREDEVAL_GRPC_ADDR", &config.EndpointAddrGRPC)
	envString("CREDEVAL_HTTP_ADDR", &config.EndpointAddrHTTP)
	envString("CREDEVAL_DATABASE_DSN", &config.DatabaseDSN)
	envString("CREDEVAL_SECRET_KEY", &config.SecretKey)
	envString("CREDEVAL_LOG_LEVEL", &config.LogLevel)
	envString("CREDEVAL_S3_ROOT_USER", &config.S3RootUser)
	envString("CREDEVAL_S3_ROOT_PASSWORD", &config.S3RootPassword)
	envString("CREDEVAL_S3_BUCKET", &config.S3Bucket)
	envString("CREDEVAL_S3_REGION", &config.S3Region)
	envString("CREDEVAL_S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
	envString("CREDEVAL_AMQP_URL", &config.AMQPURL)
	envString("CREDEVAL_INGEST_QUEUE", &config.IngestQueue)
	envString("CREDEVAL_REDIS_ADDR", &config.RedisAddr)
	envString("CREDEVAL_UNIDOC_LICENSE_KEY", &config.UnidocLicenseKey)
	envString("CREDEVAL_COUNTRY_SEED_FILE", &config.CountrySeedFile)

	envDuration("CREDEVAL_ACCESS_TOKEN_VALIDITY", &config.AccessTokenValidityDuration)
	envDuration("CREDEVAL_RULES_CACHE_TTL", &config.RulesCacheTTL)
	envDuration("CREDEVAL_DOCUMENT_TIMEOUT", &config.DocumentTimeout)
	envDuration("CREDEVAL_RETRY_BASE_DELAY", &config.RetryBaseDelay)

	if v, ok := os.LookupEnv("CREDEVAL_MAX_UPLOAD_SIZE"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			panic(err)
		}
		config.MaxUploadSize = n
	}
	envInt("CREDEVAL_MAX_CONTENT_SIZE", &config.MaxContentSize)
	envInt("CREDEVAL_RENDER_DENSITY", &config.RenderDensity)
	envInt("CREDEVAL_PAGE_WORKERS", &config.PageWorkers)
	envInt("CREDEVAL_INGEST_WORKERS", &config.IngestWorkers)
	envInt("CREDEVAL_RETRY_ATTEMPTS", &config.RetryAttempts)
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(err)
		}
		*dst = n
	}
}

func envDuration(key string, dst *time.Duration) {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(err)
		}
		*dst = d
	}
}
