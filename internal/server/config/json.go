package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/credeval/internal/flagx"
	"github.com/dmitrijs2005/credeval/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "1m30s" and integer nanoseconds are accepted.
type JsonConfig struct {
	EndpointAddrGRPC            string         `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP            string         `json:"endpoint_addr_http"`
	DatabaseDSN                 string         `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	LogLevel                    string         `json:"log_level"`
	S3RootUser                  string         `json:"s3_root_user"`
	S3RootPassword              string         `json:"s3_root_password"`
	S3Bucket                    string         `json:"s3_bucket"`
	S3Region                    string         `json:"s3_region"`
	S3BaseEndpoint              string         `json:"s3_base_endpoint"`
	AMQPURL                     string         `json:"amqp_url"`
	IngestQueue                 string         `json:"ingest_queue"`
	RedisAddr                   string         `json:"redis_addr"`
	RulesCacheTTL               timex.Duration `json:"rules_cache_ttl"`
	MaxUploadSize               int64          `json:"max_upload_size"`
	MaxContentSize              int            `json:"max_content_size"`
	RenderDensity               int            `json:"render_density"`
	PageWorkers                 int            `json:"page_workers"`
	IngestWorkers               int            `json:"ingest_workers"`
	DocumentTimeout             timex.Duration `json:"document_timeout"`
	RetryAttempts               int            `json:"retry_attempts"`
	RetryBaseDelay              timex.Duration `json:"retry_base_delay"`
	UnidocLicenseKey            string         `json:"unidoc_license_key"`
	CountrySeedFile             string         `json:"country_seed_file"`
}

// parseJson overlays values from the file named by -c/-config (or
// $CREDEVAL_CONFIG). Fields absent from the file keep their current value.
// An unreadable or invalid file panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigPath()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.AMQPURL, c.AMQPURL)
	setString(&config.IngestQueue, c.IngestQueue)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.UnidocLicenseKey, c.UnidocLicenseKey)
	setString(&config.CountrySeedFile, c.CountrySeedFile)

	config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.OrDefault(config.AccessTokenValidityDuration)
	config.RulesCacheTTL = c.RulesCacheTTL.OrDefault(config.RulesCacheTTL)
	config.DocumentTimeout = c.DocumentTimeout.OrDefault(config.DocumentTimeout)
	config.RetryBaseDelay = c.RetryBaseDelay.OrDefault(config.RetryBaseDelay)

	if c.MaxUploadSize > 0 {
		config.MaxUploadSize = c.MaxUploadSize
	}
	setInt(&config.MaxContentSize, c.MaxContentSize)
	setInt(&config.RenderDensity, c.RenderDensity)
	setInt(&config.PageWorkers, c.PageWorkers)
	setInt(&config.IngestWorkers, c.IngestWorkers)
	setInt(&config.RetryAttempts, c.RetryAttempts)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}
