package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/authsvc/internal/flagx"
	"github.com/dmitrijs2005/authsvc/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations
// use timex.Duration so both "10m" and integer nanoseconds are accepted.
type JsonConfig struct {
	EndpointAddrGRPC    string         `json:"endpoint_addr_grpc"`
	MetricsAddr         string         `json:"metrics_addr"`
	UsersStore          string         `json:"users_store"`
	TokensStore         string         `json:"tokens_store"`
	CodesStore          string         `json:"codes_store"`
	DatabaseDSN         string         `json:"database_dsn"`
	RedisAddr           string         `json:"redis_addr"`
	RedisPassword       string         `json:"redis_password"`
	RedisDB             int            `json:"redis_db"`
	SecretKey           string         `json:"secret_key"`
	TokenTTL            timex.Duration `json:"token_ttl"`
	TwoFACodeTTL        timex.Duration `json:"two_fa_code_ttl"`
	HasherWorkers       int            `json:"hasher_workers"`
	MaintenanceInterval timex.Duration `json:"maintenance_interval"`
	EmailBackend        string         `json:"email_backend"`
	EmailLogCodes       bool           `json:"email_log_codes"`
	S3RootUser          string         `json:"s3_root_user"`
	S3RootPassword      string         `json:"s3_root_password"`
	S3Bucket            string         `json:"s3_bucket"`
	S3Region            string         `json:"s3_region"`
	S3BaseEndpoint      string         `json:"s3_base_endpoint"`
	LogFormat           string         `json:"log_format"`
}

func toJson(c *Config) *JsonConfig {
	return &JsonConfig{
		EndpointAddrGRPC:    c.EndpointAddrGRPC,
		MetricsAddr:         c.MetricsAddr,
		UsersStore:          c.UsersStore,
		TokensStore:         c.TokensStore,
		CodesStore:          c.CodesStore,
		DatabaseDSN:         c.DatabaseDSN,
		RedisAddr:           c.RedisAddr,
		RedisPassword:       c.RedisPassword,
		RedisDB:             c.RedisDB,
		SecretKey:           c.SecretKey,
		TokenTTL:            timex.Duration{Duration: c.TokenTTL},
		TwoFACodeTTL:        timex.Duration{Duration: c.TwoFACodeTTL},
		HasherWorkers:       c.HasherWorkers,
		MaintenanceInterval: timex.Duration{Duration: c.MaintenanceInterval},
		EmailBackend:        c.EmailBackend,
		EmailLogCodes:       c.EmailLogCodes,
		S3RootUser:          c.S3RootUser,
		S3RootPassword:      c.S3RootPassword,
		S3Bucket:            c.S3Bucket,
		S3Region:            c.S3Region,
		S3BaseEndpoint:      c.S3BaseEndpoint,
		LogFormat:           c.LogFormat,
	}
}

func (j *JsonConfig) apply(c *Config) {
	c.EndpointAddrGRPC = j.EndpointAddrGRPC
	c.MetricsAddr = j.MetricsAddr
	c.UsersStore = j.UsersStore
	c.TokensStore = j.TokensStore
	c.CodesStore = j.CodesStore
	c.DatabaseDSN = j.DatabaseDSN
	c.RedisAddr = j.RedisAddr
	c.RedisPassword = j.RedisPassword
	c.RedisDB = j.RedisDB
	c.SecretKey = j.SecretKey
	c.TokenTTL = j.TokenTTL.Duration
	c.TwoFACodeTTL = j.TwoFACodeTTL.Duration
	c.HasherWorkers = j.HasherWorkers
	c.MaintenanceInterval = j.MaintenanceInterval.Duration
	c.EmailBackend = j.EmailBackend
	c.EmailLogCodes = j.EmailLogCodes
	c.S3RootUser = j.S3RootUser
	c.S3RootPassword = j.S3RootPassword
	c.S3Bucket = j.S3Bucket
	c.S3Region = j.S3Region
	c.S3BaseEndpoint = j.S3BaseEndpoint
	c.LogFormat = j.LogFormat
}

// parseJson overlays the JSON file named by -c/-config onto config. Keys
// absent from the file keep their current values. Without the flag
// nothing is loaded.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigFilePath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	j := toJson(config)
	if err := json.Unmarshal(file, j); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	j.apply(config)

	return nil
}
