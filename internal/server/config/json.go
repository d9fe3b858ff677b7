package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/paleolab/internal/flagx"
	"github.com/dmitrijs2005/paleolab/internal/timex"
)

// JsonConfig mirrors Config for JSON files. Pointer fields distinguish
// "absent" from a zero value so a partial file only overrides what it sets.
type JsonConfig struct {
	Environment               *string         `json:"environment"`
	HTTPAddr                  *string         `json:"http_addr"`
	GRPCAddr                  *string         `json:"grpc_addr"`
	DatabaseDSN               *string         `json:"database_dsn"`
	SecretKey                 *string         `json:"secret_key"`
	SessionTTL                *timex.Duration `json:"session_ttl"`
	SessionStore              *string         `json:"session_store"`
	SecureCookies             *bool           `json:"secure_cookies"`
	RedisAddr                 *string         `json:"redis_addr"`
	RedisPassword             *string         `json:"redis_password"`
	RedisDB                   *int            `json:"redis_db"`
	S3RootUser                *string         `json:"s3_root_user"`
	S3RootPassword            *string         `json:"s3_root_password"`
	S3Bucket                  *string         `json:"s3_bucket"`
	S3Region                  *string         `json:"s3_region"`
	S3BaseEndpoint            *string         `json:"s3_base_endpoint"`
	ArchivePresignTTL         *timex.Duration `json:"archive_presign_ttl"`
	CoreMutationsRequireAdmin *bool           `json:"core_mutations_require_admin"`
	LogLevel                  *string         `json:"log_level"`
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// parseJson loads the file named by -c/-config, if any, onto config.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	set(&config.Environment, c.Environment)
	set(&config.HTTPAddr, c.HTTPAddr)
	set(&config.GRPCAddr, c.GRPCAddr)
	set(&config.DatabaseDSN, c.DatabaseDSN)
	set(&config.SecretKey, c.SecretKey)
	set(&config.SessionStore, c.SessionStore)
	set(&config.SecureCookies, c.SecureCookies)
	set(&config.RedisAddr, c.RedisAddr)
	set(&config.RedisPassword, c.RedisPassword)
	set(&config.RedisDB, c.RedisDB)
	set(&config.S3RootUser, c.S3RootUser)
	set(&config.S3RootPassword, c.S3RootPassword)
	set(&config.S3Bucket, c.S3Bucket)
	set(&config.S3Region, c.S3Region)
	set(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	set(&config.CoreMutationsRequireAdmin, c.CoreMutationsRequireAdmin)
	set(&config.LogLevel, c.LogLevel)

	if c.SessionTTL != nil {
		config.SessionTTL = c.SessionTTL.Duration
	}
	if c.ArchivePresignTTL != nil {
		config.ArchivePresignTTL = c.ArchivePresignTTL.Duration
	}
	return nil
}
