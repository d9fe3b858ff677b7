package config

import (
	"flag"

	"github.com/dmitrijs2005/paleolab/internal/flagx"
)

var (
	valuedFlags  = []string{"a", "g", "d", "s", "t", "store", "redis", "u", "p", "b", "r", "e", "env", "log-level"}
	booleanFlags = []string{"core-admin", "secure-cookies"}
)

// parseFlags applies the server's command-line flags onto config.
//
//	-a        HTTP listen address
//	-g        gRPC health listen address
//	-d        PostgreSQL DSN
//	-s        session token secret
//	-t        session lifetime (e.g. "12h")
//	-store    session store: postgres or redis
//	-redis    Redis address
//	-u/-p     S3 user and password
//	-b/-r/-e  S3 bucket, region and endpoint
//	-env      environment profile
//	-log-level
//	-core-admin      require admin for core mutations
//	-secure-cookies  mark the session cookie Secure
func parseFlags(config *Config, args []string) error {
	args = flagx.NewFilter(valuedFlags, booleanFlags...).Apply(args)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP listen address")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "gRPC health listen address")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "session token secret")
	fs.DurationVar(&config.SessionTTL, "t", config.SessionTTL, "session lifetime")
	fs.StringVar(&config.SessionStore, "store", config.SessionStore, "session store (postgres|redis)")
	fs.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "Redis address")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 archive bucket")
	fs.StringVar(&config.S3Region, "r", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.Environment, "env", config.Environment, "environment profile")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")
	fs.BoolVar(&config.CoreMutationsRequireAdmin, "core-admin", config.CoreMutationsRequireAdmin, "require admin for core mutations")
	fs.BoolVar(&config.SecureCookies, "secure-cookies", config.SecureCookies, "mark session cookie Secure")

	return fs.Parse(args)
}
