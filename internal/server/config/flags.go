package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/authsvc/internal/flagx"
)

// newFlagSet registers every server flag on a fresh FlagSet bound to config.
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-m string   metrics/health bind address
//	-users-store, -tokens-store, -codes-store string   store backends
//	-d string   PostgreSQL DSN
//	-r string   Redis address; -w password; -n database
//	-s string   JWT HMAC secret key
//	-t duration session token lifetime
//	-o duration 2FA challenge lifetime
//	-j int      hasher workers
//	-i duration maintenance interval
//	-e string   email backend
//	-email-log-codes  print 2FA codes in the email log (development only)
//	-u, -p, -b, -g, -x  S3 user, password, bucket, region, endpoint
//	-l string   log format
//	-migrate-only
func newFlagSet(config *Config) *flag.FlagSet {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.MetricsAddr, "m", config.MetricsAddr, "address for metrics and health endpoints")
	fs.StringVar(&config.UsersStore, "users-store", config.UsersStore, "users store backend (memory|postgres)")
	fs.StringVar(&config.TokensStore, "tokens-store", config.TokensStore, "banned tokens store backend (memory|postgres|redis)")
	fs.StringVar(&config.CodesStore, "codes-store", config.CodesStore, "2FA codes store backend (memory|redis)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.RedisPassword, "w", config.RedisPassword, "redis password")
	fs.IntVar(&config.RedisDB, "n", config.RedisDB, "redis database number")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.DurationVar(&config.TokenTTL, "t", config.TokenTTL, "session token lifetime")
	fs.DurationVar(&config.TwoFACodeTTL, "o", config.TwoFACodeTTL, "2FA code lifetime")
	fs.IntVar(&config.HasherWorkers, "j", config.HasherWorkers, "concurrent password hash jobs")
	fs.DurationVar(&config.MaintenanceInterval, "i", config.MaintenanceInterval, "janitor and purge interval")
	fs.StringVar(&config.EmailBackend, "e", config.EmailBackend, "email backend (log|s3)")
	fs.BoolVar(&config.EmailLogCodes, "email-log-codes", config.EmailLogCodes, "log emails unmasked (development only)")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "x", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.LogFormat, "l", config.LogFormat, "log format (json|text)")
	fs.BoolVar(&config.MigrateOnly, "migrate-only", config.MigrateOnly, "run database migrations and exit")

	return fs
}

// parseFlags overlays command-line flags onto config. Arguments that are
// not server flags (such as -c) are filtered out first.
func parseFlags(config *Config, args []string) error {
	fs := newFlagSet(config)
	return fs.Parse(flagx.FilterArgs(args, flagx.DefinedFlags(fs)))
}
