package config

import (
	"flag"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/echo/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-h string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-k string   JWT signing key
//	-i string   JWT issuer
//	-u string   JWT audience
//	-t int      access token lifetime, minutes
//	-r int      refresh token lifetime, days
//	-p duration expired refresh token purge interval (0 disables)
//	-e string   logging profile: local, dev or prod
//
// Flags not in this list are ignored, so the client and server can share
// os.Args handling through flagx.FilterArgs.
func parseFlags(config *Config) error {
	return parseFlagArgs(config, os.Args[1:])
}

func parseFlagArgs(config *Config, argv []string) error {
	args := flagx.FilterArgs(argv, []string{"-a", "-h", "-d", "-k", "-i", "-u", "-t", "-r", "-p", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "gRPC address and port to run server")
	fs.StringVar(&config.EndpointAddrHTTP, "h", config.EndpointAddrHTTP, "HTTP address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SigningKey, "k", config.SigningKey, "JWT signing key")
	fs.StringVar(&config.Issuer, "i", config.Issuer, "JWT issuer")
	fs.StringVar(&config.Audience, "u", config.Audience, "JWT audience")
	fs.StringVar(&config.Env, "e", config.Env, "logging profile")

	accessMinutes := fs.Int("t", int(config.AccessTokenLifetime/time.Minute), "access token lifetime (in minutes)")
	refreshDays := fs.Int("r", int(config.RefreshTokenLifetime/(24*time.Hour)), "refresh token lifetime (in days)")
	fs.DurationVar(&config.ExpiredTokenPurgeInterval, "p", config.ExpiredTokenPurgeInterval, "expired token purge interval")

	if err := fs.Parse(args); err != nil {
		return err
	}

	// only overwrite lifetimes that were given, so sub-minute values from
	// JSON or env survive
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenLifetime = time.Duration(*accessMinutes) * time.Minute
		case "r":
			config.RefreshTokenLifetime = time.Duration(*refreshDays) * 24 * time.Hour
		}
	})
	return nil
}
