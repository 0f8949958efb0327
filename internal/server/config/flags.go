package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/mkuznecov/authkeeper/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string    HTTP bind address (e.g., ":8080")
//	-d string    PostgreSQL DSN
//	-iss string  JWT issuer claim
//	-aud string  JWT audience claim
//	-t int       access token validity, minutes
//	-r int       refresh token validity, minutes
//	-k string    path to PEM-encoded RSA private key
//	-b string    S3 bucket holding the signing key ("" disables the S3 source)
//	-o string    S3 object key of the signing key
//	-g string    S3 region
//	-e string    S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-u string    S3 root user
//	-p string    S3 root password
//	-cors string comma-separated allowed CORS origins
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers in minutes and then converted
//     to time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-d", "-iss", "-aud", "-t", "-r", "-k", "-b", "-o", "-g", "-e", "-u", "-p", "-cors",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.JWTIssuer, "iss", config.JWTIssuer, "JWT issuer claim")
	fs.StringVar(&config.JWTAudience, "aud", config.JWTAudience, "JWT audience claim")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")

	fs.StringVar(&config.PrivateKeyFile, "k", config.PrivateKeyFile, "PEM-encoded RSA private key file")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket with signing key")
	fs.StringVar(&config.S3PrivateKeyObject, "o", config.S3PrivateKeyObject, "S3 object key of signing key")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")

	corsOrigins := fs.String("cors", strings.Join(config.CORSAllowedOrigins, ","), "comma-separated allowed CORS origins")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
	config.CORSAllowedOrigins = strings.Split(*corsOrigins, ",")
}
