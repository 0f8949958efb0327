package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/mkuznecov/authkeeper/internal/flagx"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. Token lifetimes are given as integer minutes.
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files. After unmarshalling, its non-empty fields are copied into the
// runtime Config struct.
type JsonConfig struct {
	EndpointAddrHTTP            string   `json:"endpoint_addr_http"`
	DatabaseDSN                 string   `json:"database_dsn"`
	JWTIssuer                   string   `json:"jwt_issuer"`
	JWTAudience                 string   `json:"jwt_audience"`
	AccessTokenValidityMinutes  int      `json:"access_token_validity_minutes"`
	RefreshTokenValidityMinutes int      `json:"refresh_token_validity_minutes"`
	PrivateKeyFile              string   `json:"private_key_file"`
	S3RootUser                  string   `json:"s3_root_user"`
	S3RootPassword              string   `json:"s3_root_password"`
	S3Bucket                    string   `json:"s3_bucket"`
	S3Region                    string   `json:"s3_region"`
	S3BaseEndpoint              string   `json:"s3_base_endpoint"`
	S3PrivateKeyObject          string   `json:"s3_private_key_object"`
	CORSAllowedOrigins          []string `json:"cors_allowed_origins"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The JSON file path is taken from the -c or -config command-line flags.
// If neither is set, no JSON file is loaded. Fields absent from the file keep
// their current values. If the file cannot be read or contains invalid JSON,
// the function panics.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	if c.EndpointAddrHTTP != "" {
		config.EndpointAddrHTTP = c.EndpointAddrHTTP
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.JWTIssuer != "" {
		config.JWTIssuer = c.JWTIssuer
	}
	if c.JWTAudience != "" {
		config.JWTAudience = c.JWTAudience
	}
	if c.AccessTokenValidityMinutes > 0 {
		config.AccessTokenValidityDuration = time.Duration(c.AccessTokenValidityMinutes) * time.Minute
	}
	if c.RefreshTokenValidityMinutes > 0 {
		config.RefreshTokenValidityDuration = time.Duration(c.RefreshTokenValidityMinutes) * time.Minute
	}
	if c.PrivateKeyFile != "" {
		config.PrivateKeyFile = c.PrivateKeyFile
	}
	if c.S3RootUser != "" {
		config.S3RootUser = c.S3RootUser
	}
	if c.S3RootPassword != "" {
		config.S3RootPassword = c.S3RootPassword
	}
	if c.S3Bucket != "" {
		config.S3Bucket = c.S3Bucket
	}
	if c.S3Region != "" {
		config.S3Region = c.S3Region
	}
	if c.S3BaseEndpoint != "" {
		config.S3BaseEndpoint = c.S3BaseEndpoint
	}
	if c.S3PrivateKeyObject != "" {
		config.S3PrivateKeyObject = c.S3PrivateKeyObject
	}
	if len(c.CORSAllowedOrigins) > 0 {
		config.CORSAllowedOrigins = c.CORSAllowedOrigins
	}
}
