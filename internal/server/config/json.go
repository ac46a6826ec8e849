package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/docvault/internal/flagx"
	"github.com/dmitrijs2005/docvault/internal/timex"
)

// JsonConfig mirrors Config for JSON files. Durations use timex.Duration so
// both "15m" and integer nanoseconds are accepted. Keys absent from the file
// leave the corresponding Config field unchanged.
type JsonConfig struct {
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	SessionTokenValidityDuration timex.Duration `json:"session_token_validity_duration"`
	MFATokenValidityDuration     timex.Duration `json:"mfa_token_validity_duration"`
	EncryptionKey                string         `json:"encryption_key"`
	SigningKey                   string         `json:"signing_key"`
	KeyDerivationSecret          string         `json:"key_derivation_secret"`
	AllowDerivedKeys             *bool          `json:"allow_derived_keys"`
	LockoutThreshold             int            `json:"lockout_threshold"`
	LockoutBaseDuration          timex.Duration `json:"lockout_base_duration"`
	LockoutMaxDuration           timex.Duration `json:"lockout_max_duration"`
	MFAIssuer                    string         `json:"mfa_issuer"`
	MFASkew                      *uint          `json:"mfa_skew"`
	MaxUploadBytes               int64          `json:"max_upload_bytes"`
	BcryptCost                   int            `json:"bcrypt_cost"`
	LoginRateLimit               *int           `json:"login_rate_limit"`
	LoginRateWindow              timex.Duration `json:"login_rate_window"`
	RequestRateLimit             *int           `json:"request_rate_limit"`
	RequestRateWindow            timex.Duration `json:"request_rate_window"`
	TrustedProxies               string         `json:"trusted_proxies"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from a JSON file into config.
//
// The file path comes from -c/-config or $DOCVAULT_CONFIG (see
// flagx.JsonConfigFlags). With no path nothing is loaded. An unreadable file
// or invalid JSON panics: the server cannot start on a half-read config.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
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
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.SessionTokenValidityDuration, c.SessionTokenValidityDuration)
	setDuration(&config.MFATokenValidityDuration, c.MFATokenValidityDuration)
	setString(&config.EncryptionKey, c.EncryptionKey)
	setString(&config.SigningKey, c.SigningKey)
	setString(&config.KeyDerivationSecret, c.KeyDerivationSecret)
	if c.AllowDerivedKeys != nil {
		config.AllowDerivedKeys = *c.AllowDerivedKeys
	}
	if c.LockoutThreshold > 0 {
		config.LockoutThreshold = c.LockoutThreshold
	}
	setDuration(&config.LockoutBaseDuration, c.LockoutBaseDuration)
	setDuration(&config.LockoutMaxDuration, c.LockoutMaxDuration)
	setString(&config.MFAIssuer, c.MFAIssuer)
	if c.MFASkew != nil {
		config.MFASkew = *c.MFASkew
	}
	if c.MaxUploadBytes > 0 {
		config.MaxUploadBytes = c.MaxUploadBytes
	}
	if c.BcryptCost > 0 {
		config.BcryptCost = c.BcryptCost
	}
	if c.LoginRateLimit != nil {
		config.LoginRateLimit = *c.LoginRateLimit
	}
	setDuration(&config.LoginRateWindow, c.LoginRateWindow)
	if c.RequestRateLimit != nil {
		config.RequestRateLimit = *c.RequestRateLimit
	}
	setDuration(&config.RequestRateWindow, c.RequestRateWindow)
	setString(&config.TrustedProxies, c.TrustedProxies)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
