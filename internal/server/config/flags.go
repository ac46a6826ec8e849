package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/docvault/internal/flagx"
)

var knownFlags = []string{
	"-a", "-d", "-s", "-t", "-m",
	"-k", "-n", "-x", "-allow-derived-keys",
	"-lockout-threshold", "-lockout-base", "-lockout-max",
	"-mfa-issuer", "-mfa-skew", "-max-upload-bytes", "-bcrypt-cost",
	"-login-rate-limit", "-login-rate-window", "-request-rate-limit", "-request-rate-window",
	"-trusted-proxies",
	"-u", "-p", "-b", "-g", "-e",
}

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string    gRPC bind address (e.g., ":50051")
//	-d string    PostgreSQL DSN
//	-s string    JWT HMAC secret key
//	-t int       session token validity, minutes
//	-m int       MFA-pending token validity, minutes
//	-k string    encryption key (hex or base64)
//	-n string    signing key (hex or base64)
//	-x string    key derivation secret
//	-allow-derived-keys=bool
//	-lockout-threshold int
//	-lockout-base duration
//	-lockout-max duration
//	-mfa-issuer string
//	-mfa-skew uint
//	-max-upload-bytes int
//	-bcrypt-cost int
//	-login-rate-limit int
//	-login-rate-window duration
//	-request-rate-limit int
//	-request-rate-window duration
//	-trusted-proxies string   comma-separated IPs or CIDRs
//	-u string    S3 root user
//	-p string    S3 root password
//	-b string    S3 bucket name
//	-g string    S3 region
//	-e string    S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// os.Args is first filtered with flagx.FilterArgs so flags owned by other
// components do not break parsing. Boolean flags must use the -flag=value
// form.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "JWT secret key")

	sessionTokenValidity := fs.Int("t", int(config.SessionTokenValidityDuration.Minutes()), "session token validity (in minutes)")
	mfaTokenValidity := fs.Int("m", int(config.MFATokenValidityDuration.Minutes()), "mfa token validity (in minutes)")

	fs.StringVar(&config.EncryptionKey, "k", config.EncryptionKey, "document encryption key")
	fs.StringVar(&config.SigningKey, "n", config.SigningKey, "document signing key")
	fs.StringVar(&config.KeyDerivationSecret, "x", config.KeyDerivationSecret, "secret for derived fallback keys")
	fs.BoolVar(&config.AllowDerivedKeys, "allow-derived-keys", config.AllowDerivedKeys, "derive missing keys from the derivation secret")

	fs.IntVar(&config.LockoutThreshold, "lockout-threshold", config.LockoutThreshold, "failed attempts before lockout")
	fs.DurationVar(&config.LockoutBaseDuration, "lockout-base", config.LockoutBaseDuration, "first lockout duration")
	fs.DurationVar(&config.LockoutMaxDuration, "lockout-max", config.LockoutMaxDuration, "lockout duration cap")

	fs.StringVar(&config.MFAIssuer, "mfa-issuer", config.MFAIssuer, "TOTP issuer label")
	fs.UintVar(&config.MFASkew, "mfa-skew", config.MFASkew, "accepted TOTP drift in steps")
	fs.Int64Var(&config.MaxUploadBytes, "max-upload-bytes", config.MaxUploadBytes, "upload size limit")
	fs.IntVar(&config.BcryptCost, "bcrypt-cost", config.BcryptCost, "bcrypt cost")

	fs.IntVar(&config.LoginRateLimit, "login-rate-limit", config.LoginRateLimit, "login calls per address per window")
	fs.DurationVar(&config.LoginRateWindow, "login-rate-window", config.LoginRateWindow, "login rate window")
	fs.IntVar(&config.RequestRateLimit, "request-rate-limit", config.RequestRateLimit, "calls per address per window")
	fs.DurationVar(&config.RequestRateWindow, "request-rate-window", config.RequestRateWindow, "request rate window")
	fs.StringVar(&config.TrustedProxies, "trusted-proxies", config.TrustedProxies, "proxies allowed to set x-forwarded-for")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SessionTokenValidityDuration = time.Duration(*sessionTokenValidity) * time.Minute
	config.MFATokenValidityDuration = time.Duration(*mfaTokenValidity) * time.Minute
}
