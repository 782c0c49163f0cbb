package config

import (
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/constants"
	"github.com/driverpool/mono-repo/backend/shared/go-utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/launchdarkly/go-sdk-common/v3/ldcontext"
	ld "github.com/launchdarkly/go-server-sdk/v7"
)

type Config struct {
	OrganizationName string
	Env              string
	AppName          string
	AppPort          string
	AppUrl           string

	// Database
	DBUrl string

	// Auth
	RSAPublicKey *rsa.PublicKey

	// Twilio / SendGrid
	TwilioAccountSID     string
	TwilioAuthToken      string
	TwilioFromPhone      string
	OperatorPhone        string
	SendGridAPIKey       string
	SenderEmail          string
	VerifiedSenderDomain string

	// Send pacing. RedisAddr switches to the shared token bucket.
	RedisAddr      string
	SendRatePerSec float64
	SendDelay      time.Duration

	// LaunchDarkly flags
	LDFlag_EmailSandbox       bool
	LDFlag_SMSOperatorAlerts  bool
	LDFlag_InviteSweepEnabled bool
	LDFlag_SeedDbWithTestData bool
	LDFlag_CORSHighSecurity   bool
}

const (
	OrganizationName    = utils.OrganizationName
	LDConnectionTimeout = 5 * time.Second
	DefaultAppName      = "dispatch-service"
)

// build-time overrides
var (
	AppName             string
	LDServerContextKey  = "dispatch-service"
	LDServerContextKind = "service"
)

// LoadConfig reads the environment and flags. Any missing or inconsistent
// setting stops the process.
func LoadConfig() *Config {
	if AppName == "" {
		AppName = DefaultAppName
	}
	utils.Logger.Info("Loading config for app: ", AppName)

	cfg, err := Load()
	if err != nil {
		utils.Logger.WithError(err).Fatal("Invalid configuration")
	}
	return cfg
}

// Load is LoadConfig without the process exit.
func Load() (*Config, error) {
	cfg := &Config{
		OrganizationName:     OrganizationName,
		Env:                  os.Getenv("ENV"),
		AppName:              AppName,
		AppPort:              utils.GetEnv("APP_PORT", "8080"),
		AppUrl:               strings.TrimRight(os.Getenv("APP_URL"), "/"),
		DBUrl:                os.Getenv("DATABASE_URL"),
		TwilioAccountSID:     os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:      os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromPhone:      os.Getenv("TWILIO_FROM_PHONE"),
		OperatorPhone:        os.Getenv("OPERATOR_PHONE"),
		SendGridAPIKey:       os.Getenv("SENDGRID_API_KEY"),
		SenderEmail:          os.Getenv("SENDER_EMAIL"),
		VerifiedSenderDomain: os.Getenv("VERIFIED_SENDER_DOMAIN"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		SendRatePerSec:       utils.GetEnvFloat("SEND_RATE_PER_SEC", constants.DefaultSendRatePerSec),
		SendDelay:            time.Duration(utils.GetEnvInt("SEND_DELAY_MS", int(constants.DefaultSendDelay/time.Millisecond))) * time.Millisecond,
	}
	if cfg.AppName == "" {
		cfg.AppName = DefaultAppName
	}

	var missing []string
	for name, v := range map[string]string{
		"ENV":              cfg.Env,
		"APP_URL":          cfg.AppUrl,
		"DATABASE_URL":     cfg.DBUrl,
		"SENDGRID_API_KEY": cfg.SendGridAPIKey,
	} {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing env vars %s", utils.ErrConfiguration, strings.Join(missing, ", "))
	}

	if err := utils.ValidateSenderAddress(cfg.SenderEmail, cfg.VerifiedSenderDomain); err != nil {
		return nil, err
	}

	pub, err := parsePublicKey(os.Getenv("RSA_PUBLIC_KEY"))
	if err != nil {
		return nil, err
	}
	cfg.RSAPublicKey = pub

	if cfg.OperatorPhone != "" && !utils.IsE164(cfg.OperatorPhone) {
		return nil, fmt.Errorf("%w: OPERATOR_PHONE must be E.164", utils.ErrConfiguration)
	}

	if err := cfg.loadFlags(os.Getenv("LD_SDK_KEY")); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFlags evaluates flags once at startup. Without an SDK key every flag
// keeps its default.
func (c *Config) loadFlags(sdkKey string) error {
	c.LDFlag_EmailSandbox = c.Env != "prod"
	c.LDFlag_SMSOperatorAlerts = true
	c.LDFlag_InviteSweepEnabled = true
	c.LDFlag_SeedDbWithTestData = false
	c.LDFlag_CORSHighSecurity = c.Env == "prod"

	if sdkKey == "" {
		utils.Logger.Warn("LD_SDK_KEY not set; using default flag values")
		return nil
	}

	ldClient, err := ld.MakeClient(sdkKey, LDConnectionTimeout)
	if err != nil {
		return fmt.Errorf("%w: launchdarkly client: %v", utils.ErrConfiguration, err)
	}
	defer ldClient.Close()
	if !ldClient.Initialized() {
		return fmt.Errorf("%w: launchdarkly client failed to initialize", utils.ErrConfiguration)
	}

	ctx := ldcontext.NewWithKind(ldcontext.Kind(LDServerContextKind), LDServerContextKey)
	for _, f := range []struct {
		key string
		dst *bool
	}{
		{"dispatch_email_sandbox", &c.LDFlag_EmailSandbox},
		{"dispatch_sms_operator_alerts", &c.LDFlag_SMSOperatorAlerts},
		{"dispatch_invite_sweep_enabled", &c.LDFlag_InviteSweepEnabled},
		{"seed_db_with_test_data", &c.LDFlag_SeedDbWithTestData},
		{"cors_high_security", &c.LDFlag_CORSHighSecurity},
	} {
		v, err := ldClient.BoolVariation(f.key, ctx, *f.dst)
		if err != nil {
			return fmt.Errorf("%w: flag %s: %v", utils.ErrConfiguration, f.key, err)
		}
		utils.Logger.Debugf("%s flag: %t", f.key, v)
		*f.dst = v
	}
	return nil
}

// parsePublicKey accepts a PEM block, raw or base64 encoded.
func parsePublicKey(raw string) (*rsa.PublicKey, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: RSA_PUBLIC_KEY is missing", utils.ErrConfiguration)
	}
	pemBytes := []byte(raw)
	if !strings.Contains(raw, "BEGIN") {
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: RSA_PUBLIC_KEY is neither PEM nor base64 PEM", utils.ErrConfiguration)
		}
		pemBytes = decoded
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM(pemBytes)
	if err != nil {
		return nil, errors.Join(utils.ErrConfiguration, err)
	}
	return key, nil
}

func (c *Config) Close() {}
