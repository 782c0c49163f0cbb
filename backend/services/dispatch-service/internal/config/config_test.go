package config

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"testing"

	"github.com/driverpool/mono-repo/backend/shared/go-utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func publicKeyPEM(t *testing.T) string {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func setValidEnv(t *testing.T) {
	t.Setenv("ENV", "dev")
	t.Setenv("APP_URL", "https://dispatch.example.com/")
	t.Setenv("DATABASE_URL", "postgres://localhost/dispatch")
	t.Setenv("SENDGRID_API_KEY", "SG.test")
	t.Setenv("SENDER_EMAIL", "dispatch@driverpool.io")
	t.Setenv("VERIFIED_SENDER_DOMAIN", "driverpool.io")
	t.Setenv("RSA_PUBLIC_KEY", publicKeyPEM(t))
	t.Setenv("LD_SDK_KEY", "")
	t.Setenv("OPERATOR_PHONE", "")
	t.Setenv("SEND_DELAY_MS", "")
}

func TestLoad_Defaults(t *testing.T) {
	setValidEnv(t)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://dispatch.example.com", cfg.AppUrl)
	assert.Equal(t, 600, int(cfg.SendDelay.Milliseconds()))
	assert.NotNil(t, cfg.RSAPublicKey)
	assert.True(t, cfg.LDFlag_EmailSandbox, "non-prod sends in sandbox")
	assert.True(t, cfg.LDFlag_InviteSweepEnabled)
	assert.False(t, cfg.LDFlag_CORSHighSecurity)
}

func TestLoad_Base64PublicKey(t *testing.T) {
	setValidEnv(t)
	t.Setenv("RSA_PUBLIC_KEY", base64.StdEncoding.EncodeToString([]byte(publicKeyPEM(t))))
	t.Setenv("SEND_DELAY_MS", "250")
	cfg, err := Load()
	require.NoError(t, err)
	assert.NotNil(t, cfg.RSAPublicKey)
	assert.Equal(t, int64(250), cfg.SendDelay.Milliseconds())
}

func TestLoad_ConfigurationErrors(t *testing.T) {
	cases := map[string]map[string]string{
		"missing database":      {"DATABASE_URL": ""},
		"sender off domain":     {"SENDER_EMAIL": "dispatch@gmail.com"},
		"missing sender domain": {"VERIFIED_SENDER_DOMAIN": ""},
		"bad public key":        {"RSA_PUBLIC_KEY": "not-a-key"},
		"bad operator phone":    {"OPERATOR_PHONE": "0151 123"},
	}
	for name, overrides := range cases {
		t.Run(name, func(t *testing.T) {
			setValidEnv(t)
			for k, v := range overrides {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.ErrorIs(t, err, utils.ErrConfiguration)
		})
	}
}
