package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.True(t, cfg.Alert.EnableSMS)
	assert.True(t, cfg.Alert.EnableEmail)
	assert.False(t, cfg.Alert.IsolateTransportErrors)
	assert.Equal(t, EmailProviderAPI, cfg.Email.Provider)
	assert.Equal(t, "noreply@aquawatch.com", cfg.SMTP.From)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, "notifications", cfg.RabbitMQ.Queue)
	assert.False(t, cfg.Twilio.Configured())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("AQUAWATCH_ALERT_ENABLE_SMS", "false")
	t.Setenv("AQUAWATCH_ALERT_DEFAULT_PHONE", "+15550001")
	t.Setenv("AQUAWATCH_EMAIL_PROVIDER", " SMTP ")
	t.Setenv("AQUAWATCH_TWILIO_ACCOUNT_SID", "AC123")
	t.Setenv("AQUAWATCH_TWILIO_AUTH_TOKEN", "secret")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.False(t, cfg.Alert.EnableSMS)
	assert.Equal(t, "+15550001", cfg.Alert.DefaultPhone)
	assert.Equal(t, EmailProviderSMTP, cfg.Email.Provider)
	assert.True(t, cfg.Twilio.Configured())
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notify.yaml")
	content := []byte("alert:\n  default_email: ops@aquawatch.io\nsmtp:\n  host: mail.local\n  port: 2525\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, "ops@aquawatch.io", cfg.Alert.DefaultEmail)
	assert.Equal(t, "mail.local", cfg.SMTP.Host)
	assert.Equal(t, 2525, cfg.SMTP.Port)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

type fakeSecrets struct {
	value string
	err   error
	asked string
}

func (f *fakeSecrets) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.asked = aws.ToString(params.SecretId)
	if f.err != nil {
		return nil, f.err
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(f.value)}, nil
}

func TestApplySecrets(t *testing.T) {
	t.Run("no secret id leaves config untouched", func(t *testing.T) {
		client := &fakeSecrets{}
		cfg := Config{Twilio: TwilioConfig{AuthToken: "local"}}

		got, err := ApplySecrets(context.Background(), cfg, client)
		require.NoError(t, err)
		assert.Equal(t, cfg, got)
		assert.Empty(t, client.asked)
	})

	t.Run("overlays non-empty values", func(t *testing.T) {
		client := &fakeSecrets{value: `{"twilio_auth_token":"from-aws","email_api_key":"re_123"}`}
		cfg := Config{
			AWS:    AWSConfig{SecretID: "aquawatch/notify"},
			Twilio: TwilioConfig{AccountSID: "AC1", AuthToken: "local"},
			SMTP:   SMTPConfig{Password: "keep"},
		}

		got, err := ApplySecrets(context.Background(), cfg, client)
		require.NoError(t, err)
		assert.Equal(t, "aquawatch/notify", client.asked)
		assert.Equal(t, "AC1", got.Twilio.AccountSID)
		assert.Equal(t, "from-aws", got.Twilio.AuthToken)
		assert.Equal(t, "re_123", got.Email.APIKey)
		assert.Equal(t, "keep", got.SMTP.Password)
	})

	t.Run("fetch error", func(t *testing.T) {
		client := &fakeSecrets{err: errors.New("access denied")}
		cfg := Config{AWS: AWSConfig{SecretID: "x"}}

		_, err := ApplySecrets(context.Background(), cfg, client)
		assert.ErrorContains(t, err, "access denied")
	})

	t.Run("malformed secret", func(t *testing.T) {
		client := &fakeSecrets{value: "not-json"}
		cfg := Config{AWS: AWSConfig{SecretID: "x"}}

		_, err := ApplySecrets(context.Background(), cfg, client)
		assert.Error(t, err)
	})
}
