package config

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsClient is the subset of the Secrets Manager API used to fetch provider credentials.
type SecretsClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// providerSecrets is the JSON document stored under aws.secret_id.
type providerSecrets struct {
	TwilioAccountSID string `json:"twilio_account_sid"`
	TwilioAuthToken  string `json:"twilio_auth_token"`
	EmailAPIKey      string `json:"email_api_key"`
	SMTPPassword     string `json:"smtp_password"`
	JWTSecret        string `json:"jwt_secret"`
}

// NewSecretsClient builds a Secrets Manager client from the default AWS credential chain.
func NewSecretsClient(ctx context.Context, region string) (*secretsmanager.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return secretsmanager.NewFromConfig(awsCfg), nil
}

// ApplySecrets returns cfg with non-empty secret values from aws.secret_id overlaid.
func ApplySecrets(ctx context.Context, cfg Config, client SecretsClient) (Config, error) {
	if cfg.AWS.SecretID == "" {
		return cfg, nil
	}

	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(cfg.AWS.SecretID),
	})
	if err != nil {
		return cfg, fmt.Errorf("failed to fetch secret %s: %w", cfg.AWS.SecretID, err)
	}

	var s providerSecrets
	if err := json.Unmarshal([]byte(aws.ToString(out.SecretString)), &s); err != nil {
		return cfg, fmt.Errorf("failed to decode secret %s: %w", cfg.AWS.SecretID, err)
	}

	overlay(&cfg.Twilio.AccountSID, s.TwilioAccountSID)
	overlay(&cfg.Twilio.AuthToken, s.TwilioAuthToken)
	overlay(&cfg.Email.APIKey, s.EmailAPIKey)
	overlay(&cfg.SMTP.Password, s.SMTPPassword)
	overlay(&cfg.Auth.JWTSecret, s.JWTSecret)
	return cfg, nil
}

func overlay(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
