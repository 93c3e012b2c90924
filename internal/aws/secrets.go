package aws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// AirtableConfig holds the downstream record API credentials stored in Secrets Manager.
type AirtableConfig struct {
	Token  string `json:"token"`
	BaseID string `json:"base_id"`
}

// SecretsProvider reads JSON secrets from Secrets Manager.
type SecretsProvider struct {
	client SecretsManagerAPI
}

// NewSecretsProvider returns a provider backed by the given Secrets Manager client.
func NewSecretsProvider(client SecretsManagerAPI) *SecretsProvider {
	return &SecretsProvider{client: client}
}

func (p *SecretsProvider) secretJSON(ctx context.Context, secretName string, out interface{}) error {
	resp, err := p.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &secretName,
	})
	if err != nil {
		return fmt.Errorf("get secret %q: %w", secretName, err)
	}
	if resp.SecretString == nil {
		return fmt.Errorf("secret %q has no string value", secretName)
	}
	if err := json.Unmarshal([]byte(*resp.SecretString), out); err != nil {
		return fmt.Errorf("decode secret %q: %w", secretName, err)
	}
	return nil
}

// AirtableConfig fetches and validates the record API credentials. Both the
// token and the base id must be present; processing cannot proceed without them.
func (p *SecretsProvider) AirtableConfig(ctx context.Context, secretName string) (*AirtableConfig, error) {
	var cfg AirtableConfig
	if err := p.secretJSON(ctx, secretName, &cfg); err != nil {
		return nil, err
	}
	if cfg.Token == "" || cfg.BaseID == "" {
		return nil, fmt.Errorf("secret %q is missing token or base_id", secretName)
	}
	return &cfg, nil
}

// APIKey fetches the shared API key used by the request authorizer.
func (p *SecretsProvider) APIKey(ctx context.Context, secretName string) (string, error) {
	var s struct {
		APIKey string `json:"api_key"`
	}
	if err := p.secretJSON(ctx, secretName, &s); err != nil {
		return "", err
	}
	return s.APIKey, nil
}
