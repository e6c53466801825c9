package config

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// Secrets holds the credentials stored in the per-environment secret
type Secrets struct {
	OpenAIAPIKey string `json:"OPENAI_API_KEY"`
	QdrantAPIKey string `json:"QDRANT_API_KEY"`
	QdrantHost   string `json:"QDRANT_HOST"`
}

// SecretProvider resolves credentials before any client is constructed
type SecretProvider interface {
	Resolve(ctx context.Context) (*Secrets, error)
}

// SecretsManagerAPI is the subset of the Secrets Manager client used here
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSSecretProvider reads a JSON secret named "<prefix>-<environment>"
type AWSSecretProvider struct {
	client     SecretsManagerAPI
	secretName string
}

// NewAWSSecretProvider creates a provider for the given environment. In localstack
// mode the client talks to the localstack endpoint instead of AWS.
func NewAWSSecretProvider(ctx context.Context, cfg *Config) (*AWSSecretProvider, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Secrets.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := secretsmanager.NewFromConfig(awsCfg, func(o *secretsmanager.Options) {
		if cfg.Environment == EnvironmentLocalstack {
			o.BaseEndpoint = aws.String(cfg.Secrets.LocalstackEndpoint)
		}
	})

	return NewAWSSecretProviderWithClient(client, SecretName(cfg.Secrets.NamePrefix, cfg.Environment)), nil
}

// NewAWSSecretProviderWithClient creates a provider around an existing client
func NewAWSSecretProviderWithClient(client SecretsManagerAPI, secretName string) *AWSSecretProvider {
	return &AWSSecretProvider{client: client, secretName: secretName}
}

// SecretName returns the secret id for an environment
func SecretName(prefix string, env Environment) string {
	return fmt.Sprintf("%s-%s", prefix, env)
}

// Resolve fetches and decodes the secret
func (p *AWSSecretProvider) Resolve(ctx context.Context) (*Secrets, error) {
	out, err := p.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(p.secretName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get secret %s: %w", p.secretName, err)
	}

	raw := aws.ToString(out.SecretString)
	if raw == "" {
		return nil, fmt.Errorf("secret %s has no string value", p.secretName)
	}

	var secrets Secrets
	if err := json.Unmarshal([]byte(raw), &secrets); err != nil {
		return nil, fmt.Errorf("failed to decode secret %s: %w", p.secretName, err)
	}
	return &secrets, nil
}

// ResolveSecrets applies the secret for the configured environment. With no
// environment set, credentials come from plain environment variables.
func ResolveSecrets(ctx context.Context, cfg *Config, provider SecretProvider) error {
	if cfg.Environment == EnvironmentLocal || provider == nil {
		return nil
	}

	secrets, err := provider.Resolve(ctx)
	if err != nil {
		return err
	}
	cfg.ApplySecrets(secrets)
	return nil
}
