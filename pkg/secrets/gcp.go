package secrets

import (
	"context"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/gregtusar/levgate/pkg/models"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

type secretAccessor interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (string, error)
	Close() error
}

type gcpClient struct {
	client *secretmanager.Client
}

func (c *gcpClient) AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (string, error) {
	result, err := c.client.AccessSecretVersion(ctx, req)
	if err != nil {
		return "", err
	}
	return string(result.Payload.Data), nil
}

func (c *gcpClient) Close() error {
	return c.client.Close()
}

type GCPSecretManager struct {
	client    secretAccessor
	projectID string
	names     SecretNames
	logger    *logrus.Logger
}

func NewGCPSecretManager(ctx context.Context, projectID, credentialsFile string, logger *logrus.Logger) (*GCPSecretManager, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create secretmanager client: %w", err)
	}

	return &GCPSecretManager{
		client:    &gcpClient{client: client},
		projectID: projectID,
		names:     DefaultSecretNames(),
		logger:    logger,
	}, nil
}

func (g *GCPSecretManager) GetSecret(ctx context.Context, secretName string) (string, error) {
	name := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", g.projectID, secretName)

	data, err := g.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: name,
	})
	if err != nil {
		return "", fmt.Errorf("failed to access secret %s: %w", secretName, err)
	}
	return data, nil
}

func (g *GCPSecretManager) GetSecretWithDefault(ctx context.Context, secretName, defaultValue string) string {
	value, err := g.GetSecret(ctx, secretName)
	if err != nil {
		g.logger.WithError(err).WithField("secret", secretName).Debug("Failed to get secret, using default")
		return defaultValue
	}
	return strings.TrimSpace(value)
}

// Resolve reads the exchange's secrets. Lookup failures count as absent so a
// missing secret routes the order to test mode instead of failing it.
func (g *GCPSecretManager) Resolve(ctx context.Context, exchange models.ExchangeID) (Credentials, bool) {
	creds := Credentials{
		APIKey:     g.GetSecretWithDefault(ctx, g.names.name(g.names.APIKey, exchange), ""),
		APISecret:  g.GetSecretWithDefault(ctx, g.names.name(g.names.APISecret, exchange), ""),
		Passphrase: g.GetSecretWithDefault(ctx, g.names.name(g.names.Passphrase, exchange), ""),
	}
	return creds, creds.Complete()
}

func (g *GCPSecretManager) Close() error {
	return g.client.Close()
}

// SecretNames holds fmt patterns; %s is replaced by the exchange identifier.
type SecretNames struct {
	APIKey     string `mapstructure:"api_key"`
	APISecret  string `mapstructure:"api_secret"`
	Passphrase string `mapstructure:"passphrase"`
}

func DefaultSecretNames() SecretNames {
	return SecretNames{
		APIKey:     "%s-api-key",
		APISecret:  "%s-api-secret",
		Passphrase: "%s-api-passphrase",
	}
}

func (n SecretNames) name(pattern string, exchange models.ExchangeID) string {
	return fmt.Sprintf(pattern, string(exchange))
}

// WithSecretNames overrides the default naming patterns.
func (g *GCPSecretManager) WithSecretNames(names SecretNames) *GCPSecretManager {
	if names.APIKey != "" {
		g.names.APIKey = names.APIKey
	}
	if names.APISecret != "" {
		g.names.APISecret = names.APISecret
	}
	if names.Passphrase != "" {
		g.names.Passphrase = names.Passphrase
	}
	return g
}
