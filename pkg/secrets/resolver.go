package secrets

import (
	"context"
	"os"
	"strings"

	"github.com/gregtusar/levgate/pkg/models"
)

type Credentials struct {
	APIKey     string
	APISecret  string
	Passphrase string
}

// Complete reports whether both the key and the secret are set. The
// passphrase is optional.
func (c Credentials) Complete() bool {
	return c.APIKey != "" && c.APISecret != ""
}

// Resolver looks up API credentials for an exchange. A false return means the
// exchange has no usable credentials, which callers treat as test mode.
type Resolver interface {
	Resolve(ctx context.Context, exchange models.ExchangeID) (Credentials, bool)
}

// EnvKey builds names like BYBIT_API_KEY.
func EnvKey(exchange models.ExchangeID, suffix string) string {
	return strings.ToUpper(string(exchange)) + "_" + suffix
}

type EnvResolver struct {
	lookup func(string) (string, bool)
}

func NewEnvResolver() *EnvResolver {
	return &EnvResolver{lookup: os.LookupEnv}
}

// NewEnvResolverWithLookup lets tests supply variables without touching the
// process environment.
func NewEnvResolverWithLookup(lookup func(string) (string, bool)) *EnvResolver {
	return &EnvResolver{lookup: lookup}
}

func (e *EnvResolver) Resolve(_ context.Context, exchange models.ExchangeID) (Credentials, bool) {
	creds := Credentials{
		APIKey:     e.get(EnvKey(exchange, "API_KEY")),
		APISecret:  e.get(EnvKey(exchange, "API_SECRET")),
		Passphrase: e.get(EnvKey(exchange, "API_PASSPHRASE")),
	}
	return creds, creds.Complete()
}

func (e *EnvResolver) get(key string) string {
	value, ok := e.lookup(key)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

type StaticResolver map[models.ExchangeID]Credentials

func (s StaticResolver) Resolve(_ context.Context, exchange models.ExchangeID) (Credentials, bool) {
	creds, ok := s[exchange]
	if !ok || !creds.Complete() {
		return Credentials{}, false
	}
	return creds, true
}

// ChainResolver returns the first complete set of credentials.
type ChainResolver []Resolver

func (c ChainResolver) Resolve(ctx context.Context, exchange models.ExchangeID) (Credentials, bool) {
	for _, r := range c {
		if creds, ok := r.Resolve(ctx, exchange); ok {
			return creds, true
		}
	}
	return Credentials{}, false
}
