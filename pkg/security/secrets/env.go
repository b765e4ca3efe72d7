package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// EnvProvider reads secrets from environment variables. The name
// "github-token" with prefix "APIGATE_SECRET_" reads
// APIGATE_SECRET_GITHUB_TOKEN.
type EnvProvider struct {
	prefix string
}

// NewEnvProvider creates an EnvProvider.
func NewEnvProvider(prefix string) *EnvProvider {
	return &EnvProvider{prefix: prefix}
}

// GetSecret implements Provider.
func (p *EnvProvider) GetSecret(_ context.Context, name string) (string, error) {
	envVar := p.EnvVar(name)
	value := os.Getenv(envVar)
	if value == "" {
		return "", fmt.Errorf("%w: env var %s", ErrNotFound, envVar)
	}
	return value, nil
}

// Name implements Provider.
func (p *EnvProvider) Name() string {
	return "env"
}

// EnvVar returns the variable name consulted for a secret.
func (p *EnvProvider) EnvVar(name string) string {
	upper := strings.ToUpper(name)
	upper = strings.NewReplacer("-", "_", ".", "_").Replace(upper)
	return p.prefix + upper
}
