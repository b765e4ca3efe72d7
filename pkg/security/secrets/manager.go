package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"mercator-hq/apigate/pkg/config"
)

var secretRefRegex = regexp.MustCompile(`\$\{secret:([^}]+)\}`)

// Manager looks secrets up across providers in order and caches hits.
type Manager struct {
	providers []Provider
	cache     *ttlcache.Cache[string, string]
	logger    *slog.Logger
}

// NewManager creates a Manager. A zero ttl disables caching.
func NewManager(ttl time.Duration, providers ...Provider) *Manager {
	m := &Manager{
		providers: providers,
		logger:    slog.Default().With("component", "secrets"),
	}
	if ttl > 0 {
		m.cache = ttlcache.New(
			ttlcache.WithTTL[string, string](ttl),
			ttlcache.WithDisableTouchOnHit[string, string](),
		)
	}
	return m
}

// NewManagerFromConfig builds the env provider and, when a directory is
// configured, the file provider.
func NewManagerFromConfig(cfg config.SecretsConfig) (*Manager, error) {
	providers := []Provider{NewEnvProvider(cfg.EnvPrefix)}
	if cfg.Dir != "" {
		fp, err := NewFileProvider(cfg.Dir)
		if err != nil {
			return nil, err
		}
		providers = append(providers, fp)
	}
	return NewManager(cfg.CacheTTL, providers...), nil
}

// GetSecret returns the first value any provider has for name.
func (m *Manager) GetSecret(ctx context.Context, name string) (string, error) {
	if m.cache != nil {
		if item := m.cache.Get(name); item != nil {
			return item.Value(), nil
		}
	}

	var errs []error
	for _, p := range m.providers {
		value, err := p.GetSecret(ctx, name)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				m.logger.Warn("secret provider failed", "provider", p.Name(), "error", err)
			}
			errs = append(errs, err)
			continue
		}
		if m.cache != nil {
			m.cache.Set(name, value, ttlcache.DefaultTTL)
		}
		m.logger.Debug("secret resolved", "provider", p.Name())
		return value, nil
	}

	if len(errs) == 0 {
		return "", &ResolveError{Name: name, Err: ErrNotFound}
	}
	return "", &ResolveError{Name: name, Err: errors.Join(errs...)}
}

// ResolveReferences replaces every ${secret:name} in input. Unresolved
// references are left in place and reported together.
func (m *Manager) ResolveReferences(ctx context.Context, input string) (string, error) {
	var errs []error
	output := secretRefRegex.ReplaceAllStringFunc(input, func(match string) string {
		name := secretRefRegex.FindStringSubmatch(match)[1]
		value, err := m.GetSecret(ctx, name)
		if err != nil {
			errs = append(errs, err)
			return match
		}
		return value
	})
	if len(errs) > 0 {
		return output, fmt.Errorf("failed to resolve secret references: %w", errors.Join(errs...))
	}
	return output, nil
}

// Invalidate drops all cached values.
func (m *Manager) Invalidate() {
	if m.cache != nil {
		m.cache.DeleteAll()
	}
}

// HasReference reports whether s contains a ${secret:...} reference.
func HasReference(s string) bool {
	return secretRefRegex.MatchString(s)
}
