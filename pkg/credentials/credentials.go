// Package credentials stores provider API keys in credentials.toml inside the
// .memhandler/ directory. Stored keys are the last fallback after explicit
// configuration and the process environment.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/Sakibyash/infinoz-bot1/pkg/dotdir"
)

const (
	credentialsFile = "credentials.toml"

	currentVersion = 0
)

// providerEnvVars maps provider names to the environment variable they stand in for.
var providerEnvVars = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"mem0":      "MEM0_API_KEY",
}

// Credentials is the on-disk layout of credentials.toml:
//
//	version = 0
//	[providers.mem0]
//	api_key = "m0-..."
type Credentials struct {
	Version   int                    `toml:"version"`
	Providers map[string]ProviderKey `toml:"providers"`
}

// ProviderKey is the stored key of one provider.
type ProviderKey struct {
	APIKey string `toml:"api_key"`
}

// Manager manages reading and writing credentials.toml.
type Manager struct {
	targetPath string
}

// NewManager creates a new credentials Manager. If override is non-empty it is
// used as the .memhandler/ directory; otherwise the standard dotdir resolution
// applies. When no directory is found, ~/.memhandler/ is created.
func NewManager(override string) (*Manager, error) {
	target, err := dotdir.NewManager().Target(override)
	if err != nil {
		return nil, err
	}

	if target == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home dir: %w", err)
		}
		target = filepath.Join(home, dotdir.DirName)
		if err := os.MkdirAll(target, 0o755); err != nil {
			return nil, fmt.Errorf("creating memhandler dir: %w", err)
		}
	}

	return &Manager{targetPath: filepath.Join(target, credentialsFile)}, nil
}

// Load reads credentials.toml from the target directory.
// Returns an empty Credentials if the file does not exist.
func (m *Manager) Load() (*Credentials, error) {
	data, err := os.ReadFile(m.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Credentials{
				Version:   currentVersion,
				Providers: make(map[string]ProviderKey),
			}, nil
		}
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	creds := &Credentials{}
	if err := toml.Unmarshal(data, creds); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	if creds.Providers == nil {
		creds.Providers = make(map[string]ProviderKey)
	}

	return creds, nil
}

// Save writes credentials to credentials.toml with 0600 permissions.
func (m *Manager) Save(creds *Credentials) error {
	if creds == nil {
		return errors.New("cannot save nil credentials")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(creds); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	if err := os.WriteFile(m.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}

	return nil
}

// SetKey stores an API key for the given provider.
func (m *Manager) SetKey(provider, key string) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}

	creds.Providers[provider] = ProviderKey{APIKey: key}

	return m.Save(creds)
}

// GetKey returns the stored API key for the given provider, or "" if none.
func (m *Manager) GetKey(provider string) (string, error) {
	creds, err := m.Load()
	if err != nil {
		return "", err
	}

	return creds.Providers[provider].APIKey, nil
}

// RemoveKey deletes the stored credential for a provider.
func (m *Manager) RemoveKey(provider string) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}

	delete(creds.Providers, provider)

	return m.Save(creds)
}

// ListProviders returns the names of providers that have stored credentials.
func (m *Manager) ListProviders() ([]string, error) {
	creds, err := m.Load()
	if err != nil {
		return nil, err
	}

	providers := make([]string, 0, len(creds.Providers))
	for name := range creds.Providers {
		providers = append(providers, name)
	}

	sort.Strings(providers)

	return providers, nil
}

// GetTarget returns the resolved path to the credentials file.
func (m *Manager) GetTarget() string {
	return m.targetPath
}

// Getenv returns a lookup that consults base first and falls back to the
// stored key of the provider owning the variable. Unreadable credential
// files are treated as empty.
func (m *Manager) Getenv(base func(string) string) func(string) string {
	if base == nil {
		base = os.Getenv
	}

	byEnv := make(map[string]string, len(providerEnvVars))
	for provider, env := range providerEnvVars {
		byEnv[env] = provider
	}

	return func(key string) string {
		if v := base(key); v != "" {
			return v
		}

		provider, ok := byEnv[key]
		if !ok {
			return ""
		}

		stored, err := m.GetKey(provider)
		if err != nil {
			return ""
		}
		return stored
	}
}

// EnvVarForProvider returns the environment variable name for a given provider.
// Returns an empty string for unknown providers.
func EnvVarForProvider(provider string) string {
	return providerEnvVars[provider]
}

// SupportedProviders returns the list of providers that take API keys.
func SupportedProviders() []string {
	return []string{"anthropic", "mem0", "openai"}
}

// IsSupportedProvider returns true if the given provider is supported.
func IsSupportedProvider(provider string) bool {
	return slices.Contains(SupportedProviders(), provider)
}

// EnvLookup returns os.Getenv layered over the credentials stored in the
// resolved .memhandler/ directory. When no directory resolves, os.Getenv is
// returned unchanged and nothing is created.
func EnvLookup(configDir string) func(string) string {
	target, err := dotdir.NewManager().Target(configDir)
	if err != nil || target == "" {
		return os.Getenv
	}

	mgr, err := NewManager(target)
	if err != nil {
		return os.Getenv
	}

	return mgr.Getenv(os.Getenv)
}
