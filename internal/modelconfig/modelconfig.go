// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package modelconfig resolves model profiles: the {base URL, API key,
// model ID, headers, parameters} bundle a generation call needs. Profiles
// are declared in a YAML registry file; API keys come from the secrets
// directory unless inlined. Resolution is cached, so a pipeline run reads
// shared configuration once and never mutates it.
package modelconfig

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"go.yaml.in/yaml/v3"
)

// ErrNoProfile is returned when the requested model has no usable profile.
// The orchestrator fails fast on this before emitting any event.
var ErrNoProfile = errors.New("no model profile available")

// Profile is a fully resolved model configuration.
type Profile struct {
	// Name is the registry key the profile was resolved under.
	Name string `yaml:"-"`

	// BaseURL is the chat-completions endpoint base (e.g.
	// "https://api.openai.com/v1").
	BaseURL string `yaml:"base_url"`

	// ModelID is the provider-side model identifier.
	ModelID string `yaml:"model_id"`

	// APIKey authenticates the call. Usually filled from the secrets
	// directory via APIKeySecret.
	APIKey string `yaml:"api_key,omitempty"`

	// APIKeySecret names the secrets-directory file holding the key.
	APIKeySecret string `yaml:"api_key_secret,omitempty"`

	// Headers are extra HTTP headers sent with every call.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Temperature is the default sampling temperature.
	Temperature float64 `yaml:"temperature"`

	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int `yaml:"max_tokens"`
}

// registryFile mirrors models.yaml.
type registryFile struct {
	Default  string             `yaml:"default"`
	Profiles map[string]Profile `yaml:"profiles"`
}

// Registry resolves profile names to Profiles. Safe for concurrent use;
// resolution results are cached for the process lifetime.
type Registry struct {
	defaultName string
	profiles    map[string]Profile
	secrets     map[string]string

	mu    sync.RWMutex
	cache map[string]Profile
}

// Load reads the registry file at path and overlays API keys from secrets.
func Load(path string, secrets map[string]string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model registry %s: %w", path, err)
	}

	var rf registryFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing model registry: %w", err)
	}
	if len(rf.Profiles) == 0 {
		return nil, fmt.Errorf("model registry %s declares no profiles", path)
	}

	return &Registry{
		defaultName: rf.Default,
		profiles:    rf.Profiles,
		secrets:     secrets,
		cache:       make(map[string]Profile),
	}, nil
}

// Names returns the declared profile names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	return names
}

// DefaultName returns the registry's default profile name.
func (r *Registry) DefaultName() string {
	return r.defaultName
}

// Resolve returns the usable profile for name. An empty name selects the
// registry default. Missing profiles, missing base URL or model ID, and
// unresolvable API keys all yield ErrNoProfile.
func (r *Registry) Resolve(name string) (Profile, error) {
	if name == "" {
		name = r.defaultName
	}
	if name == "" {
		return Profile{}, fmt.Errorf("%w: no model selected and no default declared", ErrNoProfile)
	}

	r.mu.RLock()
	if p, ok := r.cache[name]; ok {
		r.mu.RUnlock()
		return p, nil
	}
	r.mu.RUnlock()

	p, ok := r.profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: unknown profile %q", ErrNoProfile, name)
	}
	p.Name = name

	if p.APIKey == "" && p.APIKeySecret != "" {
		p.APIKey = r.secrets[p.APIKeySecret]
	}

	switch {
	case p.BaseURL == "":
		return Profile{}, fmt.Errorf("%w: profile %q has no base URL", ErrNoProfile, name)
	case p.ModelID == "":
		return Profile{}, fmt.Errorf("%w: profile %q has no model ID", ErrNoProfile, name)
	case p.APIKey == "":
		return Profile{}, fmt.Errorf("%w: profile %q has no API key", ErrNoProfile, name)
	}

	r.mu.Lock()
	r.cache[name] = p
	r.mu.Unlock()
	return p, nil
}
