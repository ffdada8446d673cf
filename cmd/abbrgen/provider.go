package main

import (
	"fmt"

	"github.com/at-ishikawa/abbrgen/internal/config"
	"github.com/spf13/pflag"
)

// Provider selects the backend for generation or embeddings.
// The zero value keeps the configured one.
type Provider string

func (p *Provider) Set(val string) error {
	for _, provider := range allProviders {
		if val == string(provider) {
			*p = provider
			return nil
		}
	}
	return fmt.Errorf("invalid provider: %s", val)
}

func (p Provider) String() string {
	return string(p)
}

func (p *Provider) Type() string {
	return "Provider"
}

const (
	ProviderOllama Provider = config.ProviderOllama
	ProviderOpenAI Provider = config.ProviderOpenAI
)

var (
	_            pflag.Value = (*Provider)(nil)
	allProviders             = []Provider{ProviderOllama, ProviderOpenAI}
)

func (p Provider) apply(target *string) {
	if p != "" {
		*target = string(p)
	}
}
