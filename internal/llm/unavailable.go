package llm

import "context"

// UnavailableProvider stands in for a provider that could not be created
// (for example a missing API key). Every call fails with ErrUnavailable, so
// the failure surfaces per request instead of at startup.
type UnavailableProvider struct {
	name   string
	driver string
	model  string
	reason string
}

// NewUnavailableProvider creates a provider that always fails with reason.
func NewUnavailableProvider(name, driver, reason string) *UnavailableProvider {
	return &UnavailableProvider{name: name, driver: driver, reason: reason}
}

func (p *UnavailableProvider) Name() string  { return p.name }
func (p *UnavailableProvider) Type() string  { return p.driver }
func (p *UnavailableProvider) Model() string { return p.model }

func (p *UnavailableProvider) WithModel(model string) Provider {
	clone := *p
	clone.model = model
	return &clone
}

func (p *UnavailableProvider) err() error {
	return ErrUnavailable{Provider: p.name, Reason: p.reason}
}

func (p *UnavailableProvider) SimpleMessage(context.Context, string, string) (string, error) {
	return "", p.err()
}

func (p *UnavailableProvider) StructuredMessage(context.Context, string, Schema, any) error {
	return p.err()
}
