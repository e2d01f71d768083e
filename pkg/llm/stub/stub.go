// Package stub provides a deterministic LLM used in tests and whenever no
// usable credential is configured. It never touches the network.
package stub

import (
	"context"

	"github.com/libreria-aurora/aurora-agent/pkg/interfaces"
)

// DefaultCannedResponse is returned when no override is given.
const DefaultCannedResponse = "Respuesta stub del LLM."

// Client is a deterministic interfaces.LLM.
type Client struct {
	canned string
}

// Option configures the stub client.
type Option func(*Client)

// WithCannedResponse overrides the canned content.
func WithCannedResponse(content string) Option {
	return func(c *Client) {
		c.canned = content
	}
}

// New creates a stub client.
func New(options ...Option) *Client {
	c := &Client{canned: DefaultCannedResponse}
	for _, option := range options {
		option(c)
	}
	return c
}

// Name implements interfaces.LLM.
func (c *Client) Name() string { return "stub" }

// Invoke implements interfaces.LLM. The response keeps the full metadata
// shape so traces look the same as on the real provider path.
func (c *Client) Invoke(_ context.Context, _ string) interfaces.LLMResponse {
	return interfaces.LLMResponse{
		Content:   c.canned,
		Provider:  "stub",
		Model:     "stub",
		LatencyMS: 0,
	}
}
