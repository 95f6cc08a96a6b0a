// Package adapters abstracts the model vendors the harness can evaluate.
// An Adapter turns one prepared question into one answer string; all
// orchestration (concurrency, rate limiting, retries, timeouts) lives above
// this layer.
package adapters

import (
	"context"
	"fmt"
	"strings"
)

// systemPrompt is shared by all chat-style adapters.
const systemPrompt = "You are an expert analog/mixed-signal IC designer. " +
	"Follow the user's Required sections exactly and return markdown only. " +
	"NEVER use LaTeX or MathJax in your responses."

// Request is one fully-prepared prediction call: the rendered prompt plus
// the artifact and citation context the model needs.
type Request struct {
	Prompt          string
	Artifact        string
	ArtifactPath    string
	Modality        string
	InventoryIDs    []string
	RequireSections []string
	AnswerFormat    string
}

// Adapter is a single model endpoint.
type Adapter interface {
	Name() string
	Predict(ctx context.Context, req Request) (string, error)
}

// Options configures adapter construction. Zero values fall back to the
// adapter's own defaults.
type Options struct {
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	MaxTokens   int
}

// Build constructs a registered adapter by name.
func Build(name string, opts Options) (Adapter, error) {
	switch name {
	case "openai":
		return NewOpenAI(opts)
	case "dummy":
		return NewDummy(), nil
	default:
		return nil, fmt.Errorf("adapters: unknown adapter %q", name)
	}
}

// artifactFence picks the code-fence language tag for a modality.
func artifactFence(modality string) string {
	switch modality {
	case "spice_netlist":
		return "spice"
	case "casIR":
		return "json"
	default:
		return ""
	}
}

// UserMessage renders the user-turn content: artifact context first, then
// the question prompt. Sections are omitted when empty so small requests
// stay small.
func UserMessage(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Artifact modality: %s. Artifact path: %s.\n", req.Modality, req.ArtifactPath)
	if len(req.InventoryIDs) > 0 {
		fmt.Fprintf(&b, "Inventory IDs you may cite: %s\n", strings.Join(req.InventoryIDs, ", "))
	}
	if len(req.RequireSections) > 0 {
		fmt.Fprintf(&b, "Required sections: %s\n", strings.Join(req.RequireSections, ", "))
	}
	if req.AnswerFormat != "" {
		fmt.Fprintf(&b, "Answer format: %s\n", req.AnswerFormat)
	}
	if req.Artifact != "" {
		fmt.Fprintf(&b, "\nArtifact (%s):\n```%s\n%s\n```\n", req.Modality, artifactFence(req.Modality), req.Artifact)
	}
	b.WriteString("\n")
	b.WriteString(req.Prompt)
	b.WriteString("\n")
	return b.String()
}
