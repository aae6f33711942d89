package registry

import "time"

// Capability labels with routing/post-processing significance.
const (
	// CapabilityStructuredOutput marks agents whose responses are
	// re-wrapped as JSON by the executor.
	CapabilityStructuredOutput = "structured-output"
)

// ExecutionSettings bound a single generation call.
type ExecutionSettings struct {
	Temperature    float64 `json:"temperature"`
	MaxTokens      int     `json:"max_tokens"`
	TimeoutSeconds int     `json:"timeout_seconds"`
}

// Timeout returns the per-call deadline as a duration.
func (s ExecutionSettings) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Descriptor is the static identity of one agent: what it is called,
// what queries it claims, and how its generation calls are bounded.
// Descriptors are owned by the Registry; everything else holds read
// references by id.
type Descriptor struct {
	ID             string            `json:"id"`
	DisplayName    string            `json:"display_name"`
	Description    string            `json:"description"`
	Keywords       []string          `json:"keywords"`
	Capabilities   []string          `json:"capabilities"`
	Priority       int               `json:"priority"` // lower = evaluated first
	PromptTemplate string            `json:"prompt_template"`
	Model          string            `json:"model,omitempty"`
	Settings       ExecutionSettings `json:"execution_settings"`
	Enabled        bool              `json:"enabled"`
}

// HasCapability reports whether the descriptor carries the given label.
func (d *Descriptor) HasCapability(cap string) bool {
	for _, c := range d.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

// CapabilityGroup is the label used to decide whether two qualifying
// agents represent distinct intents. The first capability wins; agents
// with no capabilities form their own group.
func (d *Descriptor) CapabilityGroup() string {
	if len(d.Capabilities) > 0 {
		return d.Capabilities[0]
	}
	return d.ID
}

// Redacted returns a copy safe for listing: the prompt template is
// operator-owned and not exposed to callers.
func (d *Descriptor) Redacted() Descriptor {
	out := *d
	out.PromptTemplate = ""
	return out
}

// TriggerRule is one row of the inter-agent chaining table: after
// AfterAgent completes, if the condition holds and ThenAgent has not
// run yet, ThenAgent is appended to the plan.
type TriggerRule struct {
	AfterAgent string   `json:"after_agent"`
	SharedKey  string   `json:"shared_key,omitempty"`  // shared-context key that must be set
	QueryAny   []string `json:"query_any,omitempty"`   // at least one must appear in the query
	ThenAgent  string   `json:"then_agent"`
}
