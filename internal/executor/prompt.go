package executor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ravenmarsh/compass/internal/registry"
)

// Template placeholders recognized in a descriptor's prompt template.
const (
	placeholderQuery   = "{{query}}"
	placeholderContext = "{{context}}"
	placeholderMemory  = "{{memory}}"
)

// buildPrompt renders the descriptor's template with the query, the
// shared scratch context and a bounded slice of stored memory.
func (e *Executor) buildPrompt(ctx context.Context, desc *registry.Descriptor, query, userID string,
	shared map[string]string) string {

	tmpl := desc.PromptTemplate
	if tmpl == "" {
		tmpl = placeholderQuery
	}

	rendered := strings.NewReplacer(
		placeholderQuery, query,
		placeholderContext, formatShared(shared),
		placeholderMemory, e.memoryBlock(ctx, query, userID),
	).Replace(tmpl)

	// Templates that never mention the query still have to carry it.
	if !strings.Contains(tmpl, placeholderQuery) {
		rendered = rendered + "\n\nUser query: " + query
	}
	return strings.TrimSpace(rendered)
}

// formatShared renders the shared scratch context as stable key: value
// lines. Keys are sorted so prompt construction is deterministic.
func formatShared(shared map[string]string) string {
	if len(shared) == 0 {
		return "No shared context available."
	}
	keys := make([]string, 0, len(shared))
	for k := range shared {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("Shared context from earlier specialists:\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %s\n", k, shared[k])
	}
	return strings.TrimRight(b.String(), "\n")
}

// memoryBlock fetches at most RecentItems recent and SimilarItems
// similar interactions so prompt size stays bounded regardless of how
// much history a user has.
func (e *Executor) memoryBlock(ctx context.Context, query, userID string) string {
	if e.memory == nil {
		return "No previous context available."
	}

	recent, _ := e.memory.RecentInteractions(ctx, userID, e.limits.RecentItems)
	similar, _ := e.memory.SimilaritySearch(ctx, userID, query, e.limits.SimilarItems)
	if len(recent) == 0 && len(similar) == 0 {
		return "No previous context available."
	}

	var b strings.Builder
	if len(recent) > 0 {
		b.WriteString("Recent interactions:\n")
		for _, r := range recent {
			fmt.Fprintf(&b, "- [%s] %s -> %s\n", r.AgentID, clip(r.Query, 120), clip(r.Response, 200))
		}
	}
	if len(similar) > 0 {
		b.WriteString("Similar past interactions:\n")
		for _, r := range similar {
			fmt.Fprintf(&b, "- (%.2f) %s -> %s\n", r.Score, clip(r.Query, 120), clip(r.Response, 200))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// postProcess trims the raw generation and, for agents that declare the
// structured-output capability, guarantees a JSON envelope.
func postProcess(desc *registry.Descriptor, raw string) string {
	out := strings.TrimSpace(raw)
	if !desc.HasCapability(registry.CapabilityStructuredOutput) {
		return out
	}
	if strings.HasPrefix(out, "{") && strings.HasSuffix(out, "}") {
		return out
	}
	return fmt.Sprintf(`{"agent": %q, "response": %q}`, desc.ID, out)
}

// clip truncates s to at most max bytes, backing up so the cut never
// lands inside a multi-byte rune.
func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max] + "..."
}
