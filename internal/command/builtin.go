package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/ravenmarsh/compass/internal/memory"
	"github.com/ravenmarsh/compass/internal/registry"
)

// Service is the slice of the orchestrator surface the builtin commands
// need. Kept as an interface so the package stays testable without a
// full engine.
type Service interface {
	ListAgents() []registry.Descriptor
	ReloadAgents() error
	ValidateConfiguration() []string
}

// HistoryReader reads back a user's persisted interactions.
type HistoryReader interface {
	RecentInteractions(ctx context.Context, userID string, limit int) ([]memory.Interaction, error)
}

// RegisterBuiltins registers /help, /agents, /history, /reload and /validate.
func RegisterBuiltins(reg *Registry) {
	reg.Register(helpCommand(reg))
	reg.Register(agentsCommand())
	reg.Register(historyCommand())
	reg.Register(reloadCommand())
	reg.Register(validateCommand())
}

func helpCommand(reg *Registry) *Command {
	return &Command{
		Name:        "help",
		Description: "List all available commands",
		Usage:       "/help",
		Handler: func(_ context.Context, _ string, _ *CommandContext) (*CommandResult, error) {
			cmds := reg.List()
			var b strings.Builder
			b.WriteString("Available commands:\n")
			for _, c := range cmds {
				fmt.Fprintf(&b, "  /%s — %s\n", c.Name, c.Description)
				if c.Usage != "" {
					fmt.Fprintf(&b, "    Usage: %s\n", c.Usage)
				}
			}
			return &CommandResult{Content: b.String()}, nil
		},
	}
}

func agentsCommand() *Command {
	return &Command{
		Name:        "agents",
		Description: "List registered specialist agents",
		Usage:       "/agents",
		Handler: func(_ context.Context, _ string, cc *CommandContext) (*CommandResult, error) {
			agents := cc.Service.ListAgents()
			if len(agents) == 0 {
				return &CommandResult{Content: "No agents registered."}, nil
			}
			var b strings.Builder
			b.WriteString("Registered agents:\n")
			for _, a := range agents {
				status := "enabled"
				if !a.Enabled {
					status = "disabled"
				}
				fmt.Fprintf(&b, "  [%s] %s — priority %d, %s\n", a.ID, a.DisplayName, a.Priority, status)
				if len(a.Keywords) > 0 {
					fmt.Fprintf(&b, "    keywords: %s\n", strings.Join(a.Keywords, ", "))
				}
			}
			return &CommandResult{Content: b.String(), Data: agents}, nil
		},
	}
}

func historyCommand() *Command {
	return &Command{
		Name:        "history",
		Description: "Show your recent interactions",
		Usage:       "/history [count]",
		Handler: func(ctx context.Context, args string, cc *CommandContext) (*CommandResult, error) {
			if cc.History == nil {
				return &CommandResult{Content: "Memory is not configured."}, nil
			}
			limit := 5
			if args != "" {
				if _, err := fmt.Sscanf(args, "%d", &limit); err != nil || limit <= 0 {
					return &CommandResult{Content: "Usage: /history [count]"}, nil
				}
			}
			recs, err := cc.History.RecentInteractions(ctx, cc.UserID, limit)
			if err != nil {
				return nil, fmt.Errorf("read history: %w", err)
			}
			if len(recs) == 0 {
				return &CommandResult{Content: "No interactions recorded yet."}, nil
			}
			var b strings.Builder
			fmt.Fprintf(&b, "Last %d interactions:\n", len(recs))
			for _, rec := range recs {
				fmt.Fprintf(&b, "  %s [%s] %s\n", rec.CreatedAt.Format("2006-01-02 15:04"), rec.AgentID, rec.Query)
			}
			return &CommandResult{Content: b.String(), Data: recs}, nil
		},
	}
}

func reloadCommand() *Command {
	return &Command{
		Name:        "reload",
		Description: "Reload the agent configuration file",
		Usage:       "/reload",
		Handler: func(_ context.Context, _ string, cc *CommandContext) (*CommandResult, error) {
			if err := cc.Service.ReloadAgents(); err != nil {
				return &CommandResult{Content: fmt.Sprintf("Reload failed, previous configuration kept:\n%s", err)}, nil
			}
			return &CommandResult{
				Content: fmt.Sprintf("Reloaded %d agents.", len(cc.Service.ListAgents())),
			}, nil
		},
	}
}

func validateCommand() *Command {
	return &Command{
		Name:        "validate",
		Description: "Validate the agent configuration without applying it",
		Usage:       "/validate",
		Handler: func(_ context.Context, _ string, cc *CommandContext) (*CommandResult, error) {
			issues := cc.Service.ValidateConfiguration()
			if len(issues) == 0 {
				return &CommandResult{Content: "Configuration is valid."}, nil
			}
			var b strings.Builder
			fmt.Fprintf(&b, "Found %d issues:\n", len(issues))
			for _, issue := range issues {
				fmt.Fprintf(&b, "  - %s\n", issue)
			}
			return &CommandResult{Content: b.String(), Data: issues}, nil
		},
	}
}
