package registry

import (
	"context"

	"github.com/misfitdev/quotascope/mcp"
	"github.com/misfitdev/quotascope/pkg/metering"
)

// PopulateUsageTools registers the usage-metering tool set.
func PopulateUsageTools(r *Registry, client *metering.Client) {
	tools := []struct {
		name        string
		description string
		schema      map[string]any
		handler     Handler
	}{
		{
			name:        "get_usage",
			description: "Combined usage snapshot: quota limits, per-model usage, and builtin tool usage over a reporting window (default 24h).",
			schema:      hoursSchema(),
			handler:     makeUsageHandler(client),
		},
		{
			name:        "get_quota",
			description: "Current quota limits and how much of each is consumed.",
			schema:      emptySchema(),
			handler:     makeQuotaHandler(client),
		},
		{
			name:        "get_model_usage",
			description: "Per-model token and request counts over a reporting window (default 24h).",
			schema:      hoursSchema(),
			handler:     makeModelUsageHandler(client),
		},
		{
			name:        "get_tool_usage",
			description: "Builtin tool invocation counts, web_search and web_reader always included, over a reporting window (default 24h).",
			schema:      hoursSchema(),
			handler:     makeToolUsageHandler(client),
		},
	}

	for _, t := range tools {
		r.Register(mcp.Tool{
			Name:        t.name,
			Description: t.description,
			InputSchema: t.schema,
		}, t.handler)
	}
}

func makeUsageHandler(client *metering.Client) Handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		w, err := windowFromArgs(client, args)
		if err != nil {
			return nil, err
		}
		return client.Usage(ctx, w)
	}
}

func makeQuotaHandler(client *metering.Client) Handler {
	return func(ctx context.Context, _ map[string]any) (any, error) {
		return client.QuotaLimits(ctx)
	}
}

func makeModelUsageHandler(client *metering.Client) Handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		w, err := windowFromArgs(client, args)
		if err != nil {
			return nil, err
		}
		return client.ModelUsage(ctx, w)
	}
}

func makeToolUsageHandler(client *metering.Client) Handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		w, err := windowFromArgs(client, args)
		if err != nil {
			return nil, err
		}
		return client.ToolUsage(ctx, w)
	}
}

// windowFromArgs reads the optional hours argument and anchors the
// reporting window at the current time. A missing argument means the
// default window; a present one must parse.
func windowFromArgs(client *metering.Client, args map[string]any) (metering.Window, error) {
	hours := float64(metering.DefaultWindowHours)
	if v, ok := args["hours"]; ok {
		parsed, err := metering.ParseHours(v)
		if err != nil {
			return metering.Window{}, err
		}
		hours = parsed
	}
	return client.Window(hours), nil
}
