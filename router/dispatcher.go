// Package router maps decoded JSON-RPC requests onto MCP methods and
// the tool registry.
package router

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/misfitdev/quotascope/mcp"
	"github.com/misfitdev/quotascope/pkg/config"
	"github.com/misfitdev/quotascope/pkg/registry"
)

// Dispatcher answers the MCP method set. Tool execution is delegated
// to the registry; everything else is handled inline. It holds no
// state between calls.
type Dispatcher struct {
	reg *registry.Registry
	log *zap.Logger
}

func NewDispatcher(reg *registry.Registry, log *zap.Logger) *Dispatcher {
	return &Dispatcher{reg: reg, log: log}
}

// Dispatch handles one request. Notifications are processed for their
// side effects but return nil, so nothing is written for them.
func (d *Dispatcher) Dispatch(ctx context.Context, req *mcp.Request) *mcp.Response {
	resp := d.dispatch(ctx, req)
	if req.IsNotification() {
		return nil
	}
	return resp
}

func (d *Dispatcher) dispatch(ctx context.Context, req *mcp.Request) *mcp.Response {
	switch req.Method {
	case "initialize":
		// Client params are ignored; the advertised revision is
		// fixed.
		return mcp.NewResponse(req.ID, mcp.InitializeResult{
			ProtocolVersion: mcp.ProtocolVersion,
			Capabilities:    map[string]any{"tools": map[string]any{}},
			ServerInfo: mcp.ServerInfo{
				Name:    config.ServerName,
				Version: config.ServerVersion,
			},
		})
	case "ping":
		return mcp.NewResponse(req.ID, map[string]any{})
	case "notifications/initialized":
		return mcp.NewResponse(req.ID, map[string]any{})
	case "tools/list":
		return mcp.NewResponse(req.ID, mcp.ToolsListResult{Tools: d.reg.List()})
	case "tools/call":
		return d.toolCall(ctx, req)
	default:
		return mcp.NewErrorResponse(req.ID, mcp.CodeMethodNotFound,
			fmt.Sprintf("unsupported method: %s", req.Method))
	}
}

func (d *Dispatcher) toolCall(ctx context.Context, req *mcp.Request) *mcp.Response {
	var params mcp.ToolCallParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return mcp.NewErrorResponse(req.ID, mcp.CodeApplicationError,
				fmt.Sprintf("invalid tools/call params: %v", err))
		}
	}
	if params.Name == "" {
		return mcp.NewErrorResponse(req.ID, mcp.CodeApplicationError, "tool name is required")
	}

	args := map[string]any{}
	if len(params.Arguments) > 0 {
		if err := json.Unmarshal(params.Arguments, &args); err != nil {
			return mcp.NewErrorResponse(req.ID, mcp.CodeApplicationError,
				fmt.Sprintf("invalid tool arguments: %v", err))
		}
	}

	d.log.Debug("Tool call", zap.String("tool", params.Name))

	result, err := d.reg.Call(ctx, params.Name, args)
	if err != nil {
		return mcp.NewErrorResponse(req.ID, mcp.CodeApplicationError, err.Error())
	}

	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return mcp.NewErrorResponse(req.ID, mcp.CodeApplicationError,
			fmt.Sprintf("encode tool result: %v", err))
	}
	return mcp.NewResponse(req.ID, mcp.TextResult(string(payload)))
}
