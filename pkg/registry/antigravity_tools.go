package registry

import (
	"context"
	"fmt"

	"github.com/misfitdev/quotascope/mcp"
	"github.com/misfitdev/quotascope/pkg/antigravity"
)

// PopulateAntigravityTools registers the Antigravity quota tool set.
func PopulateAntigravityTools(r *Registry, service *antigravity.Service) {
	r.Register(mcp.Tool{
		Name:        "get_antigravity_quota",
		Description: "Per-model Antigravity and Gemini CLI quota for every stored account, with a cross-account availability summary.",
		InputSchema: emptySchema(),
	}, makeAntigravityQuotaHandler(service))

	r.Register(mcp.Tool{
		Name:        "get_antigravity_account_quota",
		Description: "Antigravity and Gemini CLI quota for a single stored account, picked by 0-based index or email.",
		InputSchema: accountSchema(),
	}, makeAntigravityAccountQuotaHandler(service))
}

func makeAntigravityQuotaHandler(service *antigravity.Service) Handler {
	return func(ctx context.Context, _ map[string]any) (any, error) {
		return service.All(ctx)
	}
}

func makeAntigravityAccountQuotaHandler(service *antigravity.Service) Handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		identifier, ok := args["account"]
		if !ok || identifier == nil {
			return nil, fmt.Errorf("account is required")
		}
		return service.One(ctx, identifier)
	}
}
