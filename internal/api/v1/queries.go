package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/triageops/console/internal/domain"
)

type GetStatusInput struct {
	ID string `path:"id" minLength:"1" doc:"Session ID"`
}

type GetStatusOutput struct {
	Body domain.SessionStatus
}

type ListFindingsInput struct {
	ID string `path:"id" minLength:"1" doc:"Session ID"`
}

type ListFindingsOutput struct {
	Body []domain.Finding
}

type GetFixInput struct {
	ID string `path:"id" minLength:"1" doc:"Session ID"`
}

type GetFixOutput struct {
	Body json.RawMessage
}

type PromQLInput struct {
	Body struct {
		Query string `json:"query" minLength:"1" doc:"PromQL expression"`
	}
}

type PromQLOutput struct {
	Body json.RawMessage
}

// RegisterQueryRoutes wires the peripheral-view proxies: status, findings,
// fix proposals, and metrics queries. These are simple pass-throughs to the
// platform; the console adds nothing but transport.
func RegisterQueryRoutes(api huma.API, platform PlatformClient) {
	huma.Register(api, huma.Operation{
		OperationID: "get-session-status",
		Method:      http.MethodGet,
		Path:        "/sessions/{id}/status",
		Summary:     "Platform phase/confidence summary for a session",
		Tags:        []string{"Queries"},
	}, func(ctx context.Context, input *GetStatusInput) (*GetStatusOutput, error) {
		status, err := platform.GetSessionStatus(ctx, input.ID)
		if err != nil {
			return nil, proxyError(err)
		}
		return &GetStatusOutput{Body: *status}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-session-findings",
		Method:      http.MethodGet,
		Path:        "/sessions/{id}/findings",
		Summary:     "Structured findings for a session",
		Tags:        []string{"Queries"},
	}, func(ctx context.Context, input *ListFindingsInput) (*ListFindingsOutput, error) {
		findings, err := platform.ListFindings(ctx, input.ID)
		if err != nil {
			return nil, proxyError(err)
		}
		return &ListFindingsOutput{Body: findings}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-session-fix",
		Method:      http.MethodGet,
		Path:        "/sessions/{id}/fix",
		Summary:     "Proposed remediation for a session",
		Tags:        []string{"Queries"},
	}, func(ctx context.Context, input *GetFixInput) (*GetFixOutput, error) {
		fix, err := platform.GetProposedFix(ctx, input.ID)
		if err != nil {
			return nil, proxyError(err)
		}
		return &GetFixOutput{Body: fix}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "run-promql-query",
		Method:      http.MethodPost,
		Path:        "/query/promql",
		Summary:     "Run a PromQL query through the platform",
		Tags:        []string{"Queries"},
	}, func(ctx context.Context, input *PromQLInput) (*PromQLOutput, error) {
		result, err := platform.RunPromQLQuery(ctx, input.Body.Query)
		if err != nil {
			return nil, proxyError(err)
		}
		return &PromQLOutput{Body: result}, nil
	})
}

func proxyError(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return huma.Error404NotFound("not found")
	}
	return huma.Error502BadGateway("platform request failed", err)
}
