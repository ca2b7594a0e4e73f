package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/triageops/console/internal/domain"
	"github.com/triageops/console/internal/session"
)

type ActivateSessionInput struct {
	ID string `path:"id" minLength:"1" doc:"Session ID"`
}

type ActivateSessionOutput struct {
	Body session.Snapshot
}

type DeactivateSessionInput struct{}

type DeactivateSessionOutput struct{}

type ListEventsInput struct {
	ID string `path:"id" minLength:"1" doc:"Session ID"`
}

type ListEventsOutput struct {
	Body []domain.TaskEvent
}

type ListMessagesInput struct {
	ID string `path:"id" minLength:"1" doc:"Session ID"`
}

type ListMessagesOutput struct {
	Body []domain.ChatMessage
}

type GetStateInput struct {
	ID string `path:"id" minLength:"1" doc:"Session ID"`
}

type GetStateOutput struct {
	Body session.Snapshot
}

type SendChatInput struct {
	ID   string `path:"id" minLength:"1" doc:"Session ID"`
	Body struct {
		Content string `json:"content" minLength:"1" maxLength:"10000" doc:"Operator message"`
	}
}

type SendChatOutput struct {
	Body domain.ChatMessage
}

type SetPanelInput struct {
	ID   string `path:"id" minLength:"1" doc:"Session ID"`
	Body struct {
		Open bool `json:"open" doc:"Whether the chat drawer is open"`
	}
}

type SetPanelOutput struct {
	Body session.Snapshot
}

// RegisterSessionRoutes wires the sync-core operations: activation, the
// ordered event/message views, chat send, and the drawer state.
func RegisterSessionRoutes(api huma.API, manager SessionManager) {
	huma.Register(api, huma.Operation{
		OperationID: "activate-session",
		Method:      http.MethodPost,
		Path:        "/sessions/{id}/activate",
		Summary:     "Attach the console to a session and start its live stream",
		Tags:        []string{"Sessions"},
	}, func(_ context.Context, input *ActivateSessionInput) (*ActivateSessionOutput, error) {
		s := manager.Activate(input.ID)
		return &ActivateSessionOutput{Body: s.Snapshot()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "deactivate-session",
		Method:      http.MethodPost,
		Path:        "/sessions/deactivate",
		Summary:     "Detach from the active session and reset all derived state",
		Tags:        []string{"Sessions"},
	}, func(_ context.Context, _ *DeactivateSessionInput) (*DeactivateSessionOutput, error) {
		manager.Deactivate()
		return &DeactivateSessionOutput{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-session-events",
		Method:      http.MethodGet,
		Path:        "/sessions/{id}/events",
		Summary:     "Ordered task event log for the active session",
		Tags:        []string{"Sessions"},
	}, func(_ context.Context, input *ListEventsInput) (*ListEventsOutput, error) {
		s, err := manager.Get(input.ID)
		if err != nil {
			return nil, sessionError(err)
		}
		return &ListEventsOutput{Body: s.Events()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-session-messages",
		Method:      http.MethodGet,
		Path:        "/sessions/{id}/messages",
		Summary:     "Finalized chat messages for the active session",
		Tags:        []string{"Sessions"},
	}, func(_ context.Context, input *ListMessagesInput) (*ListMessagesOutput, error) {
		s, err := manager.Get(input.ID)
		if err != nil {
			return nil, sessionError(err)
		}
		return &ListMessagesOutput{Body: s.Messages()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-session-state",
		Method:      http.MethodGet,
		Path:        "/sessions/{id}/state",
		Summary:     "Connection, streaming, and presentation state",
		Tags:        []string{"Sessions"},
	}, func(_ context.Context, input *GetStateInput) (*GetStateOutput, error) {
		s, err := manager.Get(input.ID)
		if err != nil {
			return nil, sessionError(err)
		}
		return &GetStateOutput{Body: s.Snapshot()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "send-chat-message",
		Method:      http.MethodPost,
		Path:        "/sessions/{id}/chat",
		Summary:     "Send an operator chat message",
		Tags:        []string{"Sessions"},
	}, func(_ context.Context, input *SendChatInput) (*SendChatOutput, error) {
		s, err := manager.Get(input.ID)
		if err != nil {
			return nil, sessionError(err)
		}
		msg, err := s.SendChat(input.Body.Content)
		if err != nil {
			return nil, sessionError(err)
		}
		return &SendChatOutput{Body: msg}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-session-panel",
		Method:      http.MethodPost,
		Path:        "/sessions/{id}/panel",
		Summary:     "Open or close the chat drawer",
		Tags:        []string{"Sessions"},
	}, func(_ context.Context, input *SetPanelInput) (*SetPanelOutput, error) {
		s, err := manager.Get(input.ID)
		if err != nil {
			return nil, sessionError(err)
		}
		s.SetPanelOpen(input.Body.Open)
		return &SetPanelOutput{Body: s.Snapshot()}, nil
	})
}

func sessionError(err error) error {
	switch {
	case errors.Is(err, domain.ErrNoSession):
		return huma.Error404NotFound("session is not active")
	case errors.Is(err, domain.ErrSessionChanged):
		return huma.Error409Conflict("session changed while the request was in flight")
	default:
		return huma.Error500InternalServerError("session operation failed", err)
	}
}
