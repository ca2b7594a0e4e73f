package session

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/triageops/console/internal/domain"
)

// Frame is the envelope every inbound socket message carries.
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	frameTaskEvent    = "task_event"
	frameChatResponse = "chat_response"
	frameChatChunk    = "chat_chunk"
	frameConnected    = "connected"
)

// ChunkPayload is the body of a chat_chunk frame. A done chunk carries the
// full accumulated response plus optional phase/confidence metadata.
type ChunkPayload struct {
	Content      string  `json:"content"`
	Done         bool    `json:"done"`
	FullResponse string  `json:"full_response,omitempty"`
	Phase        string  `json:"phase,omitempty"`
	Confidence   float64 `json:"confidence,omitempty"`
}

// EventSink accepts routed task events.
type EventSink interface {
	AcceptEvent(ev domain.TaskEvent)
}

// ChatSink accepts routed chat frames.
type ChatSink interface {
	AcceptChunk(text string)
	AcceptFinal(full string, meta *domain.MessageMetadata)
	AcceptMessage(msg domain.ChatMessage)
}

// Router demultiplexes inbound frames by declared type into the event and
// chat sinks. A malformed frame is logged and dropped; one bad frame never
// breaks the socket loop or affects subsequent frames.
type Router struct {
	sessionID string
	events    EventSink
	chat      ChatSink
}

func NewRouter(sessionID string, events EventSink, chat ChatSink) *Router {
	return &Router{sessionID: sessionID, events: events, chat: chat}
}

// Route classifies and dispatches one raw frame.
func (r *Router) Route(raw []byte) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		log.Debug().Err(err).Str("session_id", r.sessionID).Msg("dropping unparseable frame")
		return
	}

	switch frame.Type {
	case frameTaskEvent:
		r.routeTaskEvent(frame.Data)

	case frameChatResponse:
		var msg domain.ChatMessage
		if err := json.Unmarshal(frame.Data, &msg); err != nil {
			log.Debug().Err(err).Str("session_id", r.sessionID).Msg("dropping malformed chat_response")
			return
		}
		r.chat.AcceptMessage(msg)

	case frameChatChunk:
		var chunk ChunkPayload
		if err := json.Unmarshal(frame.Data, &chunk); err != nil {
			log.Debug().Err(err).Str("session_id", r.sessionID).Msg("dropping malformed chat_chunk")
			return
		}
		if chunk.Done {
			var meta *domain.MessageMetadata
			if chunk.Phase != "" || chunk.Confidence != 0 {
				meta = &domain.MessageMetadata{
					NewPhase:   chunk.Phase,
					Confidence: chunk.Confidence,
				}
			}
			r.chat.AcceptFinal(chunk.FullResponse, meta)
		} else {
			r.chat.AcceptChunk(chunk.Content)
		}

	case frameConnected:
		// Handshake ack; no state change.
		log.Debug().Str("session_id", r.sessionID).Msg("stream handshake acknowledged")

	default:
		// Older servers send bare task events with no envelope. Accept
		// anything that has the task-event shape; drop the rest.
		var ev domain.TaskEvent
		if err := json.Unmarshal(raw, &ev); err == nil && ev.AgentName != "" && ev.EventType != "" {
			r.acceptEvent(ev)
			return
		}
		log.Debug().Str("session_id", r.sessionID).Str("type", frame.Type).Msg("dropping unrecognized frame")
	}
}

func (r *Router) routeTaskEvent(data json.RawMessage) {
	var ev domain.TaskEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		log.Debug().Err(err).Str("session_id", r.sessionID).Msg("dropping malformed task_event")
		return
	}
	r.acceptEvent(ev)
}

func (r *Router) acceptEvent(ev domain.TaskEvent) {
	if ev.SessionID == "" {
		ev.SessionID = r.sessionID
	}
	r.events.AcceptEvent(ev)
}
