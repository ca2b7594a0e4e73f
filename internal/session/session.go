// Package session maintains a live, ordered view of one diagnostic session
// over an unreliable transport: it owns the websocket connection lifecycle,
// demultiplexes inbound frames, reconciles the event log across reconnects,
// and runs the chat streaming state machine. All state is in-memory and
// scoped to the currently active session; switching sessions tears
// everything down.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	"github.com/triageops/console/internal/domain"
)

// Platform is the subset of the platform REST client the core consumes.
type Platform interface {
	GetEvents(ctx context.Context, sessionID string) ([]domain.TaskEvent, error)
	SendChatMessage(ctx context.Context, sessionID, content string) (*domain.ChatMessage, error)
	GetSessionStatus(ctx context.Context, sessionID string) (*domain.SessionStatus, error)
}

// Broadcaster fans out envelopes to attached browser clients.
type Broadcaster interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Notifier surfaces terminal conditions to the operator out-of-band.
type Notifier interface {
	ReconnectExhausted(ctx context.Context, sessionID string, attempts int) error
}

// sendFailureText is the synthetic assistant reply substituted when the chat
// send request fails, so every submitted message has a visible terminal
// outcome.
const sendFailureText = "Error: failed to reach the assistant. Your message was not delivered; please retry."

// Session is the live state for one diagnostic session: event log, chat
// engine, UI flags, and the connection/reconnection loop feeding them. The
// run loop is the only writer to the log and engine besides SendChat; all
// mutations go through the router or the exported entry points.
type Session struct {
	id       string
	log      *EventLog
	chat     *Engine
	ui       *UIState
	ctrl     *Controller
	socket   *Socket
	router   *Router
	platform Platform
	bus      Broadcaster
	notifier Notifier
	channel  string

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	statusMu sync.Mutex
	status   domain.SessionStatus
}

func newSession(parent context.Context, id string, dialer Dialer, platform Platform, bus Broadcaster, notifier Notifier, policy BackoffPolicy) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		id:       id,
		log:      NewEventLog(),
		chat:     nil, // set below, the engine needs the session as status sink
		ui:       NewUIState(),
		socket:   NewSocket(dialer),
		platform: platform,
		bus:      bus,
		notifier: notifier,
		channel:  Channel(id),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	s.chat = NewEngine(s)
	s.ctrl = NewController(policy, s.publishConnState)
	s.router = NewRouter(id, s, s)
	return s
}

// Channel returns the fan-out channel name for a session.
func Channel(sessionID string) string {
	return "session:" + sessionID
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Events returns the ordered event log.
func (s *Session) Events() []domain.TaskEvent {
	return s.log.Events()
}

// Messages returns the finalized chat message list.
func (s *Session) Messages() []domain.ChatMessage {
	return s.chat.Messages()
}

// Snapshot is the presentation-facing view of session state.
type Snapshot struct {
	SessionID      string                 `json:"session_id"`
	ConnPhase      domain.ConnPhase       `json:"conn_phase"`
	Connected      bool                   `json:"connected"`
	Attempts       int                    `json:"attempts"`
	Replaying      bool                   `json:"replaying"`
	ReceivedEvents int                    `json:"received_events"`
	Streaming      domain.StreamingBuffer `json:"streaming"`
	Unread         int                    `json:"unread"`
	PanelOpen      bool                   `json:"panel_open"`
	Waiting        bool                   `json:"waiting_for_operator"`
	Status         domain.SessionStatus   `json:"status"`
}

// Snapshot derives the current presentation flags. Waiting-for-operator is
// recomputed from the message list on every call.
func (s *Session) Snapshot() Snapshot {
	phase := s.ctrl.Phase()
	s.statusMu.Lock()
	status := s.status
	s.statusMu.Unlock()
	return Snapshot{
		SessionID:      s.id,
		ConnPhase:      phase,
		Connected:      phase == domain.ConnConnected,
		Attempts:       s.ctrl.Attempts(),
		Replaying:      s.ctrl.Replaying(),
		ReceivedEvents: s.log.Received(),
		Streaming:      s.chat.Buffer(),
		Unread:         s.ui.Unread(),
		PanelOpen:      s.ui.PanelOpen(),
		Waiting:        WaitingForOperator(s.chat.Messages()),
		Status:         status,
	}
}

// SetPanelOpen opens or closes the chat drawer.
func (s *Session) SetPanelOpen(open bool) {
	s.ui.SetPanelOpen(open)
}

// SendChat appends the operator's message optimistically, then performs the
// send request. A send failure is substituted with a synthetic assistant
// error message rather than propagated: the operator always sees a terminal
// outcome. The assistant's real reply arrives over the stream.
func (s *Session) SendChat(content string) (domain.ChatMessage, error) {
	user := s.chat.AppendUser(content)
	s.publish(EnvelopeChatMessage, user)

	_, err := s.platform.SendChatMessage(s.ctx, s.id, content)
	if s.ctx.Err() != nil {
		// Session switched while the request was in flight; the result is
		// stale and this state is already torn down.
		return user, domain.ErrSessionChanged
	}
	if err != nil {
		log.Warn().Err(err).Str("session_id", s.id).Msg("chat send failed")
		errMsg := s.chat.AppendAssistant(domain.ChatMessage{
			Content:  sendFailureText,
			Metadata: &domain.MessageMetadata{Type: domain.MessageTypeError},
		})
		s.ui.NoteAssistantMessage()
		s.publish(EnvelopeChatMessage, errMsg)
	}
	return user, nil
}

// Close tears the session down: cancels the reconnect loop and any pending
// timers or in-flight fetches, closes the socket, and waits for the run
// loop to exit. Safe to call more than once.
func (s *Session) Close() {
	s.cancel()
	s.socket.Close(websocket.StatusGoingAway, "session closed")
	<-s.done
}

// run is the connection lifecycle loop: dial, read until the connection
// drops, back off, redial. alreadySeen is frozen at the moment a reconnect
// begins and drives the replay splice after the next successful open.
func (s *Session) run() {
	defer close(s.done)
	defer s.ctrl.Disconnected()

	alreadySeen := 0

	for {
		if s.ctx.Err() != nil {
			return
		}
		s.ctrl.Connecting()

		conn, ok, err := s.socket.Open(s.ctx, s.id)
		if !ok {
			// Another open already holds the socket; nothing to run.
			return
		}
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Str("session_id", s.id).Int("attempt", s.ctrl.Attempts()).Msg("dial failed")
			if !s.backoff() {
				return
			}
			continue
		}

		if s.ctrl.Opened() {
			// First successful open after >=1 failure or drop: reconcile the
			// gap. The fetch races live delivery on this new connection; the
			// splice in EventLog.Replay dedups that interleaving.
			go s.replay(alreadySeen)
		}

		readErr := s.readLoop(conn)
		s.socket.Close(websocket.StatusNormalClosure, "connection lost")

		if s.ctx.Err() != nil {
			return
		}

		alreadySeen = s.log.Received()
		log.Warn().Err(readErr).Str("session_id", s.id).Int("received", alreadySeen).Msg("connection dropped")

		if !s.backoff() {
			return
		}
	}
}

// backoff waits the controller-scheduled delay before the next dial.
// Returns false when the attempt budget is exhausted or the session was
// torn down; exhaustion is surfaced exactly once.
func (s *Session) backoff() bool {
	delay, retry := s.ctrl.ScheduleRetry()
	if !retry {
		s.exhausted()
		return false
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *Session) readLoop(conn Conn) error {
	for {
		data, err := conn.Read(s.ctx)
		if err != nil {
			return err
		}
		s.router.Route(data)
	}
}

// replay fetches the session's full event history and splices in the missed
// suffix. A fetch failure means no events are recoverable this attempt; it
// does not block future reconnects.
func (s *Session) replay(alreadySeen int) {
	s.ctrl.SetReplaying(true)
	defer s.ctrl.SetReplaying(false)

	history, err := s.platform.GetEvents(s.ctx, s.id)
	if err != nil {
		log.Warn().Err(err).Str("session_id", s.id).Msg("replay fetch failed; missed events unrecoverable this attempt")
		return
	}
	if s.ctx.Err() != nil {
		return
	}

	spliced := s.log.Replay(history, alreadySeen)
	if spliced > 0 {
		log.Info().Str("session_id", s.id).Int("spliced", spliced).Msg("replayed missed events")
		s.publish(EnvelopeReplay, ReplayNotice{Spliced: spliced, Total: s.log.Received()})
	}
}

// refreshStatus re-fetches the session status after a terminal event.
func (s *Session) refreshStatus() {
	status, err := s.platform.GetSessionStatus(s.ctx, s.id)
	if err != nil {
		log.Debug().Err(err).Str("session_id", s.id).Msg("status refresh failed")
		return
	}
	if s.ctx.Err() != nil {
		return
	}

	s.statusMu.Lock()
	s.status = *status
	s.statusMu.Unlock()
	s.publish(EnvelopeStatus, *status)
}

func (s *Session) exhausted() {
	attempts := s.ctrl.Attempts()
	log.Error().Str("session_id", s.id).Int("attempts", attempts).Msg("reconnect budget exhausted")
	s.publish(EnvelopeExhausted, ConnUpdate{Phase: domain.ConnExhausted, Attempts: attempts})
	if s.notifier != nil {
		if err := s.notifier.ReconnectExhausted(s.ctx, s.id, attempts); err != nil {
			log.Warn().Err(err).Str("session_id", s.id).Msg("exhaustion notification failed")
		}
	}
}

// AcceptEvent implements EventSink for the router: append, fan out, and
// refresh status on terminal event types.
func (s *Session) AcceptEvent(ev domain.TaskEvent) {
	s.log.Append(ev)
	s.publish(EnvelopeTaskEvent, ev)
	if ev.EventType.Terminal() {
		go s.refreshStatus()
	}
}

// AcceptChunk implements ChatSink for the router.
func (s *Session) AcceptChunk(text string) {
	s.chat.AppendChunk(text)
	buf := s.chat.Buffer()
	s.publish(EnvelopeChatChunk, StreamUpdate{
		MessageID: buf.MessageID,
		Delta:     text,
		Content:   buf.Content,
	})
}

// AcceptFinal implements ChatSink for the router.
func (s *Session) AcceptFinal(full string, meta *domain.MessageMetadata) {
	msg := s.chat.FinishStream(full, meta)
	s.ui.NoteAssistantMessage()
	s.publish(EnvelopeChatMessage, msg)
}

// AcceptMessage implements ChatSink for the router.
func (s *Session) AcceptMessage(msg domain.ChatMessage) {
	appended := s.chat.AppendAssistant(msg)
	s.ui.NoteAssistantMessage()
	s.publish(EnvelopeChatMessage, appended)
}

// PhaseChanged implements StatusSink for the chat engine: finalized replies
// can carry a phase/confidence update.
func (s *Session) PhaseChanged(phase string, confidence float64) {
	s.statusMu.Lock()
	s.status.Phase = phase
	s.status.Confidence = confidence
	status := s.status
	s.statusMu.Unlock()
	s.publish(EnvelopeStatus, status)
}

func (s *Session) publishConnState(phase domain.ConnPhase) {
	s.publish(EnvelopeConnState, ConnUpdate{Phase: phase, Attempts: s.ctrl.Attempts()})
}

func (s *Session) publish(envType string, data any) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(Envelope{
		Type:      envType,
		SessionID: s.id,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		log.Error().Err(err).Str("type", envType).Msg("envelope marshal")
		return
	}
	if err := s.bus.Publish(s.ctx, s.channel, payload); err != nil && s.ctx.Err() == nil {
		log.Debug().Err(err).Str("type", envType).Msg("envelope publish")
	}
}
