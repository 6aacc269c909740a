package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wa-group-gateway/internal/config"
	"wa-group-gateway/internal/pkg/logger"
	"wa-group-gateway/internal/session"
	"wa-group-gateway/pkg/events"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const dispatchModule = "DISPATCH"

// DispatchResult describes a successful dispatch: either skipped or sent.
type DispatchResult struct {
	RequestID      string
	Skipped        bool
	Reason         string
	SentTo         string
	ConversationID string
	Retried        bool
	Attempts       int
}

// DispatchRecorder receives one call per dispatch (metrics).
type DispatchRecorder interface {
	RecordDispatch(outcome string, attempts int)
}

// EventPublisher forwards dispatch outcomes to an external stream.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type IDispatchService interface {
	Dispatch(ctx context.Context, groupName, message string) (*DispatchResult, error)
}

type dispatchService struct {
	readiness session.ReadinessReader
	client    session.ChatClient
	cfg       config.DispatchConfig
	logger    logger.ILogger
	recorder  DispatchRecorder
	publisher EventPublisher
	tracer    trace.Tracer
}

// NewDispatchService builds the /send core. recorder and publisher may be nil.
func NewDispatchService(
	readiness session.ReadinessReader,
	client session.ChatClient,
	cfg config.DispatchConfig,
	log logger.ILogger,
	recorder DispatchRecorder,
	publisher EventPublisher,
) IDispatchService {
	return &dispatchService{
		readiness: readiness,
		client:    client,
		cfg:       cfg,
		logger:    log,
		recorder:  recorder,
		publisher: publisher,
		tracer:    otel.Tracer("wa-group-gateway/dispatch"),
	}
}

func (s *dispatchService) Dispatch(ctx context.Context, groupName, message string) (res *DispatchResult, err error) {
	requestID := uuid.NewString()
	ctx, span := s.tracer.Start(ctx, "dispatch", trace.WithAttributes(
		attribute.String("dispatch.request_id", requestID),
		attribute.String("dispatch.group_name", groupName),
	))
	defer span.End()

	attempts := 0
	defer func() {
		s.finish(ctx, span, requestID, groupName, res, err, attempts)
	}()

	// 1. Blank message: the caller chose not to send anything
	if strings.TrimSpace(message) == "" {
		return &DispatchResult{RequestID: requestID, Skipped: true, Reason: "empty_message"}, nil
	}

	// 2. Target group is mandatory
	target := strings.TrimSpace(groupName)
	if target == "" {
		return nil, newDispatchError(KindValidation, "faltan datos: groupName", nil)
	}

	// 3. Readiness gate (bounded)
	span.AddEvent("wait_ready")
	s.logPhase(requestID, "wait_ready", map[string]interface{}{"group_name": target, "ready": s.readiness.IsReady()})
	if !s.waitUntilReady(ctx) {
		return nil, newDispatchError(KindNotReady, "whatsapp_no_listo", nil)
	}

	// 4. Let the conversation list settle after the ready signal
	span.AddEvent("settle")
	s.logPhase(requestID, "settle", map[string]interface{}{"delay": s.cfg.SettleDelay.String()})
	if err := sleep(ctx, s.cfg.SettleDelay); err != nil {
		return nil, newDispatchError(KindSendFailure, "error enviando", err)
	}

	// 5. Resolve the group
	span.AddEvent("resolve")
	s.logPhase(requestID, "resolve", nil)
	conversations, err := s.listConversations(ctx)
	if err != nil {
		return nil, newDispatchError(KindSendFailure, "error enviando", err)
	}

	group, available := findGroup(conversations, target)
	s.logger.Debug(dispatchModule, "Conversations fetched", map[string]interface{}{
		"request_id": requestID,
		"chats":      len(conversations),
		"groups":     len(available),
	})
	if group == nil {
		de := newDispatchError(KindNotFound, "grupo no encontrado: "+groupName, nil)
		de.AvailableGroups = available
		return nil, de
	}
	if strings.TrimSpace(group.ID) == "" {
		return nil, newDispatchError(KindInternal, "grupo_sin_id", fmt.Errorf("group %q has no conversation id", group.Name))
	}

	// 6. Send with a single bounded retry
	span.AddEvent("send")
	attempts++
	s.logPhase(requestID, "send", map[string]interface{}{"attempt": attempts, "conversation_id": group.ID})
	firstErr := s.send(ctx, group.ID, message)
	if firstErr == nil {
		return &DispatchResult{
			RequestID:      requestID,
			SentTo:         group.Name,
			ConversationID: group.ID,
			Attempts:       attempts,
		}, nil
	}

	s.logger.Warn(dispatchModule, "First send failed, retrying", map[string]interface{}{
		"request_id": requestID,
		"phase":      "send",
		"backoff":    s.cfg.RetryBackoff.String(),
		"error":      firstErr.Error(),
	})
	if err := sleep(ctx, s.cfg.RetryBackoff); err != nil {
		return nil, newDispatchError(KindSendFailure, "error enviando", errors.Join(firstErr, err))
	}

	attempts++
	s.logPhase(requestID, "send", map[string]interface{}{"attempt": attempts, "conversation_id": group.ID})
	if err := s.send(ctx, group.ID, message); err != nil {
		return nil, newDispatchError(KindSendFailure, "error enviando", err)
	}

	return &DispatchResult{
		RequestID:      requestID,
		SentTo:         group.Name,
		ConversationID: group.ID,
		Retried:        true,
		Attempts:       attempts,
	}, nil
}

// waitUntilReady polls readiness until it is true or ReadyTimeout elapses.
func (s *dispatchService) waitUntilReady(ctx context.Context) bool {
	if s.readiness.IsReady() {
		return true
	}

	deadline := time.NewTimer(s.cfg.ReadyTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(s.cfg.ReadyPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			return s.readiness.IsReady()
		case <-ticker.C:
			if s.readiness.IsReady() {
				return true
			}
		}
	}
}

func (s *dispatchService) listConversations(ctx context.Context) (conversations []session.Conversation, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ListTimeout)
	defer cancel()

	err = guard(func() error {
		var listErr error
		conversations, listErr = s.client.ListConversations(ctx)
		return listErr
	})
	return conversations, err
}

func (s *dispatchService) send(ctx context.Context, conversationID, message string) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	defer cancel()

	return guard(func() error {
		return s.client.SendText(ctx, conversationID, message)
	})
}

func (s *dispatchService) finish(ctx context.Context, span trace.Span, requestID, groupName string, res *DispatchResult, err error, attempts int) {
	outcome := OutcomeSent
	retried := false
	switch {
	case err != nil:
		outcome = string(KindOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	case res.Skipped:
		outcome = OutcomeSkipped
	default:
		retried = res.Retried
	}
	span.SetAttributes(
		attribute.String("dispatch.outcome", outcome),
		attribute.Int("dispatch.attempts", attempts),
	)

	s.logOutcome(requestID, outcome, map[string]interface{}{
		"group_name": groupName,
		"attempts":   attempts,
		"retried":    retried,
		"error":      errText(err),
	})

	if s.recorder != nil {
		s.recorder.RecordDispatch(outcome, attempts)
	}

	if s.publisher != nil {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		evt := events.NewMessageDispatched(requestID, groupName, outcome, retried, attempts)
		if pubErr := s.publisher.Publish(pubCtx, evt); pubErr != nil {
			s.logger.Warn(dispatchModule, "Failed to publish dispatch event", map[string]interface{}{
				"request_id": requestID,
				"error":      pubErr.Error(),
			})
		}
	}
}

// logPhase marks the start of a phase so a stalled request shows where it
// stopped.
func (s *dispatchService) logPhase(requestID, phase string, extra map[string]interface{}) {
	details := map[string]interface{}{
		"request_id": requestID,
		"phase":      phase,
	}
	for k, v := range extra {
		details[k] = v
	}
	s.logger.Info(dispatchModule, "Dispatch phase", details)
}

func (s *dispatchService) logOutcome(requestID, outcome string, extra map[string]interface{}) {
	details := map[string]interface{}{
		"request_id": requestID,
		"phase":      "done",
		"outcome":    outcome,
	}
	for k, v := range extra {
		if v == "" {
			continue
		}
		details[k] = v
	}

	switch outcome {
	case OutcomeSent, OutcomeSkipped:
		s.logger.Info(dispatchModule, "Dispatch finished", details)
	case string(KindNotFound), string(KindValidation):
		s.logger.Warn(dispatchModule, "Dispatch rejected", details)
	default:
		s.logger.Error(dispatchModule, "Dispatch failed", details)
	}
}

// findGroup returns the first group whose trimmed name matches target case-insensitively,
// plus the display names of every group seen.
func findGroup(conversations []session.Conversation, target string) (*session.Conversation, []string) {
	available := make([]string, 0, len(conversations))
	var match *session.Conversation
	for i := range conversations {
		c := conversations[i]
		if !c.IsGroup {
			continue
		}
		available = append(available, c.Name)
		if match == nil && strings.EqualFold(strings.TrimSpace(c.Name), target) {
			match = &conversations[i]
		}
	}
	return match, available
}

// guard turns a collaborator panic into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("session client panic: %v", r)
		}
	}()
	return fn()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
