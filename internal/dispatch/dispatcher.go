package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync"

	"ragchat-console/internal/backend"
	"ragchat-console/internal/conversation"
	"ragchat-console/internal/dto"
	"ragchat-console/internal/pkg/logger"
	"ragchat-console/internal/session"
)

var (
	ErrEmptyQuery   = errors.New("dispatch: query text is empty")
	ErrUnknownModel = errors.New("dispatch: unknown model")
	ErrBusy         = errors.New("dispatch: a submission is already in flight")
)

// failureText is the generic assistant error message; the user never sees
// transport vs. server failure distinctions.
const failureText = "Sorry, I encountered an error processing your request."

var knownModels = map[string]bool{
	"gemini": true,
	"openai": true,
	"ollama": true,
}

// Querier is the slice of the backend the dispatcher needs.
type Querier interface {
	Query(ctx context.Context, text, model string) (*dto.QueryResponse, error)
}

// Dispatcher drives one submission cycle at a time: append the user turn,
// issue the request, append exactly one resolution turn. A second submission
// while one is unresolved is rejected outright, so there is never more than
// one outstanding cycle.
type Dispatcher struct {
	mu      sync.Mutex
	busy    bool
	model   *conversation.Model
	querier Querier
	log     logger.ILogger
}

func New(model *conversation.Model, querier Querier, log logger.ILogger) *Dispatcher {
	return &Dispatcher{
		model:   model,
		querier: querier,
		log:     log,
	}
}

// Busy reports whether a submission is currently unresolved.
func (d *Dispatcher) Busy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.busy
}

// Submit runs one full submission cycle. Preconditions (non-empty text, known
// model, not busy) are checked before any turn is appended; after acceptance
// the busy flag is cleared exactly once on every exit path.
//
// A session failure (no token, or 401 during the call) bubbles up without an
// error turn: the caller routes the user back to authentication instead.
func (d *Dispatcher) Submit(ctx context.Context, text, modelChoice string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyQuery
	}

	modelChoice = strings.ToLower(strings.TrimSpace(modelChoice))
	if !knownModels[modelChoice] {
		return ErrUnknownModel
	}

	d.mu.Lock()
	if d.busy {
		d.mu.Unlock()
		return ErrBusy
	}
	d.busy = true
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.busy = false
		d.mu.Unlock()
	}()

	d.model.Append(conversation.Turn{Sender: conversation.SenderUser, Text: text})

	res, err := d.querier.Query(ctx, text, modelChoice)
	if err != nil {
		if isSessionFailure(err) {
			return err
		}
		d.log.Warn("dispatch", "query failed", map[string]interface{}{
			"model": modelChoice,
			"error": err.Error(),
		})
		d.model.Append(conversation.Turn{
			Sender:  conversation.SenderAssistant,
			Text:    failureText,
			IsError: true,
		})
		return nil
	}

	d.model.Append(conversation.Turn{
		Sender:     conversation.SenderAssistant,
		Text:       res.Answer,
		Provenance: bundleFrom(res),
	})
	return nil
}

func isSessionFailure(err error) bool {
	return errors.Is(err, backend.ErrSessionExpired) || errors.Is(err, session.ErrNoSession)
}

// bundleFrom builds the provenance bundle from the four optional response
// fields. A channel exists when its metadata summary is present.
func bundleFrom(res *dto.QueryResponse) *conversation.Bundle {
	var b conversation.Bundle
	if res.KeywordMetadata != "" {
		b.Keyword = &conversation.Evidence{
			Summary: res.KeywordMetadata,
			Detail:  res.KeywordContext,
		}
	}
	if res.SemanticMetadata != "" {
		b.Semantic = &conversation.Evidence{
			Summary: res.SemanticMetadata,
			Detail:  res.SemanticContext,
		}
	}
	if b.Keyword == nil && b.Semantic == nil {
		return nil
	}
	return &b
}
