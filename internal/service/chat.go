// Package service wires the state store to the chat backend: it appends the
// user's message, performs the send, and feeds the outcome back into the
// store's lifecycle operations.
package service

import (
	"context"
	"log/slog"

	"github.com/sellerapp/shopchat/internal/api"
	"github.com/sellerapp/shopchat/internal/models"
	"github.com/sellerapp/shopchat/internal/store"
)

// fallbackUserID is sent when nobody is logged in; the backend treats it as
// an anonymous shopper.
const fallbackUserID = "anonymous"

// Sender performs the outbound message-send operation.
type Sender interface {
	Send(ctx context.Context, req api.SendRequest) (*api.SendResponse, error)
}

// ChatService orchestrates one query round trip. The store stays the single
// source of truth throughout: every observable effect of a send is a
// lifecycle operation.
type ChatService struct {
	store    *store.Store
	sender   Sender
	logger   *slog.Logger
	location string
}

// NewChatService creates the orchestrator. location is attached to every
// request as the shopper's market (backend relevance hint).
func NewChatService(st *store.Store, sender Sender, logger *slog.Logger, location string) *ChatService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{store: st, sender: sender, logger: logger, location: location}
}

// Send appends the query as an in-flight user message, posts it to the
// backend, and on completion reconciles the session id, resolves the
// in-flight flag and appends the bot response. On failure the in-flight flag
// is resolved and a bot message carrying the error text is appended; history
// is never truncated.
func (c *ChatService) Send(ctx context.Context, query string) error {
	state := c.store.Current()

	inFlight := true
	if _, err := c.store.AppendMessage(models.RoleUser, query, nil, &inFlight); err != nil {
		return err
	}

	// Only server-assigned ids travel on the wire: a still-local id means a
	// new conversation and the backend will assign one.
	sessionID := ""
	if state.CurrentSessionID != nil && !store.IsLocalID(*state.CurrentSessionID) {
		sessionID = *state.CurrentSessionID
	}

	userID := fallbackUserID
	location := c.location
	if state.UserInfo != nil {
		userID = state.UserInfo.Email
		if state.UserInfo.Location != "" {
			location = state.UserInfo.Location
		}
	}

	resp, err := c.sender.Send(ctx, api.SendRequest{
		Query:     query,
		SessionID: sessionID,
		UserID:    userID,
		Location:  location,
	})
	if err != nil {
		c.logger.Warn("chat send failed", "error", err)
		c.fail(err)
		return err
	}

	if resp.SessionID != "" {
		if err := c.store.ReconcileSessionID(resp.SessionID); err != nil {
			c.logger.Warn("session id reconciliation failed", "session_id", resp.SessionID, "error", err)
		}
	}

	if err := c.store.ResolveInFlight(false); err != nil {
		c.logger.Warn("resolving in-flight message failed", "error", err)
	}

	text := resp.Text()
	results := resp.SearchResults()
	if text == "" && len(results) == 0 {
		text = "I couldn't find anything for that. Try rephrasing your query."
	}
	if _, err := c.store.AppendMessage(models.RoleBot, text, results, nil); err != nil {
		return err
	}
	return nil
}

// fail records the failure in the conversation: the pending user message
// stops being in flight and a bot message explains what happened.
func (c *ChatService) fail(cause error) {
	if err := c.store.ResolveInFlight(false); err != nil {
		c.logger.Warn("resolving in-flight message failed", "error", err)
	}
	if _, err := c.store.AppendMessage(models.RoleBot, "Error: "+cause.Error(), nil, nil); err != nil {
		c.logger.Warn("appending error message failed", "error", err)
	}
}
