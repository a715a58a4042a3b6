package voteapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Xausdorf/chatpoll/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrChatAccessDenied = errors.New("can't access the chat")
)

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client submits votes to the chat server over HTTP. It implements the
// poll manager's VoteTransport contract: every submission runs in its
// own goroutine, reports through the completion callback exactly once
// and can be canceled through the returned function. A cancel does not
// prevent the callback from firing, which is fine because completions
// are correlated by generation on the manager side.
type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

func NewClient(cfg Config, log *slog.Logger) *Client {
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
		log: log,
	}
}

type sendVoteRequest struct {
	ChatID    int64    `json:"chat_id"`
	MessageID int64    `json:"message_id"`
	Options   []string `json:"options"`
}

func (c *Client) SubmitVote(ctx context.Context, messageID domain.FullMessageID, options []string, complete func(err error)) (cancel func()) {
	callCtx, cancelCall := context.WithCancel(ctx)

	go func() {
		complete(c.sendVote(callCtx, messageID, options))
	}()

	return cancelCall
}

func (c *Client) sendVote(ctx context.Context, messageID domain.FullMessageID, options []string) error {
	const op = "voteapi.sendVote"

	requestID := uuid.NewString()
	log := c.log.With(slog.String("op", op), slog.String("requestID", requestID))

	body, err := json.Marshal(sendVoteRequest{
		ChatID:    messageID.ChatID,
		MessageID: messageID.MessageID,
		Options:   options,
	})
	if err != nil {
		return fmt.Errorf("%s: could not encode request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/messages/send-vote", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: could not build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("X-Request-ID", requestID)

	log.Info("sending vote", slog.Int64("chatID", messageID.ChatID), slog.Int64("messageID", messageID.MessageID))

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%s: %w", op, ErrChatAccessDenied)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		message, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s: server rejected vote: %d %s", op, resp.StatusCode, message)
	}

	log.Info("vote accepted")
	return nil
}
