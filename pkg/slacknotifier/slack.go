// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package slacknotifier sends operator notifications to Slack through an
// Incoming Webhook.
//
// A notifier built with an empty webhook URL is disabled and silently drops
// every message, so callers never need to check for configuration first.
//
//	notifier := slacknotifier.New(cfg.Notifications.SlackWebhookURL)
//	_ = notifier.SendAlert(ctx, "warning", "InfluxDB unreachable", "spooling readings locally")
package slacknotifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/soothill/smart-home-manager/pkg/errors"
)

const footer = "Smart Home Manager"

// Notifier sends notifications to Slack via webhook
type Notifier struct {
	mu         sync.RWMutex
	webhookURL string
	client     *http.Client
}

// Message represents a Slack webhook message payload
type Message struct {
	Text        string       `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment represents a Slack attachment
type Attachment struct {
	Color  string `json:"color,omitempty"`
	Title  string `json:"title,omitempty"`
	Text   string `json:"text,omitempty"`
	Footer string `json:"footer,omitempty"`
	Ts     int64  `json:"ts,omitempty"`
}

// New creates a new Slack notifier
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// IsEnabled returns whether Slack notifications are enabled
func (s *Notifier) IsEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.webhookURL != ""
}

// UpdateWebhookURL swaps the webhook URL. Used on config reload.
func (s *Notifier) UpdateWebhookURL(webhookURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.webhookURL = webhookURL
}

// SendMessage sends a simple text message to Slack
func (s *Notifier) SendMessage(ctx context.Context, message string) error {
	return s.sendPayload(ctx, Message{Text: message})
}

// SendAlert sends a formatted alert to Slack
func (s *Notifier) SendAlert(ctx context.Context, severity, title, message string) error {
	payload := Message{
		Attachments: []Attachment{
			{
				Color:  severityToColor(severity),
				Title:  title,
				Text:   message,
				Footer: footer,
				Ts:     time.Now().Unix(),
			},
		},
	}
	return s.sendPayload(ctx, payload)
}

func (s *Notifier) sendPayload(ctx context.Context, payload Message) error {
	s.mu.RLock()
	url := s.webhookURL
	s.mu.RUnlock()
	if url == "" {
		return nil
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return apperrors.NewNotificationError("slack", fmt.Errorf("failed to marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return apperrors.NewNotificationError("slack", fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return apperrors.NewNotificationError("slack", fmt.Errorf("failed to send request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return apperrors.NewNotificationError("slack", fmt.Errorf("webhook returned status %d", resp.StatusCode))
	}
	return nil
}

// severityToColor maps severity levels to Slack colors
func severityToColor(severity string) string {
	switch severity {
	case "danger", "error":
		return "danger"
	case "warning", "warn":
		return "warning"
	case "good", "success":
		return "good"
	default:
		return "#808080"
	}
}
