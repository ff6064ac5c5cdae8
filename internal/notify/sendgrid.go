// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SendGrid v3 API defaults.
const (
	SendGridEndpoint = "https://api.sendgrid.com/v3/mail/send"
	RequestTimeout   = 30 * time.Second
	MaxResponseLen   = 10 * 1024
)

var httpClient = &http.Client{
	Timeout: RequestTimeout,
	Transport: &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
	},
}

// SendGridSender posts messages to the SendGrid v3 mail/send endpoint.
type SendGridSender struct {
	apiKey   string
	from     Address
	endpoint string
	client   *http.Client
}

func NewSendGridSender(apiKey string, from Address) *SendGridSender {
	return &SendGridSender{
		apiKey:   apiKey,
		from:     from,
		endpoint: SendGridEndpoint,
		client:   httpClient,
	}
}

type sgAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sgPersonalization struct {
	To      []sgAddress `json:"to"`
	Subject string      `json:"subject"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgRequest struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	Content          []sgContent         `json:"content"`
}

func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	body := sgRequest{
		Personalizations: []sgPersonalization{{
			To:      []sgAddress{{Email: msg.To, Name: msg.ToName}},
			Subject: msg.Subject,
		}},
		From: sgAddress{Email: s.from.Email, Name: s.from.Name},
	}
	// SendGrid requires text/plain before text/html.
	if msg.Text != "" {
		body.Content = append(body.Content, sgContent{Type: "text/plain", Value: msg.Text})
	}
	body.Content = append(body.Content, sgContent{Type: "text/html", Value: msg.HTML})

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding sendgrid request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating sendgrid request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return &SendError{Provider: "sendgrid", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, MaxResponseLen))
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseLen))
	return &SendError{
		Provider:   "sendgrid",
		StatusCode: resp.StatusCode,
		Body:       string(respBody),
		Err:        fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
