/*-
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package notify sends webhook notifications when the metrics source
// connects or disconnects.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/mfreeman451/systempulse/pkg/config"
)

var (
	errWebhookDisabled   = errors.New("webhook notifier is disabled")
	errWebhookCooldown   = errors.New("notification is within cooldown period")
	errInvalidJSON       = errors.New("invalid JSON generated")
	errWebhookStatus     = errors.New("webhook returned non-2xx status")
	errTemplateParse     = errors.New("template parsing failed")
	errTemplateExecution = errors.New("template execution failed")
)

const (
	webhookTimeout = 10 * time.Second
	maxErrorBody   = 1 << 12

	// TemplateDiscord selects the built-in Discord embed template.
	TemplateDiscord = "discord"
)

type WebhookConfig struct {
	Enabled  bool            `json:"enabled" yaml:"enabled"`
	URL      string          `json:"url" yaml:"url"`
	Headers  []config.Header `json:"headers,omitempty" yaml:"headers,omitempty"`
	Template string          `json:"template,omitempty" yaml:"template,omitempty"` // JSON template, or "discord"
	Cooldown config.Duration `json:"cooldown,omitempty" yaml:"cooldown,omitempty"`
}

type Level string

const (
	Info    Level = "info"
	Warning Level = "warning"
	Error   Level = "error"
)

type Notification struct {
	Level     Level             `json:"level"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Timestamp string            `json:"timestamp"`
	Source    string            `json:"source"`
	Details   map[string]string `json:"details,omitempty"`
}

type WebhookNotifier struct {
	config   WebhookConfig
	client   *http.Client
	tmpl     *template.Template
	tmplErr  error
	now      func() time.Time
	mu       sync.Mutex
	lastSent map[string]time.Time
}

func NewWebhookNotifier(cfg WebhookConfig) *WebhookNotifier {
	w := &WebhookNotifier{
		config:   cfg,
		client:   &http.Client{Timeout: webhookTimeout},
		now:      time.Now,
		lastSent: make(map[string]time.Time),
	}

	text := cfg.Template
	if strings.EqualFold(text, TemplateDiscord) {
		text = DiscordTemplate
	}

	if text != "" {
		w.tmpl, w.tmplErr = template.New("webhook").Funcs(templateFuncs).Parse(text)
		if w.tmplErr != nil {
			log.Printf("Webhook template for %s is invalid: %v", cfg.URL, w.tmplErr)
		}
	}

	return w
}

var templateFuncs = template.FuncMap{
	"json": func(v interface{}) (string, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("JSON marshaling failed: %w", err)
		}

		return string(b), nil
	},
}

func (w *WebhookNotifier) IsEnabled() bool {
	return w.config.Enabled
}

func (w *WebhookNotifier) Notify(ctx context.Context, n *Notification) error {
	if !w.IsEnabled() {
		return errWebhookDisabled
	}

	if err := w.checkCooldown(n.Title); err != nil {
		return err
	}

	if n.Timestamp == "" {
		n.Timestamp = w.now().UTC().Format(time.RFC3339)
	}

	payload, err := w.preparePayload(n)
	if err != nil {
		return fmt.Errorf("failed to prepare payload: %w", err)
	}

	return w.sendRequest(ctx, payload)
}

func (w *WebhookNotifier) checkCooldown(title string) error {
	if w.config.Cooldown <= 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()

	if last, ok := w.lastSent[title]; ok && now.Sub(last) < w.config.Cooldown.Std() {
		log.Printf("Notification '%s' is within cooldown period, skipping", title)

		return errWebhookCooldown
	}

	w.lastSent[title] = now

	return nil
}

func (w *WebhookNotifier) preparePayload(n *Notification) ([]byte, error) {
	if w.tmplErr != nil {
		return nil, fmt.Errorf("%w: %w", errTemplateParse, w.tmplErr)
	}

	if w.tmpl == nil {
		return json.Marshal(n)
	}

	var buf bytes.Buffer

	if err := w.tmpl.Execute(&buf, map[string]interface{}{"notification": n}); err != nil {
		return nil, fmt.Errorf("%w: %w", errTemplateExecution, err)
	}

	if !json.Valid(buf.Bytes()) {
		return nil, errInvalidJSON
	}

	return buf.Bytes(), nil
}

func (w *WebhookNotifier) sendRequest(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	w.setHeaders(req)

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}

	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			log.Printf("failed to close response body: %v", err)
		}
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		return fmt.Errorf("%w: status=%d body=%s", errWebhookStatus, resp.StatusCode, body)
	}

	return nil
}

func (w *WebhookNotifier) setHeaders(req *http.Request) {
	hasContentType := false

	for _, header := range w.config.Headers {
		if strings.EqualFold(header.Key, "content-type") {
			hasContentType = true
		}

		req.Header.Set(header.Key, header.Value)
	}

	if !hasContentType {
		req.Header.Set("Content-Type", "application/json")
	}
}
