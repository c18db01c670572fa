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

package notify

import (
	"github.com/mfreeman451/systempulse/pkg/config"
)

const (
	DiscordColorRed    = 15158332 // Error
	DiscordColorYellow = 16776960 // Warning
	DiscordColorGreen  = 3066993  // Info
)

const DiscordTemplate = `{
  "embeds": [{
    "title": {{json .notification.Title}},
    "description": {{json .notification.Message}},
    "color": {{if eq .notification.Level "error"}}15158332{{else if eq .notification.Level "warning"}}16776960{{else}}3066993{{end}},
    "timestamp": {{json .notification.Timestamp}},
    "fields": [
      {
        "name": "Source",
        "value": {{json .notification.Source}},
        "inline": true
      }
      {{range $key, $value := .notification.Details}},
      {
        "name": {{json $key}},
        "value": {{json $value}},
        "inline": true
      }
      {{end}}
    ]
  }]
}`

func NewDiscordWebhook(webhookURL string, cooldown config.Duration) *WebhookNotifier {
	return NewWebhookNotifier(WebhookConfig{
		Enabled:  true,
		URL:      webhookURL,
		Template: TemplateDiscord,
		Cooldown: cooldown,
	})
}
