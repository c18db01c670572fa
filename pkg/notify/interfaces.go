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
	"context"
)

//go:generate mockgen -destination=mock_notify.go -package=notify github.com/mfreeman451/systempulse/pkg/notify Notifier

// Notifier delivers notifications to an external receiver.
type Notifier interface {
	// Notify sends a notification through the service
	Notify(ctx context.Context, n *Notification) error

	// IsEnabled returns whether the notifier is enabled
	IsEnabled() bool
}
