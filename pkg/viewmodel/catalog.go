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

package viewmodel

import "github.com/mfreeman451/systempulse/pkg/models"

// DefaultCatalog mirrors the dashboard's real-time panel over the backend's
// dashboard metrics document.
func DefaultCatalog() []models.IndicatorDefinition {
	return []models.IndicatorDefinition{
		{Key: "system_metrics.cpu_usage", Name: "CPU Usage", Unit: "%", Precision: 2, Color: "blue"},
		{Key: "system_metrics.memory_usage", Name: "Memory Usage", Unit: "%", Precision: 2, Color: "green"},
		{Key: "application_metrics.request_rate", Name: "Request Rate", Unit: "req/s", Precision: 2, Color: "purple"},
		{Key: "application_metrics.response_time_p95", Name: "Response Time", Unit: "s", Precision: 2, Color: "orange"},
		{Key: "application_metrics.error_rate", Name: "Error Rate", Unit: "%", Precision: 2, Scale: 100, Color: "red"},
		{Key: "application_metrics.active_users", Name: "Active Users", Unit: "users", Precision: 0, Color: "indigo"},
	}
}
