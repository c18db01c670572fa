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

package sampler

import (
	"context"

	"github.com/mfreeman451/systempulse/pkg/models"
)

//go:generate mockgen -destination=mock_sampler.go -package=sampler github.com/mfreeman451/systempulse/pkg/sampler Source,Probe

// Source returns one set of readings per call.
type Source interface {
	Fetch(ctx context.Context) (models.Readings, error)
	Name() string
}

// Probe reports whether the metrics source is reachable.
type Probe interface {
	Probe(ctx context.Context) error
}
