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

// Package trend derives period-over-period direction and magnitude for a
// single indicator.
package trend

import (
	"math"

	"github.com/mfreeman451/systempulse/pkg/models"
)

// DefaultDeadBand is the percentage change absorbed as noise.
const DefaultDeadBand = 1.0

// Calculator computes trends. The zero value uses a dead band of 0.
type Calculator struct {
	DeadBand float64
}

// Default returns a Calculator with DefaultDeadBand.
func Default() Calculator {
	return Calculator{DeadBand: DefaultDeadBand}
}

// NewCalculator validates deadBand and returns a Calculator using it.
func NewCalculator(deadBand float64) (Calculator, error) {
	if deadBand < 0 || math.IsNaN(deadBand) || math.IsInf(deadBand, 0) {
		return Calculator{}, &models.ConfigError{Field: "dead_band", Reason: "must be a finite value >= 0"}
	}

	return Calculator{DeadBand: deadBand}, nil
}

// Calculate uses the default dead band.
func Calculate(current, previous float64) models.Trend {
	return Default().Calculate(current, previous)
}

// Calculate returns the trend from previous to current. A zero previous value
// means there is no baseline, which is reported as a stable trend.
func (c Calculator) Calculate(current, previous float64) models.Trend {
	t := models.Trend{
		Value:         current,
		PreviousValue: previous,
		Direction:     models.DirectionStable,
	}

	if previous == 0 {
		return t
	}

	raw := (current - previous) / previous * 100
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return t
	}

	band := math.Max(c.DeadBand, 0)

	switch {
	case raw > band:
		t.Direction = models.DirectionUp
	case raw < -band:
		t.Direction = models.DirectionDown
	}

	t.ChangePercent = math.Abs(raw)

	return t
}
