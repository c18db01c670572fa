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

// Package viewmodel combines the indicator catalog with the current and
// previous snapshots into the ordered list a renderer displays.
package viewmodel

import (
	"strconv"

	"github.com/mfreeman451/systempulse/pkg/models"
	"github.com/mfreeman451/systempulse/pkg/trend"
)

// Build returns one Indicator per catalog entry, in catalog order.
//
// Keys missing from current read as zero. A nil previous snapshot means no
// baseline, so every trend is stable. Build has no side effects.
func Build(
	catalog []models.IndicatorDefinition,
	current, previous *models.MetricSnapshot,
	calc trend.Calculator) []models.Indicator {
	indicators := make([]models.Indicator, 0, len(catalog))

	for i := range catalog {
		def := &catalog[i]
		factor := def.Factor()

		value, _ := current.Value(def.Key)
		value *= factor

		var prev float64
		if p, ok := previous.Value(def.Key); ok {
			prev = p * factor
		}

		indicators = append(indicators, models.Indicator{
			Key:     def.Key,
			Name:    def.Name,
			Unit:    def.Unit,
			Value:   value,
			Display: format(value, def.Precision),
			Trend:   calc.Calculate(value, prev),
			Color:   def.Color,
		})
	}

	return indicators
}

func format(v float64, precision int) string {
	if precision < 0 {
		precision = -1
	}

	return strconv.FormatFloat(v, 'f', precision, 64)
}

// ValidateCatalog rejects empty and duplicate keys.
func ValidateCatalog(catalog []models.IndicatorDefinition) error {
	if len(catalog) == 0 {
		return &models.ConfigError{Field: "catalog", Reason: "at least one indicator is required"}
	}

	seen := make(map[string]struct{}, len(catalog))

	for i := range catalog {
		key := catalog[i].Key
		if key == "" {
			return &models.ConfigError{Field: "catalog", Reason: "indicator " + strconv.Itoa(i) + " has an empty key"}
		}

		if _, dup := seen[key]; dup {
			return &models.ConfigError{Field: "catalog", Reason: "duplicate key " + strconv.Quote(key)}
		}

		seen[key] = struct{}{}
	}

	return nil
}
