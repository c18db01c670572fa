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

package source

import (
	"context"
	"fmt"
	"io"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/mfreeman451/systempulse/pkg/config"
	"github.com/mfreeman451/systempulse/pkg/models"
)

const maxBodySize = 4 << 20

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// HTTPSource fetches a JSON document with a GET request.
type HTTPSource struct {
	name    string
	url     string
	headers []config.Header
	client  *http.Client
}

func NewHTTPSource(cfg *Config) *HTTPSource {
	return &HTTPSource{
		name:    cfg.name(cfg.URL),
		url:     cfg.URL,
		headers: cfg.Headers,
		client:  &http.Client{Timeout: cfg.timeout()},
	}
}

func (s *HTTPSource) Name() string {
	return s.name
}

// Fetch requests the document and flattens it into readings. Non-2xx
// responses and bodies that are not JSON objects are errors.
func (s *HTTPSource) Fetch(ctx context.Context) (models.Readings, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	for _, h := range s.headers {
		req.Header.Set(h.Key, h.Value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))

		return nil, fmt.Errorf("%w: %d", errUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return decodeDocument(body)
}

func decodeDocument(body []byte) (models.Readings, error) {
	var doc map[string]interface{}

	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", errNotAnObject, err)
	}

	if doc == nil {
		return nil, errNotAnObject
	}

	readings := Flatten(doc)
	if len(readings) == 0 {
		return nil, errNoReadings
	}

	return readings, nil
}
