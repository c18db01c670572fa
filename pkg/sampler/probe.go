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
	"log"
	"time"
)

// StartProbe starts the reachability probe loop. It is a no-op without a
// configured probe or when the loop is already running.
func (s *Sampler) StartProbe() error {
	if s.probe == nil || s.probeInterval <= 0 {
		return nil
	}

	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()

		return nil
	}

	if s.probeStop != nil {
		s.mu.Unlock()

		return nil
	}

	stop := make(chan struct{})
	s.probeStop = stop

	s.mu.Unlock()

	log.Printf("Starting reachability probe for %s every %v", s.source.Name(), s.probeInterval)

	s.wg.Add(1)

	go s.probeLoop(stop)

	return nil
}

// StopProbe stops the probe loop.
func (s *Sampler) StopProbe() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.probeStop != nil {
		close(s.probeStop)
		s.probeStop = nil
	}
}

func (s *Sampler) probeLoop(stop chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.runProbe(stop)
		}
	}
}

func (s *Sampler) runProbe(stop chan struct{}) {
	timeout := s.fetchTimeout
	if s.probeInterval < timeout {
		timeout = s.probeInterval
	}

	ctx, cancel := context.WithTimeout(s.baseCtx, timeout)
	defer cancel()

	started := s.now()
	err := s.probe.Probe(ctx)

	s.mu.Lock()

	if s.probeStop != stop {
		s.mu.Unlock()

		return
	}

	s.health.LastProbe = s.now()

	// A fetch that completed while the probe was running is the fresher signal.
	if s.health.LastUpdate.After(started) {
		s.mu.Unlock()

		return
	}

	wasConnected := s.health.Connected
	s.health.Connected = err == nil

	if err != nil {
		s.health.LastError = "probe: " + err.Error()
	} else {
		s.health.LastError = ""
	}

	ev := Event{Kind: EventProbe, Health: s.health, Err: err}

	s.mu.Unlock()

	if wasConnected != ev.Health.Connected {
		log.Printf("Source %s connection changed: connected=%v", s.source.Name(), ev.Health.Connected)
	}

	s.emit(ev)
}
