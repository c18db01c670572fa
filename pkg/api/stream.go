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

package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// streamRealtime pushes every published view to a websocket client, starting
// with the current one.
func (s *APIServer) streamRealtime(w http.ResponseWriter, r *http.Request) {
	if !s.acquireStream() {
		writeError(w, http.StatusServiceUnavailable, "server is shutting down")

		return
	}
	defer s.streams.Done()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)

		return
	}

	s.recorder.ConnectionOpened()
	defer s.recorder.ConnectionClosed()

	defer func() {
		if err := conn.Close(); err != nil {
			log.Printf("Error closing stream connection: %v", err)
		}
	}()

	views, cancel := s.engine.Subscribe(streamBuffer)
	defer cancel()

	conn.SetReadLimit(streamReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// reading is required to notice the client going away
	readDone := make(chan struct{})

	go func() {
		defer close(readDone)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("WebSocket read error: %v", err)
				}

				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case view, ok := <-views:
			if !ok {
				closeStream(conn, websocket.CloseGoingAway, "engine stopped")

				return
			}

			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))

			if err := conn.WriteJSON(view); err != nil {
				log.Printf("Error writing view to stream: %v", err)

				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))

			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-readDone:
			return
		case <-s.stop:
			closeStream(conn, websocket.CloseGoingAway, "server shutting down")

			return
		}
	}
}

// acquireStream registers a stream unless the server is stopping.
func (s *APIServer) acquireStream() bool {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()

	if s.stopping {
		return false
	}

	s.streams.Add(1)

	return true
}

func closeStream(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)

	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
		log.Printf("Error sending close frame: %v", err)
	}
}

type nopRecorder struct{}

func (nopRecorder) ObserveRequest(string, string, int, time.Duration) {}
func (nopRecorder) APICall(string, string)                            {}
func (nopRecorder) ConnectionOpened()                                 {}
func (nopRecorder) ConnectionClosed()                                 {}
