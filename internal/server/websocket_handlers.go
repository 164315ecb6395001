package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Browser clients are expected from any origin; CORS applies to plain HTTP only.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// WebSocketResponse wraps one augmentation result on the socket.
type WebSocketResponse struct {
	Type      string           `json:"type"`
	Status    string           `json:"status"` // "completed" or "error"
	Result    *AugmentResponse `json:"result,omitempty"`
	Error     string           `json:"error,omitempty"`
	ErrorType string           `json:"error_type,omitempty"`
	RequestID string           `json:"request_id,omitempty"`
}

// augmentWebSocketHandler serves /ws/augment. Every text message is an
// AugmentRequest; every reply echoes the request id.
func (s *Server) augmentWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	s.logger.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)
	s.handleWebSocketConnection(conn)
	s.logger.Info("WebSocket connection closed", "remote_addr", r.RemoteAddr)
}

func (s *Server) handleWebSocketConnection(conn *websocket.Conn) {
	conn.SetReadLimit(s.uploadLimit())
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Error("WebSocket error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		if messageType == websocket.TextMessage {
			s.handleWebSocketMessage(conn, data)
		}
	}
}

// handleWebSocketMessage runs one request. Writes happen only from the read
// loop, so the connection never sees concurrent writers.
func (s *Server) handleWebSocketMessage(conn WebSocketConnWriter, data []byte) {
	var req AugmentRequest
	if err := json.Unmarshal(data, &req); err != nil {
		augmentRequestsTotal.WithLabelValues("websocket", "error").Inc()
		s.sendWebSocketError(conn, "", errInvalidRequest, fmt.Sprintf("failed to parse request: %v", err))
		return
	}
	if req.ID == "" {
		req.ID = strconv.FormatInt(time.Now().UnixNano(), 10)
	}

	resp, status := s.runAugment(&req)
	augmentRequestsTotal.WithLabelValues("websocket", statusLabel(status)).Inc()
	if !resp.Success {
		s.sendWebSocketError(conn, req.ID, resp.ErrorType, resp.Error)
		return
	}
	s.sendWebSocketResponse(conn, WebSocketResponse{
		Type:      "augment_response",
		Status:    "completed",
		Result:    resp,
		RequestID: req.ID,
	})
}

func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		s.logger.Error("failed to marshal WebSocket response", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Error("failed to send WebSocket message", "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

func (s *Server) sendWebSocketError(conn WebSocketConnWriter, requestID, errorType, message string) {
	s.sendWebSocketResponse(conn, WebSocketResponse{
		Type:      "error",
		Status:    "error",
		Error:     message,
		ErrorType: errorType,
		RequestID: requestID,
	})
}
