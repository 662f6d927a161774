// Package server provides HTTP and WebSocket handlers
package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"google.golang.org/protobuf/encoding/protojson"

	apperrors "github.com/wetcoding/cardrecognizer/internal/errors"
	"github.com/wetcoding/cardrecognizer/internal/hand"
	"github.com/wetcoding/cardrecognizer/internal/library"
	"github.com/wetcoding/cardrecognizer/internal/region"
	"github.com/wetcoding/cardrecognizer/internal/syncx"
	"github.com/wetcoding/cardrecognizer/internal/trace"
)

// HandMessage is the reply to one recognized image.
type HandMessage struct {
	Type         string      `json:"type"`
	Hand         string      `json:"hand"`
	Cards        []hand.Card `json:"cards"`
	Unrecognized int         `json:"unrecognized"`
	TraceID      string      `json:"trace_id,omitempty"`
}

// ErrorMessage reports a failed request. Details is the google.rpc.Status of
// the error in protobuf JSON form, carrying an ErrorInfo with the code and metadata.
type ErrorMessage struct {
	Type    string          `json:"type"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details,omitempty"`
}

// LabelsResponse lists the loaded template labels.
type LabelsResponse struct {
	Labels  []string `json:"labels"`
	Samples int      `json:"samples"`
}

// Stats is the running tally since start.
type Stats struct {
	Images       int       `json:"images"`
	Cards        int       `json:"cards"`
	Unrecognized int       `json:"unrecognized"`
	Rejected     int       `json:"rejected"`
	Since        time.Time `json:"since"`
}

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
	now        func() time.Time
}

// allow checks if a message is allowed and records the timestamp if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if r.now != nil {
		now = r.now()
	}
	cutoff := now.Add(-RateLimitWindow)

	// Prune old timestamps
	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= RateLimitMessages {
		return false
	}

	r.timestamps = append(r.timestamps, now)
	return true
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	recognizer *hand.Recognizer
	lib        *library.Library
	stats      *syncx.RWGuard[Stats]
	mu         sync.RWMutex
	rateLimits map[*websocket.Conn]*rateLimiter
}

// New creates a new server.
func New(recognizer *hand.Recognizer, lib *library.Library) *Server {
	return &Server{
		recognizer: recognizer,
		lib:        lib,
		stats:      syncx.NewGuard(Stats{Since: time.Now().UTC()}),
		rateLimits: make(map[*websocket.Conn]*rateLimiter),
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket endpoint
	mux.HandleFunc("/ws", s.handleWebSocket)

	// REST API
	mux.HandleFunc("POST /api/recognize", s.handleRecognize)
	mux.HandleFunc("GET /api/labels", s.handleLabels)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /health", s.handleHealth)

	// Apply middleware: trace -> CORS
	return corsMiddleware(trace.Middleware(mux))
}

// Connections returns the number of open WebSocket connections.
func (s *Server) Connections() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rateLimits)
}

// Stats returns a snapshot of the running tally.
func (s *Server) Stats() Stats { return s.stats.Get() }

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// recognize decodes and reads one image, updating the tally.
func (s *Server) recognize(ctx context.Context, data []byte) (HandMessage, error) {
	ctx, span := trace.StartSpan(ctx, "recognize")
	defer span.End()

	img, err := region.DecodeBytes(data)
	if err == nil {
		var h hand.Hand
		if h, err = s.recognizer.Recognize(ctx, img); err == nil {
			s.stats.Write(func(st *Stats) {
				st.Images++
				st.Cards += len(h.Cards)
				st.Unrecognized += h.Unrecognized()
			})
			msg := HandMessage{Type: "hand", Hand: h.String(), Cards: h.Cards, Unrecognized: h.Unrecognized()}
			if tc, ok := trace.FromContext(ctx); ok {
				msg.TraceID = tc.TraceID
			}
			span.SetAttr("hand", msg.Hand)
			return msg, nil
		}
	}

	s.stats.Write(func(st *Stats) { st.Rejected++ })
	span.SetAttr("error", err.Error())
	return HandMessage{}, err
}

func (s *Server) handleRecognize(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxImageBytes))
	if err != nil {
		writeError(w, apperrors.Wrap(err, apperrors.CodeInvalidArgument, "read request body"))
		return
	}

	msg, err := s.recognize(r.Context(), data)
	if err != nil {
		trace.Logger(r.Context()).Warn("recognize failed", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (s *Server) handleLabels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, LabelsResponse{Labels: s.lib.Labels(), Samples: s.lib.Samples()})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Stats())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()
	conn.SetReadLimit(MaxImageBytes)

	rl := &rateLimiter{}
	s.mu.Lock()
	s.rateLimits[conn] = rl
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.rateLimits, conn)
		s.mu.Unlock()
	}()

	// Get trace context from HTTP upgrade request
	baseCtx := r.Context()
	log := trace.Logger(baseCtx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	for {
		typ, data, err := conn.Read(baseCtx)
		if err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		var reply any
		switch {
		case !rl.allow():
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			reply = ErrorMessage{Type: "error", Code: "RATE_LIMITED", Message: "rate limit exceeded"}
		case typ != websocket.MessageBinary:
			reply = ErrorMessage{Type: "error", Code: apperrors.CodeInvalidArgument.String(), Message: "expected a binary image message"}
		default:
			ctx := trace.WithContext(baseCtx, trace.New())
			msg, err := s.recognize(ctx, data)
			if err != nil {
				reply = errorMessage(err)
			} else {
				reply = msg
			}
		}

		ctx, cancel := context.WithTimeout(baseCtx, WriteTimeout)
		err = wsjson.Write(ctx, conn, reply)
		cancel()
		if err != nil {
			log.Debug("websocket write error", "error", err)
			return
		}
	}
}

func errorMessage(err error) ErrorMessage {
	msg := ErrorMessage{Type: "error", Code: apperrors.CodeOf(err).String(), Message: err.Error()}
	if appErr, ok := apperrors.As(err); ok {
		msg.Code = appErr.Code.String()
		msg.Message = appErr.Message
		if details, err := protojson.Marshal(appErr.GRPCStatus().Proto()); err == nil {
			msg.Details = details
		}
	}
	return msg
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if appErr, ok := apperrors.As(err); ok {
		status = appErr.HTTPStatus()
	}
	writeJSON(w, status, errorMessage(err))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response", "error", err)
	}
}
