package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	spb "google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/wetcoding/cardrecognizer/internal/hand"
	"github.com/wetcoding/cardrecognizer/internal/library"
	"github.com/wetcoding/cardrecognizer/internal/match"
	"github.com/wetcoding/cardrecognizer/internal/phash"
	"github.com/wetcoding/cardrecognizer/internal/region"
	"github.com/wetcoding/cardrecognizer/internal/trace"
)

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(235 - x*12)
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

// handPNG encodes a default-layout screenshot with one "K" value and a blank suit.
func handPNG(t *testing.T, size image.Point) []byte {
	t.Helper()
	l := hand.DefaultLayout()
	img := image.NewRGBA(image.Rectangle{Max: size})
	for y := 0; y < size.Y; y++ {
		for x := 0; x < size.X; x++ {
			img.Set(x, y, color.RGBA{R: 10, G: 90, B: 40, A: 255})
		}
	}
	v, s := l.ValueRect(0), l.SuitRect(0)
	for y := v.Min.Y; y < s.Max.Y; y++ {
		for x := v.Min.X; x < v.Max.X; x++ {
			img.Set(x, y, color.White)
		}
	}
	g := gradient(16, 16)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(v.Min.X+4+x, v.Min.Y+3+y, g.At(x, y))
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newServer(t *testing.T) *Server {
	t.Helper()
	h := phash.NewDHash(phash.DefaultSize, phash.DefaultThreshold, nil)
	fp, err := h.Hash(gradient(16, 16))
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	lib := library.New(map[string][]phash.Fingerprint{"K": {fp}, "Club": {fp}})
	m := match.New(h, lib, region.DefaultPalette(), nil)
	return New(hand.NewRecognizer(hand.DefaultLayout(), m), lib)
}

func TestCORSMiddleware(t *testing.T) {
	handler := corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Test OPTIONS request
	req := httptest.NewRequest("OPTIONS", "/test", http.NoBody)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("OPTIONS status = %d, want %d", rec.Code, http.StatusOK)
	}
	if v := rec.Header().Get("Access-Control-Allow-Origin"); v != "*" {
		t.Errorf("CORS origin = %q, want %q", v, "*")
	}
	if v := rec.Header().Get("Access-Control-Allow-Methods"); v != "GET, POST, OPTIONS" {
		t.Errorf("CORS methods = %q, want %q", v, "GET, POST, OPTIONS")
	}

	// Test regular request
	req = httptest.NewRequest("GET", "/test", http.NoBody)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("GET status = %d, want %d", rec.Code, http.StatusOK)
	}
	if v := rec.Header().Get("Access-Control-Allow-Origin"); v != "*" {
		t.Errorf("CORS origin on GET = %q, want %q", v, "*")
	}
}

func TestRecognizeEndpoint(t *testing.T) {
	s := newServer(t)
	req := httptest.NewRequest("POST", "/api/recognize", bytes.NewReader(handPNG(t, hand.DefaultLayout().Size)))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body)
	}
	var msg HandMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &msg); err != nil {
		t.Fatalf("json.Unmarshal error: %v", err)
	}
	// Equal scores resolve to the smaller label.
	if msg.Hand != "Club" {
		t.Errorf("Hand = %q, want %q", msg.Hand, "Club")
	}
	if msg.Unrecognized != 1 {
		t.Errorf("Unrecognized = %d, want 1", msg.Unrecognized)
	}
	if msg.TraceID == "" || msg.TraceID != rec.Header().Get(trace.TraceIDHeader) {
		t.Errorf("TraceID = %q, header = %q", msg.TraceID, rec.Header().Get(trace.TraceIDHeader))
	}

	st := s.Stats()
	if st.Images != 1 || st.Cards != 1 || st.Unrecognized != 1 || st.Rejected != 0 {
		t.Errorf("Stats = %+v", st)
	}
}

func TestRecognizeEndpointErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   []byte
		status int
		code   string
	}{
		{"garbage", []byte("not an image"), http.StatusUnsupportedMediaType, "DECODE_ERROR"},
		{"wrong size", handPNG(t, image.Pt(640, 480)), http.StatusUnprocessableEntity, "DIMENSION_MISMATCH"},
	}

	s := newServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/recognize", bytes.NewReader(tt.body))
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			var msg ErrorMessage
			if err := json.Unmarshal(rec.Body.Bytes(), &msg); err != nil {
				t.Fatalf("json.Unmarshal error: %v", err)
			}
			if msg.Code != tt.code {
				t.Errorf("code = %q, want %q", msg.Code, tt.code)
			}

			var st spb.Status
			if err := protojson.Unmarshal(msg.Details, &st); err != nil {
				t.Fatalf("details %s: %v", msg.Details, err)
			}
			if got := codes.Code(st.GetCode()); got != codes.InvalidArgument {
				t.Errorf("details code = %v, want %v", got, codes.InvalidArgument)
			}
			details := status.FromProto(&st).Details()
			if len(details) != 1 {
				t.Fatalf("details = %v, want one ErrorInfo", details)
			}
			info, ok := details[0].(*errdetails.ErrorInfo)
			if !ok || info.GetReason() != tt.code {
				t.Errorf("ErrorInfo = %v, want reason %s", details[0], tt.code)
			}
		})
	}
	if got := s.Stats().Rejected; got != len(tests) {
		t.Errorf("Rejected = %d, want %d", got, len(tests))
	}
}

func TestLabelsAndHealth(t *testing.T) {
	s := newServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/labels", http.NoBody))
	var labels LabelsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &labels); err != nil {
		t.Fatalf("json.Unmarshal error: %v", err)
	}
	if strings.Join(labels.Labels, ",") != "Club,K" || labels.Samples != 2 {
		t.Errorf("labels = %+v, want [Club K] with 2 samples", labels)
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/health", http.NoBody))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("health = %d %s", rec.Code, rec.Body)
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/recognize", http.NoBody))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/recognize status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestWebSocketRecognize(t *testing.T) {
	s := newServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")
	conn.SetReadLimit(MaxImageBytes)

	if err := conn.Write(ctx, websocket.MessageBinary, handPNG(t, hand.DefaultLayout().Size)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	var msg HandMessage
	if err := wsjson.Read(ctx, conn, &msg); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if msg.Type != "hand" || msg.Hand != "Club" {
		t.Errorf("reply = %+v, want hand Club", msg)
	}

	if err := wsjson.Write(ctx, conn, map[string]string{"type": "chat"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	var bad ErrorMessage
	if err := wsjson.Read(ctx, conn, &bad); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if bad.Type != "error" || bad.Code != "INVALID_ARGUMENT" {
		t.Errorf("reply = %+v, want INVALID_ARGUMENT error", bad)
	}

	if got := s.Connections(); got != 1 {
		t.Errorf("Connections() = %d, want 1", got)
	}
}

func TestRateLimiterSlidingWindow(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := &rateLimiter{now: func() time.Time { return now }}

	for i := 0; i < RateLimitMessages; i++ {
		if !rl.allow() {
			t.Fatalf("message %d rejected inside the limit", i)
		}
	}
	if rl.allow() {
		t.Error("message over the limit allowed")
	}

	now = now.Add(RateLimitWindow + time.Millisecond)
	if !rl.allow() {
		t.Error("message after the window rejected")
	}
}
