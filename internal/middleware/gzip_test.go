package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const (
	orderBody = `{"title":"Spring Restock","customerId":"cust-42","lineItems":[{"productId":"denim-001","quantity":3}]}`
	csvExport = "Date,Time,Type,Message,Order ID,Customer,Read\n" +
		`2026-03-09,08:30:00,new_order,"New order ""Spring Restock"" from cust-42",ord-1,cust-42,No` + "\n"
)

// echoOrder отвечает 201 с телом запроса, как обработчик создания заказа.
func echoOrder(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	defer r.Body.Close()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(body)
}

func exportCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	_, _ = w.Write([]byte(csvExport))
}

func markViewed(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func gzipBytes(t *testing.T, s string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte(s)); err != nil {
		t.Fatalf("write gzip: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
	return &buf
}

func TestGzipMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		target         string
		handler        http.HandlerFunc
		body           string
		gzipBody       bool
		acceptEncoding string
		wantStatus     int
		wantEncoding   string
		wantBody       string
	}{
		{
			name:           "order JSON compressed for gzip client",
			method:         http.MethodPost,
			target:         "/api/orders",
			handler:        echoOrder,
			body:           orderBody,
			acceptEncoding: "gzip, deflate",
			wantStatus:     http.StatusCreated,
			wantEncoding:   "gzip",
			wantBody:       orderBody,
		},
		{
			name:         "order JSON plain without Accept-Encoding",
			method:       http.MethodPost,
			target:       "/api/orders",
			handler:      echoOrder,
			body:         orderBody,
			wantStatus:   http.StatusCreated,
			wantEncoding: "",
			wantBody:     orderBody,
		},
		{
			name:           "gzipped order body is decompressed",
			method:         http.MethodPost,
			target:         "/api/orders",
			handler:        echoOrder,
			body:           orderBody,
			gzipBody:       true,
			acceptEncoding: "gzip",
			wantStatus:     http.StatusCreated,
			wantEncoding:   "gzip",
			wantBody:       orderBody,
		},
		{
			name:           "CSV export compressed",
			method:         http.MethodGet,
			target:         "/api/notifications/export",
			handler:        exportCSV,
			acceptEncoding: "gzip",
			wantStatus:     http.StatusOK,
			wantEncoding:   "gzip",
			wantBody:       csvExport,
		},
		{
			name:           "no content is left alone",
			method:         http.MethodPost,
			target:         "/api/orders/ord-1/viewed",
			handler:        markViewed,
			acceptEncoding: "gzip",
			wantStatus:     http.StatusNoContent,
			wantEncoding:   "",
			wantBody:       "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader = strings.NewReader(tt.body)
			if tt.gzipBody {
				body = gzipBytes(t, tt.body)
			}

			req := httptest.NewRequest(tt.method, tt.target, body)
			if tt.gzipBody {
				req.Header.Set("Content-Encoding", "gzip")
			}
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}
			w := httptest.NewRecorder()

			GzipMiddleware(tt.handler).ServeHTTP(w, req)

			res := w.Result()
			defer res.Body.Close()

			if res.StatusCode != tt.wantStatus {
				t.Fatalf("status: got %d want %d", res.StatusCode, tt.wantStatus)
			}
			if ce := res.Header.Get("Content-Encoding"); ce != tt.wantEncoding {
				t.Fatalf("content-encoding: got %q want %q", ce, tt.wantEncoding)
			}

			reader := io.Reader(res.Body)
			if tt.wantEncoding == "gzip" {
				gr, err := gzip.NewReader(res.Body)
				if err != nil {
					t.Fatalf("new gzip reader: %v", err)
				}
				defer gr.Close()
				reader = gr
			}
			got, err := io.ReadAll(reader)
			if err != nil {
				t.Fatalf("read body: %v", err)
			}
			if string(got) != tt.wantBody {
				t.Fatalf("body: got %q want %q", got, tt.wantBody)
			}
		})
	}
}

func TestGzipMiddleware_InvalidGzipBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(orderBody))
	req.Header.Set("Content-Encoding", "gzip")
	w := httptest.NewRecorder()

	GzipMiddleware(http.HandlerFunc(echoOrder)).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d want %d", w.Code, http.StatusBadRequest)
	}
}

func TestGzipMiddleware_EventStreamPassesThrough(t *testing.T) {
	h := GzipMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("event: orders\ndata: []\n\n"))
		w.(http.Flusher).Flush()
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/stream/orders", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if ce := w.Header().Get("Content-Encoding"); ce != "" {
		t.Fatalf("content-encoding: got %q want none", ce)
	}
	if body := w.Body.String(); body != "event: orders\ndata: []\n\n" {
		t.Fatalf("body: got %q", body)
	}
	if !w.Flushed {
		t.Fatalf("stream was not flushed")
	}
}
