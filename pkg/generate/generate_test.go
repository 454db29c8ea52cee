package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/matzehuels/diagramsync/pkg/errors"
)

func TestExtractSource(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{"fenced mermaid", "Here:\n```mermaid\ngraph TD\n  A-->B\n```\nDone", "graph TD\n  A-->B\n", false},
		{"plain fence", "```\nflowchart LR\n  A-->B\n```", "flowchart LR\n  A-->B\n", false},
		{"code tag", "<code>\ngraph TD\n  X[Go]\n</code>", "graph TD\n  X[Go]\n", false},
		{"bare with prose", "Sure!\ngraph LR\nA-->B", "graph LR\nA-->B\n", false},
		{"no diagram", "I cannot help with that.", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractSource(tt.content)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExtractSource() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ExtractSource() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"json fence", "```json\n[{\"type\":\"text\"}]\n```", `[{"type":"text"}]`},
		{"array in prose", "Here you go: [1, 2] enjoy", "[1, 2]"},
		{"object wrapper", `Result {"elements": [{"type":"arrow"}]} end`, `{"elements": [{"type":"arrow"}]}`},
		{"nothing", "  nope  ", "nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(ExtractJSON(tt.content)); got != tt.want {
				t.Errorf("ExtractJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestText(t *testing.T) {
	ctx := context.Background()
	var gotKind Kind
	c := ClientFunc(func(_ context.Context, prompt string, kind Kind) (string, error) {
		gotKind = kind
		return "```mermaid\ngraph TD\n    A[" + prompt + "]\n```", nil
	})

	src, err := Text(ctx, c, "Login")
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if src != "graph TD\n    A[Login]\n" {
		t.Errorf("Text() = %q", src)
	}
	if gotKind != KindText {
		t.Errorf("Generate() kind = %q, want %q", gotKind, KindText)
	}

	if _, err := Text(ctx, c, "  "); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Text(blank) error = %v, want INVALID_INPUT", err)
	}

	failing := ClientFunc(func(context.Context, string, Kind) (string, error) {
		return "", fmt.Errorf("upstream down")
	})
	if _, err := Text(ctx, failing, "x"); !errors.Is(err, errors.ErrCodeConversion) {
		t.Errorf("Text(failing) error = %v, want CONVERSION_FAILED", err)
	}
}

func TestShapes(t *testing.T) {
	c := ClientFunc(func(_ context.Context, _ string, kind Kind) (string, error) {
		if kind != KindShapes {
			return "", fmt.Errorf("unexpected kind %q", kind)
		}
		return "```json\n[{\"type\":\"rectangle\"}]\n```", nil
	})
	got, err := Shapes(context.Background(), c, "a box")
	if err != nil {
		t.Fatalf("Shapes() error = %v", err)
	}
	if string(got) != `[{"type":"rectangle"}]` {
		t.Errorf("Shapes() = %s", got)
	}
}

func TestHTTPClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(generateResponse{Content: "graph TD\n    A[" + req.Prompt + "]"})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, WithAPIKey("secret"))
	out, err := c.Generate(context.Background(), "Hi", KindText)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if out != "graph TD\n    A[Hi]" {
		t.Errorf("Generate() = %q", out)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestHTTPClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(generateResponse{Error: "prompt rejected"})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, WithRetries(5))
	_, err := c.Generate(context.Background(), "Hi", KindText)
	if err == nil {
		t.Fatal("Generate() error = nil, want error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}
