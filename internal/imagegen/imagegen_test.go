package imagegen

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestGenerate_Success tests the happy path: prompt in, image URL out
func TestGenerate_Success(t *testing.T) {
	var gotPrompt string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", ct)
		}

		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		gotPrompt = req.Prompt

		json.NewEncoder(w).Encode(generateResponse{URL: "https://images.example.com/cat.png"})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, 5*time.Second, nil)

	url, err := client.Generate(context.Background(), "a cat wearing a hat")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if url != "https://images.example.com/cat.png" {
		t.Errorf("expected image URL, got %q", url)
	}
	if gotPrompt != "a cat wearing a hat" {
		t.Errorf("endpoint received prompt %q", gotPrompt)
	}
}

// TestGenerate_NotConfigured tests that an empty endpoint is reported, not fatal
func TestGenerate_NotConfigured(t *testing.T) {
	client := NewHTTPClient("", 5*time.Second, nil)

	_, err := client.Generate(context.Background(), "anything")
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

// TestGenerate_EndpointFailures tests the ErrGeneration mappings
func TestGenerate_EndpointFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-success status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			},
		},
		{
			name: "missing url field",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(generateResponse{Error: "content policy"})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := NewHTTPClient(server.URL, 5*time.Second, nil)

			_, err := client.Generate(context.Background(), "a cat")
			if !errors.Is(err, ErrGeneration) {
				t.Errorf("expected ErrGeneration, got %v", err)
			}
		})
	}
}

// TestGenerate_NetworkError tests behavior when the endpoint is unreachable
func TestGenerate_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // kill it before use

	client := NewHTTPClient(server.URL, time.Second, nil)

	_, err := client.Generate(context.Background(), "a cat")
	if !errors.Is(err, ErrGeneration) {
		t.Errorf("expected ErrGeneration, got %v", err)
	}
}

// TestMockClient tests the test double records prompts and honors its fields
func TestMockClient(t *testing.T) {
	mock := &MockClient{URL: "https://images.example.com/x.png"}

	url, err := mock.Generate(context.Background(), "first")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if url != "https://images.example.com/x.png" {
		t.Errorf("unexpected URL %q", url)
	}

	mock.GenerateError = errors.New("boom")
	if _, err := mock.Generate(context.Background(), "second"); err == nil {
		t.Error("expected configured error")
	}

	if len(mock.GenerateCalls) != 2 || mock.GenerateCalls[0] != "first" || mock.GenerateCalls[1] != "second" {
		t.Errorf("unexpected recorded calls: %v", mock.GenerateCalls)
	}
}
