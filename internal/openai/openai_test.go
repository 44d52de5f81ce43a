package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bitop-dev/imagine/internal/provider"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n fake image data")

func newTestProvider(srv *httptest.Server) *Provider {
	return New(Config{
		APIKey:     "sk-test",
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
	})
}

func TestGenerateImageB64(t *testing.T) {
	var gotPath, gotAuth string
	var gotReq imagesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"created": 1700000000,
			"data": []map[string]any{
				{"b64_json": base64.StdEncoding.EncodeToString(pngBytes), "revised_prompt": "a very red fox"},
			},
		})
	}))
	defer srv.Close()

	p := newTestProvider(srv)
	resp, err := p.GenerateImage(context.Background(), provider.GenerateImageRequest{
		Model:   "dall-e-3",
		Prompt:  "a red fox",
		Size:    "1024x1024",
		Quality: "hd",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/v1/images/generations" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer sk-test" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotReq.Model != "dall-e-3" || gotReq.Prompt != "a red fox" || gotReq.N != 1 {
		t.Fatalf("unexpected request payload %+v", gotReq)
	}
	if gotReq.Size != "1024x1024" || gotReq.Quality != "hd" {
		t.Fatalf("unexpected size/quality %q/%q", gotReq.Size, gotReq.Quality)
	}
	if string(resp.Image.Bytes) != string(pngBytes) {
		t.Fatal("image bytes do not round-trip")
	}
	if resp.RevisedPrompt != "a very red fox" {
		t.Fatalf("unexpected revised prompt %q", resp.RevisedPrompt)
	}
}

func TestGenerateImageURLFetch(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/v1/images/generations", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"url": srv.URL + "/files/img.png"}},
		})
	})
	mux.HandleFunc("/files/img.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes)
	})

	p := newTestProvider(srv)
	resp, err := p.GenerateImage(context.Background(), provider.GenerateImageRequest{Prompt: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Image.Bytes) != string(pngBytes) {
		t.Fatal("downloaded bytes do not round-trip")
	}
	if resp.Image.MediaType != "image/png" {
		t.Fatalf("unexpected media type %q", resp.Image.MediaType)
	}
}

func TestGenerateImageURLFetchFailureIsFatal(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/v1/images/generations", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"url": srv.URL + "/files/expired.png"}},
		})
	})
	mux.HandleFunc("/files/expired.png", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	p := newTestProvider(srv)
	_, err := p.GenerateImage(context.Background(), provider.GenerateImageRequest{Prompt: "x"})

	var pe *provider.Error
	if !errors.As(err, &pe) || pe.Code != provider.CodeDownloadError {
		t.Fatalf("unexpected error: %v", err)
	}
	if pe.Retryable {
		t.Fatal("download failure must not be retryable")
	}
}

func TestGenerateImageEmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))
	defer srv.Close()

	p := newTestProvider(srv)
	_, err := p.GenerateImage(context.Background(), provider.GenerateImageRequest{Prompt: "x"})

	var pe *provider.Error
	if !errors.As(err, &pe) || pe.Code != provider.CodeInvalidResponse || pe.Retryable {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGenerateImageUnauthorizedEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	p := newTestProvider(srv)
	_, err := p.GenerateImage(context.Background(), provider.GenerateImageRequest{Prompt: "x"})

	var pe *provider.Error
	if !errors.As(err, &pe) || pe.Code != provider.CodeUnauthorized || pe.Retryable {
		t.Fatalf("unexpected error: %v", err)
	}
	if pe.Message != "Incorrect API key provided" {
		t.Fatalf("unexpected message %q", pe.Message)
	}
}

func TestGenerateImageRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached"}}`))
	}))
	defer srv.Close()

	p := newTestProvider(srv)
	_, err := p.GenerateImage(context.Background(), provider.GenerateImageRequest{Prompt: "x"})

	var pe *provider.Error
	if !errors.As(err, &pe) || pe.Code != provider.CodeRateLimited || !pe.Retryable {
		t.Fatalf("unexpected error: %v", err)
	}
	if pe.RetryAfter != 30*time.Second {
		t.Fatalf("RetryAfter=%v, want 30s", pe.RetryAfter)
	}
}

func TestGenerateImageBadRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid size"}}`))
	}))
	defer srv.Close()

	p := newTestProvider(srv)
	_, err := p.GenerateImage(context.Background(), provider.GenerateImageRequest{Prompt: "x", Size: "13x37"})

	var pe *provider.Error
	if !errors.As(err, &pe) || pe.Code != provider.CodeHTTPError || pe.Retryable {
		t.Fatalf("unexpected error: %v", err)
	}
}
