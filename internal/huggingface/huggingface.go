package huggingface

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bitop-dev/imagine/internal/httpx"
	"github.com/bitop-dev/imagine/internal/provider"
)

// The Inference API can take tens of seconds on a single attempt while a
// model warms up, so the transport timeout has to sit above that
// ceiling. The overall bound comes from the retry controller.
const defaultTimeout = 60 * time.Second

const maxImageBytes = 32 << 20

type Config struct {
	Token      string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Provider calls the Hugging Face Inference API, whose success path
// returns raw image bytes directly in the response body.
type Provider struct {
	cfg Config
}

func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api-inference.huggingface.co"
	}
	if cfg.Model == "" {
		cfg.Model = provider.Profiles[provider.HuggingFace].DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Provider{cfg: cfg}
}

func (p *Provider) Name() string { return provider.HuggingFace }

type inferenceRequest struct {
	Inputs string `json:"inputs"`
}

// errorBody is the Inference API's JSON error envelope. estimated_time
// accompanies the 503 model-loading signal.
type errorBody struct {
	Error         string  `json:"error"`
	EstimatedTime float64 `json:"estimated_time"`
}

func (p *Provider) GenerateImage(ctx context.Context, req provider.GenerateImageRequest) (provider.GenerateImageResponse, error) {
	if req.Prompt == "" {
		return provider.GenerateImageResponse{}, &provider.Error{Provider: p.Name(), Code: provider.CodeInvalidRequest, Message: "prompt is required", Retryable: false}
	}
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	body, err := json.Marshal(inferenceRequest{Inputs: req.Prompt})
	if err != nil {
		return provider.GenerateImageResponse{}, &provider.Error{Provider: p.Name(), Code: provider.CodeInvalidRequest, Message: err.Error(), Retryable: false, Cause: err}
	}

	u, err := modelURL(p.cfg.BaseURL, model)
	if err != nil {
		return provider.GenerateImageResponse{}, &provider.Error{Provider: p.Name(), Code: provider.CodeInvalidRequest, Message: err.Error(), Retryable: false, Cause: err}
	}

	h := make(http.Header)
	h.Set("Authorization", "Bearer "+p.cfg.Token)
	// The success body is raw image bytes, not JSON.
	h.Set("Accept", "image/png")

	resp, err := httpx.Do(ctx, p.cfg.HTTPClient, http.MethodPost, u, body, h)
	if err != nil {
		return provider.GenerateImageResponse{}, provider.ClassifyNetwork(p.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return p.readImage(resp)
	}
	return provider.GenerateImageResponse{}, p.interpretError(resp)
}

func (p *Provider) readImage(resp *http.Response) (provider.GenerateImageResponse, error) {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return provider.GenerateImageResponse{}, &provider.Error{Provider: p.Name(), Code: provider.CodeNetworkError, Message: err.Error(), Retryable: true, Cause: err}
	}

	mediaType := resp.Header.Get("Content-Type")
	if i := strings.Index(mediaType, ";"); i >= 0 {
		mediaType = strings.TrimSpace(mediaType[:i])
	}
	if mediaType == "" || mediaType == "application/octet-stream" {
		mediaType = http.DetectContentType(data)
	}
	// Fail loud on a 200 that isn't an image rather than persisting
	// whatever came back.
	if !strings.HasPrefix(mediaType, "image/") {
		return provider.GenerateImageResponse{}, &provider.Error{
			Provider:  p.Name(),
			Code:      provider.CodeInvalidResponse,
			Status:    resp.StatusCode,
			Message:   "expected image bytes, got " + mediaType,
			Retryable: false,
		}
	}

	return provider.GenerateImageResponse{
		Image: provider.Image{Bytes: data, MediaType: mediaType},
	}, nil
}

func (p *Provider) interpretError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var eb errorBody
	_ = json.Unmarshal(b, &eb)
	msg := eb.Error
	if msg == "" {
		msg = strings.TrimSpace(string(b))
	}
	if msg == "" {
		msg = resp.Status
	}

	switch {
	case resp.StatusCode == http.StatusServiceUnavailable:
		// Model still loading on the provider's side; the body usually
		// carries an estimated warm-up time in seconds.
		e := &provider.Error{
			Provider:  p.Name(),
			Code:      provider.CodeModelLoading,
			Status:    resp.StatusCode,
			Message:   msg,
			Retryable: true,
		}
		if eb.EstimatedTime > 0 {
			e.RetryAfter = time.Duration(eb.EstimatedTime * float64(time.Second))
		}
		return e
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &provider.Error{Provider: p.Name(), Code: provider.CodeUnauthorized, Status: resp.StatusCode, Message: msg, Retryable: false}
	case resp.StatusCode == http.StatusTooManyRequests:
		e := &provider.Error{Provider: p.Name(), Code: provider.CodeRateLimited, Status: resp.StatusCode, Message: msg, Retryable: true}
		if ra, ok := httpx.RetryAfter(resp.Header.Get("Retry-After")); ok {
			e.RetryAfter = ra
		}
		return e
	case resp.StatusCode >= 500:
		return &provider.Error{Provider: p.Name(), Code: provider.CodeUpstreamError, Status: resp.StatusCode, Message: msg, Retryable: true}
	default:
		return &provider.Error{Provider: p.Name(), Code: provider.CodeHTTPError, Status: resp.StatusCode, Message: msg, Retryable: false}
	}
}

func modelURL(base, model string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/") + "/models/" + model)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

var _ provider.ImageProvider = (*Provider)(nil)
