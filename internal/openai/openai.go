package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bitop-dev/imagine/internal/httpx"
	"github.com/bitop-dev/imagine/internal/provider"
)

const defaultTimeout = 60 * time.Second

const maxImageBytes = 32 << 20

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Provider calls the OpenAI images API, whose success path returns a
// JSON envelope carrying either base64 image data or a short-lived URL
// that has to be fetched separately.
type Provider struct {
	cfg Config
}

func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Model == "" {
		cfg.Model = provider.Profiles[provider.OpenAI].DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Provider{cfg: cfg}
}

func (p *Provider) Name() string { return provider.OpenAI }

type imagesRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	N       int    `json:"n"`
	Size    string `json:"size,omitempty"`
	Quality string `json:"quality,omitempty"`
}

type imagesResponse struct {
	Created int64 `json:"created"`
	Data    []struct {
		B64JSON       string `json:"b64_json,omitempty"`
		URL           string `json:"url,omitempty"`
		RevisedPrompt string `json:"revised_prompt,omitempty"`
	} `json:"data"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

func (p *Provider) GenerateImage(ctx context.Context, req provider.GenerateImageRequest) (provider.GenerateImageResponse, error) {
	if req.Prompt == "" {
		return provider.GenerateImageResponse{}, &provider.Error{Provider: p.Name(), Code: provider.CodeInvalidRequest, Message: "prompt is required", Retryable: false}
	}
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	payload := imagesRequest{
		Model:  model,
		Prompt: req.Prompt,
		N:      1,
		Size:   req.Size,
	}
	// Quality is a DALL-E 3 knob; request normalization upstream strips
	// it for other models.
	if req.Quality != "" {
		payload.Quality = req.Quality
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return provider.GenerateImageResponse{}, &provider.Error{Provider: p.Name(), Code: provider.CodeInvalidRequest, Message: err.Error(), Retryable: false, Cause: err}
	}

	u, err := imagesURL(p.cfg.BaseURL)
	if err != nil {
		return provider.GenerateImageResponse{}, &provider.Error{Provider: p.Name(), Code: provider.CodeInvalidRequest, Message: err.Error(), Retryable: false, Cause: err}
	}

	h := make(http.Header)
	h.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := httpx.Do(ctx, p.cfg.HTTPClient, http.MethodPost, u, body, h)
	if err != nil {
		return provider.GenerateImageResponse{}, provider.ClassifyNetwork(p.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return provider.GenerateImageResponse{}, p.interpretError(resp)
	}

	rawBody, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return provider.GenerateImageResponse{}, &provider.Error{Provider: p.Name(), Code: provider.CodeNetworkError, Message: err.Error(), Retryable: true, Cause: err}
	}
	var out imagesResponse
	if err := json.Unmarshal(rawBody, &out); err != nil {
		return provider.GenerateImageResponse{}, &provider.Error{Provider: p.Name(), Code: provider.CodeInvalidResponse, Message: err.Error(), Retryable: false, Cause: err}
	}
	if len(out.Data) == 0 {
		return provider.GenerateImageResponse{}, &provider.Error{Provider: p.Name(), Code: provider.CodeInvalidResponse, Message: "response has no image data", Retryable: false}
	}

	d := out.Data[0]
	img, err := p.decodeImage(ctx, d.B64JSON, d.URL)
	if err != nil {
		return provider.GenerateImageResponse{}, err
	}

	return provider.GenerateImageResponse{
		Image:         img,
		RevisedPrompt: d.RevisedPrompt,
		RawResponse:   rawBody,
	}, nil
}

func (p *Provider) decodeImage(ctx context.Context, b64, imageURL string) (provider.Image, error) {
	if b64 != "" {
		data, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return provider.Image{}, &provider.Error{Provider: p.Name(), Code: provider.CodeInvalidResponse, Message: "invalid base64 image data: " + err.Error(), Retryable: false, Cause: err}
		}
		return provider.Image{Bytes: data, MediaType: "image/png"}, nil
	}
	if imageURL != "" {
		return p.fetchImage(ctx, imageURL)
	}
	return provider.Image{}, &provider.Error{Provider: p.Name(), Code: provider.CodeInvalidResponse, Message: "image entry has neither b64_json nor url", Retryable: false}
}

// fetchImage downloads the image the envelope pointed at. The signed URL
// is short-lived and the generation already succeeded upstream, so any
// failure here is terminal rather than retryable.
func (p *Provider) fetchImage(ctx context.Context, imageURL string) (provider.Image, error) {
	resp, err := httpx.Do(ctx, p.cfg.HTTPClient, http.MethodGet, imageURL, nil, nil)
	if err != nil {
		return provider.Image{}, &provider.Error{Provider: p.Name(), Code: provider.CodeDownloadError, Message: "image download failed: " + err.Error(), Retryable: false, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return provider.Image{}, &provider.Error{Provider: p.Name(), Code: provider.CodeDownloadError, Status: resp.StatusCode, Message: "image download failed: " + resp.Status, Retryable: false}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return provider.Image{}, &provider.Error{Provider: p.Name(), Code: provider.CodeDownloadError, Message: "image download failed: " + err.Error(), Retryable: false, Cause: err}
	}

	mediaType := resp.Header.Get("Content-Type")
	if i := strings.Index(mediaType, ";"); i >= 0 {
		mediaType = strings.TrimSpace(mediaType[:i])
	}
	if !strings.HasPrefix(mediaType, "image/") {
		mediaType = http.DetectContentType(data)
	}
	return provider.Image{Bytes: data, MediaType: mediaType}, nil
}

func (p *Provider) interpretError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var er errorResponse
	msg := ""
	if json.Unmarshal(b, &er) == nil && er.Error.Message != "" {
		msg = er.Error.Message
	} else {
		msg = strings.TrimSpace(string(b))
	}
	if msg == "" {
		msg = resp.Status
	}

	switch {
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

func imagesURL(base string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/") + "/v1/images/generations")
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

var _ provider.ImageProvider = (*Provider)(nil)
