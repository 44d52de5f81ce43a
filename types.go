package imagine

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bitop-dev/imagine/internal/credentials"
	"github.com/bitop-dev/imagine/internal/provider"
	"github.com/bitop-dev/imagine/internal/retry"
)

// ProviderMode selects which provider(s) the dispatcher may contact.
type ProviderMode string

const (
	// ModeAuto tries the free provider only and, on failure, suggests
	// the paid one without ever calling it.
	ModeAuto ProviderMode = "auto"

	ModeHuggingFace ProviderMode = provider.HuggingFace
	ModeOpenAI      ProviderMode = provider.OpenAI
)

func ParseProviderMode(s string) (ProviderMode, error) {
	switch ProviderMode(s) {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeHuggingFace:
		return ModeHuggingFace, nil
	case ModeOpenAI:
		return ModeOpenAI, nil
	}
	return "", fmt.Errorf("unknown provider %q (want auto, %s or %s)", s, provider.HuggingFace, provider.OpenAI)
}

// Sizes the OpenAI images API accepts. The free provider's models pick
// their own dimensions and ignore the size knob.
var validSizes = map[string]bool{
	"256x256":   true,
	"512x512":   true,
	"1024x1024": true,
	"1792x1024": true,
	"1024x1792": true,
}

var dalle2UnsupportedSizes = map[string]bool{
	"1792x1024": true,
	"1024x1792": true,
}

// Request describes one generation. It is built once per invocation and
// not mutated afterwards; normalization works on a copy.
type Request struct {
	Prompt string
	Mode   ProviderMode

	// HFModel overrides the free provider's model; Model overrides the
	// paid provider's (dall-e-2 or dall-e-3).
	HFModel string
	Model   string

	Size    string
	Quality string

	// Credentials overrides credential resolution; nil resolves from
	// the environment, .env and the local config document.
	Credentials *credentials.Store

	// Wiring overrides, used by tests and the CLI.
	HTTPClient         *http.Client
	HuggingFaceBaseURL string
	OpenAIBaseURL      string
	Timeout            time.Duration
	Retry              *retry.Policy
}

// Result is the success side of a generation. The failure side is an
// *Error naming the provider attempted and the reason.
type Result struct {
	Image     []byte
	MediaType string

	Provider string
	Model    string
	Attempts int

	// Warnings collects parameter adjustments made during
	// normalization (e.g. a quality downgrade for dall-e-2).
	Warnings []string

	RevisedPrompt string
}

// normalize validates the request and applies provider parameter rules,
// returning the effective request and any adjustment warnings.
func (r Request) normalize() (Request, []string, error) {
	var warnings []string

	if strings.TrimSpace(r.Prompt) == "" {
		return r, nil, fmt.Errorf("prompt is required")
	}

	if r.Mode == "" {
		r.Mode = ModeAuto
	}
	switch r.Mode {
	case ModeAuto, ModeHuggingFace, ModeOpenAI:
	default:
		return r, nil, fmt.Errorf("unknown provider mode %q", r.Mode)
	}

	if r.HFModel == "" {
		r.HFModel = provider.Profiles[provider.HuggingFace].DefaultModel
	}
	if r.Model == "" {
		r.Model = provider.Profiles[provider.OpenAI].DefaultModel
	}

	if r.Size == "" {
		r.Size = "1024x1024"
	}
	if !validSizes[r.Size] {
		return r, nil, fmt.Errorf("unsupported size %q", r.Size)
	}

	switch r.Quality {
	case "", "standard", "hd":
	default:
		return r, nil, fmt.Errorf("unsupported quality %q (want standard or hd)", r.Quality)
	}

	// DALL-E 2 rejects HD quality and the wide/tall sizes; downgrade
	// with a warning instead of failing a request that would otherwise
	// succeed.
	if r.Model == "dall-e-2" {
		if r.Quality == "hd" {
			warnings = append(warnings, "dall-e-2 does not support hd quality, using standard")
			r.Quality = "standard"
		}
		if dalle2UnsupportedSizes[r.Size] {
			warnings = append(warnings, fmt.Sprintf("dall-e-2 does not support size %s, using 1024x1024", r.Size))
			r.Size = "1024x1024"
		}
	}
	// Quality is only meaningful for dall-e-3; don't send the default
	// for other models.
	if r.Model != "dall-e-3" && r.Quality == "standard" {
		r.Quality = ""
	}

	return r, warnings, nil
}
