// Package imagine turns a natural-language prompt into an image by
// dispatching to one of two text-to-image providers: the free Hugging
// Face Inference API or the paid OpenAI images API. Automatic mode only
// ever contacts the free provider; the paid one is suggested, never
// called, when the free path fails.
package imagine

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/bitop-dev/imagine/internal/credentials"
	"github.com/bitop-dev/imagine/internal/huggingface"
	"github.com/bitop-dev/imagine/internal/openai"
	"github.com/bitop-dev/imagine/internal/provider"
	"github.com/bitop-dev/imagine/internal/retry"
)

// Generate runs one image generation end to end: request normalization,
// credential lookup, provider dispatch and bounded retries. Failures
// come back as an *Error carrying the provider attempted and a stable
// code; in automatic mode the error additionally names the paid
// provider as an alternative the caller may invoke explicitly.
func Generate(ctx context.Context, req Request) (*Result, error) {
	req, warnings, err := req.normalize()
	if err != nil {
		return nil, &Error{Code: provider.CodeInvalidRequest, Message: err.Error()}
	}

	creds := req.Credentials
	if creds == nil {
		creds = credentials.Resolve(credentials.Options{})
	}

	switch req.Mode {
	case ModeOpenAI:
		return generateWith(ctx, req, creds, provider.OpenAI, warnings)
	case ModeHuggingFace:
		return generateWith(ctx, req, creds, provider.HuggingFace, warnings)
	}

	// Automatic mode. Only the free provider is contacted; any failure,
	// credential or network, surfaces with the paid provider named as a
	// manual alternative. Its credential is deliberately not checked.
	res, err := generateWith(ctx, req, creds, provider.HuggingFace, warnings)
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			e.Alternate = provider.OpenAI
		}
		return nil, err
	}
	return res, nil
}

func generateWith(ctx context.Context, req Request, creds *credentials.Store, name string, warnings []string) (*Result, error) {
	profile := provider.Profiles[name]
	token, ok := creds.Token(profile.CredentialKey)
	if !ok {
		return nil, credentialMissing(name)
	}

	p, model := buildProvider(req, name, token)

	policy := retry.DefaultPolicy()
	if req.Retry != nil {
		policy = *req.Retry
	}

	log.Debug().
		Str("provider", name).
		Str("model", model).
		Str("cost_tier", string(profile.CostTier)).
		Msg("dispatching image generation")

	resp, attempts, err := retry.Do(ctx, policy, name, func(ctx context.Context) (provider.GenerateImageResponse, error) {
		return p.GenerateImage(ctx, provider.GenerateImageRequest{
			Model:   model,
			Prompt:  req.Prompt,
			Size:    req.Size,
			Quality: req.Quality,
		})
	})
	if err != nil {
		return nil, mapProviderError(err)
	}

	return &Result{
		Image:         resp.Image.Bytes,
		MediaType:     resp.Image.MediaType,
		Provider:      name,
		Model:         model,
		Attempts:      attempts,
		Warnings:      warnings,
		RevisedPrompt: resp.RevisedPrompt,
	}, nil
}

func buildProvider(req Request, name, token string) (provider.ImageProvider, string) {
	switch name {
	case provider.OpenAI:
		return openai.New(openai.Config{
			APIKey:     token,
			BaseURL:    req.OpenAIBaseURL,
			Model:      req.Model,
			HTTPClient: req.HTTPClient,
			Timeout:    req.Timeout,
		}), req.Model
	default:
		return huggingface.New(huggingface.Config{
			Token:      token,
			BaseURL:    req.HuggingFaceBaseURL,
			Model:      req.HFModel,
			HTTPClient: req.HTTPClient,
			Timeout:    req.Timeout,
		}), req.HFModel
	}
}
