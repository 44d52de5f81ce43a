package provider

import "context"

// ImageProvider performs a single generation attempt against one remote
// provider. Implementations never retry; the retry controller owns that
// loop.
type ImageProvider interface {
	Name() string
	GenerateImage(ctx context.Context, req GenerateImageRequest) (GenerateImageResponse, error)
}

type Image struct {
	Bytes     []byte
	MediaType string
}

type GenerateImageRequest struct {
	Model   string
	Prompt  string
	Size    string
	Quality string
}

type GenerateImageResponse struct {
	Image Image

	// RevisedPrompt is set when the provider rewrote the prompt before
	// generating (DALL-E 3 does this).
	RevisedPrompt string

	RawResponse []byte
}
