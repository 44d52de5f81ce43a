package imagine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

const maxPromptInFilename = 50

// SaveOptions controls where and under what name an image is persisted.
type SaveOptions struct {
	// Prompt is folded into the filename after sanitization.
	Prompt string

	// Dir is the target directory. Empty means ~/Downloads. A leading
	// ~/ is expanded.
	Dir string

	// MediaType picks the file extension. Unknown types fall back to .png.
	MediaType string

	// Tag is an optional marker inserted before the prompt, used to
	// distinguish free-provider output.
	Tag string
}

// SaveImage writes image bytes to a timestamped file derived from the
// prompt and returns the absolute path. Names never collide: an existing
// file gets a numeric suffix instead of being overwritten.
func SaveImage(image []byte, opts SaveOptions) (string, error) {
	if len(image) == 0 {
		return "", &Error{Code: CodeLocalIO, Message: "no image bytes to save"}
	}

	dir, err := resolveDir(opts.Dir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &Error{Code: CodeLocalIO, Message: "cannot create output directory: " + err.Error(), Cause: err}
	}

	base := buildBaseName(opts.Prompt, opts.Tag)
	ext := extensionFor(opts.MediaType)

	path := filepath.Join(dir, base+ext)
	for i := 1; ; i++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		path = filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, i, ext))
	}

	if err := os.WriteFile(path, image, 0o644); err != nil {
		return "", &Error{Code: CodeLocalIO, Message: "cannot write image file: " + err.Error(), Cause: err}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return path, nil
	}
	return abs, nil
}

func resolveDir(dir string) (string, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", &Error{Code: CodeLocalIO, Message: "cannot determine home directory: " + err.Error(), Cause: err}
		}
		return filepath.Join(home, "Downloads"), nil
	}
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", &Error{Code: CodeLocalIO, Message: "cannot determine home directory: " + err.Error(), Cause: err}
		}
		return filepath.Join(home, strings.TrimPrefix(dir[1:], "/")), nil
	}
	return dir, nil
}

func buildBaseName(prompt, tag string) string {
	parts := []string{time.Now().Format("20060102_150405")}
	if tag != "" {
		parts = append(parts, tag)
	}
	if s := sanitizePrompt(prompt); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, "_")
}

// sanitizePrompt reduces a prompt to a filesystem-safe slug: letters,
// digits and underscores, capped at a length that keeps the full
// filename comfortably portable.
func sanitizePrompt(prompt string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range prompt {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteByte('_')
			lastUnderscore = true
		}
		if b.Len() >= maxPromptInFilename {
			break
		}
	}
	return strings.Trim(b.String(), "_")
}

func extensionFor(mediaType string) string {
	switch mediaType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}
