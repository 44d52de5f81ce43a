package credentials

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/bitop-dev/imagine/internal/provider"
	"github.com/bitop-dev/imagine/internal/schema"
)

// Environment variable names, matching what the provider vendors
// document. HF_TOKEN is the Hugging Face CLI's own convention and is
// accepted as a fallback.
const (
	EnvOpenAIKey      = "OPENAI_API_KEY"
	EnvHuggingFaceKey = "HUGGINGFACE_API_KEY"
	EnvHFToken        = "HF_TOKEN"
)

// Store holds resolved provider tokens. Lookup is pure: absence of a
// token is a normal, expected state, not an error.
type Store struct {
	tokens map[string]string
}

// Token returns the credential for a provider identity, if present.
func (s *Store) Token(name string) (string, bool) {
	if s == nil {
		return "", false
	}
	t, ok := s.tokens[name]
	return t, ok && t != ""
}

// WithToken returns a Store holding exactly the given tokens. Intended
// for tests and for callers that manage credentials themselves.
func WithToken(tokens map[string]string) *Store {
	out := make(map[string]string, len(tokens))
	for k, v := range tokens {
		out[k] = v
	}
	return &Store{tokens: out}
}

type Options struct {
	// Env overrides process-environment lookup. Nil means os.Getenv.
	Env func(string) string

	// DotEnvPath is the .env file to consult. Empty means ./.env.
	DotEnvPath string

	// ConfigPath is the key-value config document to consult. Empty
	// means ~/.cursor/cli-config.json.
	ConfigPath string
}

// Resolve reads credentials from, in order of precedence: the process
// environment, a .env file, and a local JSON config document. It never
// fails; unreadable or malformed sources are logged and skipped.
func Resolve(opts Options) *Store {
	env := opts.Env
	if env == nil {
		env = os.Getenv
	}

	tokens := map[string]string{
		provider.OpenAI:      env(EnvOpenAIKey),
		provider.HuggingFace: firstNonEmpty(env(EnvHuggingFaceKey), env(EnvHFToken)),
	}

	fillFromDotEnv(tokens, opts.DotEnvPath)
	fillFromConfigFile(tokens, opts.ConfigPath)

	return &Store{tokens: tokens}
}

func fillFromDotEnv(tokens map[string]string, path string) {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	kv, err := godotenv.Read(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("skipping unreadable .env file")
		return
	}
	fillBlanks(tokens, kv)
}

// configSchema is the expected shape of the cli-config document: an
// optional "env" object mapping variable names to string values.
const configSchema = `{
	"type": "object",
	"properties": {
		"env": {
			"type": "object",
			"additionalProperties": {"type": "string"}
		}
	}
}`

type configFile struct {
	Env map[string]string `json:"env"`
}

func fillFromConfigFile(tokens map[string]string, path string) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return
		}
		path = filepath.Join(home, ".cursor", "cli-config.json")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return
	}

	if err := schema.Validate([]byte(configSchema), raw); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("skipping malformed config document")
		return
	}

	var cfg configFile
	if err := json.Unmarshal(raw, &cfg); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("skipping unparsable config document")
		return
	}
	fillBlanks(tokens, cfg.Env)
}

// fillBlanks applies a lower-precedence source: it only sets tokens the
// higher-precedence sources left empty.
func fillBlanks(tokens map[string]string, kv map[string]string) {
	if tokens[provider.OpenAI] == "" {
		tokens[provider.OpenAI] = kv[EnvOpenAIKey]
	}
	if tokens[provider.HuggingFace] == "" {
		tokens[provider.HuggingFace] = firstNonEmpty(kv[EnvHuggingFaceKey], kv[EnvHFToken])
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
