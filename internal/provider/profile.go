package provider

// Provider identities. These double as credential-resolver keys and as
// the values accepted by the CLI --provider flag (plus "auto").
const (
	HuggingFace = "huggingface"
	OpenAI      = "openai"
)

type CostTier string

const (
	CostFree CostTier = "free"
	CostPaid CostTier = "paid"
)

type ResponseShape string

const (
	// ShapeBinary: a 200 response carries raw image bytes in the body.
	ShapeBinary ResponseShape = "binary"
	// ShapeJSON: a 200 response carries a JSON envelope holding either
	// base64 image data or a URL that must be fetched separately.
	ShapeJSON ResponseShape = "json"
)

// Profile is the static per-provider descriptor. The table is fixed at
// compile time.
type Profile struct {
	Name          string
	CredentialKey string
	DefaultModel  string
	ResponseShape ResponseShape
	CostTier      CostTier
}

var Profiles = map[string]Profile{
	HuggingFace: {
		Name:          HuggingFace,
		CredentialKey: HuggingFace,
		DefaultModel:  "black-forest-labs/FLUX.1-schnell",
		ResponseShape: ShapeBinary,
		CostTier:      CostFree,
	},
	OpenAI: {
		Name:          OpenAI,
		CredentialKey: OpenAI,
		DefaultModel:  "dall-e-2",
		ResponseShape: ShapeJSON,
		CostTier:      CostPaid,
	},
}
