package transport

// Config defines where and how invocation payloads are sent. Routes are
// matched against the model identifier in order; the first match wins, and
// the default upstream serves everything else.
type Config struct {
	// Default is the upstream used when no route matches.
	Default Upstream `mapstructure:"default"`
	// Routes override the upstream for model identifiers matching a pattern.
	Routes []Route `mapstructure:"routes"`
}

// Route binds a model-identifier pattern to an upstream.
type Route struct {
	// ID is the unique identifier for this route
	ID string `mapstructure:"id"`
	// ModelPattern is a regex matched against the model identifier
	ModelPattern string `mapstructure:"model_pattern"`
	// Upstream is the target backend for matching models
	Upstream Upstream `mapstructure:"upstream"`
	// Transforms are payload tweaks applied before sending
	Transforms []TransformStep `mapstructure:"transforms"`
	// HeaderPolicy controls which request headers reach the upstream
	HeaderPolicy HeaderPolicy `mapstructure:"header_policy"`
}

// Upstream defines a backend endpoint that speaks the Bedrock-style
// invocation surface.
type Upstream struct {
	// BaseURL is the upstream base URL (supports "env:VAR" indirection)
	BaseURL string `mapstructure:"base_url"`
	// InvokePath is the whole-call path; "{model}" expands to the model id
	InvokePath string `mapstructure:"invoke_path"`
	// StreamPath is the streaming-call path; "{model}" expands to the model id
	StreamPath string `mapstructure:"stream_path"`
	// ModelsPath is the catalog listing path
	ModelsPath string `mapstructure:"models_path"`
	// AuthStrategy is one of "bearer", "header", "query"
	AuthStrategy string `mapstructure:"auth_strategy"`
	// TokenEnv is the environment variable holding the credential
	TokenEnv string `mapstructure:"token_env"`
	// HeaderName is the header for the "header" strategy (default Authorization)
	HeaderName string `mapstructure:"header_name"`
}

// HeaderPolicy defines rules for handling HTTP headers
type HeaderPolicy struct {
	// Set maps headers to force set (supports "env:VAR" syntax for env vars)
	Set map[string]string `mapstructure:"set"`
	// Remove lists headers to exclude from upstream requests
	Remove []string `mapstructure:"remove"`
}

// TransformStep defines a single payload transformation.
type TransformStep struct {
	// Type is the transformation type: "field_map"
	Type string `mapstructure:"type"`
	// Config contains type-specific configuration
	Config map[string]string `mapstructure:"config"`
}

// AuthStrategy constants
const (
	AuthStrategyBearer = "bearer" // Authorization: Bearer <token>
	AuthStrategyHeader = "header" // Custom header with token value
	AuthStrategyQuery  = "query"  // Query parameter with token value
)

// TransformType constants
const (
	TransformTypeFieldMap = "field_map" // Field mapping using gjson/sjson
)

// Default endpoint paths, matching the Bedrock runtime layout.
const (
	DefaultInvokePath = "/model/{model}/invoke"
	DefaultStreamPath = "/model/{model}/invoke-with-response-stream"
	DefaultModelsPath = "/foundation-models"
)

// DefaultConfig returns a config with the standard endpoint layout and a
// base URL taken from the MANIFOLD_UPSTREAM_URL environment variable.
func DefaultConfig() *Config {
	return &Config{
		Default: Upstream{
			BaseURL:      "env:MANIFOLD_UPSTREAM_URL",
			InvokePath:   DefaultInvokePath,
			StreamPath:   DefaultStreamPath,
			ModelsPath:   DefaultModelsPath,
			AuthStrategy: AuthStrategyBearer,
			TokenEnv:     "MANIFOLD_UPSTREAM_TOKEN",
		},
	}
}

// normalize fills unset upstream paths with the defaults.
func (u Upstream) normalize() Upstream {
	if u.InvokePath == "" {
		u.InvokePath = DefaultInvokePath
	}
	if u.StreamPath == "" {
		u.StreamPath = DefaultStreamPath
	}
	if u.ModelsPath == "" {
		u.ModelsPath = DefaultModelsPath
	}
	if u.AuthStrategy == "" {
		u.AuthStrategy = AuthStrategyBearer
	}
	return u
}
