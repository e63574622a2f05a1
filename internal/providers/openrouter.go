package providers

const (
	openRouterDefaultBaseURL = "https://openrouter.ai/api/v1"
	openRouterDefaultAlias   = "llama-free"
)

// openRouterAliases maps short catalog names to OpenRouter model slugs.
// Names missing from the map are sent as-is.
var openRouterAliases = map[string]string{
	"llama-free":   "meta-llama/llama-3.1-8b-instruct:free",
	"phi3-mini":    "microsoft/phi-3-mini-4k-instruct:free",
	"mistral-nemo": "mistralai/mistral-nemo:free",
}

// OpenRouterModel resolves a catalog alias to the upstream slug.
func OpenRouterModel(alias string) string {
	if alias == "" {
		alias = openRouterDefaultAlias
	}
	if slug, ok := openRouterAliases[alias]; ok {
		return slug
	}
	return alias
}

// NewOpenRouterProvider creates a provider for the OpenRouter aggregator.
// Config keys "referer" and "title" override the attribution headers.
func NewOpenRouterProvider(config ProviderConfig) (Provider, error) {
	return newOpenAICompatible(config, openAICompatOptions{
		providerType: TypeOpenRouter,
		label:        "OpenRouter",
		baseURL:      openRouterDefaultBaseURL,
		headers: map[string]string{
			"HTTP-Referer": config.stringOption("referer", "http://localhost"),
			"X-Title":      config.stringOption("title", "Middleware-IA"),
		},
		resolveModel: OpenRouterModel,
	})
}
