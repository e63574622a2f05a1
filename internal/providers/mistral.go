package providers

const mistralDefaultBaseURL = "https://api.mistral.ai/v1"

// NewMistralProvider creates a provider for Mistral's OpenAI-compatible API.
// Model names arrive without the "mistral:" prefix, already stripped by the
// Registry.
func NewMistralProvider(config ProviderConfig) (Provider, error) {
	return newOpenAICompatible(config, openAICompatOptions{
		providerType: TypeMistral,
		label:        "Mistral",
		baseURL:      mistralDefaultBaseURL,
	})
}
