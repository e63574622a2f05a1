package models

//
// Model catalog (GET /models)
//

type ModelInfo struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Label    string `json:"label"`
	Enabled  bool   `json:"enabled"`
}

// Catalog is the list of models advertised to clients.
type Catalog []ModelInfo

// DefaultCatalog returns a fresh copy of the built-in model list.
func DefaultCatalog() Catalog {
	return Catalog{
		{Provider: "mock", Model: "mock:gpt-mini", Label: "Mock • GPT Mini", Enabled: true},
		{Provider: "openrouter", Model: "openrouter:llama-free", Label: "OpenRouter • Llama 3.1 8B (free)", Enabled: true},
		{Provider: "openrouter", Model: "openrouter:phi3-mini", Label: "OpenRouter • Phi-3 Mini (free)", Enabled: true},
		{Provider: "openrouter", Model: "openrouter:mistral-nemo", Label: "OpenRouter • Mistral Nemo (free)", Enabled: true},
		{Provider: "openai", Model: "openai:gpt-4o-mini", Label: "ChatGPT • GPT-4o Mini", Enabled: true},
	}
}

// Enabled returns the enabled entries in catalog order. Never nil.
func (c Catalog) Enabled() []ModelInfo {
	out := make([]ModelInfo, 0, len(c))
	for _, m := range c {
		if m.Enabled {
			out = append(out, m)
		}
	}
	return out
}

// Find returns the entry for model.
func (c Catalog) Find(model string) (ModelInfo, bool) {
	for _, m := range c {
		if m.Model == model {
			return m, true
		}
	}
	return ModelInfo{}, false
}
