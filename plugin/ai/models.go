package ai

import "strings"

// ModelInfo describes a chat model the service can route to.
type ModelInfo struct {
	ID             string `json:"id"`
	Provider       string `json:"provider"`
	Name           string `json:"name"`
	SupportsTools  bool   `json:"supportsTools"`
	SupportsVision bool   `json:"supportsVision"`
}

var modelCatalog = []ModelInfo{
	{ID: "gpt-4o-mini", Provider: ProviderOpenAI, Name: "GPT-4o mini", SupportsTools: true, SupportsVision: true},
	{ID: "gpt-4o", Provider: ProviderOpenAI, Name: "GPT-4o", SupportsTools: true, SupportsVision: true},
	{ID: "gpt-4.1", Provider: ProviderOpenAI, Name: "GPT-4.1", SupportsTools: true, SupportsVision: true},
	{ID: "gpt-4.1-mini", Provider: ProviderOpenAI, Name: "GPT-4.1 mini", SupportsTools: true, SupportsVision: true},
	{ID: "o4-mini", Provider: ProviderOpenAI, Name: "o4-mini", SupportsTools: true, SupportsVision: true},
	{ID: "deepseek-chat", Provider: ProviderDeepSeek, Name: "DeepSeek V3", SupportsTools: true},
	{ID: "deepseek-reasoner", Provider: ProviderDeepSeek, Name: "DeepSeek R1"},
	{ID: "anthropic/claude-3.5-sonnet", Provider: ProviderOpenRouter, Name: "Claude 3.5 Sonnet", SupportsTools: true, SupportsVision: true},
	{ID: "anthropic/claude-3.7-sonnet", Provider: ProviderOpenRouter, Name: "Claude 3.7 Sonnet", SupportsTools: true, SupportsVision: true},
	{ID: "meta-llama/llama-3.3-70b-instruct", Provider: ProviderOpenRouter, Name: "Llama 3.3 70B", SupportsTools: true},
	{ID: "qwen/qwen-2.5-coder-32b-instruct", Provider: ProviderOpenRouter, Name: "Qwen 2.5 Coder 32B"},
	{ID: "gemini-2.0-flash", Provider: ProviderGemini, Name: "Gemini 2.0 Flash", SupportsTools: true, SupportsVision: true},
	{ID: "gemini-2.5-pro", Provider: ProviderGemini, Name: "Gemini 2.5 Pro", SupportsTools: true, SupportsVision: true},
}

// ollamaPrefix lets any locally pulled model be addressed as "ollama/<name>".
const ollamaPrefix = "ollama/"

// LookupModel finds a model by id.
func LookupModel(id string) (ModelInfo, bool) {
	for _, m := range modelCatalog {
		if m.ID == id {
			return m, true
		}
	}
	if name, ok := strings.CutPrefix(id, ollamaPrefix); ok && name != "" {
		return ModelInfo{ID: id, Provider: ProviderOllama, Name: name + " (local)", SupportsTools: true}, true
	}
	return ModelInfo{}, false
}

// APIModelName is the model name sent to the provider.
func (m ModelInfo) APIModelName() string {
	if m.Provider == ProviderOllama {
		return strings.TrimPrefix(m.ID, ollamaPrefix)
	}
	return m.ID
}

// ListModels returns the catalog filtered to the given providers.
func ListModels(providers map[string]LLMConfig) []ModelInfo {
	list := make([]ModelInfo, 0, len(modelCatalog))
	for _, m := range modelCatalog {
		if _, ok := providers[m.Provider]; ok {
			list = append(list, m)
		}
	}
	return list
}
