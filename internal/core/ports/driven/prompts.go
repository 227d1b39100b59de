package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names.
const (
	// PromptClassifySystem is the system prompt for the quality classifier.
	// This prompt has no format placeholders.
	PromptClassifySystem = "classify_system"

	// PromptClassifyPairs asks for one keep/drop verdict per numbered pair.
	// The template expects %d (pair count) and %s (numbered pairs) placeholders.
	PromptClassifyPairs = "classify_pairs"
)

// PromptStoreAware is an optional interface for services that can use custom prompts.
type PromptStoreAware interface {
	// SetPromptStore sets the prompt store for loading customisable prompts.
	// If not set, the service should use hardcoded default prompts.
	SetPromptStore(store PromptStore)
}
