package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptMultiQuery asks for alternative phrasings of a question.
	// The template expects %d (number of variants) and %s (the question).
	PromptMultiQuery = "multi_query"

	// PromptAnswerWithIDs answers from labelled context and returns cited identifiers as JSON.
	// The template expects %s (context) and %s (question).
	PromptAnswerWithIDs = "qa_answer"

	// PromptAnswerPlain answers from context as plain text.
	// The template expects %s (context) and %s (question).
	PromptAnswerPlain = "qa_plain"
)
