package constant

const (
	SessionStatusActive     = "active"
	SessionStatusTerminated = "terminated"

	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"

	MemorySourceSummarization = "summarization"

	// Embedding task types (provider hint, ignored by some backends)
	EmbedTaskDocument = "RETRIEVAL_DOCUMENT"
	EmbedTaskQuery    = "RETRIEVAL_QUERY"
)
