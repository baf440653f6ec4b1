package ai

import "context"

// Message roles understood by chat models.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is a single entry in a chat prompt.
type Message struct {
	Role    string
	Content string
}

// UserMessage builds a user-role message from text.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// ChatModel generates text completions from a system instruction and an
// ordered list of messages. No streaming and no tool use: one synchronous
// call, one response text.
// Implementations must be safe for sequential reuse; concurrent use is not
// required.
type ChatModel interface {
	// Complete invokes the model with the given system instruction and
	// messages and returns the raw response text.
	// Returns an error if the call fails or the model returns no choices.
	Complete(ctx context.Context, system string, messages []Message) (string, error)
}

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Provider aggregates AI services for convenient initialization and lifecycle
// management. A provider creates and manages ChatModel and Embedder instances,
// ensuring they share configuration and resources appropriately.
type Provider interface {
	// ChatModel returns the text completion service.
	ChatModel() ChatModel

	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
