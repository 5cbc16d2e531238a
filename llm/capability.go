package llm

import "context"

// Capability generates text for a role description and content payload.
// Implementations may block for the full request duration; the caller's
// context bounds the call.
type Capability interface {
	// Generate returns generated text, or an error classified by the
	// types package error codes.
	Generate(ctx context.Context, role, content string) (string, error)
}

// CapabilityFunc adapts a plain function to the Capability interface.
type CapabilityFunc func(ctx context.Context, role, content string) (string, error)

// Generate implements Capability.
func (f CapabilityFunc) Generate(ctx context.Context, role, content string) (string, error) {
	return f(ctx, role, content)
}
