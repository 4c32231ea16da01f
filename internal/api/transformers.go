package api

import "github.com/danielgtaylor/huma/v2"

// Transformers returns the response transformers registered globally in the Huma config.
// They run in order after handlers execute and before serialization, each receiving the
// previous transformer's output. A transformer passes through any response it does not handle.
func Transformers() []huma.Transformer {
	return []huma.Transformer{
		toolFieldSelectTransformer,
	}
}
