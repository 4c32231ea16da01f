package output

import (
	"io"

	"gopkg.in/yaml.v3"
)

var _ Handler[any] = (*YAMLHandler[any])(nil)

// YAMLHandler writes results and errors as YAML documents, one per call.
type YAMLHandler[T any] struct {
	out    io.Writer
	indent int
}

// NewYAMLHandler returns a YAMLHandler indenting nested nodes by indentSpaces.
func NewYAMLHandler[T any](w io.Writer, indentSpaces int) *YAMLHandler[T] {
	return &YAMLHandler[T]{
		out:    w,
		indent: indentSpaces,
	}
}

func (h *YAMLHandler[T]) Writer() io.Writer {
	return h.out
}

func (h *YAMLHandler[T]) HandleResult(item T) error {
	return h.encode(ResultPayload[T]{Result: item})
}

func (h *YAMLHandler[T]) HandleResults(items ...T) error {
	return h.encode(resultsPayload(items))
}

func (h *YAMLHandler[T]) HandleError(err error) error {
	return h.encode(ErrorPayload{Error: err.Error()})
}

// encode writes v and closes the encoder to flush it.
func (h *YAMLHandler[T]) encode(v any) error {
	enc := yaml.NewEncoder(h.out)
	enc.SetIndent(h.indent)
	if err := enc.Encode(v); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}
