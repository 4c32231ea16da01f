package output

import (
	"encoding/json"
	"io"
	"strings"
)

var _ Handler[any] = (*JSONHandler[any])(nil)

// JSONHandler writes results and errors as JSON documents, one per call.
type JSONHandler[T any] struct {
	out    io.Writer
	indent string
}

// NewJSONHandler returns a JSONHandler indenting nested values by indentSpaces, or compact output for 0.
func NewJSONHandler[T any](w io.Writer, indentSpaces int) *JSONHandler[T] {
	return &JSONHandler[T]{
		out:    w,
		indent: strings.Repeat(" ", indentSpaces),
	}
}

func (h *JSONHandler[T]) Writer() io.Writer {
	return h.out
}

func (h *JSONHandler[T]) HandleResult(item T) error {
	return h.encode(ResultPayload[T]{Result: item})
}

func (h *JSONHandler[T]) HandleResults(items ...T) error {
	return h.encode(resultsPayload(items))
}

func (h *JSONHandler[T]) HandleError(err error) error {
	return h.encode(ErrorPayload{Error: err.Error()})
}

func (h *JSONHandler[T]) encode(v any) error {
	enc := json.NewEncoder(h.out)
	enc.SetIndent("", h.indent)
	return enc.Encode(v)
}
