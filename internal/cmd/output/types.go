package output

import "io"

// Handler renders command results and errors in a single output format.
type Handler[T any] interface {
	// Writer is the destination of everything the handler renders.
	Writer() io.Writer

	// HandleResult renders a single value.
	HandleResult(item T) error

	// HandleResults renders a collection, which may be empty.
	HandleResults(items ...T) error

	// HandleError renders err. Structured formats write it and return nil; text returns it to the caller.
	HandleError(err error) error
}

// WriteFunc writes a header or footer for a collection of count items of type T.
type WriteFunc[T any] func(w io.Writer, count int)

// Printer formats items of type T as human-readable text.
// Header and Footer each run once around the items, and are skipped when there are none.
type Printer[T any] interface {
	Header(w io.Writer, count int)
	SetHeader(fn WriteFunc[T])

	// Item prints one element, stopping the collection on error.
	Item(w io.Writer, elem T) error

	Footer(w io.Writer, count int)
	SetFooter(fn WriteFunc[T])
}

// ResultPayload wraps a single value as {"result": ...}.
type ResultPayload[T any] struct {
	Result T `json:"result" yaml:"result"`
}

// ResultsPayload wraps a collection as {"results": [...]}.
type ResultsPayload[T any] struct {
	Results []T `json:"results" yaml:"results"`
}

// ErrorPayload wraps an error message as {"error": "..."}.
type ErrorPayload struct {
	Error string `json:"error" yaml:"error"`
}

func resultsPayload[T any](items []T) ResultsPayload[T] {
	if items == nil {
		items = []T{}
	}
	return ResultsPayload[T]{Results: items}
}
