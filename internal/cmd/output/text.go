package output

import (
	"io"
)

var _ Handler[any] = (*TextHandler[any])(nil)

// NoItemsMessage is printed in place of an empty collection.
const NoItemsMessage = "No items found\n"

// TextHandler renders human-readable output through a Printer.
type TextHandler[T any] struct {
	out     io.Writer
	printer Printer[T]
}

func NewTextHandler[T any](w io.Writer, p Printer[T]) *TextHandler[T] {
	return &TextHandler[T]{out: w, printer: p}
}

func (h *TextHandler[T]) Writer() io.Writer {
	return h.out
}

// HandleResult prints item framed as a collection of one.
func (h *TextHandler[T]) HandleResult(item T) error {
	return h.HandleResults(item)
}

// HandleResults prints the header, each item and the footer. The footer is skipped if an item fails.
func (h *TextHandler[T]) HandleResults(items ...T) error {
	n := len(items)
	if n == 0 {
		_, _ = io.WriteString(h.out, NoItemsMessage)
		return nil
	}

	h.printer.Header(h.out, n)
	for _, item := range items {
		if err := h.printer.Item(h.out, item); err != nil {
			return err
		}
	}
	h.printer.Footer(h.out, n)

	return nil
}

// HandleError returns err unchanged so the caller reports it.
func (h *TextHandler[T]) HandleError(err error) error {
	return err
}
