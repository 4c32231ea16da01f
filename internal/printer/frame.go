package printer

import (
	"io"

	"github.com/mozilla-ai/mcpool/internal/cmd/output"
)

// frame holds the optional header and footer around a printed collection.
// Printers embed it to satisfy the Header and Footer half of output.Printer.
type frame[T any] struct {
	header output.WriteFunc[T]
	footer output.WriteFunc[T]
}

func (f *frame[T]) Header(w io.Writer, count int) {
	if f.header != nil {
		f.header(w, count)
	}
}

func (f *frame[T]) SetHeader(fn output.WriteFunc[T]) {
	f.header = fn
}

func (f *frame[T]) Footer(w io.Writer, count int) {
	if f.footer != nil {
		f.footer(w, count)
	}
}

func (f *frame[T]) SetFooter(fn output.WriteFunc[T]) {
	f.footer = fn
}
