package printer

import (
	"fmt"
	"io"

	"github.com/mozilla-ai/mcpool/internal/cmd/output"
	"github.com/mozilla-ai/mcpool/internal/config"
	"github.com/mozilla-ai/mcpool/internal/mcpclient"
)

var (
	_ output.Printer[config.ServerEntry] = (*ServerListPrinter)(nil)
	_ output.Printer[config.ServerEntry] = (*ServerEntryPrinter)(nil)
)

// DefaultServerListHeader prints the number of configured servers.
func DefaultServerListHeader() output.WriteFunc[config.ServerEntry] {
	return func(w io.Writer, count int) {
		_, _ = fmt.Fprintf(w, "Configured servers (%d):\n", count)
	}
}

// ServerListPrinter prints one entry per configured server with its detected transport.
type ServerListPrinter struct {
	frame[config.ServerEntry]
}

func NewServerListPrinter() *ServerListPrinter {
	p := &ServerListPrinter{}
	p.SetHeader(DefaultServerListHeader())
	return p
}

func (p *ServerListPrinter) Item(w io.Writer, elem config.ServerEntry) error {
	srv := elem.ServerConfig()
	_, _ = fmt.Fprintf(w, "  %s (%s)\n    url: %s [%s]\n", srv.ID, srv.Name, srv.URL, mcpclient.TransportFor(srv.URL))
	return nil
}

// ServerEntryPrinter confirms a server was added to the configuration.
type ServerEntryPrinter struct {
	frame[config.ServerEntry]
}

func (p *ServerEntryPrinter) Item(w io.Writer, elem config.ServerEntry) error {
	srv := elem.ServerConfig()
	_, _ = fmt.Fprintf(
		w,
		"✓ Added server '%s'\n  url: %s\n  transport: %s\n",
		srv.ID,
		srv.URL,
		mcpclient.TransportFor(srv.URL),
	)
	return nil
}
