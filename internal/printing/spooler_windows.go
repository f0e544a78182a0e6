//go:build windows

package printing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alexbrainman/printer"
)

// NewSystemSpooler returns the winspool spooler.
func NewSystemSpooler(cfg SystemConfig, logger *slog.Logger) (Spooler, error) {
	return &WinspoolSpooler{}, nil
}

// WinspoolSpooler uses the Windows print spooler API.
type WinspoolSpooler struct{}

// Enumerate lists local and connected printers.
func (s *WinspoolSpooler) Enumerate(ctx context.Context) ([]string, error) {
	names, err := printer.ReadNames()
	if err != nil {
		return nil, fmt.Errorf("EnumPrinters: %w", err)
	}
	return names, nil
}

func (s *WinspoolSpooler) Default(ctx context.Context) (string, error) {
	name, err := printer.Default()
	if err != nil {
		return "", fmt.Errorf("GetDefaultPrinter: %w", err)
	}
	return name, nil
}

func (s *WinspoolSpooler) Open(ctx context.Context, name string) (Handle, error) {
	p, err := printer.Open(name)
	if err != nil {
		return nil, fmt.Errorf("OpenPrinter %q: %w", name, err)
	}
	return &winspoolHandle{p: p}, nil
}

type winspoolHandle struct {
	p      *printer.Printer
	closed bool
}

func (h *winspoolHandle) BeginJob(name, datatype string) error {
	return h.p.StartDocument(name, datatype)
}

func (h *winspoolHandle) BeginPage() error { return h.p.StartPage() }

func (h *winspoolHandle) Write(p []byte) (int, error) { return h.p.Write(p) }

func (h *winspoolHandle) EndPage() error { return h.p.EndPage() }

func (h *winspoolHandle) EndJob() error { return h.p.EndDocument() }

func (h *winspoolHandle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	return h.p.Close()
}
