//go:build !windows

package printing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/phin1x/go-ipp"
)

const (
	attrPrinterName = "printer-name"
	attrPrinterType = "printer-type"

	// cupsPrinterDefault is the printer-type bit CUPS sets on the default
	// destination.
	cupsPrinterDefault = 0x20000

	// cupsRawFormat makes the scheduler skip its filters, as lp -o raw does.
	cupsRawFormat = "application/vnd.cups-raw"
	octetStream   = "application/octet-stream"

	cupsDefaultPort = 631

	// client-error-not-found
	ippStatusNotFound = 0x0406
)

// NewSystemSpooler returns the CUPS spooler.
func NewSystemSpooler(cfg SystemConfig, logger *slog.Logger) (Spooler, error) {
	return NewCUPSSpooler(cfg, logger)
}

// cupsClient is the part of the IPP client the spooler uses.
type cupsClient interface {
	GetPrinters(attributes []string) (map[string]ipp.Attributes, error)
	PrintJob(doc ipp.Document, printer string, jobAttributes map[string]interface{}) (int, error)
}

// CUPSSpooler talks IPP to a CUPS scheduler. Raw jobs are submitted with the
// vnd.cups-raw format so the device receives the artifact bytes unchanged.
type CUPSSpooler struct {
	client cupsClient
	logger *slog.Logger
}

func NewCUPSSpooler(cfg SystemConfig, logger *slog.Logger) (*CUPSSpooler, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = cupsDefaultPort
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid CUPS port %d", cfg.Port)
	}
	client := ipp.NewCUPSClient(cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.TLS)
	return newCUPSSpooler(client, logger), nil
}

func newCUPSSpooler(client cupsClient, logger *slog.Logger) *CUPSSpooler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CUPSSpooler{client: client, logger: logger}
}

// printers fetches every destination with its type flags. A scheduler with
// no destinations answers not-found, which is reported as an empty map.
func (s *CUPSSpooler) printers(ctx context.Context) (map[string]ipp.Attributes, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	printers, err := s.client.GetPrinters([]string{attrPrinterName, attrPrinterType})
	if err != nil {
		var ippErr ipp.IPPError
		if errors.As(err, &ippErr) && int(ippErr.Status) == ippStatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("CUPS-Get-Printers: %w", err)
	}
	return printers, nil
}

// Enumerate lists destinations sorted by name.
func (s *CUPSSpooler) Enumerate(ctx context.Context) ([]string, error) {
	printers, err := s.printers(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(printers))
	for name := range printers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *CUPSSpooler) Default(ctx context.Context) (string, error) {
	printers, err := s.printers(ctx)
	if err != nil {
		return "", err
	}
	for name, attrs := range printers {
		if printerType(attrs)&cupsPrinterDefault != 0 {
			return name, nil
		}
	}
	return "", nil
}

func (s *CUPSSpooler) Open(ctx context.Context, name string) (Handle, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrDeviceNotFound)
	}
	return &cupsHandle{ctx: ctx, client: s.client, device: name, logger: s.logger}, nil
}

func printerType(attrs ipp.Attributes) int {
	values := attrs[attrPrinterType]
	if len(values) == 0 {
		return 0
	}
	switch v := values[0].Value.(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int16:
		return int(v)
	case int8:
		return int(v)
	}
	return 0
}

// cupsHandle buffers the job and submits it in one Print-Job request when
// the job ends. Closing a job that never ended submits nothing.
type cupsHandle struct {
	ctx    context.Context
	client cupsClient
	device string
	logger *slog.Logger

	name     string
	datatype string
	buf      bytes.Buffer
	started  bool
	inPage   bool
	closed   bool
}

func (h *cupsHandle) BeginJob(name, datatype string) error {
	if h.closed || h.started {
		return fmt.Errorf("%w: job already started", ErrJobState)
	}
	h.name, h.datatype, h.started = name, datatype, true
	h.buf.Reset()
	return nil
}

func (h *cupsHandle) BeginPage() error {
	if !h.started || h.inPage {
		return fmt.Errorf("%w: begin page outside a job", ErrJobState)
	}
	h.inPage = true
	return nil
}

func (h *cupsHandle) Write(p []byte) (int, error) {
	if !h.inPage {
		return 0, fmt.Errorf("%w: write outside a page", ErrJobState)
	}
	return h.buf.Write(p)
}

func (h *cupsHandle) EndPage() error {
	if !h.inPage {
		return fmt.Errorf("%w: end page without begin page", ErrJobState)
	}
	h.inPage = false
	return nil
}

// EndJob sends the buffered document to the scheduler.
func (h *cupsHandle) EndJob() error {
	if !h.started || h.inPage {
		return fmt.Errorf("%w: end job with an open page or no job", ErrJobState)
	}
	h.started = false
	if err := h.ctx.Err(); err != nil {
		return err
	}

	format := octetStream
	if h.datatype == DatatypeRaw {
		format = cupsRawFormat
	}
	doc := ipp.Document{
		Document: bytes.NewReader(h.buf.Bytes()),
		Size:     h.buf.Len(),
		Name:     h.name,
		MimeType: format,
	}
	jobID, err := h.client.PrintJob(doc, h.device, map[string]interface{}{})
	if err != nil {
		return fmt.Errorf("Print-Job on %q: %w", h.device, err)
	}
	h.logger.Debug("Job queued.", "device", h.device, "jobId", jobID, "bytes", doc.Size)
	return nil
}

// Close drops a job that was not ended.
func (h *cupsHandle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	h.started = false
	h.buf.Reset()
	return nil
}
