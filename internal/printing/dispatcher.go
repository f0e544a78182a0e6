package printing

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Lllllllleong/reportprinter/internal/models"
)

// DefaultJobName is the name every raw job is submitted under.
const DefaultJobName = "Research Report"

// Result describes how a submission was resolved and how far it got.
type Result struct {
	Requested    string
	Device       string
	FellBack     bool
	BytesWritten int
	// Trace ends at CLOSED on success. A failure after the device was opened
	// ends FAILED, RELEASED.
	Trace []SubmissionState
	// Released is set once the device handle has been closed.
	Released bool
}

// Dispatcher sends rendered artifacts to a device as a single raw job.
type Dispatcher struct {
	spooler  Spooler
	registry *Registry
	jobName  string
	logger   *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithJobName overrides DefaultJobName.
func WithJobName(name string) DispatcherOption {
	return func(d *Dispatcher) {
		if name != "" {
			d.jobName = name
		}
	}
}

// WithDispatchLogger sets the logger used for fallback and failure messages.
func WithDispatchLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher creates a Dispatcher. The registry is consulted before
// anything is written to the spooler.
func NewDispatcher(spooler Spooler, registry *Registry, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		spooler:  spooler,
		registry: registry,
		jobName:  DefaultJobName,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Submit streams the file at artifactPath to requested, or to the default
// device when requested is empty or not available. The returned Result is
// never nil, also on error. Resolution failures are DeviceQueryErrors; all
// later failures are SubmissionErrors. Once submission starts it is not
// cancelled by ctx.
func (d *Dispatcher) Submit(ctx context.Context, artifactPath, requested string) (*Result, error) {
	ctx = context.WithoutCancel(ctx)
	requested = strings.TrimSpace(requested)
	sub := newSubmission()
	res := &Result{Requested: requested, Trace: sub.trace}
	logCtx := d.logger.With("artifact", artifactPath, "requestedDevice", requested)

	device, fellBack, err := d.resolve(ctx, logCtx, requested)
	if err != nil {
		sub.fail()
		res.Trace = sub.trace
		logCtx.Error("Could not resolve an output device.", "error", err)
		return res, err
	}
	res.Device, res.FellBack = device, fellBack
	logCtx = logCtx.With("device", device)

	payload, err := os.ReadFile(artifactPath)
	if err != nil {
		return res, d.handleError(logCtx, sub, res, "read artifact", err)
	}
	job := models.PrintJob{TargetDevice: device, Name: d.jobName, Payload: payload}

	handle, err := d.spooler.Open(ctx, job.TargetDevice)
	if err != nil {
		return res, d.handleError(logCtx, sub, res, "open device", err)
	}
	// The handle is released on every path from here on, including panics.
	defer func() {
		if !res.Released {
			if cerr := handle.Close(); cerr != nil {
				logCtx.Warn("Failed to release device handle.", "error", cerr)
			}
			res.Released = true
			sub.released()
		}
		res.Trace = sub.trace
	}()
	if err := sub.advance(StateOpened); err != nil {
		return res, d.handleError(logCtx, sub, res, "open device", err)
	}

	if stage, err := d.transfer(handle, sub, job, res); err != nil {
		return res, d.handleError(logCtx, sub, res, stage, err)
	}

	res.Released = true
	if err := handle.Close(); err != nil {
		err = d.handleError(logCtx, sub, res, "close device", err)
		sub.released()
		return res, err
	}
	if err := sub.advance(StateClosed); err != nil {
		return res, d.handleError(logCtx, sub, res, "close device", err)
	}
	logCtx.Info("Artifact sent to device.", "bytes", res.BytesWritten, "fellBack", res.FellBack)
	return res, nil
}

// resolve picks the device to print to and reports whether it is a fallback.
func (d *Dispatcher) resolve(ctx context.Context, logCtx *slog.Logger, requested string) (string, bool, error) {
	if requested == "" {
		def, err := d.registry.DefaultDevice(ctx)
		return def, false, err
	}
	ok, err := d.registry.IsAvailable(ctx, requested)
	if err != nil {
		return "", false, err
	}
	if ok {
		return requested, false, nil
	}
	def, err := d.registry.DefaultDevice(ctx)
	if err != nil {
		return "", false, err
	}
	logCtx.Warn("Requested device is not available. Using the default device instead.", "defaultDevice", def)
	return def, true, nil
}

// transfer runs the job lifecycle on an open handle. It returns the stage
// that failed, if any.
func (d *Dispatcher) transfer(h Handle, sub *submission, job models.PrintJob, res *Result) (string, error) {
	if err := h.BeginJob(job.Name, DatatypeRaw); err != nil {
		return "begin job", err
	}
	if err := h.BeginPage(); err != nil {
		return "begin page", err
	}
	if err := sub.advance(StatePageStarted); err != nil {
		return "begin page", err
	}
	if err := sub.advance(StateWriting); err != nil {
		return "write", err
	}
	n, err := h.Write(job.Payload)
	res.BytesWritten = n
	if err != nil {
		return "write", err
	}
	if n != len(job.Payload) {
		return "write", io.ErrShortWrite
	}
	if err := h.EndPage(); err != nil {
		return "end page", err
	}
	if err := sub.advance(StatePageEnded); err != nil {
		return "end page", err
	}
	if err := h.EndJob(); err != nil {
		return "end job", err
	}
	return "", nil
}

func (d *Dispatcher) handleError(logCtx *slog.Logger, sub *submission, res *Result, stage string, cause error) error {
	sub.fail()
	res.Trace = sub.trace
	logCtx.Error("Print submission failed.", "stage", stage, "error", cause)
	return &SubmissionError{Device: res.Device, Stage: stage, Err: cause}
}
