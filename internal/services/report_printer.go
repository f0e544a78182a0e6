package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/Lllllllleong/reportprinter/internal/gcp"
	"github.com/Lllllllleong/reportprinter/internal/models"
	"github.com/Lllllllleong/reportprinter/internal/printing"
	"github.com/Lllllllleong/reportprinter/internal/report"
	"github.com/Lllllllleong/reportprinter/internal/summarizer"
)

const (
	BackendSystem    = "system"
	BackendDirectory = "directory"
)

// ReportPrinterConfig holds configuration for the report pipeline.
type ReportPrinterConfig struct {
	Summarizer     summarizer.Config
	PrintBackend   string
	CUPS           printing.SystemConfig
	SpoolDir       string
	DefaultPrinter string
	JobName        string
	OutputPath     string
	ArchiveBucket  string
	CollectionName string
}

// LoadReportConfig reads and validates the pipeline configuration from the
// environment.
func LoadReportConfig() (ReportPrinterConfig, error) {
	groqKey := gcp.GetEnv("GROQ_API_KEY", "")
	defaultProvider := summarizer.ProviderVertex
	if groqKey != "" {
		defaultProvider = summarizer.ProviderGroq
	}

	config := ReportPrinterConfig{
		Summarizer: summarizer.Config{
			Provider:    strings.ToLower(gcp.GetEnv("LLM_PROVIDER", defaultProvider)),
			ProjectID:   gcp.GetEnv("PROJECT_ID", ""),
			Region:      gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
			VertexModel: gcp.GetEnv("VERTEX_MODEL", "gemini-1.5-pro"),
			GroqAPIKey:  groqKey,
			GroqModel:   gcp.GetEnv("GROQ_MODEL", summarizer.DefaultGroqModel),
			GroqBaseURL: gcp.GetEnv("GROQ_BASE_URL", summarizer.DefaultGroqBaseURL),
		},
		PrintBackend:   gcp.GetEnv("PRINT_BACKEND", BackendSystem),
		SpoolDir:       gcp.GetEnv("SPOOL_DIR", ""),
		DefaultPrinter: gcp.GetEnv("DEFAULT_PRINTER", ""),
		JobName:        gcp.GetEnv("PRINT_JOB_NAME", printing.DefaultJobName),
		OutputPath:     gcp.GetEnv("REPORT_OUTPUT_PATH", "summary.pdf"),
		ArchiveBucket:  gcp.GetEnv("REPORT_ARCHIVE_BUCKET", ""),
		CollectionName: gcp.GetEnv("FIRESTORE_COLLECTION", "reports"),
	}

	switch config.Summarizer.Provider {
	case summarizer.ProviderGroq:
		if config.Summarizer.GroqAPIKey == "" {
			return config, fmt.Errorf("GROQ_API_KEY must be set when LLM_PROVIDER is groq")
		}
	case summarizer.ProviderVertex:
		if config.Summarizer.ProjectID == "" {
			return config, fmt.Errorf("PROJECT_ID environment variable must be set")
		}
	default:
		return config, fmt.Errorf("unsupported LLM_PROVIDER %q", config.Summarizer.Provider)
	}

	cupsPort, err := strconv.Atoi(gcp.GetEnv("CUPS_PORT", "631"))
	if err != nil || cupsPort <= 0 || cupsPort > 65535 {
		return config, fmt.Errorf("invalid CUPS_PORT %q", gcp.GetEnv("CUPS_PORT", ""))
	}
	cupsTLS, err := strconv.ParseBool(gcp.GetEnv("CUPS_TLS", "false"))
	if err != nil {
		return config, fmt.Errorf("invalid CUPS_TLS: %w", err)
	}
	config.CUPS = printing.SystemConfig{
		Host:     gcp.GetEnv("CUPS_HOST", "localhost"),
		Port:     cupsPort,
		User:     gcp.GetEnv("CUPS_USER", gcp.GetEnv("USER", "")),
		Password: gcp.GetEnv("CUPS_PASSWORD", ""),
		TLS:      cupsTLS,
	}

	switch config.PrintBackend {
	case BackendSystem:
	case BackendDirectory:
		if config.SpoolDir == "" {
			return config, fmt.Errorf("SPOOL_DIR must be set when PRINT_BACKEND is directory")
		}
	default:
		return config, fmt.Errorf("unsupported PRINT_BACKEND %q", config.PrintBackend)
	}

	if config.ArchiveBucket != "" && config.Summarizer.ProjectID == "" {
		return config, fmt.Errorf("PROJECT_ID must be set when REPORT_ARCHIVE_BUCKET is set")
	}
	if config.OutputPath == "" {
		return config, fmt.Errorf("REPORT_OUTPUT_PATH cannot be empty")
	}
	return config, nil
}

// ReportPrinterFunction runs the summarize, compose, render and print
// pipeline for one topic at a time.
type ReportPrinterFunction struct {
	summarizer summarizer.Summarizer
	registry   *printing.Registry
	dispatcher *printing.Dispatcher
	composer   *report.Composer
	renderer   *report.Renderer
	archiver   Archiver
	config     ReportPrinterConfig
	closers    []func() error
}

// Prepared is the outcome of the steps that run before printing.
type Prepared struct {
	Summary  string
	Document models.StructuredDocument
	Artifact *models.RenderedArtifact
	// ReportID is empty when archiving is disabled or failed.
	ReportID string
}

// NewReportPrinter creates a ReportPrinterFunction from the environment.
func NewReportPrinter(ctx context.Context) (*ReportPrinterFunction, error) {
	config, err := LoadReportConfig()
	if err != nil {
		return nil, err
	}
	return NewReportPrinterFromConfig(ctx, config)
}

// NewReportPrinterFromConfig creates the provider clients and spooler named
// by config.
func NewReportPrinterFromConfig(ctx context.Context, config ReportPrinterConfig) (*ReportPrinterFunction, error) {
	sum, closeSummarizer, err := summarizer.New(ctx, config.Summarizer)
	if err != nil {
		return nil, fmt.Errorf("failed to create summarizer: %w", err)
	}

	spooler, err := newSpooler(config)
	if err != nil {
		closeSummarizer()
		return nil, err
	}

	var archiver Archiver
	if config.ArchiveBucket != "" {
		archiver, err = NewGCSArchiver(ctx, config.Summarizer.ProjectID, config.ArchiveBucket, config.CollectionName)
		if err != nil {
			closeSummarizer()
			return nil, fmt.Errorf("failed to create archiver: %w", err)
		}
	}

	f := NewReportPrinterWithDeps(config, sum, spooler, archiver)
	f.closers = append(f.closers, closeSummarizer)
	slog.Info("Report printer initialized.",
		"llmProvider", config.Summarizer.Provider,
		"printBackend", config.PrintBackend,
		"archive", config.ArchiveBucket != "",
	)
	return f, nil
}

// NewReportPrinterWithDeps wires a ReportPrinterFunction from ready-made
// collaborators. archiver may be nil.
func NewReportPrinterWithDeps(config ReportPrinterConfig, sum summarizer.Summarizer, spooler printing.Spooler, archiver Archiver) *ReportPrinterFunction {
	registry := printing.NewRegistry(spooler, config.DefaultPrinter)
	f := &ReportPrinterFunction{
		summarizer: sum,
		registry:   registry,
		dispatcher: printing.NewDispatcher(spooler, registry, printing.WithJobName(config.JobName)),
		composer:   report.NewComposer(),
		renderer:   report.NewRenderer(),
		archiver:   archiver,
		config:     config,
	}
	if archiver != nil {
		f.closers = append(f.closers, archiver.Close)
	}
	return f
}

func newSpooler(config ReportPrinterConfig) (printing.Spooler, error) {
	switch config.PrintBackend {
	case BackendDirectory:
		s, err := printing.NewDirectorySpooler(config.SpoolDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create directory spooler: %w", err)
		}
		return s, nil
	default:
		s, err := printing.NewSystemSpooler(config.CUPS, slog.Default())
		if err != nil {
			return nil, fmt.Errorf("failed to create system spooler: %w", err)
		}
		return s, nil
	}
}

// Devices lists the output devices, marking the default one.
func (f *ReportPrinterFunction) Devices(ctx context.Context) ([]models.Device, error) {
	return f.registry.Devices(ctx)
}

// Prepare summarizes topic and renders the report to outputPath. Errors are
// returned unchanged to the caller. Archiving failures are only logged.
func (f *ReportPrinterFunction) Prepare(ctx context.Context, topic, outputPath string) (*Prepared, error) {
	logCtx := slog.With("topic", topic, "outputPath", outputPath)

	summary, err := f.summarizer.Summarize(ctx, topic)
	if err != nil {
		return nil, err
	}

	doc := f.composer.Compose(topic, summary)
	logCtx.Info("Document composed.", "bullets", len(doc.Bullets))

	artifact, err := f.renderer.Render(ctx, doc, outputPath)
	if err != nil {
		logCtx.Error("Failed to render report", "error", err)
		return nil, err
	}

	prepared := &Prepared{Summary: summary, Document: doc, Artifact: artifact}
	if f.archiver != nil {
		reportID, err := f.archiver.Archive(ctx, topic, artifact)
		if err != nil {
			logCtx.Warn("Failed to archive report. Continuing without a record.", "error", err)
		} else {
			prepared.ReportID = reportID
		}
	}
	return prepared, nil
}

// Print sends the prepared artifact to requested, falling back to the
// default device. The archive record, if any, is moved to PRINTED or
// PRINT_FAILED.
func (f *ReportPrinterFunction) Print(ctx context.Context, prepared *Prepared, requested string) (*printing.Result, error) {
	res, err := f.dispatcher.Submit(ctx, prepared.Artifact.Path, requested)

	if f.archiver != nil && prepared.ReportID != "" {
		status, details := models.ReportStatusPrinted, ""
		if err != nil {
			status, details = models.ReportStatusPrintFailed, err.Error()
		}
		if uerr := f.archiver.UpdateStatus(context.WithoutCancel(ctx), prepared.ReportID, status, res.Device, details); uerr != nil {
			slog.Error("CRITICAL: Failed to update report status after printing.", "reportId", prepared.ReportID, "status", status, "updateError", uerr)
		}
	}
	return res, err
}

// Process runs the whole pipeline for req. It halts before summarizing when
// no devices are registered. Print failures are reported in the response,
// not returned as errors.
func (f *ReportPrinterFunction) Process(ctx context.Context, req *models.PrintReportRequest) (*models.PrintReportResponse, error) {
	in, err := normalizeRequest(req)
	if err != nil {
		slog.Warn("Rejected report request.", "error", err)
		return nil, err
	}
	runID := uuid.NewString()
	topic := in.Topic
	logCtx := slog.With("runId", runID, "topic", topic, "requestedPrinter", in.Printer)
	logCtx.Info("Starting report run.")

	devices, err := f.Devices(ctx)
	if err != nil {
		logCtx.Error("Failed to list output devices", "error", err)
		return nil, err
	}
	resp := &models.PrintReportResponse{RunID: runID, Devices: devices}
	if len(devices) == 0 {
		logCtx.Warn("No output devices found. Halting.", "error", printing.ErrNoDevices)
		resp.Status = models.StatusNoDevices
		return resp, nil
	}

	prepared, err := f.Prepare(ctx, topic, f.config.OutputPath)
	if err != nil {
		return nil, err
	}
	resp.Summary = prepared.Summary
	resp.ArtifactPath = prepared.Artifact.Path
	resp.PageCount = prepared.Artifact.PageCount
	resp.ReportID = prepared.ReportID

	res, err := f.Print(ctx, prepared, in.Printer)
	resp.Device = res.Device
	resp.FellBack = res.FellBack
	if err != nil {
		var serr *printing.SubmissionError
		var qerr *printing.DeviceQueryError
		if !errors.As(err, &serr) && !errors.As(err, &qerr) {
			return nil, err
		}
		logCtx.Error("Printing failed.", "error", err)
		resp.Status = models.StatusPrintFailed
		resp.PrintError = err.Error()
		return resp, nil
	}

	logCtx.Info("Report run complete.", "device", res.Device, "fellBack", res.FellBack)
	resp.Status = models.StatusPrinted
	return resp, nil
}

// Close releases the summarizer and archive clients.
func (f *ReportPrinterFunction) Close() error {
	var errs []error
	for _, c := range f.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
