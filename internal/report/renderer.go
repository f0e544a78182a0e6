package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/Lllllllleong/reportprinter/internal/models"
)

// RenderIOError reports that the artifact could not be written.
type RenderIOError struct {
	Path string
	Op   string
	Err  error
}

func (e *RenderIOError) Error() string {
	return fmt.Sprintf("render %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *RenderIOError) Unwrap() error { return e.Err }

// Renderer lays a StructuredDocument out as a paginated PDF.
type Renderer struct {
	compress bool
	optimize bool
	logger   *slog.Logger
}

type RendererOption func(*Renderer)

// WithCompression toggles content stream compression. It is on by default.
func WithCompression(on bool) RendererOption {
	return func(r *Renderer) { r.compress = on }
}

// WithOptimization toggles the pdfcpu optimize pass. It is on by default.
func WithOptimization(on bool) RendererOption {
	return func(r *Renderer) { r.optimize = on }
}

func WithRenderLogger(logger *slog.Logger) RendererOption {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{compress: true, optimize: true, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render writes doc to outputPath. The document is first written to a
// temporary file next to outputPath and only renamed into place once it has
// been optimized and its pages counted, so a failed render never leaves a
// file at outputPath. ctx is checked between steps; a cancelled render
// leaves outputPath untouched.
func (r *Renderer) Render(ctx context.Context, doc models.StructuredDocument, outputPath string) (*models.RenderedArtifact, error) {
	logCtx := r.logger.With("topic", doc.Topic, "outputPath", outputPath)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(outputPath), ".render-*.pdf")
	if err != nil {
		return nil, &RenderIOError{Path: outputPath, Op: "create", Err: err}
	}
	tmpPath := tmp.Name()
	optimizedPath := strings.TrimSuffix(tmpPath, ".pdf") + ".optimized.pdf"
	defer os.Remove(tmpPath)
	defer os.Remove(optimizedPath)

	pdf := r.draw(doc)
	if pdf.Err() {
		tmp.Close()
		return nil, fmt.Errorf("failed to lay out document: %w", pdf.Error())
	}
	if err := ctx.Err(); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := pdf.Output(tmp); err != nil {
		tmp.Close()
		return nil, &RenderIOError{Path: outputPath, Op: "write", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return nil, &RenderIOError{Path: outputPath, Op: "write", Err: err}
	}

	finalPath := tmpPath
	if r.optimize {
		if err := optimizePDF(tmpPath, optimizedPath); err != nil {
			return nil, fmt.Errorf("failed to validate/optimize PDF: %w", err)
		}
		finalPath = optimizedPath
	}

	pageCount, err := api.PageCountFile(finalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.Rename(finalPath, outputPath); err != nil {
		return nil, &RenderIOError{Path: outputPath, Op: "rename", Err: err}
	}
	info, err := os.Stat(outputPath)
	if err != nil {
		return nil, &RenderIOError{Path: outputPath, Op: "stat", Err: err}
	}

	logCtx.Info("Artifact rendered.", "pageCount", pageCount, "bytes", info.Size(), "bullets", len(doc.Bullets))
	return &models.RenderedArtifact{Path: outputPath, PageCount: pageCount, Size: info.Size()}, nil
}

// draw runs every flowable of doc against a fresh Letter page. Text is set in
// the embedded Go fonts so any UTF-8 topic or summary survives. The footer
// callback stamps "Page {n}" on each page as it is closed, including the one
// opened by the closing page break.
func (r *Renderer) draw(doc models.StructuredDocument) *fpdf.Fpdf {
	pdf := fpdf.New("P", "pt", pageSize, "")
	pdf.SetCompression(r.compress)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle(doc.Topic+" — AI Research Summary", true)
	pdf.SetCreator("reportprinter", false)

	pdf.AddUTF8FontFromBytes(fontFamily, "", goregular.TTF)
	pdf.AddUTF8FontFromBytes(fontFamily, "B", gobold.TTF)

	c := &canvas{pdf: pdf}
	pdf.SetFooterFunc(func() {
		pageW, pageH := pdf.GetPageSize()
		pdf.SetFont(fontFamily, "", footerFont)
		pdf.SetXY(0, pageH-footerBaseline-footerFont)
		pdf.CellFormat(pageW-footerRight, footerFont, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	for _, f := range Layout(doc) {
		f.draw(c)
	}
	return pdf
}

func optimizePDF(inPath, outPath string) error {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return api.OptimizeFile(inPath, outPath, cfg)
}
