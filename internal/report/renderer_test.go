package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/reportprinter/internal/models"
)

// plainRenderer keeps content streams readable so tests can look for text.
func plainRenderer() *Renderer {
	return NewRenderer(WithCompression(false), WithOptimization(false))
}

// pdfText encodes s the way text is shown with the embedded fonts: UTF-16BE
// with PDF string escapes.
func pdfText(s string) string {
	var b strings.Builder
	for _, u := range utf16.Encode([]rune(s)) {
		b.WriteByte(byte(u >> 8))
		b.WriteByte(byte(u))
	}
	return strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`, "\r", `\r`).Replace(b.String())
}

// pdfString is pdfText as a complete string operand.
func pdfString(s string) string {
	return "(" + pdfText(s) + ")"
}

func renderToTemp(t *testing.T, r *Renderer, doc models.StructuredDocument) (*models.RenderedArtifact, []byte) {
	t.Helper()
	out := filepath.Join(t.TempDir(), "summary.pdf")
	artifact, err := r.Render(context.Background(), doc, out)
	require.NoError(t, err)
	require.Equal(t, out, artifact.Path)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	return artifact, data
}

func TestRender_Healthcare(t *testing.T) {
	doc := NewComposer().Compose("Healthcare", healthcareSummary)
	artifact, data := renderToTemp(t, plainRenderer(), doc)

	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	assert.Equal(t, 2, artifact.PageCount, "content page plus the page opened by the closing break")
	assert.Equal(t, int64(len(data)), artifact.Size)

	assert.Contains(t, string(data), pdfString("Healthcare — AI Research Summary"))
	assert.Contains(t, string(data), pdfString("Key Takeaways"))
	assert.Contains(t, string(data), pdfString("Full Summary"))
	for _, b := range doc.Bullets {
		assert.Equal(t, 1, strings.Count(string(data), pdfString(b)), b)
	}
	for _, word := range strings.Fields(healthcareSummary) {
		assert.Contains(t, string(data), pdfText(word), word)
	}
	assert.Contains(t, string(data), pdfString("Page 1"))
	assert.Contains(t, string(data), pdfString("Page 2"))
	assert.Contains(t, string(data), "/Identity-H", "text is set in an embedded Unicode font")
}

func TestRender_KeepsNonLatinText(t *testing.T) {
	doc := NewComposer().Compose("医疗 AI", "Dosage must be ≥ 5 mg → see Δ results. Outcomes improved across every ward.")
	require.Equal(t, []string{"Dosage must be ≥ 5 mg → see Δ results", "Outcomes improved across every ward"}, doc.Bullets)

	_, data := renderToTemp(t, plainRenderer(), doc)

	assert.Contains(t, string(data), pdfString("医疗 AI — AI Research Summary"))
	assert.Contains(t, string(data), pdfString("Dosage must be ≥ 5 mg → see Δ results"))
	for _, symbol := range []string{"≥", "→", "Δ"} {
		assert.Contains(t, string(data), pdfString(symbol), "body text keeps %s", symbol)
	}
	assert.NotContains(t, string(data), "(.. AI")
	assert.NotContains(t, string(data), "Dosage must be . 5 mg")
}

func TestRender_WrapsLongWords(t *testing.T) {
	doc := models.StructuredDocument{
		Topic:    "Wrap",
		Bullets:  []string{strings.Repeat("x", 200)},
		FullText: strings.Repeat("雨", 120),
	}
	artifact, data := renderToTemp(t, plainRenderer(), doc)

	assert.Equal(t, 2, artifact.PageCount)
	assert.NotContains(t, string(data), "Inf(")

	rain := pdfText("雨")
	lines, total := 0, 0
	for _, chunk := range strings.Split(string(data), "Td (")[1:] {
		end := strings.Index(chunk, ")Tj")
		if end <= 0 {
			continue
		}
		if text := chunk[:end]; strings.ReplaceAll(text, rain, "") == "" {
			lines++
			total += len(text) / len(rain)
		}
	}
	assert.Greater(t, lines, 1, "the body wraps")
	assert.Equal(t, 120, total, "wrapping drops no characters")
}

func TestRender_CancelledContext(t *testing.T) {
	out := filepath.Join(t.TempDir(), "summary.pdf")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := plainRenderer().Render(ctx, NewComposer().Compose("Healthcare", healthcareSummary), out)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, out)
	entries, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRender_Optimized(t *testing.T) {
	doc := NewComposer().Compose("Healthcare", healthcareSummary)
	out := filepath.Join(t.TempDir(), "summary.pdf")

	artifact, err := NewRenderer().Render(context.Background(), doc, out)
	require.NoError(t, err)
	assert.Equal(t, 2, artifact.PageCount)
	assert.Positive(t, artifact.Size)

	entries, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files are cleaned up")
	assert.Equal(t, "summary.pdf", entries[0].Name())
}

func TestRender_EmptyBullets(t *testing.T) {
	doc := models.StructuredDocument{Topic: "Nothing", Bullets: []string{}, FullText: "Short. Tiny."}
	artifact, data := renderToTemp(t, plainRenderer(), doc)

	assert.Equal(t, 2, artifact.PageCount)
	assert.Contains(t, string(data), pdfString("Key Takeaways"))
	assert.Contains(t, string(data), pdfString("Full Summary"))
}

func TestRender_FooterOnEveryPage(t *testing.T) {
	bullets := make([]string, 150)
	for i := range bullets {
		bullets[i] = fmt.Sprintf("Takeaway number %d is long enough to keep", i)
	}
	doc := models.StructuredDocument{
		Topic:    "Volume",
		Bullets:  bullets,
		FullText: strings.Repeat("A long paragraph of body text that wraps across lines. ", 40),
	}
	artifact, data := renderToTemp(t, plainRenderer(), doc)

	require.Greater(t, artifact.PageCount, 3)
	for n := 1; n <= artifact.PageCount; n++ {
		assert.Equal(t, 1, strings.Count(string(data), pdfString(fmt.Sprintf("Page %d", n))), "page %d", n)
	}
	assert.NotContains(t, string(data), pdfString(fmt.Sprintf("Page %d", artifact.PageCount+1)))
}

func TestRender_UnwritablePath(t *testing.T) {
	out := filepath.Join(t.TempDir(), "missing", "summary.pdf")

	_, err := plainRenderer().Render(context.Background(), models.StructuredDocument{Topic: "x"}, out)
	var ioErr *RenderIOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, out, ioErr.Path)
	assert.Equal(t, "create", ioErr.Op)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NoFileExists(t, out)
}

func TestRender_ReplacesExistingArtifact(t *testing.T) {
	out := filepath.Join(t.TempDir(), "summary.pdf")
	require.NoError(t, os.WriteFile(out, []byte("stale"), 0o644))

	artifact, err := plainRenderer().Render(context.Background(), NewComposer().Compose("Healthcare", healthcareSummary), out)
	require.NoError(t, err)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	assert.Equal(t, int64(len(data)), artifact.Size)
}

func TestLayout(t *testing.T) {
	doc := NewComposer().Compose("Healthcare", healthcareSummary)
	flow := Layout(doc)

	require.Len(t, flow, 7)
	assert.Equal(t, Title{Text: "Healthcare — AI Research Summary"}, flow[0])
	assert.IsType(t, Spacer{}, flow[1])
	assert.Equal(t, Heading{Text: "Key Takeaways"}, flow[2])
	assert.Equal(t, BulletList{Items: doc.Bullets}, flow[3])
	assert.Equal(t, Heading{Text: "Full Summary"}, flow[4])
	assert.Equal(t, Paragraph{Text: healthcareSummary}, flow[5])
	assert.Equal(t, PageBreak{}, flow[6])
}

func TestLayout_EmptyBulletsKeepsSection(t *testing.T) {
	flow := Layout(models.StructuredDocument{Topic: "t", FullText: "body"})
	require.Len(t, flow, 7)
	list, ok := flow[3].(BulletList)
	require.True(t, ok)
	assert.Empty(t, list.Items)
}

func TestParagraphs(t *testing.T) {
	assert.Equal(t, []string{"one line"}, paragraphs("one line"))
	assert.Equal(t, []string{"first", "second"}, paragraphs("first\n\n  second \r\n"))
	assert.Nil(t, paragraphs("   "))
	assert.Nil(t, paragraphs(""))
}
