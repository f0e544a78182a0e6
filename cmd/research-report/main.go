// Command research-report summarizes a topic, renders the summary as a PDF
// report and sends it to a printer.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/Lllllllleong/reportprinter/internal/gcp"
	"github.com/Lllllllleong/reportprinter/internal/logging"
	"github.com/Lllllllleong/reportprinter/internal/models"
	"github.com/Lllllllleong/reportprinter/internal/printing"
	"github.com/Lllllllleong/reportprinter/internal/services"
)

// pipeline is the part of the report service the console drives.
type pipeline interface {
	Devices(ctx context.Context) ([]models.Device, error)
	Prepare(ctx context.Context, topic, outputPath string) (*services.Prepared, error)
	Print(ctx context.Context, prepared *services.Prepared, requested string) (*printing.Result, error)
}

type console struct {
	reports    pipeline
	in         *bufio.Scanner
	out        io.Writer
	outputPath string

	warn *color.Color
	fail *color.Color
	ok   *color.Color
}

func newConsole(reports pipeline, in io.Reader, out io.Writer, outputPath string) *console {
	return &console{
		reports:    reports,
		in:         bufio.NewScanner(in),
		out:        out,
		outputPath: outputPath,
		warn:       color.New(color.FgYellow),
		fail:       color.New(color.FgRed),
		ok:         color.New(color.FgGreen),
	}
}

// readLine returns the next trimmed input line, or "" at end of input.
func (c *console) readLine(prompt string) (string, error) {
	if prompt != "" {
		fmt.Fprint(c.out, prompt)
	}
	if c.in.Scan() {
		return strings.TrimSpace(c.in.Text()), nil
	}
	if err := c.in.Err(); err != nil {
		return "", err
	}
	return "", nil
}

// run executes one report. A missing device list halts the run without an
// error, and print failures are reported but not returned.
func (c *console) run(ctx context.Context, topic, printer string, askPrinter bool) error {
	var err error
	if topic == "" {
		if topic, err = c.readLine("Enter a research topic: "); err != nil {
			return err
		}
		if topic == "" {
			return errors.New("a topic is required")
		}
	}

	fmt.Fprintln(c.out, "Checking available printers...")
	devices, err := c.reports.Devices(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Available printers:")
	for _, d := range devices {
		if d.IsDefault {
			fmt.Fprintf(c.out, " - %s (default)\n", d.Name)
			continue
		}
		fmt.Fprintf(c.out, " - %s\n", d.Name)
	}
	if len(devices) == 0 {
		c.warn.Fprintln(c.out, "No printers found.")
		return nil
	}

	prepared, err := c.reports.Prepare(ctx, topic, c.outputPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "\nGenerated summary:\n %s\n", prepared.Summary)
	fmt.Fprintf(c.out, "PDF generated: %s (%d pages)\n", prepared.Artifact.Path, prepared.Artifact.PageCount)

	if askPrinter {
		if printer, err = c.readLine("Enter printer name to use (leave empty for default): "); err != nil {
			return err
		}
	}

	res, err := c.reports.Print(ctx, prepared, printer)
	if res != nil && res.FellBack {
		c.warn.Fprintf(c.out, "Printer '%s' not available. Using default instead.\n", res.Requested)
	}
	if err != nil {
		c.fail.Fprintf(c.out, "Printing failed: %v\n", err)
		return nil
	}
	c.ok.Fprintf(c.out, "Printed PDF to: %s\n", res.Device)
	return nil
}

func main() {
	os.Exit(realMain())
}

func realMain() int {
	var topic, printer, output string
	flag.StringVar(&topic, "topic", "", "Research topic (prompted for when empty)")
	flag.StringVar(&printer, "printer", "", "Printer name (prompted for when empty)")
	flag.StringVar(&output, "output", "", "Path of the rendered PDF (default: REPORT_OUTPUT_PATH)")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
		return 1
	}

	logger, closeLog := logging.New(os.Stderr, gcp.GetEnv("LOG_FILE", ""), gcp.GetEnv("LOG_LEVEL", "warn"))
	defer closeLog()
	slog.SetDefault(logger)

	config, err := services.LoadReportConfig()
	if err != nil {
		color.Red("Configuration error: %v", err)
		return 1
	}
	if output != "" {
		config.OutputPath = output
	}

	ctx := context.Background()
	reports, err := services.NewReportPrinterFromConfig(ctx, config)
	if err != nil {
		color.Red("Startup failed: %v", err)
		return 1
	}
	defer reports.Close()

	c := newConsole(reports, os.Stdin, os.Stdout, config.OutputPath)
	if err := c.run(ctx, topic, printer, printer == ""); err != nil {
		color.Red("Error: %v", err)
		return 1
	}
	return 0
}
