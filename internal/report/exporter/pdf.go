package exporter

import (
	"context"
	"fmt"
	"html"
	"os"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/verustcode/materiality/internal/config"
	"github.com/verustcode/materiality/internal/report"
	"github.com/verustcode/materiality/pkg/errors"
	"github.com/verustcode/materiality/pkg/logger"
)

// PDFOptions contains configuration for PDF generation
type PDFOptions struct {
	// Paper dimensions in inches (A4: 8.27 x 11.69)
	PaperWidth  float64
	PaperHeight float64

	// Margins in inches
	MarginTop    float64
	MarginBottom float64
	MarginLeft   float64
	MarginRight  float64

	Landscape           bool
	DisplayHeaderFooter bool
	PrintBackground     bool

	// ChromePath overrides CHROME_PATH
	ChromePath string

	// MinBytes rejects renders smaller than this as blank output
	MinBytes int

	// Timeout for PDF generation
	Timeout time.Duration
}

// DefaultPDFOptions returns default PDF options for A4 paper
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{
		PaperWidth:          8.27,
		PaperHeight:         11.69,
		MarginTop:           0.4,
		MarginBottom:        0.4,
		MarginLeft:          0.4,
		MarginRight:         0.4,
		DisplayHeaderFooter: true,
		PrintBackground:     true,
		MinBytes:            1024,
		Timeout:             60 * time.Second,
	}
}

// PDFOptionsFromConfig maps the export configuration onto PDF options.
func PDFOptionsFromConfig(cfg config.ExportConfig) PDFOptions {
	opts := DefaultPDFOptions()
	p := cfg.PDF
	if p.PaperWidth > 0 && p.PaperHeight > 0 {
		opts.PaperWidth, opts.PaperHeight = p.PaperWidth, p.PaperHeight
	}
	opts.MarginTop = p.MarginTop
	opts.MarginBottom = p.MarginBottom
	opts.MarginLeft = p.MarginLeft
	opts.MarginRight = p.MarginRight
	opts.Landscape = p.Landscape
	opts.PrintBackground = p.PrintBackground
	if p.TimeoutSeconds > 0 {
		opts.Timeout = time.Duration(p.TimeoutSeconds) * time.Second
	}
	opts.ChromePath = cfg.ChromePath
	if cfg.MinPDFBytes > 0 {
		opts.MinBytes = cfg.MinPDFBytes
	}
	return opts
}

// PDFExporter prints the standalone HTML document with headless Chrome.
type PDFExporter struct {
	options PDFOptions
}

// NewPDFExporter creates a new PDF exporter with default options
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{options: DefaultPDFOptions()}
}

// NewPDFExporterWithOptions creates a new PDF exporter with custom options
func NewPDFExporterWithOptions(opts PDFOptions) *PDFExporter {
	return &PDFExporter{options: opts}
}

// Name returns the human-readable name of this exporter
func (e *PDFExporter) Name() string { return "PDF" }

// FileExtension returns the file extension for PDF files
func (e *PDFExporter) FileExtension() string { return ".pdf" }

// ContentType returns the MIME type of PDF output
func (e *PDFExporter) ContentType() string { return "application/pdf" }

// Export renders the report document to PDF.
func (e *PDFExporter) Export(ctx context.Context, res *report.Result) ([]byte, error) {
	startTime := time.Now()
	logger.Info("[PDF Export] Starting PDF export",
		zap.String("report_id", res.ReportID),
		zap.Int("html_size", len(res.Document)),
		zap.Duration("timeout", e.options.Timeout),
	)

	// Write HTML to temporary file (avoids data URL size limits)
	tmpFile, err := os.CreateTemp("", "materiality-pdf-*.html")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRenderBackend, "failed to create temp file", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.WriteString(res.Document); err != nil {
		tmpFile.Close()
		return nil, errors.Wrap(errors.ErrCodeRenderBackend, "failed to write temp file", err)
	}
	tmpFile.Close()

	ctx, cancel := context.WithTimeout(ctx, e.options.Timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-software-rasterizer", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("headless", true),
	)

	chromePath := e.options.ChromePath
	if chromePath == "" {
		chromePath = os.Getenv("CHROME_PATH")
	}
	if chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
		logger.Debug("[PDF Export] Using custom Chrome path",
			zap.String("report_id", res.ReportID),
			zap.String("chrome_path", chromePath),
		)
	}
	opts = append(opts, chromedp.WSURLReadTimeout(30*time.Second))

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			logger.Debug(fmt.Sprintf("[PDF Export] chromedp: "+format, args...))
		}),
	)
	defer browserCancel()

	header, footer := e.headerFooter(res)

	var pdfData []byte
	chromeStartTime := time.Now()
	err = chromedp.Run(browserCtx,
		chromedp.Navigate("file://"+tmpPath),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdfData, _, err = page.PrintToPDF().
				WithPaperWidth(e.options.PaperWidth).
				WithPaperHeight(e.options.PaperHeight).
				WithMarginTop(e.options.MarginTop).
				WithMarginBottom(e.options.MarginBottom).
				WithMarginLeft(e.options.MarginLeft).
				WithMarginRight(e.options.MarginRight).
				WithLandscape(e.options.Landscape).
				WithDisplayHeaderFooter(e.options.DisplayHeaderFooter).
				WithHeaderTemplate(header).
				WithFooterTemplate(footer).
				WithPrintBackground(e.options.PrintBackground).
				WithPreferCSSPageSize(false).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		logger.Error("[PDF Export] Failed to generate PDF",
			zap.String("report_id", res.ReportID),
			zap.Error(err),
			zap.Duration("chrome_duration", time.Since(chromeStartTime)),
		)
		return nil, errors.Wrap(errors.ErrCodeRenderBackend, "failed to generate PDF", err)
	}

	if len(pdfData) < e.options.MinBytes {
		return nil, errors.New(errors.ErrCodeRenderBackend,
			fmt.Sprintf("PDF output too small (%s)", formatBytes(len(pdfData))))
	}

	logger.Info("[PDF Export] PDF export completed successfully",
		zap.String("report_id", res.ReportID),
		zap.String("pdf_size_human", formatBytes(len(pdfData))),
		zap.Duration("total_duration", time.Since(startTime)),
	)
	return pdfData, nil
}

// headerFooter returns the Chrome print templates. Chrome fills elements with
// the pageNumber and totalPages classes.
func (e *PDFExporter) headerFooter(res *report.Result) (header, footer string) {
	header = fmt.Sprintf(`<div style="width:100%%; padding:4px 20px; font-size:9px; font-family:Arial,sans-serif; color:#666;">%s</div>`,
		html.EscapeString(documentTitle(res)))
	footer = `<div style="width:100%; padding:0 20px; font-size:9px; font-family:Arial,sans-serif; color:#666; text-align:right;">` +
		`Page <span class="pageNumber"></span> of <span class="totalPages"></span></div>`
	return header, footer
}
