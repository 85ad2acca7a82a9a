package rendering

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"github.com/humexxx/tech9-parserdf/internal/observability"
	"github.com/humexxx/tech9-parserdf/internal/types"
)

// A4 in inches, margins in millimetres.
const (
	paperWidthIn  = 8.27
	paperHeightIn = 11.69

	marginTopMM    = 18
	marginRightMM  = 16
	marginBottomMM = 16
	marginLeftMM   = 16

	// DefaultRenderTimeout bounds a single render including browser start.
	DefaultRenderTimeout = 60 * time.Second
)

func mmToIn(mm float64) float64 {
	return mm / 25.4
}

// ExecutableSource resolves the browser executable path.
type ExecutableSource interface {
	Acquire(ctx context.Context) (string, error)
}

// Renderer prints resume HTML to PDF with headless Chrome
type Renderer struct {
	browsers ExecutableSource
	timeout  time.Duration
}

// NewRenderer creates a renderer using the given executable source
func NewRenderer(browsers ExecutableSource, timeout time.Duration) *Renderer {
	if timeout <= 0 {
		timeout = DefaultRenderTimeout
	}
	return &Renderer{browsers: browsers, timeout: timeout}
}

// Render builds the resume document and prints it to an A4 PDF.
func (r *Renderer) Render(ctx context.Context, resume *types.StructuredResume, layout types.Layout, hidden types.HiddenSections) ([]byte, error) {
	html, err := BuildHTML(resume, layout, hidden)
	if err != nil {
		return nil, err
	}
	return r.RenderHTML(ctx, html)
}

// RenderHTML prints an HTML document to PDF bytes.
func (r *Renderer) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	execPath, err := r.browsers.Acquire(ctx)
	if err != nil {
		return nil, &RenderError{Message: "failed to locate browser", Cause: err}
	}

	start := time.Now()
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.ExecPath(execPath),
	)

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, r.timeout)
	defer cancel()

	var pdf []byte
	err = chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(paperWidthIn).
				WithPaperHeight(paperHeightIn).
				WithMarginTop(mmToIn(marginTopMM)).
				WithMarginRight(mmToIn(marginRightMM)).
				WithMarginBottom(mmToIn(marginBottomMM)).
				WithMarginLeft(mmToIn(marginLeftMM)).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, &RenderError{Message: "failed to print PDF", Cause: err}
	}

	observability.Logger().WithFields(logrus.Fields{
		"bytes":    len(pdf),
		"duration": time.Since(start).String(),
	}).Debug("pdf rendered")

	return pdf, nil
}
