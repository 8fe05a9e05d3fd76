package export

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/BookForge/internal/pkg/env"
)

const defaultPDFTimeout = 60 * time.Second

// ChromePDFConverter prints HTML to PDF through headless Chrome.
type ChromePDFConverter struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	timeout     time.Duration
}

// NewChromePDFConverter connects to the browser at remoteURL, or launches a
// local headless Chrome when remoteURL is empty.
func NewChromePDFConverter(remoteURL string) *ChromePDFConverter {
	c := &ChromePDFConverter{timeout: defaultPDFTimeout}
	if remoteURL != "" {
		c.allocCtx, c.allocCancel = chromedp.NewRemoteAllocator(context.Background(), remoteURL)
		return c
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	c.allocCtx, c.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	return c
}

// NewChromePDFConverterFromEnv reads CHROME_REMOTE_URL.
func NewChromePDFConverterFromEnv() *ChromePDFConverter {
	return NewChromePDFConverter(env.GetEnv("CHROME_REMOTE_URL", ""))
}

func (c *ChromePDFConverter) HTMLToPDF(ctx context.Context, html string) ([]byte, error) {
	if strings.TrimSpace(html) == "" {
		return nil, errors.New("html content is empty")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	browserCtx, browserCancel := chromedp.NewContext(c.allocCtx)
	defer browserCancel()
	// stop the browser tab when the caller gives up
	go func() {
		<-ctx.Done()
		browserCancel()
	}()

	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			// A5 in inches
			data, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(5.83).
				WithPaperHeight(8.27).
				WithMarginTop(0.7).
				WithMarginBottom(0.7).
				WithMarginLeft(0.6).
				WithMarginRight(0.6).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = data
			return nil
		}),
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errors.New("pdf rendering timed out")
		}
		log.Errorf("[Export] chromedp rendering failed: %v", err)
		return nil, err
	}
	if len(pdf) == 0 {
		return nil, errors.New("generated pdf is empty")
	}
	return pdf, nil
}

// Close releases the browser allocator.
func (c *ChromePDFConverter) Close() {
	if c.allocCancel != nil {
		c.allocCancel()
	}
}
