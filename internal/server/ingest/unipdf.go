package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
	"github.com/unidoc/unipdf/v3/render"
)

// ErrNoTextLayer is returned for pages that carry no extractable text, such
// as plain image uploads.
var ErrNoTextLayer = errors.New("page has no text layer")

// PDFRasterizer is the unipdf-backed Rasterizer. Text comes from the PDF
// text layer of each page.
type PDFRasterizer struct{}

func NewPDFRasterizer(licenseKey string) (*PDFRasterizer, error) {
	if licenseKey != "" {
		if err := license.SetMeteredKey(licenseKey); err != nil {
			return nil, fmt.Errorf("unidoc license: %w", err)
		}
	}
	return &PDFRasterizer{}, nil
}

// pdfPage guards a page of a shared reader; unipdf readers are not safe
// for concurrent use.
type pdfPage struct {
	mu   *sync.Mutex
	page *model.PdfPage
}

func (r *PDFRasterizer) RenderPages(ctx context.Context, path string, opts RenderOptions) ([]Page, error) {
	// the reader resolves objects lazily, so keep the bytes around
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileUnreadable, err)
	}

	reader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return nil, ConversionFailed(0, err)
	}
	numPages, err := reader.GetNumPages()
	if err != nil {
		return nil, ConversionFailed(0, err)
	}
	if numPages == 0 {
		return nil, ConversionFailed(0, errors.New("document has no pages"))
	}

	mu := &sync.Mutex{}
	device := render.NewImageDevice()
	pages := make([]Page, 0, numPages)

	for i := 1; i <= numPages; i++ {
		idx := i - 1
		if err := ctx.Err(); err != nil {
			return nil, ConversionFailed(idx, err)
		}

		page, err := reader.GetPage(i)
		if err != nil {
			return nil, ConversionFailed(idx, err)
		}

		if opts.Density > 0 {
			mb, err := page.GetMediaBox()
			if err != nil {
				return nil, ConversionFailed(idx, err)
			}
			device.OutputWidth = int((mb.Urx - mb.Llx) * float64(opts.Density) / 72)
		}

		img, err := device.Render(page)
		if err != nil {
			return nil, ConversionFailed(idx, err)
		}

		pages = append(pages, Page{
			Index:  idx,
			Image:  img,
			Source: &pdfPage{mu: mu, page: page},
		})
	}

	return pages, nil
}

func (r *PDFRasterizer) ExtractText(ctx context.Context, p Page) (string, error) {
	src, ok := p.Source.(*pdfPage)
	if !ok {
		return "", ErrNoTextLayer
	}

	src.mu.Lock()
	defer src.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	ex, err := extractor.New(src.page)
	if err != nil {
		return "", err
	}
	return ex.ExtractText()
}
