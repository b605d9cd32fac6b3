package ingest

import (
	"context"
	"image"
)

type RenderOptions struct {
	// Density is the render resolution in dots per inch.
	Density int
}

// Page is one rendered page of a document.
type Page struct {
	Index int
	Image image.Image
	// Path is set instead of Image for single-image uploads.
	Path string
	// Source carries backend-specific page state.
	Source any
}

// Rasterizer turns a document into page images and reads text from them.
// RenderPages may be called concurrently for different documents;
// ExtractText may be called concurrently for pages of one document.
type Rasterizer interface {
	RenderPages(ctx context.Context, path string, opts RenderOptions) ([]Page, error)
	ExtractText(ctx context.Context, page Page) (string, error)
}
