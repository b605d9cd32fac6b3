// Package ingest converts uploaded source files into normalized text.
//
// PDFs are rendered page by page and text is extracted per page in
// parallel; the result joins page texts in page order with PageSeparator.
// A failure on any page fails the whole document, and nothing is written
// to the document record unless ingestion succeeded completely.
package ingest

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"strings"

	"github.com/dmitrijs2005/credeval/internal/logging"
	sc "github.com/dmitrijs2005/credeval/internal/server/config"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/blake2b"
)

// PageSeparator joins the texts of consecutive pages.
const PageSeparator = "\n\f\n"

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeText = "text/plain"
	MimePNG  = "image/png"
	MimeJPEG = "image/jpeg"
	MimeTIFF = "image/tiff"
)

type kind int

const (
	kindPDF kind = iota
	kindDOCX
	kindText
	kindImage
)

var supported = map[string]kind{
	MimePDF:  kindPDF,
	MimeDOCX: kindDOCX,
	MimeText: kindText,
	MimePNG:  kindImage,
	MimeJPEG: kindImage,
	MimeTIFF: kindImage,
}

// RawUpload describes a file as received from the upload service.
type RawUpload struct {
	Path         string `json:"path" validate:"required"`
	Mimetype     string `json:"mimetype" validate:"required"`
	Size         int64  `json:"size" validate:"gt=0"`
	OriginalName string `json:"originalName"`
}

type ParsedDocument struct {
	Content   string
	PageCount int
	// Checksum is the hex blake2b-256 of Content.
	Checksum string
	Mimetype string
}

var validate = validator.New()

// Converter runs the conversion itself. It has no side effects; see
// Ingestor for the persisted variant.
type Converter struct {
	rasterizer Rasterizer
	cfg        *sc.Config
	logger     logging.Logger
}

func NewConverter(r Rasterizer, cfg *sc.Config, logger logging.Logger) *Converter {
	return &Converter{
		rasterizer: r,
		cfg:        cfg,
		logger:     logger.With("module", "ingest"),
	}
}

// Convert validates the upload and converts it within the configured
// per-document timeout. When ctx itself is cancelled, ctx.Err() is
// returned instead of a conversion error.
func (c *Converter) Convert(ctx context.Context, u RawUpload) (ParsedDocument, error) {
	k, declared, err := c.check(u)
	if err != nil {
		return ParsedDocument{}, err
	}

	docCtx := ctx
	if c.cfg.DocumentTimeout > 0 {
		var cancel context.CancelFunc
		docCtx, cancel = context.WithTimeout(ctx, c.cfg.DocumentTimeout)
		defer cancel()
	}

	var pages []string
	switch k {
	case kindPDF:
		pages, err = c.convertPDF(docCtx, u.Path)
	case kindDOCX:
		var text string
		text, err = readDocx(u.Path)
		pages = []string{text}
	case kindText:
		var text string
		text, err = c.readText(u.Path)
		pages = []string{text}
	case kindImage:
		var text string
		text, err = c.extract(docCtx, Page{Index: 0, Path: u.Path})
		if err != nil {
			err = ConversionFailed(0, err)
		}
		pages = []string{text}
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ParsedDocument{}, ctxErr
	}
	if err != nil {
		return ParsedDocument{}, err
	}

	content := strings.Join(pages, PageSeparator)
	if len(content) > c.cfg.MaxContentSize {
		return ParsedDocument{}, fmt.Errorf("%w: %d bytes", ErrContentTooLarge, len(content))
	}

	sum := blake2b.Sum256([]byte(content))
	return ParsedDocument{
		Content:   content,
		PageCount: len(pages),
		Checksum:  hex.EncodeToString(sum[:]),
		Mimetype:  declared,
	}, nil
}

// check validates the upload against the supported types and size limit
// and cross-checks the declared type with the file's content.
func (c *Converter) check(u RawUpload) (kind, string, error) {
	if err := validate.Struct(u); err != nil {
		return 0, "", fmt.Errorf("%w: %w", ErrUnsupportedType, err)
	}

	declared, _, err := mime.ParseMediaType(u.Mimetype)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %q", ErrUnsupportedType, u.Mimetype)
	}
	k, ok := supported[declared]
	if !ok {
		return 0, "", fmt.Errorf("%w: %s", ErrUnsupportedType, declared)
	}

	st, err := os.Stat(u.Path)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %w", ErrFileUnreadable, err)
	}
	if st.IsDir() {
		return 0, "", fmt.Errorf("%w: %s is a directory", ErrFileUnreadable, u.Path)
	}
	if size := max(u.Size, st.Size()); size > c.cfg.MaxUploadSize {
		return 0, "", fmt.Errorf("%w: upload of %d bytes exceeds %d", ErrContentTooLarge, size, c.cfg.MaxUploadSize)
	}

	if k != kindText {
		sniffed, err := mimetype.DetectFile(u.Path)
		if err != nil {
			return 0, "", fmt.Errorf("%w: %w", ErrFileUnreadable, err)
		}
		if !sniffed.Is(declared) {
			return 0, "", fmt.Errorf("%w: declared %s, content is %s", ErrUnsupportedType, declared, sniffed.String())
		}
	}

	return k, declared, nil
}

func (c *Converter) readText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFileUnreadable, err)
	}
	defer f.Close()

	b, err := io.ReadAll(io.LimitReader(f, int64(c.cfg.MaxContentSize)+1))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFileUnreadable, err)
	}
	if len(b) > c.cfg.MaxContentSize {
		return "", fmt.Errorf("%w: more than %d bytes", ErrContentTooLarge, c.cfg.MaxContentSize)
	}
	return normalize(string(b)), nil
}

// extract runs ExtractText but stops waiting once ctx is done, so a stuck
// backend cannot hold the caller past the document timeout.
func (c *Converter) extract(ctx context.Context, p Page) (string, error) {
	type result struct {
		text string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		text, err := c.rasterizer.ExtractText(ctx, p)
		ch <- result{text, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return "", r.err
		}
		return normalize(r.text), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Converter) render(ctx context.Context, path string) ([]Page, error) {
	type result struct {
		pages []Page
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		pages, err := c.rasterizer.RenderPages(ctx, path, RenderOptions{Density: c.cfg.RenderDensity})
		ch <- result{pages, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			var ce *ConversionError
			if errors.As(r.err, &ce) || errors.Is(r.err, ErrFileUnreadable) {
				return nil, r.err
			}
			return nil, ConversionFailed(0, r.err)
		}
		return r.pages, nil
	case <-ctx.Done():
		return nil, ConversionFailed(0, ctx.Err())
	}
}

// normalize makes extracted text safe to store: valid UTF-8, no NULs and
// LF line endings.
func normalize(s string) string {
	s = strings.ToValidUTF8(s, "�")
	s = strings.ReplaceAll(s, "\x00", "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return s
}
