package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	sc "github.com/dmitrijs2005/credeval/internal/server/config"
	"github.com/stretchr/testify/require"
)

// -------- test fakes --------

type fakePage struct {
	text  string
	err   error
	delay time.Duration
	block bool
}

type fakeRasterizer struct {
	pages     []fakePage
	renderErr error
	imageText string
	imageErr  error
	extracts  atomic.Int32
}

func (f *fakeRasterizer) RenderPages(ctx context.Context, path string, opts RenderOptions) ([]Page, error) {
	if f.renderErr != nil {
		return nil, f.renderErr
	}
	out := make([]Page, len(f.pages))
	for i := range f.pages {
		out[i] = Page{Index: i, Source: i}
	}
	return out, nil
}

func (f *fakeRasterizer) ExtractText(ctx context.Context, p Page) (string, error) {
	f.extracts.Add(1)
	if p.Path != "" {
		return f.imageText, f.imageErr
	}
	fp := f.pages[p.Source.(int)]
	if fp.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	select {
	case <-time.After(fp.delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return fp.text, fp.err
}

// -------- helpers --------

func testConfig() *sc.Config {
	return &sc.Config{
		MaxUploadSize:   1 << 20,
		MaxContentSize:  1 << 20,
		RenderDensity:   150,
		PageWorkers:     3,
		DocumentTimeout: 2 * time.Second,
		RetryAttempts:   2,
		RetryBaseDelay:  time.Millisecond,
	}
}

const fakePDF = "%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\n"

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func pdfUpload(t *testing.T) RawUpload {
	t.Helper()
	path := writeFile(t, "transcript.pdf", fakePDF)
	return RawUpload{Path: path, Mimetype: MimePDF, Size: int64(len(fakePDF)), OriginalName: "transcript.pdf"}
}
