package ingest

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

var (
	docxParagraphEnd = regexp.MustCompile(`</w:p>|<w:br\s*/>|<w:cr\s*/>`)
	docxTab          = regexp.MustCompile(`<w:tab\s*/>`)
	xmlTag           = regexp.MustCompile(`<[^>]*>`)
)

// readDocx returns the plain text of a .docx body, one paragraph per line.
func readDocx(path string) (string, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFileUnreadable, err)
	}
	defer r.Close()

	return docxXMLToText(r.Editable().GetContent()), nil
}

func docxXMLToText(body string) string {
	body = docxParagraphEnd.ReplaceAllString(body, "\n")
	body = docxTab.ReplaceAllString(body, "\t")
	body = xmlTag.ReplaceAllString(body, "")
	return strings.TrimRight(html.UnescapeString(body), "\n")
}
