package extractor

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"po-tracking/logger"
)

// ExtractFromBytes extracts reservation fields from a PDF attachment.
// The bytes are spooled to a temp file for the PDF reader. Malformed
// documents are not an error — whatever subset of fields matched is
// returned; only file I/O failures are.
func ExtractFromBytes(content []byte, filename string) (Fields, error) {
	logger.Infof("Processing PDF from bytes: %s", filename)

	tmp, err := os.CreateTemp("", "reservation-*.pdf")
	if err != nil {
		return Fields{}, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return Fields{}, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Fields{}, fmt.Errorf("failed to close temp file: %w", err)
	}

	return ExtractFromFile(tmpPath)
}

// ExtractFromFile extracts reservation fields from a PDF on disk.
func ExtractFromFile(path string) (Fields, error) {
	text, err := extractText(path)
	if err != nil {
		return Fields{}, err
	}
	return ParseText(text), nil
}

// extractText concatenates the plain text of every page, in page
// order, separated by newlines. Pages that fail to render are skipped.
func extractText(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF %s: %w", path, err)
	}
	defer f.Close()

	var sb strings.Builder
	for pageIndex := 1; pageIndex <= reader.NumPage(); pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			logger.Warningf("Could not read page %d of %s: %v", pageIndex, path, err)
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	return sb.String(), nil
}
