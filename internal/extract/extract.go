// Package extract turns uploaded resume documents into plain text.
package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"candidly/internal/errors"
	"candidly/internal/utils"
)

// Format is a supported document format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

var formatsByExtension = map[string]Format{
	".pdf":  FormatPDF,
	".docx": FormatDOCX,
	".doc":  FormatDOCX,
}

// SupportedExtensions lists accepted filename extensions.
func SupportedExtensions() []string {
	return []string{".pdf", ".docx", ".doc"}
}

// CheckFilename resolves the document format from the filename extension,
// ignoring case. Callers use it to reject an upload before reading its body.
func CheckFilename(filename string) (Format, error) {
	format, ok := formatsByExtension[utils.GetFileExtension(filename)]
	if !ok {
		return "", errors.UnsupportedFormat(filename)
	}
	return format, nil
}

// Extract returns the plain text of data interpreted by filename's format.
// Blank output is reported as ExtractionFailed.
func Extract(filename string, data []byte) (string, error) {
	format, err := CheckFilename(filename)
	if err != nil {
		return "", err
	}
	return ExtractFormat(format, data)
}

// ExtractFormat is Extract with an explicit format.
func ExtractFormat(format Format, data []byte) (text string, err error) {
	var extractor func([]byte) (string, error)
	switch format {
	case FormatPDF:
		extractor = extractPDF
	case FormatDOCX:
		extractor = extractDOCX
	default:
		return "", errors.UnsupportedFormat(string(format))
	}

	// The PDF reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = errors.ExtractionFailed(fmt.Sprintf("could not parse %s document", format), fmt.Errorf("%v", r))
		}
	}()

	text, err = extractor(data)
	if err != nil {
		return "", errors.ExtractionFailed(fmt.Sprintf("could not parse %s document", format), err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.ExtractionFailed(fmt.Sprintf("no text content found in %s document", format), nil)
	}
	return text, nil
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// extractDOCX reads word/document.xml and emits one line per paragraph.
func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open DOCX container: %w", err)
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("word/document.xml not found")
	}

	rc, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open document body: %w", err)
	}
	defer rc.Close()

	return paragraphText(rc)
}

func paragraphText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		lines  []string
		cur    strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("malformed document XML: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				cur.WriteByte('\t')
			case "br", "cr":
				cur.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				lines = append(lines, cur.String())
				cur.Reset()
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		}
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return strings.Join(lines, "\n"), nil
}
