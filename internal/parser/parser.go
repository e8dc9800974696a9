package parser

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"document-indexer/internal/models"
)

var ErrUnsupportedFileType = errors.New("unsupported file type")

const (
	extPDF  = ".pdf"
	extDOCX = ".docx"
)

// Parser turns a document on disk into plain text.
type Parser interface {
	Supported(filePath string) error
	ExtractText(filePath string) (string, error)
}

// FileParser dispatches on the file extension.
type FileParser struct{}

func (FileParser) Supported(filePath string) error {
	return Supported(filePath)
}

func (FileParser) ExtractText(filePath string) (string, error) {
	return ExtractText(filePath)
}

// Supported reports whether the file extension can be extracted.
func Supported(filePath string) error {
	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case extPDF, extDOCX:
		return nil
	default:
		return fmt.Errorf("%w: %q, only PDF and DOCX are supported", ErrUnsupportedFileType, ext)
	}
}

// ExtractText reads every page (PDF) or paragraph (DOCX) in document order and
// returns the trimmed text.
func ExtractText(filePath string) (string, error) {
	if err := Supported(filePath); err != nil {
		return "", err
	}

	var (
		text string
		err  error
	)
	switch strings.ToLower(filepath.Ext(filePath)) {
	case extPDF:
		text, err = parsePDF(filePath)
	case extDOCX:
		text, err = parseDOCX(filePath)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimFunc(text, models.IsSpace), nil
}

func parsePDF(filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", filePath, err)
	}

	var text strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("read pdf page %d: %w", i, err)
		}
		text.WriteString(pageText)
	}
	return text.String(), nil
}

func parseDOCX(filePath string) (string, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return "", fmt.Errorf("open docx %s: %w", filePath, err)
	}
	defer r.Close()

	paragraphs, err := docxParagraphs(strings.NewReader(r.Editable().GetContent()))
	if err != nil {
		return "", fmt.Errorf("read docx %s: %w", filePath, err)
	}
	return strings.Join(paragraphs, "\n"), nil
}

// docxParagraphs returns the text of each body-level w:p element of a
// word/document.xml stream. Table cells, text boxes and property blocks are
// skipped.
func docxParagraphs(r io.Reader) ([]string, error) {
	var (
		paragraphs []string
		current    strings.Builder
		inPara     bool
		inText     bool
		nested     int
		props      int
	)

	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl", "txbxContent":
				nested++
			case "pPr", "rPr":
				props++
			case "p":
				if nested == 0 {
					inPara = true
					current.Reset()
				}
			case "t":
				inText = inPara && nested == 0
			case "tab":
				if inPara && nested == 0 && props == 0 {
					current.WriteByte('\t')
				}
			case "br", "cr":
				if inPara && nested == 0 && props == 0 {
					current.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "tbl", "txbxContent":
				nested--
			case "pPr", "rPr":
				props--
			case "p":
				if inPara && nested == 0 {
					paragraphs = append(paragraphs, current.String())
					inPara = false
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	return paragraphs, nil
}
