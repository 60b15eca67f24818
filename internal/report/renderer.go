package report

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"

	"finrag/features/transaction"
)

const DefaultCurrencySymbol = "Rs."

type Renderer struct {
	currency string
}

func NewRenderer(currencySymbol string) *Renderer {
	if currencySymbol == "" {
		currencySymbol = DefaultCurrencySymbol
	}
	return &Renderer{currency: currencySymbol}
}

// Path is the report location for userID under dir. The id is
// percent-escaped so distinct ids always map to distinct files inside dir.
func Path(dir, userID string) string {
	return filepath.Join(dir, url.PathEscape(userID)+"-report.pdf")
}

// Render writes records to path as a PDF. The file is written to a temp
// sibling and renamed into place, so path only ever holds a complete report.
func (r *Renderer) Render(ctx context.Context, records []transaction.Transaction, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	pdf := r.build(records)
	if err := pdf.Error(); err != nil {
		return "", fmt.Errorf("layout pdf: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".report-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			if rmErr := os.Remove(tmpName); rmErr != nil && !os.IsNotExist(rmErr) {
				slog.Warn("failed to remove temp report", "error", rmErr, "path", tmpName)
			}
		}
	}()

	if err := pdf.Output(tmp); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("sync pdf: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close pdf: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("rename pdf: %w", err)
	}
	committed = true

	return path, nil
}

func (r *Renderer) build(records []transaction.Transaction) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, "Transaction Report", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for _, rec := range records {
		line := fmt.Sprintf("%s | %s | %s%s", rec.Date.UTC().Format("2006-01-02"), rec.Title, r.currency, rec.Amount.String())

		pdf.SetFont("Helvetica", "", 12)
		pdf.MultiCell(0, 6, tr(line), "", "L", false)
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, tr("Type: "+string(rec.Type)), "", "L", false)
		pdf.MultiCell(0, 5, tr("Category: "+rec.Category), "", "L", false)
		if rec.Description != "" {
			pdf.MultiCell(0, 5, tr("Note: "+rec.Description), "", "L", false)
		}
		pdf.Ln(4)
	}
	return pdf
}
