package infra

// pdf.go renders the sale ticket with go-pdf/fpdf on receipt-width paper.
// One row per consumed lot, so the ticket shows which batch was dispensed and
// whether a promotion price applied.

import (
	"bytes"
	"fmt"

	"farmapos/internal/model"

	"github.com/go-pdf/fpdf"
)

const ticketAnchoMM = 74

// GenerarTicketPDF renders the ticket for a committed Venta. v must carry its
// Detalles with Producto and Lote preloaded; Sucursal and Vendedor are optional.
func GenerarTicketPDF(v *model.Venta) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("pdf: venta nil")
	}

	// Height grows with the number of detail rows.
	alto := 70.0 + float64(len(v.Detalles))*9
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: ticketAnchoMM, Ht: alto},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(false, 4)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(contentW, 6, "FarmaPOS", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	if v.Sucursal != nil {
		pdf.CellFormat(contentW, 4, tr(v.Sucursal.Nombre), "", 1, "C", false, 0, "")
	}
	pdf.Ln(1)
	pdf.CellFormat(contentW, 4, "Venta "+v.ID.String()[:8], "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 4, v.Fecha.Format("02/01/2006  15:04"), "", 1, "L", false, 0, "")
	if v.Vendedor != nil {
		pdf.CellFormat(contentW, 4, tr("Atendió: "+v.Vendedor.Nombre), "", 1, "L", false, 0, "")
	}
	pdf.Ln(1)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(1)

	// ── Items ─────────────────────────────────────────────────────────────────
	col1 := contentW * 0.50
	col2 := contentW * 0.14
	col3 := contentW * 0.36

	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(col1, 5, "Producto", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 5, "Cant", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col3, 5, "Subtotal", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	for _, d := range v.Detalles {
		nombre := ""
		if d.Producto != nil {
			nombre = d.Producto.Nombre
		}
		if r := []rune(nombre); len(r) > 24 {
			nombre = string(r[:23]) + "."
		}
		pdf.CellFormat(col1, 4, tr(nombre), "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 4, fmt.Sprintf("x%d", d.Cantidad), "", 0, "C", false, 0, "")
		pdf.CellFormat(col3, 4, "$"+d.Subtotal.StringFixed(2), "", 1, "R", false, 0, "")

		lote := ""
		if d.Lote != nil {
			lote = "Lote " + d.Lote.NumeroLote + " vto " + d.Lote.FechaVencimiento.Format("01/2006")
		}
		pdf.SetFont("Helvetica", "I", 6)
		pdf.CellFormat(col1+col2, 4, tr(lote), "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 4, "$"+d.PrecioUnitario.StringFixed(2)+" c/u", "", 1, "R", false, 0, "")
		pdf.SetFont("Helvetica", "", 7)
	}

	pdf.Ln(1)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(1)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1+col2, 6, "TOTAL:", "", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 6, "$"+v.Total.StringFixed(2), "", 1, "R", false, 0, "")

	pdf.Ln(2)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 4, tr("¡Gracias por su compra!"), "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render: %w", err)
	}
	return buf.Bytes(), nil
}
