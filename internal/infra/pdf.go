package infra

// pdf.go: comanda de cocina y factura en formato ticket térmico (go-pdf/fpdf).
// La factura lleva un QR con su número para búsquedas rápidas desde caja.

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"

	"restaurantepos/internal/items"
	"restaurantepos/internal/model"
)

const (
	anchoPapel = 74.0 // mm, papel térmico
	margen     = 4.0
)

func nuevoTicket(alto float64) (*fpdf.Fpdf, float64) {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: anchoPapel, Ht: alto},
	})
	pdf.SetMargins(margen, margen, margen)
	pdf.SetAutoPageBreak(true, margen)
	pdf.AddPage()
	return pdf, anchoPapel - 2*margen
}

// altoTicket estima el largo del papel según la cantidad de líneas.
func altoTicket(lineas int) float64 {
	return 80 + float64(lineas)*5
}

func separador(pdf *fpdf.Fpdf) {
	pdf.Ln(1)
	pdf.Line(margen, pdf.GetY(), anchoPapel-margen, pdf.GetY())
	pdf.Ln(2)
}

func recortar(s string, max int) string {
	r := []rune(s)
	if len(r) > max {
		return string(r[:max-1]) + "."
	}
	return s
}

func guardar(pdf *fpdf.Fpdf, dir, nombre string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	path := filepath.Join(dir, nombre)
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return path, nil
}

// GenerateComandaPDF genera la comanda de cocina de un pedido.
func GenerateComandaPDF(p *model.Pedido, restaurante, storagePath string) (string, error) {
	pdf, ancho := nuevoTicket(altoTicket(len(p.Items)))
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// ── Encabezado ───────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(ancho, 6, tr(restaurante), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(ancho, 5, "COMANDA", "", 1, "C", false, 0, "")
	pdf.Ln(1)

	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(ancho, 4, "Pedido: "+p.CodigoPedido, "", 1, "L", false, 0, "")
	pdf.CellFormat(ancho, 4, p.FechaPedido.Format("02/01/2006  15:04"), "", 1, "L", false, 0, "")
	if destino := destinoPedido(p); destino != "" {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(ancho, 5, tr(destino), "", 1, "L", false, 0, "")
	}
	separador(pdf)

	// ── Items ────────────────────────────────────────────────────────────────
	colCant := ancho * 0.18
	colNombre := ancho - colCant
	for _, it := range p.Items {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(colCant, 5, it.Cantidad.String(), "", 0, "L", false, 0, "")
		pdf.CellFormat(colNombre, 5, tr(recortar(it.Nombre, 28)), "", 1, "L", false, 0, "")
		if it.Notas != "" {
			pdf.SetFont("Helvetica", "I", 7)
			pdf.CellFormat(colCant, 4, "", "", 0, "L", false, 0, "")
			pdf.MultiCell(colNombre, 4, tr(it.Notas), "", "L", false)
		}
	}
	if p.Notas != "" {
		separador(pdf)
		pdf.SetFont("Helvetica", "", 8)
		pdf.MultiCell(ancho, 4, tr("Notas: "+p.Notas), "", "L", false)
	}

	return guardar(pdf, storagePath, fmt.Sprintf("comanda_%s.pdf", p.CodigoPedido))
}

// GenerateFacturaPDF genera el comprobante de una factura con su QR.
func GenerateFacturaPDF(f *model.Factura, restaurante, storagePath string) (string, error) {
	pdf, ancho := nuevoTicket(altoTicket(len(f.Items)) + 30)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// ── Encabezado ───────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(ancho, 7, tr(restaurante), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(ancho, 5, "Factura", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(ancho, 5, tr("N° "+f.NumeroFactura), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(ancho, 4, f.FechaFactura.Format("02/01/2006  15:04"), "", 1, "L", false, 0, "")
	if f.NumeroMesaCodigo != "" {
		pdf.CellFormat(ancho, 4, tr(etiquetaDestino(f)+f.NumeroMesaCodigo), "", 1, "L", false, 0, "")
	}
	if f.NombreCliente != "" {
		pdf.CellFormat(ancho, 4, tr("Cliente: "+f.NombreCliente), "", 1, "L", false, 0, "")
	}
	if f.DireccionEntrega != "" {
		pdf.MultiCell(ancho, 4, tr("Entrega: "+f.DireccionEntrega), "", "L", false)
	}
	separador(pdf)

	// ── Items ────────────────────────────────────────────────────────────────
	col1 := ancho * 0.52
	col2 := ancho * 0.16
	col3 := ancho * 0.32

	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(col1, 5, "Producto", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 5, "Cant", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col3, 5, "Subtotal", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	for _, it := range f.Items {
		pdf.CellFormat(col1, 5, tr(recortar(it.Nombre, 22)), "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, "x"+it.Cantidad.String(), "", 0, "C", false, 0, "")
		pdf.CellFormat(col3, 5, "$"+it.Total().StringFixed(2), "", 1, "R", false, 0, "")
	}
	separador(pdf)

	// ── Totales ──────────────────────────────────────────────────────────────
	totales(pdf, col1+col2, col3, f)

	pdf.Ln(1)
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(ancho, 4, tr("Pago: "+f.MetodoPago), "", 1, "L", false, 0, "")

	// ── QR ───────────────────────────────────────────────────────────────────
	png, err := qrcode.Encode(f.NumeroFactura, qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("pdf: qr: %w", err)
	}
	lado := 24.0
	nombreQR := "qr_" + f.NumeroFactura
	pdf.RegisterImageOptionsReader(nombreQR, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(png))
	pdf.Ln(2)
	pdf.ImageOptions(nombreQR, (anchoPapel-lado)/2, pdf.GetY(), lado, lado, true, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	pdf.Ln(2)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(ancho, 4, tr("¡Gracias por su visita!"), "", 1, "C", false, 0, "")

	return guardar(pdf, storagePath, fmt.Sprintf("factura_%s.pdf", f.NumeroFactura))
}

func totales(pdf *fpdf.Fpdf, colEtiqueta, colMonto float64, f *model.Factura) {
	pdf.SetFont("Helvetica", "", 7)
	fila := func(etiqueta, monto string) {
		pdf.CellFormat(colEtiqueta, 5, etiqueta, "", 0, "L", false, 0, "")
		pdf.CellFormat(colMonto, 5, monto, "", 1, "R", false, 0, "")
	}
	fila("Subtotal:", "$"+f.Subtotal.StringFixed(2))
	if !f.Envio.IsZero() {
		fila("Envio:", "$"+f.Envio.StringFixed(2))
	}
	if !f.Descuento.IsZero() {
		fila("Descuento:", "-$"+f.Descuento.StringFixed(2))
	}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(colEtiqueta, 6, "TOTAL:", "", 0, "L", false, 0, "")
	pdf.CellFormat(colMonto, 6, "$"+f.Total.StringFixed(2), "", 1, "R", false, 0, "")
}

func etiquetaDestino(f *model.Factura) string {
	if f.TipoPedido == model.TipoPedidoMesa {
		return "Mesa: "
	}
	return "Codigo: "
}

// ResumenItems devuelve una línea por item para el cuerpo del email.
func ResumenItems(l items.List) string {
	var buf bytes.Buffer
	for _, it := range l {
		fmt.Fprintf(&buf, "%s x %s  $%s\n", it.Cantidad.String(), it.Nombre, it.Total().StringFixed(2))
	}
	return buf.String()
}
