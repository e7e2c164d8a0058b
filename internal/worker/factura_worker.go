package worker

// factura_worker.go
// Processes invoice jobs from QueueFactura:
//  1. Fetch the Factura
//  2. Generate the PDF with its QR (fpdf + go-qrcode)
//  3. Store the PDF path on the invoice
//  4. Enqueue an email job when the customer left an address

import (
	"context"
	"encoding/json"
	"fmt"

	"restaurantepos/internal/infra"
	"restaurantepos/internal/repository"

	"github.com/rs/zerolog/log"
)

// FacturaJobPayload is the job envelope sent to QueueFactura.
type FacturaJobPayload struct {
	FacturaID uint   `json:"factura_id"`
	Email     string `json:"email,omitempty"`
}

type FacturaWorker struct {
	facturaRepo    repository.FacturaRepository
	dispatcher     *Dispatcher
	restaurante    string
	pdfStoragePath string
}

func NewFacturaWorker(
	facturaRepo repository.FacturaRepository,
	dispatcher *Dispatcher,
	restaurante string,
	pdfStoragePath string,
) *FacturaWorker {
	return &FacturaWorker{
		facturaRepo:    facturaRepo,
		dispatcher:     dispatcher,
		restaurante:    restaurante,
		pdfStoragePath: pdfStoragePath,
	}
}

func (w *FacturaWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload FacturaJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("factura_worker: invalid payload: %w", err)
	}

	f, err := w.facturaRepo.FindByID(ctx, payload.FacturaID)
	if err != nil {
		return fmt.Errorf("factura_worker: factura %d: %w", payload.FacturaID, err)
	}

	pdfPath := f.PDFPath
	if pdfPath == "" {
		pdfPath, err = infra.GenerateFacturaPDF(f, w.restaurante, w.pdfStoragePath)
		if err != nil {
			return err
		}
		if err := w.facturaRepo.UpdatePDFPath(ctx, f.ID, pdfPath); err != nil {
			return fmt.Errorf("factura_worker: store pdf path: %w", err)
		}
		log.Info().Str("factura", f.NumeroFactura).Str("pdf", pdfPath).Msg("factura_worker: PDF generated")
	}

	if payload.Email == "" || w.dispatcher == nil {
		return nil
	}
	emailJob := EmailJobPayload{
		ToEmail: payload.Email,
		Subject: fmt.Sprintf("%s: factura %s", w.restaurante, f.NumeroFactura),
		Body:    fmt.Sprintf("Adjuntamos su factura.\n\n%s\nTotal: $%s\n",
			infra.ResumenItems(f.Items), f.Total.StringFixed(2)),
		PDFPath: pdfPath,
	}
	if err := w.dispatcher.EnqueueEmail(ctx, emailJob); err != nil {
		// el PDF ya quedó guardado; reintentar el job solo duplicaría trabajo
		log.Warn().Err(err).Str("email", payload.Email).Msg("factura_worker: failed to enqueue email")
		return nil
	}
	log.Info().Str("email", payload.Email).Str("factura", f.NumeroFactura).Msg("factura_worker: email job enqueued")
	return nil
}
