package worker

// comanda_worker.go
// Processes kitchen ticket jobs from QueueComanda: renders the comanda PDF
// for the kitchen printer once the order transaction has committed.

import (
	"context"
	"encoding/json"
	"fmt"

	"restaurantepos/internal/infra"
	"restaurantepos/internal/repository"

	"github.com/rs/zerolog/log"
)

// ComandaJobPayload is the job envelope sent to QueueComanda.
type ComandaJobPayload struct {
	PedidoID uint `json:"pedido_id"`
}

type ComandaWorker struct {
	pedidoRepo     repository.PedidoRepository
	restaurante    string
	pdfStoragePath string
}

func NewComandaWorker(pedidoRepo repository.PedidoRepository, restaurante, pdfStoragePath string) *ComandaWorker {
	return &ComandaWorker{pedidoRepo: pedidoRepo, restaurante: restaurante, pdfStoragePath: pdfStoragePath}
}

// Process loads the order and writes comanda_<codigo>.pdf.
func (w *ComandaWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload ComandaJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("comanda_worker: invalid payload: %w", err)
	}
	p, err := w.pedidoRepo.FindByID(ctx, payload.PedidoID)
	if err != nil {
		return fmt.Errorf("comanda_worker: pedido %d: %w", payload.PedidoID, err)
	}
	path, err := infra.GenerateComandaPDF(p, w.restaurante, w.pdfStoragePath)
	if err != nil {
		return err
	}
	log.Info().Uint("pedido_id", p.ID).Str("pedido", p.CodigoPedido).Str("pdf", path).Msg("comanda_worker: PDF generated")
	return nil
}
