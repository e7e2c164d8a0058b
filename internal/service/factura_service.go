package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"restaurantepos/internal/dto"
	"restaurantepos/internal/items"
	"restaurantepos/internal/model"
	"restaurantepos/internal/realtime"
	"restaurantepos/internal/repository"
	"restaurantepos/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ResultadoFactura struct {
	Factura      *model.Factura
	Advertencias []Advertencia
}

type ResultadoDevolucion struct {
	Devolucion   *model.Devolucion
	Factura      *model.Factura
	Advertencias []Advertencia
}

type FacturaService interface {
	// CrearDesdePedido factura un pedido. Pagada completa el pedido, libera
	// sus recursos y consume stock; pendiente difiere todo eso a MarcarPagada.
	CrearDesdePedido(ctx context.Context, usuarioID *uuid.UUID, req dto.CrearFacturaRequest) (*ResultadoFactura, error)
	MarcarPagada(ctx context.Context, usuarioID *uuid.UUID, id uint) (*ResultadoFactura, error)
	DevolucionTotal(ctx context.Context, usuarioID *uuid.UUID, numero, motivo string) (*ResultadoDevolucion, error)
	// DevolucionParcial es todo o nada: si un producto excede lo disponible no se registra nada.
	DevolucionParcial(ctx context.Context, usuarioID *uuid.UUID, numero string, req dto.DevolucionParcialRequest) (*ResultadoDevolucion, error)
	Anular(ctx context.Context, usuarioID *uuid.UUID, numero, motivo string) (*ResultadoFactura, error)
	Eliminar(ctx context.Context, usuarioID *uuid.UUID, id uint) ([]Advertencia, error)
	MarcarImpresa(ctx context.Context, id uint) (*model.Factura, error)

	Obtener(ctx context.Context, id uint) (*model.Factura, error)
	ObtenerPorNumero(ctx context.Context, numero string) (*model.Factura, error)
	Listar(ctx context.Context, filter dto.FacturaFilter) ([]model.Factura, int64, error)
	ProductosDisponiblesDevolucion(ctx context.Context, numero string) (*model.Factura, []items.Disponibilidad, error)
}

type facturaService struct {
	repo       repository.FacturaRepository
	pedidoRepo repository.PedidoRepository
	secRepo    repository.SecuenciaRepository
	stock      StockService
	recursos   RecursoService
	dispatcher *worker.Dispatcher
	hub        *realtime.Hub
	reintentos int
}

func NewFacturaService(
	repo repository.FacturaRepository,
	pedidoRepo repository.PedidoRepository,
	secRepo repository.SecuenciaRepository,
	stock StockService,
	recursos RecursoService,
	dispatcher *worker.Dispatcher,
	hub *realtime.Hub,
	reintentos int,
) FacturaService {
	return &facturaService{
		repo:       repo,
		pedidoRepo: pedidoRepo,
		secRepo:    secRepo,
		stock:      stock,
		recursos:   recursos,
		dispatcher: dispatcher,
		hub:        hub,
		reintentos: reintentos,
	}
}

// ── Emisión ─────────────────────────────────────────────────────────────────

func (s *facturaService) CrearDesdePedido(ctx context.Context, usuarioID *uuid.UUID, req dto.CrearFacturaRequest) (*ResultadoFactura, error) {
	if !contiene(model.MetodosPago, req.MetodoPago) {
		return nil, errValidacion("metodo_pago", "método de pago inválido: %q", req.MetodoPago)
	}
	estado := req.Estado
	if estado == "" {
		estado = model.FacturaPagada
	}
	if estado != model.FacturaPagada && estado != model.FacturaPendiente {
		return nil, errValidacion("estado", "una factura nueva solo puede estar pagada o pendiente")
	}
	descuento := decimal.Zero
	if req.Descuento != nil {
		descuento = *req.Descuento
	}
	if descuento.IsNegative() || (req.Envio != nil && req.Envio.IsNegative()) {
		return nil, errValidacion("descuento", "envío y descuento no pueden ser negativos")
	}

	var res *ResultadoFactura
	err := conReintentos(ctx, s.repo.DB(), s.reintentos, "crear factura", func(tx *gorm.DB, intento int) error {
		res = &ResultadoFactura{}
		p, err := s.pedidoRepo.LockTx(tx, req.PedidoID)
		if err != nil {
			return noEncontrado(err, "pedido", req.PedidoID)
		}
		if p.Estado == model.PedidoCancelado {
			return &InvalidTransitionError{
				Entidad: "pedido", Actual: p.Estado, Permitidos: model.EstadosPedidoActivos,
				Mensaje: fmt.Sprintf("El pedido %s está cancelado y no puede facturarse", p.CodigoPedido),
			}
		}
		abiertas, err := s.repo.CountByPedidoTx(tx, p.ID, model.FacturaPagada, model.FacturaPendiente)
		if err != nil {
			return err
		}
		if abiertas > 0 {
			return &InvalidTransitionError{
				Entidad: "pedido", Actual: p.Estado,
				Mensaje: fmt.Sprintf("El pedido %s ya tiene una factura pagada o pendiente", p.CodigoPedido),
			}
		}
		if p.MesaID != nil {
			if conMesa, err := s.pedidoRepo.FindByIDTx(tx, p.ID); err == nil {
				p.Mesa = conMesa.Mesa
			}
		}

		ahora := time.Now()
		f := snapshotFactura(p)
		f.FechaFactura = ahora
		f.MetodoPago = req.MetodoPago
		f.Estado = estado
		f.Email = strings.TrimSpace(req.Email)
		f.Notas = req.Notas
		f.CreadoPorID = usuarioID
		if req.Envio != nil {
			f.Envio = *req.Envio
		}
		f.Descuento = descuento
		f.Total = f.Subtotal.Add(f.Envio).Sub(f.Descuento)
		if f.Total.IsNegative() {
			return errValidacion("descuento", "el descuento supera el total de la factura")
		}

		periodo := ahora.Format("200601")
		seq, err := siguienteNumero(tx, s.secRepo, prefijoFactura, periodo, intento, func() (string, error) {
			return s.repo.UltimoNumeroTx(tx, prefijoFactura+"-"+periodo+"-")
		})
		if err != nil {
			return fmt.Errorf("generar numero de factura: %w", err)
		}
		f.NumeroFactura = numeroFactura(ahora, seq)

		if err := s.repo.CreateTx(tx, f); err != nil {
			return err
		}
		if f.Estado == model.FacturaPagada {
			advs, err := s.aplicarPagoTx(tx, f, p, usuarioID)
			if err != nil {
				return err
			}
			res.Advertencias = advs
		}
		res.Factura = f
		return nil
	})
	if err != nil {
		return nil, err
	}

	f := res.Factura
	log.Info().Uint("factura_id", f.ID).Str("factura", f.NumeroFactura).Uint("pedido_id", f.PedidoID).
		Str("estado", f.Estado).Str("total", f.Total.String()).Msg("factura creada")
	if f.Estado == model.FacturaPagada {
		s.despuesDelPago(ctx, f)
	}
	return res, nil
}

// snapshotFactura copia datos de cliente, mesa e items del pedido.
func snapshotFactura(p *model.Pedido) *model.Factura {
	f := &model.Factura{
		PedidoID:        p.ID,
		TipoPedido:      p.TipoPedido,
		NombreCliente:   p.NombreCliente,
		TelefonoCliente: p.TelefonoCliente,
		Items:           append(items.List{}, p.Items...),
		Envio:           p.Envio,
		IVA:             decimal.Zero,
	}
	f.Subtotal = f.Items.Subtotal()
	switch {
	case p.Mesa != nil:
		f.NumeroMesaCodigo = p.Mesa.NumeroDisplay()
	case p.CodigoDelivery != "":
		f.NumeroMesaCodigo = p.CodigoDelivery
	}
	if p.TipoPedido == model.TipoPedidoDelivery {
		f.DireccionEntrega = p.DireccionEntrega
	}
	return f
}

// aplicarPagoTx completa el pedido, libera su mesa o código y consume el stock
// de bebidas. La factura ya debe estar guardada como pagada.
func (s *facturaService) aplicarPagoTx(tx *gorm.DB, f *model.Factura, p *model.Pedido, usuarioID *uuid.UUID) ([]Advertencia, error) {
	var advs []Advertencia
	ahora := time.Now()
	anterior := p.Estado
	p.Estado = model.PedidoCompletado
	p.FechaEntrega = &ahora
	p.ActualizadoPorID = usuarioID
	if err := s.pedidoRepo.SaveTx(tx, p); err != nil {
		return nil, fmt.Errorf("completar pedido %s: %w", p.CodigoPedido, err)
	}
	if anterior != model.PedidoCompletado {
		if err := s.pedidoRepo.CreateHistorialTx(tx, &model.HistorialEstadoPedido{
			PedidoID:       p.ID,
			EstadoAnterior: anterior,
			EstadoNuevo:    model.PedidoCompletado,
			UsuarioID:      usuarioID,
			Motivo:         "factura " + f.NumeroFactura,
			FechaCambio:    ahora,
		}); err != nil {
			return nil, err
		}
	}

	_, liberacion, err := s.recursos.LiberarSiCorrespondeTx(tx, p)
	if err != nil {
		return nil, err
	}
	advs = append(advs, liberacion...)

	consumo, err := s.stock.AplicarTx(tx, Consumir, f.Items, s.referencia(f, usuarioID, "venta "+f.NumeroFactura))
	if err != nil {
		return nil, err
	}
	return append(advs, consumo...), nil
}

func (s *facturaService) MarcarPagada(ctx context.Context, usuarioID *uuid.UUID, id uint) (*ResultadoFactura, error) {
	res := &ResultadoFactura{}
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		f, err := s.repo.LockTx(tx, id)
		if err != nil {
			return noEncontrado(err, "factura", id)
		}
		if f.Estado != model.FacturaPendiente {
			return transicionFactura(f, model.FacturaPendiente)
		}
		p, err := s.pedidoRepo.LockTx(tx, f.PedidoID)
		if err != nil {
			return noEncontrado(err, "pedido", f.PedidoID)
		}
		if p.Estado == model.PedidoCancelado {
			return &InvalidTransitionError{
				Entidad: "pedido", Actual: p.Estado,
				Mensaje: fmt.Sprintf("El pedido %s fue cancelado; no se puede cobrar su factura", p.CodigoPedido),
			}
		}
		f.Estado = model.FacturaPagada
		if err := s.repo.SaveTx(tx, f); err != nil {
			return err
		}
		advs, err := s.aplicarPagoTx(tx, f, p, usuarioID)
		if err != nil {
			return err
		}
		res.Factura = f
		res.Advertencias = advs
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Uint("factura_id", id).Str("factura", res.Factura.NumeroFactura).Msg("factura pagada")
	s.despuesDelPago(ctx, res.Factura)
	return res, nil
}

func (s *facturaService) despuesDelPago(ctx context.Context, f *model.Factura) {
	if s.dispatcher != nil {
		if err := s.dispatcher.EnqueueFacturaPDF(ctx, worker.FacturaJobPayload{FacturaID: f.ID, Email: f.Email}); err != nil {
			log.Warn().Err(err).Str("factura", f.NumeroFactura).Msg("no se pudo encolar el PDF de la factura")
		}
	}
	s.hub.Publicar(realtime.EventoFacturaEmitida, map[string]interface{}{
		"id":             f.ID,
		"numero_factura": f.NumeroFactura,
		"pedido_id":      f.PedidoID,
		"total":          f.Total,
	})
	s.hub.Publicar(realtime.EventoPedidoActualizado, map[string]interface{}{
		"id":     f.PedidoID,
		"estado": model.PedidoCompletado,
	})
}

// ── Devoluciones ────────────────────────────────────────────────────────────

func (s *facturaService) DevolucionTotal(ctx context.Context, usuarioID *uuid.UUID, numero, motivo string) (*ResultadoDevolucion, error) {
	res := &ResultadoDevolucion{}
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		f, err := s.repo.LockByNumeroTx(tx, numero)
		if err != nil {
			return noEncontrado(err, "factura", numero)
		}
		if f.Estado != model.FacturaPagada {
			return transicionFactura(f, model.FacturaPagada)
		}

		devueltos := make(items.List, 0, len(f.Items))
		for _, it := range f.Items {
			devueltos = append(devueltos, conCantidad(it, it.Cantidad))
		}
		advs, err := s.stock.AplicarTx(tx, Reponer, devueltos, s.referencia(f, usuarioID, "devolucion total "+f.NumeroFactura))
		if err != nil {
			return err
		}

		dev := &model.Devolucion{
			FacturaID:          f.ID,
			TipoDevolucion:     model.DevolucionTotal,
			ProductosDevueltos: devueltos,
			MontoDevuelto:      devueltos.Subtotal(),
			Motivo:             motivo,
			ProcesadoPorID:     usuarioID,
		}
		if err := s.repo.CreateDevolucionTx(tx, dev); err != nil {
			return err
		}
		ahora := time.Now()
		f.Estado = model.FacturaTotalmenteDevuelta
		f.FechaDevolucion = &ahora
		if err := s.repo.SaveTx(tx, f); err != nil {
			return err
		}
		res.Devolucion, res.Factura, res.Advertencias = dev, f, advs
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("factura", numero).Str("monto", res.Devolucion.MontoDevuelto.String()).Msg("devolucion total registrada")
	return res, nil
}

type solicitudDevolucion struct {
	item      items.Item
	categoria string
	cantidad  decimal.Decimal
}

// agruparSolicitudes resuelve cada producto contra su línea facturada y suma
// por línea: dos alias del mismo producto comparten un único disponible.
func agruparSolicitudes(f *model.Factura, productos []dto.ProductoDevolucionRequest) ([]*solicitudDevolucion, error) {
	var out []*solicitudDevolucion
	porItem := map[string]*solicitudDevolucion{}
	for _, pr := range productos {
		it, ok := items.BuscarPorNombre(f.Items, pr.Nombre)
		if !ok {
			return nil, errValidacion("productos", "%s no figura en la factura %s", pr.Nombre, f.NumeroFactura)
		}
		k := items.NormalizarNombre(it.Nombre)
		if sol, ok := porItem[k]; ok {
			sol.cantidad = sol.cantidad.Add(pr.Cantidad)
			if sol.categoria == "" {
				sol.categoria = pr.Categoria
			}
			continue
		}
		sol := &solicitudDevolucion{item: it, categoria: pr.Categoria, cantidad: pr.Cantidad}
		porItem[k] = sol
		out = append(out, sol)
	}
	return out, nil
}

func (s *facturaService) DevolucionParcial(ctx context.Context, usuarioID *uuid.UUID, numero string, req dto.DevolucionParcialRequest) (*ResultadoDevolucion, error) {
	if len(req.Productos) == 0 {
		return nil, errValidacion("productos", "seleccione al menos un producto")
	}
	for i, pr := range req.Productos {
		if strings.TrimSpace(pr.Nombre) == "" {
			return nil, errValidacion(fmt.Sprintf("productos[%d].nombre", i), "el nombre es obligatorio")
		}
		if !pr.Cantidad.IsPositive() {
			return nil, errValidacion(fmt.Sprintf("productos[%d].cantidad", i), "la cantidad debe ser mayor a cero")
		}
	}

	res := &ResultadoDevolucion{}
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		f, err := s.repo.LockByNumeroTx(tx, numero)
		if err != nil {
			return noEncontrado(err, "factura", numero)
		}
		if !f.AdmiteDevolucion() {
			return transicionFactura(f, model.FacturaPagada, model.FacturaParcialmenteDevuelta)
		}
		previas, err := s.repo.ListDevolucionesTx(tx, f.ID)
		if err != nil {
			return err
		}
		historico := make([]items.List, 0, len(previas)+1)
		for _, d := range previas {
			historico = append(historico, d.ProductosDevueltos)
		}

		solicitudes, err := agruparSolicitudes(f, req.Productos)
		if err != nil {
			return err
		}

		var devueltos items.List
		var excesos []string
		for _, sol := range solicitudes {
			it := sol.item
			original := items.CantidadOriginal(f.Items, it.Nombre)
			disponible := original.Sub(items.CantidadDevuelta(historico, it.Nombre))
			if sol.cantidad.GreaterThan(disponible) {
				excesos = append(excesos, fmt.Sprintf("%s: solicitado %s, disponible %s (excede en %s)",
					it.Nombre, sol.cantidad, disponible, sol.cantidad.Sub(disponible)))
				continue
			}
			linea := conCantidad(it, sol.cantidad)
			if linea.Categoria == "" && sol.categoria != "" {
				linea.Categoria = strings.ToLower(sol.categoria)
			}
			devueltos = append(devueltos, linea)
		}
		if len(excesos) > 0 {
			return &InvalidTransitionError{
				Entidad:    "factura",
				Actual:     f.Estado,
				Permitidos: []string{model.FacturaPagada, model.FacturaParcialmenteDevuelta},
				Mensaje:    "Cantidad a devolver mayor a la disponible: " + strings.Join(excesos, "; "),
			}
		}

		advs, err := s.stock.AplicarTx(tx, Reponer, devueltos, s.referencia(f, usuarioID, "devolucion parcial "+f.NumeroFactura))
		if err != nil {
			return err
		}
		dev := &model.Devolucion{
			FacturaID:          f.ID,
			TipoDevolucion:     model.DevolucionParcial,
			ProductosDevueltos: devueltos,
			MontoDevuelto:      devueltos.Subtotal(),
			Motivo:             req.Motivo,
			ProcesadoPorID:     usuarioID,
		}
		if err := s.repo.CreateDevolucionTx(tx, dev); err != nil {
			return err
		}

		historico = append(historico, devueltos)
		ahora := time.Now()
		f.Estado = model.FacturaParcialmenteDevuelta
		if len(items.Disponibles(f.Items, historico)) == 0 {
			f.Estado = model.FacturaTotalmenteDevuelta
		}
		f.FechaDevolucion = &ahora
		if err := s.repo.SaveTx(tx, f); err != nil {
			return err
		}
		res.Devolucion, res.Factura, res.Advertencias = dev, f, advs
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("factura", numero).Str("estado", res.Factura.Estado).
		Str("monto", res.Devolucion.MontoDevuelto.String()).Msg("devolucion parcial registrada")
	return res, nil
}

// ── Anulación y borrado ─────────────────────────────────────────────────────

// Anular retira del stock las bebidas facturadas. El pedido y sus recursos no cambian.
func (s *facturaService) Anular(ctx context.Context, usuarioID *uuid.UUID, numero, motivo string) (*ResultadoFactura, error) {
	motivo = strings.TrimSpace(motivo)
	if motivo == "" {
		return nil, errValidacion("motivo", "el motivo de anulación es obligatorio")
	}
	res := &ResultadoFactura{}
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		f, err := s.repo.LockByNumeroTx(tx, numero)
		if err != nil {
			return noEncontrado(err, "factura", numero)
		}
		if f.Estado != model.FacturaPagada && f.Estado != model.FacturaPendiente {
			return transicionFactura(f, model.FacturaPagada, model.FacturaPendiente)
		}
		advs, err := s.stock.AplicarTx(tx, Retirar, f.Items, s.referencia(f, usuarioID, "anulacion "+f.NumeroFactura))
		if err != nil {
			return err
		}
		ahora := time.Now()
		f.Estado = model.FacturaAnulada
		f.MotivoAnulacion = motivo
		f.FechaDevolucion = &ahora
		if err := s.repo.SaveTx(tx, f); err != nil {
			return err
		}
		res.Factura, res.Advertencias = f, advs
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("factura", numero).Str("motivo", motivo).Msg("factura anulada")
	return res, nil
}

// Eliminar borra una factura pendiente. Si el pedido quedó completado sin otra
// factura pagada, vuelve a entregado y recupera su mesa o código.
func (s *facturaService) Eliminar(ctx context.Context, usuarioID *uuid.UUID, id uint) ([]Advertencia, error) {
	var advs []Advertencia
	var revertido *model.Pedido
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		f, err := s.repo.LockTx(tx, id)
		if err != nil {
			return noEncontrado(err, "factura", id)
		}
		if f.Estado != model.FacturaPendiente {
			return transicionFactura(f, model.FacturaPendiente)
		}
		if err := s.repo.DeleteTx(tx, f.ID); err != nil {
			return fmt.Errorf("eliminar factura %s: %w", f.NumeroFactura, err)
		}

		p, err := s.pedidoRepo.LockTx(tx, f.PedidoID)
		if err != nil {
			advs = append(advs, Advertencia{
				Tipo:    AdvRecursoNoConfigurado,
				Mensaje: fmt.Sprintf("el pedido %d de la factura %s no existe", f.PedidoID, f.NumeroFactura),
			})
			return nil
		}
		if p.Estado != model.PedidoCompletado {
			return nil
		}
		otraPagada, err := s.repo.TienePagadaTx(tx, p.ID, f.ID)
		if err != nil {
			return err
		}
		if otraPagada {
			return nil
		}

		ahora := time.Now()
		p.Estado = model.PedidoEntregado
		p.ActualizadoPorID = usuarioID
		if err := s.pedidoRepo.SaveTx(tx, p); err != nil {
			return err
		}
		if err := s.pedidoRepo.CreateHistorialTx(tx, &model.HistorialEstadoPedido{
			PedidoID:       p.ID,
			EstadoAnterior: model.PedidoCompletado,
			EstadoNuevo:    model.PedidoEntregado,
			UsuarioID:      usuarioID,
			Motivo:         "factura eliminada " + f.NumeroFactura,
			FechaCambio:    ahora,
		}); err != nil {
			return err
		}
		revertido = p

		// best-effort: otro pedido pudo tomar la mesa mientras tanto
		ocupacion, err := s.recursos.OcuparRecursosTx(tx, p)
		if err != nil {
			if !esConflicto(err) {
				return err
			}
			log.Warn().Err(err).Uint("pedido_id", p.ID).Msg("no se pudo recuperar el recurso del pedido")
			advs = append(advs, Advertencia{Tipo: AdvRecursoEnConflicto, Mensaje: err.Error()})
			return nil
		}
		advs = append(advs, ocupacion...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Uint("factura_id", id).Msg("factura eliminada")
	if revertido != nil {
		s.hub.Publicar(realtime.EventoPedidoActualizado, resumenPedido(revertido))
	}
	return advs, nil
}

func (s *facturaService) MarcarImpresa(ctx context.Context, id uint) (*model.Factura, error) {
	var f *model.Factura
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		f, err = s.repo.LockTx(tx, id)
		if err != nil {
			return noEncontrado(err, "factura", id)
		}
		ahora := time.Now()
		f.Impresa = true
		f.FechaImpresion = &ahora
		return s.repo.SaveTx(tx, f)
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// ── Consultas ───────────────────────────────────────────────────────────────

func (s *facturaService) Obtener(ctx context.Context, id uint) (*model.Factura, error) {
	f, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, noEncontrado(err, "factura", id)
	}
	return f, nil
}

func (s *facturaService) ObtenerPorNumero(ctx context.Context, numero string) (*model.Factura, error) {
	f, err := s.repo.FindByNumero(ctx, numero)
	if err != nil {
		return nil, noEncontrado(err, "factura", numero)
	}
	return f, nil
}

func (s *facturaService) Listar(ctx context.Context, filter dto.FacturaFilter) ([]model.Factura, int64, error) {
	return s.repo.List(ctx, filter)
}

func (s *facturaService) ProductosDisponiblesDevolucion(ctx context.Context, numero string) (*model.Factura, []items.Disponibilidad, error) {
	f, err := s.ObtenerPorNumero(ctx, numero)
	if err != nil {
		return nil, nil, err
	}
	if !f.AdmiteDevolucion() {
		return f, []items.Disponibilidad{}, nil
	}
	historico := make([]items.List, 0, len(f.Devoluciones))
	for _, d := range f.Devoluciones {
		historico = append(historico, d.ProductosDevueltos)
	}
	facturados := items.EnriquecerLista(ctx, s.stock.CatalogoTx(s.repo.DB().WithContext(ctx)), f.Items)
	return f, items.Disponibles(facturados, historico), nil
}

// ── Helpers ─────────────────────────────────────────────────────────────────

func (s *facturaService) referencia(f *model.Factura, usuarioID *uuid.UUID, motivo string) Referencia {
	fid, pid := f.ID, f.PedidoID
	return Referencia{FacturaID: &fid, PedidoID: &pid, UsuarioID: usuarioID, Motivo: motivo}
}

func transicionFactura(f *model.Factura, permitidos ...string) error {
	return &InvalidTransitionError{
		Entidad:    "factura",
		Actual:     f.Estado,
		Permitidos: permitidos,
		Mensaje:    fmt.Sprintf("La factura %s está %s; se requiere %s",
			f.NumeroFactura, f.Estado, strings.Join(permitidos, " o ")),
	}
}
