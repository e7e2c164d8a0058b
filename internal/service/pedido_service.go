package service

import (
	"context"
	"fmt"
	"strconv"
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

// TicketRenderer arma el texto de la comanda de cocina.
type TicketRenderer interface {
	Comanda(p *model.Pedido) string
}

// ResultadoPedido acompaña al pedido con la comanda y las advertencias de la operación.
type ResultadoPedido struct {
	Pedido       *model.Pedido
	Comanda      string
	Advertencias []Advertencia
}

type ResultadoEliminacion struct {
	Eliminado    bool
	Cancelado    bool
	Advertencias []Advertencia
}

type PedidoService interface {
	Crear(ctx context.Context, usuarioID *uuid.UUID, req dto.CrearPedidoRequest) (*ResultadoPedido, error)
	// CambiarEstado aplica la transición y, si vienen, agrega platos al pedido.
	CambiarEstado(ctx context.Context, usuarioID *uuid.UUID, id uint, req dto.CambiarEstadoRequest) (*ResultadoPedido, error)
	// EditarItems reemplaza la lista y ajusta stock solo por la diferencia.
	EditarItems(ctx context.Context, usuarioID *uuid.UUID, id uint, req dto.EditarItemsRequest) (*ResultadoPedido, error)
	// Eliminar borra el pedido (hard) o lo cancela.
	Eliminar(ctx context.Context, usuarioID *uuid.UUID, id uint, hard bool) (*ResultadoEliminacion, error)
	LiberarMesaSiCorresponde(ctx context.Context, id uint) (bool, []Advertencia, error)

	Obtener(ctx context.Context, id uint) (*model.Pedido, error)
	Listar(ctx context.Context, filter dto.PedidoFilter) ([]model.Pedido, int64, error)
	Historial(ctx context.Context, id uint) ([]model.HistorialEstadoPedido, error)
	Facturables(ctx context.Context) ([]model.Pedido, error)
	Comanda(ctx context.Context, id uint) (string, error)
}

type pedidoService struct {
	repo        repository.PedidoRepository
	facturaRepo repository.FacturaRepository
	platoRepo   repository.PlatoRepository
	secRepo     repository.SecuenciaRepository
	stock       StockService
	recursos    RecursoService
	ticket      TicketRenderer
	dispatcher  *worker.Dispatcher
	hub         *realtime.Hub
	reintentos  int
}

func NewPedidoService(
	repo repository.PedidoRepository,
	facturaRepo repository.FacturaRepository,
	platoRepo repository.PlatoRepository,
	secRepo repository.SecuenciaRepository,
	stock StockService,
	recursos RecursoService,
	ticket TicketRenderer,
	dispatcher *worker.Dispatcher,
	hub *realtime.Hub,
	reintentos int,
) PedidoService {
	return &pedidoService{
		repo:        repo,
		facturaRepo: facturaRepo,
		platoRepo:   platoRepo,
		secRepo:     secRepo,
		stock:       stock,
		recursos:    recursos,
		ticket:      ticket,
		dispatcher:  dispatcher,
		hub:         hub,
		reintentos:  reintentos,
	}
}

// ── Crear ───────────────────────────────────────────────────────────────────

func (s *pedidoService) Crear(ctx context.Context, usuarioID *uuid.UUID, req dto.CrearPedidoRequest) (*ResultadoPedido, error) {
	lineas, err := validarItems(req.Items)
	if err != nil {
		return nil, err
	}
	if req.Envio.IsNegative() {
		return nil, errValidacion("envio", "el envío no puede ser negativo")
	}
	switch req.TipoPedido {
	case model.TipoPedidoMesa:
		if req.MesaID == nil || *req.MesaID == 0 {
			return nil, errValidacion("mesa_id", "un pedido de mesa requiere mesa_id")
		}
	case model.TipoPedidoDelivery, model.TipoPedidoLlevar:
	default:
		return nil, errValidacion("tipo_pedido", "tipo de pedido inválido: %q", req.TipoPedido)
	}

	var res *ResultadoPedido
	err = conReintentos(ctx, s.repo.DB(), s.reintentos, "crear pedido", func(tx *gorm.DB, intento int) error {
		res = &ResultadoPedido{}
		ahora := time.Now()

		if err := s.stock.VerificarItemsTx(tx, lineas); err != nil {
			return err
		}

		p := &model.Pedido{
			TipoPedido:       req.TipoPedido,
			CodigoDelivery:   strings.TrimSpace(req.CodigoDelivery),
			NombreCliente:    strings.TrimSpace(req.NombreCliente),
			TelefonoCliente:  strings.TrimSpace(req.TelefonoCliente),
			DireccionEntrega: strings.TrimSpace(req.DireccionEntrega),
			Items:            lineas,
			Envio:            req.Envio,
			Estado:           model.PedidoPendiente,
			FechaPedido:      ahora,
			Notas:            req.Notas,
			CreadoPorID:      usuarioID,
			ActualizadoPorID: usuarioID,
		}
		if p.TipoPedido == model.TipoPedidoMesa {
			p.MesaID = req.MesaID
			p.CodigoDelivery = ""
		} else if p.CodigoDelivery == "" {
			codigo, err := s.recursos.AsignarCodigoTx(tx, p.TipoPedido)
			if err != nil {
				return err
			}
			p.CodigoDelivery = codigo
		}
		advs, err := s.recursos.OcuparRecursosTx(tx, p)
		if err != nil {
			return err
		}
		res.Advertencias = append(res.Advertencias, advs...)
		completarCliente(p)
		p.RecalcularTotales()

		periodo := ahora.Format("20060102")
		seq, err := siguienteNumero(tx, s.secRepo, prefijoPedido, periodo, intento, func() (string, error) {
			return s.repo.UltimoCodigoTx(tx, prefijoPedido+"-"+periodo+"-")
		})
		if err != nil {
			return fmt.Errorf("generar codigo de pedido: %w", err)
		}
		p.CodigoPedido = codigoPedido(ahora, seq)

		if err := s.repo.CreateTx(tx, p); err != nil {
			return err
		}

		advs, err = s.stock.AplicarTx(tx, Reservar, p.Items, s.referencia(p, usuarioID))
		if err != nil {
			return err
		}
		res.Advertencias = append(res.Advertencias, advs...)

		if err := s.repo.CreateDetallesTx(tx, detalles(p.ID, p.Items)); err != nil {
			return err
		}
		if err := s.repo.CreateHistorialTx(tx, &model.HistorialEstadoPedido{
			PedidoID:    p.ID,
			EstadoNuevo: model.PedidoPendiente,
			UsuarioID:   usuarioID,
			Motivo:      "pedido creado",
			FechaCambio: ahora,
		}); err != nil {
			return err
		}
		res.Pedido = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	p := res.Pedido
	log.Info().Uint("pedido_id", p.ID).Str("codigo", p.CodigoPedido).Str("tipo", p.TipoPedido).
		Str("total", p.Total.String()).Int("advertencias", len(res.Advertencias)).Msg("pedido creado")

	res.Comanda = s.renderComanda(p)
	s.despacharComanda(ctx, p)
	s.hub.Publicar(realtime.EventoPedidoCreado, resumenPedido(p))
	s.publicarRecurso(p)
	return res, nil
}

// validarItems exige nombre y cantidad positiva, y fija el subtotal de cada línea.
func validarItems(l items.List) (items.List, error) {
	if len(l) == 0 {
		return nil, errValidacion("items", "el pedido debe tener al menos un item")
	}
	out := make(items.List, len(l))
	for i, it := range l {
		it.Nombre = strings.TrimSpace(it.Nombre)
		if it.Nombre == "" {
			return nil, errValidacion(fmt.Sprintf("items[%d].nombre", i), "el nombre es obligatorio")
		}
		if !it.Cantidad.IsPositive() {
			return nil, errValidacion(fmt.Sprintf("items[%d].cantidad", i), "la cantidad debe ser mayor a cero")
		}
		if it.PrecioUnitario.IsNegative() {
			return nil, errValidacion(fmt.Sprintf("items[%d].precio", i), "el precio no puede ser negativo")
		}
		it.Subtotal = it.Cantidad.Mul(it.PrecioUnitario)
		out[i] = it
	}
	return out, nil
}

func completarCliente(p *model.Pedido) {
	switch p.TipoPedido {
	case model.TipoPedidoMesa:
		if p.NombreCliente == "" && p.Mesa != nil {
			p.NombreCliente = "Mesa " + p.Mesa.NumeroDisplay()
		}
	case model.TipoPedidoDelivery:
		if p.NombreCliente == "" {
			p.NombreCliente = "Cliente Delivery " + p.CodigoDelivery
		}
		if p.TelefonoCliente == "" {
			p.TelefonoCliente = "No especificado"
		}
		if p.DireccionEntrega == "" {
			p.DireccionEntrega = "Dirección no especificada"
		}
	case model.TipoPedidoLlevar:
		if p.NombreCliente == "" {
			p.NombreCliente = "Cliente Para Llevar " + p.CodigoDelivery
		}
	}
}

func detalles(pedidoID uint, l items.List) []model.DetalleItemPedido {
	out := make([]model.DetalleItemPedido, 0, len(l))
	for _, it := range l {
		out = append(out, model.DetalleItemPedido{
			PedidoID:       pedidoID,
			ItemID:         it.ID,
			IDPlato:        idPlato(it),
			NombrePlato:    it.Nombre,
			Cantidad:       it.Cantidad,
			PrecioUnitario: it.PrecioUnitario,
			SubtotalItem:   it.Total(),
			TipoItem:       it.Tipo,
			Notas:          it.Notas,
		})
	}
	return out
}

// idPlato extrae el id numérico de "plato_12" o "12". Sin id válido devuelve nil.
func idPlato(it items.Item) *uint {
	raw := strings.TrimPrefix(strings.TrimSpace(it.ID), "plato_")
	if raw == "" {
		return nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		log.Debug().Str("item_id", it.ID).Str("nombre", it.Nombre).Msg("item sin id de plato")
		return nil
	}
	id := uint(n)
	return &id
}

// ── Transiciones ────────────────────────────────────────────────────────────

var estadosSolicitables = append(append([]string{}, model.EstadosPedidoActivos...), model.PedidoCancelado)

func (s *pedidoService) CambiarEstado(ctx context.Context, usuarioID *uuid.UUID, id uint, req dto.CambiarEstadoRequest) (*ResultadoPedido, error) {
	nuevo := strings.TrimSpace(req.Estado)
	if nuevo == model.PedidoCompletado {
		return nil, &InvalidTransitionError{
			Entidad: "pedido", Actual: "", Permitidos: estadosSolicitables,
			Mensaje: "Un pedido solo se completa al facturarlo",
		}
	}
	if !contiene(estadosSolicitables, nuevo) {
		return nil, errValidacion("estado", "estado inválido: %q", nuevo)
	}
	if nuevo == model.PedidoCancelado && len(req.ItemsAgregar) > 0 {
		return nil, errValidacion("items_agregar", "no se pueden agregar items a un pedido cancelado")
	}

	res := &ResultadoPedido{}
	var anterior string
	var agregados items.List
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		p, err := s.repo.LockTx(tx, id)
		if err != nil {
			return noEncontrado(err, "pedido", id)
		}
		anterior = p.Estado
		if p.Estado == model.PedidoCompletado {
			return &InvalidTransitionError{
				Entidad: "pedido", Actual: p.Estado, Permitidos: model.EstadosPedidoActivos,
				Mensaje: fmt.Sprintf("El pedido %s ya está completado", p.CodigoPedido),
			}
		}
		if p.Estado == nuevo && len(req.ItemsAgregar) == 0 {
			return &InvalidTransitionError{
				Entidad: "pedido", Actual: p.Estado, Permitidos: sinEstado(estadosSolicitables, p.Estado),
				Mensaje: fmt.Sprintf("El pedido %s ya está en estado %s", p.CodigoPedido, p.Estado),
			}
		}

		if len(req.ItemsAgregar) > 0 {
			if err := s.sinFacturaAbiertaTx(tx, p); err != nil {
				return err
			}
		}
		agregados, err = s.itemsDePlatos(tx, req.ItemsAgregar)
		if err != nil {
			return err
		}

		if err := s.transicionTx(tx, p, nuevo, agregados, usuarioID, req.Motivo, res); err != nil {
			return err
		}
		res.Pedido = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	p := s.recargar(ctx, res.Pedido)
	res.Pedido = p
	log.Info().Uint("pedido_id", p.ID).Str("anterior", anterior).Str("nuevo", p.Estado).
		Int("items_agregados", len(agregados)).Msg("estado de pedido actualizado")

	evento := realtime.EventoPedidoActualizado
	if p.Estado == model.PedidoCancelado {
		evento = realtime.EventoPedidoCancelado
	}
	if len(agregados) > 0 {
		res.Comanda = s.renderComanda(p)
		s.despacharComanda(ctx, p)
	}
	s.hub.Publicar(evento, resumenPedido(p))
	if anterior == model.PedidoCancelado || p.Estado == model.PedidoCancelado {
		s.publicarRecurso(p)
	}
	return res, nil
}

// transicionTx aplica stock, recursos, historial y totales de un cambio de
// estado sobre un pedido ya bloqueado.
func (s *pedidoService) transicionTx(
	tx *gorm.DB, p *model.Pedido, nuevo string, agregados items.List,
	usuarioID *uuid.UUID, motivo string, res *ResultadoPedido,
) error {
	anterior := p.Estado
	ref := s.referencia(p, usuarioID)
	reabre := anterior == model.PedidoCancelado && nuevo != model.PedidoCancelado

	switch {
	case reabre:
		verificar := append(append(items.List{}, p.Items...), agregados...)
		if err := s.stock.VerificarItemsTx(tx, verificar); err != nil {
			return err
		}
		p.Estado = nuevo
		advs, err := s.recursos.OcuparRecursosTx(tx, p)
		if err != nil {
			return err
		}
		res.Advertencias = append(res.Advertencias, advs...)
		ref.Motivo = "pedido reabierto " + p.CodigoPedido
		if advs, err = s.stock.AplicarTx(tx, Reservar, p.Items, ref); err != nil {
			return err
		}
		res.Advertencias = append(res.Advertencias, advs...)

	case nuevo == model.PedidoCancelado && anterior != model.PedidoCancelado:
		ref.Motivo = "pedido cancelado " + p.CodigoPedido
		advs, err := s.stock.AplicarTx(tx, Liberar, p.Items, ref)
		if err != nil {
			return err
		}
		res.Advertencias = append(res.Advertencias, advs...)
		p.Estado = nuevo
		if _, advs, err = s.recursos.LiberarSiCorrespondeTx(tx, p); err != nil {
			return err
		}
		res.Advertencias = append(res.Advertencias, advs...)

	case len(agregados) > 0:
		if err := s.stock.VerificarItemsTx(tx, agregados); err != nil {
			return err
		}
	}

	if len(agregados) > 0 {
		ref.Motivo = "items agregados a " + p.CodigoPedido
		advs, err := s.stock.AplicarTx(tx, Reservar, agregados, ref)
		if err != nil {
			return err
		}
		res.Advertencias = append(res.Advertencias, advs...)
		p.Items = append(p.Items, agregados...)
		p.RecalcularTotales()
		if err := s.repo.CreateDetallesTx(tx, detalles(p.ID, agregados)); err != nil {
			return err
		}
	}

	ahora := time.Now()
	p.Estado = nuevo
	if nuevo == model.PedidoEntregado {
		p.FechaEntrega = &ahora
	}
	p.ActualizadoPorID = usuarioID
	if err := s.repo.SaveTx(tx, p); err != nil {
		return fmt.Errorf("guardar pedido %s: %w", p.CodigoPedido, err)
	}
	return s.repo.CreateHistorialTx(tx, &model.HistorialEstadoPedido{
		PedidoID:       p.ID,
		EstadoAnterior: anterior,
		EstadoNuevo:    nuevo,
		UsuarioID:      usuarioID,
		Motivo:         motivo,
		FechaCambio:    ahora,
	})
}

func (s *pedidoService) itemsDePlatos(tx *gorm.DB, reqs []dto.AgregarItemRequest) (items.List, error) {
	var out items.List
	for i, r := range reqs {
		plato, err := s.platoRepo.FindByIDTx(tx, r.PlatoID)
		if err != nil {
			return nil, noEncontrado(err, "plato", r.PlatoID)
		}
		if !plato.Activo {
			return nil, errValidacion(fmt.Sprintf("items_agregar[%d]", i), "el plato %s no está activo", plato.Nombre)
		}
		cantidad := r.Cantidad
		if cantidad.IsZero() {
			cantidad = decimal.NewFromInt(1)
		}
		if cantidad.IsNegative() {
			return nil, errValidacion(fmt.Sprintf("items_agregar[%d].cantidad", i), "la cantidad debe ser mayor a cero")
		}
		out = append(out, items.Item{
			ID:             fmt.Sprintf("plato_%d", plato.ID),
			Codigo:         plato.Codigo,
			Nombre:         plato.Nombre,
			Cantidad:       cantidad,
			PrecioUnitario: plato.Precio,
			Subtotal:       cantidad.Mul(plato.Precio),
			Categoria:      plato.Categoria,
			Tipo:           items.TipoPlato,
			Notas:          r.Notas,
		})
	}
	return out, nil
}

// ── Edición ─────────────────────────────────────────────────────────────────

type lineaAgregada struct {
	item     items.Item
	cantidad decimal.Decimal
}

// agrupar suma cantidades por Clave conservando el orden de aparición.
func agrupar(l items.List) (map[string]*lineaAgregada, []string) {
	m := map[string]*lineaAgregada{}
	var orden []string
	for _, it := range l {
		k := it.Clave()
		if a, ok := m[k]; ok {
			a.cantidad = a.cantidad.Add(it.Cantidad)
			continue
		}
		m[k] = &lineaAgregada{item: it, cantidad: it.Cantidad}
		orden = append(orden, k)
	}
	return m, orden
}

func conCantidad(it items.Item, q decimal.Decimal) items.Item {
	it.Cantidad = q
	it.Subtotal = q.Mul(it.PrecioUnitario)
	return it
}

func (s *pedidoService) EditarItems(ctx context.Context, usuarioID *uuid.UUID, id uint, req dto.EditarItemsRequest) (*ResultadoPedido, error) {
	nuevos, err := validarItems(req.Items)
	if err != nil {
		return nil, err
	}

	res := &ResultadoPedido{}
	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		p, err := s.repo.LockTx(tx, id)
		if err != nil {
			return noEncontrado(err, "pedido", id)
		}
		if !p.Activo() {
			return &InvalidTransitionError{
				Entidad: "pedido", Actual: p.Estado, Permitidos: model.EstadosPedidoActivos,
				Mensaje: fmt.Sprintf("El pedido %s no admite edición en estado %s", p.CodigoPedido, p.Estado),
			}
		}
		if err := s.sinFacturaAbiertaTx(tx, p); err != nil {
			return err
		}

		actuales, _ := agrupar(p.Items)
		propuestos, orden := agrupar(nuevos)

		var debitar, acreditar, agregados items.List
		for _, k := range orden {
			n := propuestos[k]
			a, existia := actuales[k]
			if !existia {
				debitar = append(debitar, conCantidad(n.item, n.cantidad))
				agregados = append(agregados, n.item)
				continue
			}
			switch delta := n.cantidad.Sub(a.cantidad); {
			case delta.IsPositive():
				debitar = append(debitar, conCantidad(n.item, delta))
			case delta.IsNegative():
				acreditar = append(acreditar, conCantidad(a.item, delta.Neg()))
			}
		}
		_, ordenActual := agrupar(p.Items)
		for _, k := range ordenActual {
			if _, sigue := propuestos[k]; !sigue {
				a := actuales[k]
				acreditar = append(acreditar, conCantidad(a.item, a.cantidad))
			}
		}

		if err := s.stock.VerificarItemsTx(tx, debitar); err != nil {
			return err
		}
		ref := s.referencia(p, usuarioID)
		ref.Motivo = "edicion de " + p.CodigoPedido
		advs, err := s.stock.AplicarTx(tx, Liberar, acreditar, ref)
		if err != nil {
			return err
		}
		res.Advertencias = append(res.Advertencias, advs...)
		if advs, err = s.stock.AplicarTx(tx, Reservar, debitar, ref); err != nil {
			return err
		}
		res.Advertencias = append(res.Advertencias, advs...)

		p.Items = nuevos
		p.RecalcularTotales()
		if req.NombreCliente != nil && strings.TrimSpace(*req.NombreCliente) != "" {
			p.NombreCliente = strings.TrimSpace(*req.NombreCliente)
		}
		if req.TelefonoCliente != nil && strings.TrimSpace(*req.TelefonoCliente) != "" {
			p.TelefonoCliente = strings.TrimSpace(*req.TelefonoCliente)
		}
		if req.Notas != nil {
			p.Notas = *req.Notas
		}
		p.ActualizadoPorID = usuarioID
		if err := s.repo.SaveTx(tx, p); err != nil {
			return fmt.Errorf("guardar pedido %s: %w", p.CodigoPedido, err)
		}
		if err := s.repo.CreateDetallesTx(tx, detalles(p.ID, agregados)); err != nil {
			return err
		}
		res.Pedido = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.Pedido = s.recargar(ctx, res.Pedido)
	log.Info().Uint("pedido_id", res.Pedido.ID).Int("items", len(res.Pedido.Items)).
		Str("total", res.Pedido.Total.String()).Msg("items de pedido editados")
	s.hub.Publicar(realtime.EventoPedidoActualizado, resumenPedido(res.Pedido))
	return res, nil
}

// ── Eliminación ─────────────────────────────────────────────────────────────

func (s *pedidoService) Eliminar(ctx context.Context, usuarioID *uuid.UUID, id uint, hard bool) (*ResultadoEliminacion, error) {
	res := &ResultadoEliminacion{}
	var p *model.Pedido
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		p, err = s.repo.LockTx(tx, id)
		if err != nil {
			return noEncontrado(err, "pedido", id)
		}
		if hard {
			return s.eliminarTx(tx, p, usuarioID, res)
		}

		tienePagada, err := s.facturaRepo.TienePagadaTx(tx, p.ID, 0)
		if err != nil {
			return err
		}
		if tienePagada || p.Estado == model.PedidoCompletado {
			return &InvalidTransitionError{
				Entidad: "pedido", Actual: p.Estado, Permitidos: model.EstadosPedidoActivos,
				Mensaje: fmt.Sprintf("El pedido %s ya fue facturado y no puede cancelarse", p.CodigoPedido),
			}
		}
		if p.Estado == model.PedidoCancelado {
			return nil
		}
		r := &ResultadoPedido{}
		if err := s.transicionTx(tx, p, model.PedidoCancelado, nil, usuarioID, "pedido eliminado", r); err != nil {
			return err
		}
		res.Cancelado = true
		res.Advertencias = r.Advertencias
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch {
	case res.Eliminado:
		log.Info().Uint("pedido_id", id).Str("codigo", p.CodigoPedido).Msg("pedido eliminado")
		s.hub.Publicar(realtime.EventoPedidoCancelado, resumenPedido(p))
		s.publicarRecurso(p)
	case res.Cancelado:
		log.Info().Uint("pedido_id", id).Str("codigo", p.CodigoPedido).Msg("pedido cancelado")
		s.hub.Publicar(realtime.EventoPedidoCancelado, resumenPedido(p))
		s.publicarRecurso(p)
	}
	return res, nil
}

// sinFacturaAbiertaTx rechaza cambios de items mientras una factura pendiente o
// pagada guarda la lista anterior.
func (s *pedidoService) sinFacturaAbiertaTx(tx *gorm.DB, p *model.Pedido) error {
	n, err := s.facturaRepo.CountByPedidoTx(tx, p.ID, model.FacturaPendiente, model.FacturaPagada)
	if err != nil {
		return err
	}
	if n > 0 {
		return &InvalidTransitionError{
			Entidad: "pedido", Actual: p.Estado,
			Mensaje: fmt.Sprintf("El pedido %s ya tiene una factura emitida; anúlela o elimínela antes de modificar los items", p.CodigoPedido),
		}
	}
	return nil
}

func (s *pedidoService) eliminarTx(tx *gorm.DB, p *model.Pedido, usuarioID *uuid.UUID, res *ResultadoEliminacion) error {
	n, err := s.facturaRepo.CountByPedidoTx(tx, p.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		return &InvalidTransitionError{
			Entidad: "pedido", Actual: p.Estado,
			Mensaje: fmt.Sprintf("El pedido %s tiene %d factura(s) y no puede eliminarse", p.CodigoPedido, n),
		}
	}
	if p.Activo() {
		ref := s.referencia(p, usuarioID)
		ref.Motivo = "pedido eliminado " + p.CodigoPedido
		ref.PedidoID = nil
		advs, err := s.stock.AplicarTx(tx, Liberar, p.Items, ref)
		if err != nil {
			return err
		}
		res.Advertencias = append(res.Advertencias, advs...)
		if advs, err = s.recursos.LiberarRecursosTx(tx, p); err != nil {
			return err
		}
		res.Advertencias = append(res.Advertencias, advs...)
	}
	if err := s.repo.DeleteTx(tx, p.ID); err != nil {
		return fmt.Errorf("eliminar pedido %s: %w", p.CodigoPedido, err)
	}
	res.Eliminado = true
	return nil
}

func (s *pedidoService) LiberarMesaSiCorresponde(ctx context.Context, id uint) (bool, []Advertencia, error) {
	var liberada bool
	var advs []Advertencia
	var p *model.Pedido
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		p, err = s.repo.LockTx(tx, id)
		if err != nil {
			return noEncontrado(err, "pedido", id)
		}
		liberada, advs, err = s.recursos.LiberarSiCorrespondeTx(tx, p)
		return err
	})
	if err != nil {
		return false, nil, err
	}
	if liberada {
		s.publicarRecurso(p)
	}
	return liberada, advs, nil
}

// ── Consultas ───────────────────────────────────────────────────────────────

func (s *pedidoService) Obtener(ctx context.Context, id uint) (*model.Pedido, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, noEncontrado(err, "pedido", id)
	}
	return p, nil
}

func (s *pedidoService) Listar(ctx context.Context, filter dto.PedidoFilter) ([]model.Pedido, int64, error) {
	return s.repo.List(ctx, filter)
}

func (s *pedidoService) Historial(ctx context.Context, id uint) ([]model.HistorialEstadoPedido, error) {
	if _, err := s.Obtener(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListHistorial(ctx, id)
}

func (s *pedidoService) Facturables(ctx context.Context) ([]model.Pedido, error) {
	return s.repo.Facturables(ctx)
}

func (s *pedidoService) Comanda(ctx context.Context, id uint) (string, error) {
	p, err := s.Obtener(ctx, id)
	if err != nil {
		return "", err
	}
	return s.renderComanda(p), nil
}

// ── Helpers ─────────────────────────────────────────────────────────────────

func (s *pedidoService) referencia(p *model.Pedido, usuarioID *uuid.UUID) Referencia {
	id := p.ID
	return Referencia{PedidoID: &id, UsuarioID: usuarioID, Motivo: "pedido " + p.CodigoPedido}
}

// recargar vuelve a leer el pedido con su mesa; si falla devuelve el que ya se tenía.
func (s *pedidoService) recargar(ctx context.Context, p *model.Pedido) *model.Pedido {
	fresco, err := s.repo.FindByID(ctx, p.ID)
	if err != nil {
		log.Warn().Err(err).Uint("pedido_id", p.ID).Msg("no se pudo recargar el pedido")
		return p
	}
	return fresco
}

func (s *pedidoService) renderComanda(p *model.Pedido) string {
	if s.ticket == nil {
		return ""
	}
	return s.ticket.Comanda(p)
}

func (s *pedidoService) despacharComanda(ctx context.Context, p *model.Pedido) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.EnqueueComanda(ctx, worker.ComandaJobPayload{PedidoID: p.ID}); err != nil {
		log.Warn().Err(err).Uint("pedido_id", p.ID).Msg("no se pudo encolar la comanda")
	}
}

func (s *pedidoService) publicarRecurso(p *model.Pedido) {
	switch {
	case p.MesaID != nil:
		s.hub.Publicar(realtime.EventoMesaActualizada, map[string]interface{}{"mesa_id": *p.MesaID})
	case p.CodigoDelivery != "":
		s.hub.Publicar(realtime.EventoMesaActualizada, map[string]interface{}{
			"tipo": p.TipoPedido, "codigo": p.CodigoDelivery,
		})
	}
}

func resumenPedido(p *model.Pedido) map[string]interface{} {
	return map[string]interface{}{
		"id":            p.ID,
		"codigo_pedido": p.CodigoPedido,
		"tipo_pedido":   p.TipoPedido,
		"estado":        p.Estado,
		"total":         p.Total,
	}
}

func contiene(lista []string, v string) bool {
	for _, e := range lista {
		if e == v {
			return true
		}
	}
	return false
}

func sinEstado(lista []string, excluir string) []string {
	out := make([]string, 0, len(lista))
	for _, e := range lista {
		if e != excluir {
			out = append(out, e)
		}
	}
	return out
}
