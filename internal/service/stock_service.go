package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"restaurantepos/internal/dto"
	"restaurantepos/internal/items"
	"restaurantepos/internal/model"
	"restaurantepos/internal/repository"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PoliticaStock decide cómo impactan pedidos y facturas en el inventario.
type PoliticaStock string

const (
	// PoliticaDobleDescuento descuenta al crear el pedido y otra vez al facturar.
	PoliticaDobleDescuento PoliticaStock = "doble_descuento"
	// PoliticaReserva reserva al crear el pedido y descuenta una sola vez al facturar.
	PoliticaReserva PoliticaStock = "reserva"
)

func ParsePolitica(s string) (PoliticaStock, error) {
	switch PoliticaStock(strings.ToLower(strings.TrimSpace(s))) {
	case "", PoliticaDobleDescuento:
		return PoliticaDobleDescuento, nil
	case PoliticaReserva:
		return PoliticaReserva, nil
	default:
		return "", fmt.Errorf("politica de stock desconocida: %q", s)
	}
}

// OperacionStock nombra la intención de un movimiento; la política la traduce a columnas.
type OperacionStock int

const (
	Reservar OperacionStock = iota
	Liberar
	Consumir
	Reponer
	Retirar
)

func (o OperacionStock) String() string {
	switch o {
	case Reservar:
		return model.MovimientoReserva
	case Liberar:
		return model.MovimientoLiberacion
	case Consumir:
		return model.MovimientoConsumo
	case Reponer:
		return model.MovimientoReposicion
	case Retirar:
		return model.MovimientoRetiro
	default:
		return "desconocida"
	}
}

type efecto struct {
	campo string
	signo int64
}

// Referencia vincula un movimiento con el pedido, la factura y el usuario que lo originan.
type Referencia struct {
	PedidoID  *uint
	FacturaID *uint
	UsuarioID *uuid.UUID
	Motivo    string
}

// ResultadoAjuste es el producto tras el ajuste. Aplicado=false indica un
// fallo blando (producto inexistente o de otra categoría), descrito en Advertencias.
type ResultadoAjuste struct {
	Producto     *model.Producto
	Aplicado     bool
	Advertencias []Advertencia
}

// Verificacion es el resultado de consultar stock sin modificarlo.
type Verificacion struct {
	Producto   *model.Producto
	Disponible bool
	Stock      decimal.Decimal
	Faltante   decimal.Decimal
}

// OpcionesStock configura el libro de stock.
type OpcionesStock struct {
	Politica   PoliticaStock
	UmbralBajo decimal.Decimal
	Reintentos int
}

type StockService interface {
	Politica() PoliticaStock

	// Resolver busca un producto por id o, para texto, por código exacto,
	// nombre exacto, código parcial y nombre parcial, en ese orden.
	Resolver(ctx context.Context, id items.Identificador) (*model.Producto, error)
	ResolverTx(tx *gorm.DB, id items.Identificador) (*model.Producto, error)
	ResolverItemTx(tx *gorm.DB, it items.Item) (*model.Producto, error)

	// Ajustar suma delta a la cantidad del producto. Con soloCategoria no vacía,
	// un producto de otra categoría no se toca y se informa como advertencia.
	Ajustar(ctx context.Context, id items.Identificador, delta decimal.Decimal, soloCategoria string, ref Referencia) (*ResultadoAjuste, error)
	AjustarTx(tx *gorm.DB, id items.Identificador, delta decimal.Decimal, soloCategoria string, ref Referencia) (*ResultadoAjuste, error)
	Verificar(ctx context.Context, id items.Identificador, cantidad decimal.Decimal) (*Verificacion, error)

	// VerificarItemsTx bloquea y controla todas las bebidas de la lista.
	// Devuelve InsufficientStockError con cada faltante.
	VerificarItemsTx(tx *gorm.DB, l items.List) error
	// AplicarTx aplica op a cada bebida de la lista. Los productos que no se
	// encuentran se reportan como advertencia; solo los errores de base cortan.
	AplicarTx(tx *gorm.DB, op OperacionStock, l items.List, ref Referencia) ([]Advertencia, error)
	CatalogoTx(tx *gorm.DB) items.Catalogo

	CrearProducto(ctx context.Context, req dto.CrearProductoRequest) (*model.Producto, error)
	RegistrarSalida(ctx context.Context, usuarioID *uuid.UUID, req dto.RegistrarSalidaRequest) (*ResultadoAjuste, error)
	Reabastecer(ctx context.Context, usuarioID *uuid.UUID, req dto.ReabastecerRequest) (*ResultadoAjuste, error)
	VerificarMultiples(ctx context.Context, l items.List) (*dto.VerificarStockResponse, error)
	Alertas(ctx context.Context) ([]model.Producto, error)
	ListarProductos(ctx context.Context, filter dto.ProductoFilter) ([]model.Producto, int64, error)
	ListarMovimientos(ctx context.Context, filter dto.MovimientoFilter) ([]model.MovimientoStock, int64, error)
}

type stockService struct {
	repo    repository.ProductoRepository
	movRepo repository.MovimientoStockRepository
	opts    OpcionesStock
}

func NewStockService(repo repository.ProductoRepository, movRepo repository.MovimientoStockRepository, opts OpcionesStock) StockService {
	if opts.Politica == "" {
		opts.Politica = PoliticaDobleDescuento
	}
	if opts.UmbralBajo.IsZero() {
		opts.UmbralBajo = decimal.NewFromInt(10)
	}
	return &stockService{repo: repo, movRepo: movRepo, opts: opts}
}

func (s *stockService) Politica() PoliticaStock { return s.opts.Politica }

func (s *stockService) efectos(op OperacionStock) []efecto {
	if s.opts.Politica == PoliticaReserva {
		switch op {
		case Reservar:
			return []efecto{{repository.CampoReservado, 1}}
		case Liberar:
			return []efecto{{repository.CampoReservado, -1}}
		case Consumir:
			return []efecto{{repository.CampoCantidad, -1}, {repository.CampoReservado, -1}}
		}
	}
	switch op {
	case Reservar, Consumir, Retirar:
		return []efecto{{repository.CampoCantidad, -1}}
	default:
		return []efecto{{repository.CampoCantidad, 1}}
	}
}

// disponible es lo que la política considera vendible.
func (s *stockService) disponible(p *model.Producto) decimal.Decimal {
	if s.opts.Politica == PoliticaReserva {
		return p.Disponible()
	}
	return p.Cantidad
}

// ── Resolución ──────────────────────────────────────────────────────────────

func (s *stockService) Resolver(ctx context.Context, id items.Identificador) (*model.Producto, error) {
	return s.ResolverTx(s.repo.DB().WithContext(ctx), id)
}

func (s *stockService) ResolverTx(tx *gorm.DB, id items.Identificador) (*model.Producto, error) {
	if id.Vacio() {
		return nil, &NotFoundError{Entidad: "producto", Clave: id}
	}
	if id.Tipo == items.PorID {
		p, err := s.repo.FindByIDTx(tx, id.ID)
		if err != nil {
			return nil, noEncontrado(err, "producto", id)
		}
		return p, nil
	}
	for _, modo := range []repository.ModoBusqueda{
		repository.CodigoExacto, repository.NombreExacto, repository.CodigoContiene, repository.NombreContiene,
	} {
		p, err := s.repo.BuscarTx(tx, id.Texto, modo)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("buscar producto %s: %w", id, err)
		}
	}
	return nil, &NotFoundError{Entidad: "producto", Clave: id}
}

// ResolverItemTx prueba los ids del item y luego sus textos, primero con
// coincidencias exactas y recién después con parciales.
func (s *stockService) ResolverItemTx(tx *gorm.DB, it items.Item) (*model.Producto, error) {
	candidatos := items.Candidatos(it)
	var textos []string
	for _, c := range candidatos {
		if c.Tipo == items.PorID {
			p, err := s.repo.FindByIDTx(tx, c.ID)
			if err == nil {
				return p, nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
			continue
		}
		textos = append(textos, c.Texto)
	}
	for _, modos := range [][]repository.ModoBusqueda{
		{repository.CodigoExacto, repository.NombreExacto},
		{repository.CodigoContiene, repository.NombreContiene},
	} {
		for _, t := range textos {
			for _, modo := range modos {
				p, err := s.repo.BuscarTx(tx, t, modo)
				if err == nil {
					return p, nil
				}
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, err
				}
			}
		}
	}
	return nil, &NotFoundError{Entidad: "producto", Clave: it.Nombre}
}

// ── Ajustes ─────────────────────────────────────────────────────────────────

func (s *stockService) Ajustar(ctx context.Context, id items.Identificador, delta decimal.Decimal, soloCategoria string, ref Referencia) (*ResultadoAjuste, error) {
	var res *ResultadoAjuste
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		res, err = s.AjustarTx(tx, id, delta, soloCategoria, ref)
		return err
	})
	return res, err
}

func (s *stockService) AjustarTx(tx *gorm.DB, id items.Identificador, delta decimal.Decimal, soloCategoria string, ref Referencia) (*ResultadoAjuste, error) {
	p, err := s.ResolverTx(tx, id)
	if err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) {
			return advertirNoEncontrado(id.String()), nil
		}
		return nil, err
	}
	if soloCategoria != "" && !strings.EqualFold(p.Categoria, soloCategoria) {
		return categoriaDistinta(p, soloCategoria), nil
	}
	tipo := model.MovimientoAjusteManual
	return s.ajustarProductoTx(tx, p.ID, repository.CampoCantidad, delta, tipo, ref)
}

// ajustarProductoTx bloquea la fila, aplica delta de forma atómica y registra el movimiento.
func (s *stockService) ajustarProductoTx(tx *gorm.DB, productoID uint, campo string, delta decimal.Decimal, tipo string, ref Referencia) (*ResultadoAjuste, error) {
	p, err := s.repo.LockTx(tx, productoID)
	if err != nil {
		return nil, noEncontrado(err, "producto", productoID)
	}
	antes := s.disponible(p)
	anterior := p.Cantidad
	if campo == repository.CampoReservado {
		anterior = p.Reservado
	}

	if err := s.repo.AjustarTx(tx, p.ID, campo, delta); err != nil {
		return nil, fmt.Errorf("ajustar stock de %s: %w", p.Nombre, err)
	}
	nuevo := anterior.Add(delta)
	if campo == repository.CampoReservado {
		p.Reservado = nuevo
	} else {
		p.Cantidad = nuevo
		p.Subtotal = p.Cantidad.Mul(p.PrecioCompra)
	}

	mov := &model.MovimientoStock{
		ProductoID:    p.ID,
		Tipo:          tipo,
		Campo:         campo,
		Cantidad:      delta,
		StockAnterior: anterior,
		StockNuevo:    nuevo,
		Motivo:        ref.Motivo,
		PedidoID:      ref.PedidoID,
		FacturaID:     ref.FacturaID,
		UsuarioID:     ref.UsuarioID,
	}
	if err := s.movRepo.CreateTx(tx, mov); err != nil {
		return nil, fmt.Errorf("registrar movimiento de stock: %w", err)
	}

	log.Info().Uint("producto_id", p.ID).Str("producto", p.Nombre).Str("tipo", tipo).
		Str("campo", campo).Str("delta", delta.String()).Str("nuevo", nuevo.String()).
		Msg("stock ajustado")

	res := &ResultadoAjuste{Producto: p, Aplicado: true}
	if despues := s.disponible(p); despues.LessThan(antes) {
		res.Advertencias = s.advertenciasNivel(p, despues)
	}
	return res, nil
}

func (s *stockService) advertenciasNivel(p *model.Producto, disponible decimal.Decimal) []Advertencia {
	switch {
	case disponible.IsNegative():
		log.Warn().Uint("producto_id", p.ID).Str("producto", p.Nombre).Str("stock", disponible.String()).
			Msg("stock negativo")
		return []Advertencia{{
			Tipo:     AdvStockNegativo,
			Producto: p.Nombre,
			Mensaje:  fmt.Sprintf("%s quedó con stock negativo (%s)", p.Nombre, disponible),
		}}
	case disponible.IsZero():
		return []Advertencia{{Tipo: AdvStockAgotado, Producto: p.Nombre, Mensaje: fmt.Sprintf("%s se agotó", p.Nombre)}}
	case disponible.LessThan(s.opts.UmbralBajo):
		return []Advertencia{{
			Tipo:     AdvBajoStock,
			Producto: p.Nombre,
			Mensaje:  fmt.Sprintf("%s tiene stock bajo (%s)", p.Nombre, disponible),
		}}
	}
	return nil
}

func advertirNoEncontrado(clave string) *ResultadoAjuste {
	log.Warn().Str("producto", clave).Msg("producto no encontrado para ajuste de stock")
	return &ResultadoAjuste{Advertencias: []Advertencia{{
		Tipo:     AdvProductoNoEncontrado,
		Producto: clave,
		Mensaje:  fmt.Sprintf("no se encontró %s en inventario; stock sin cambios", clave),
	}}}
}

func categoriaDistinta(p *model.Producto, categoria string) *ResultadoAjuste {
	log.Warn().Str("producto", p.Nombre).Str("categoria", p.Categoria).Str("esperada", categoria).
		Msg("ajuste omitido por categoria")
	return &ResultadoAjuste{Producto: p, Advertencias: []Advertencia{{
		Tipo:     AdvCategoriaDistinta,
		Producto: p.Nombre,
		Mensaje:  fmt.Sprintf("%s es %s, no %s; stock sin cambios", p.Nombre, p.Categoria, categoria),
	}}}
}

func (s *stockService) AplicarTx(tx *gorm.DB, op OperacionStock, l items.List, ref Referencia) ([]Advertencia, error) {
	var advs []Advertencia
	for _, it := range l.Bebidas() {
		if !it.Cantidad.IsPositive() {
			continue
		}
		p, err := s.ResolverItemTx(tx, it)
		if err != nil {
			var nf *NotFoundError
			if errors.As(err, &nf) {
				advs = append(advs, advertirNoEncontrado(it.Nombre).Advertencias...)
				continue
			}
			return advs, err
		}
		if !p.EsBebida() {
			advs = append(advs, categoriaDistinta(p, model.CategoriaBebida).Advertencias...)
			continue
		}
		for _, e := range s.efectos(op) {
			delta := it.Cantidad.Mul(decimal.NewFromInt(e.signo))
			res, err := s.ajustarProductoTx(tx, p.ID, e.campo, delta, op.String(), ref)
			if err != nil {
				return advs, err
			}
			advs = append(advs, res.Advertencias...)
		}
	}
	return advs, nil
}

// ── Verificación ────────────────────────────────────────────────────────────

func (s *stockService) Verificar(ctx context.Context, id items.Identificador, cantidad decimal.Decimal) (*Verificacion, error) {
	p, err := s.Resolver(ctx, id)
	if err != nil {
		return nil, err
	}
	stock := s.disponible(p)
	v := &Verificacion{Producto: p, Stock: stock, Disponible: stock.GreaterThanOrEqual(cantidad), Faltante: decimal.Zero}
	if !v.Disponible {
		v.Faltante = cantidad.Sub(stock)
	}
	return v, nil
}

func (s *stockService) VerificarItemsTx(tx *gorm.DB, l items.List) error {
	faltantes, err := s.faltantesTx(tx, l, true)
	if err != nil {
		return err
	}
	if len(faltantes) > 0 {
		return &InsufficientStockError{Faltantes: faltantes}
	}
	return nil
}

// faltantesTx suma lo pedido por producto (dos líneas de la misma bebida cuentan
// juntas) y lo compara con lo disponible.
func (s *stockService) faltantesTx(tx *gorm.DB, l items.List, bloquear bool) ([]Faltante, error) {
	var faltantes []Faltante
	pedidos := map[uint]decimal.Decimal{}
	var orden []uint
	for _, it := range l.Bebidas() {
		if !it.Cantidad.IsPositive() {
			continue
		}
		p, err := s.ResolverItemTx(tx, it)
		if err != nil {
			var nf *NotFoundError
			if !errors.As(err, &nf) {
				return nil, err
			}
			faltantes = append(faltantes, Faltante{
				Nombre:     it.Nombre,
				Solicitado: it.Cantidad,
				Disponible: decimal.Zero,
				Mensaje:    fmt.Sprintf("%s no existe en inventario", it.Nombre),
			})
			continue
		}
		if _, ok := pedidos[p.ID]; !ok {
			orden = append(orden, p.ID)
		}
		pedidos[p.ID] = pedidos[p.ID].Add(it.Cantidad)
	}

	for _, id := range orden {
		var p *model.Producto
		var err error
		if bloquear {
			p, err = s.repo.LockTx(tx, id)
		} else {
			p, err = s.repo.FindByIDTx(tx, id)
		}
		if err != nil {
			return nil, noEncontrado(err, "producto", id)
		}
		disp := s.disponible(p)
		if disp.LessThan(pedidos[id]) {
			faltantes = append(faltantes, Faltante{
				ProductoID: p.ID,
				Nombre:     p.Nombre,
				Solicitado: pedidos[id],
				Disponible: disp,
				Mensaje:    fmt.Sprintf("No hay suficiente stock de %s. Disponible: %s, Solicitado: %s", p.Nombre, disp, pedidos[id]),
			})
		}
	}
	return faltantes, nil
}

func (s *stockService) VerificarMultiples(ctx context.Context, l items.List) (*dto.VerificarStockResponse, error) {
	var faltantes []Faltante
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		faltantes, err = s.faltantesTx(tx, l, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	resp := &dto.VerificarStockResponse{Disponible: len(faltantes) == 0, ProductosSinStock: []dto.ProductoSinStock{}}
	for _, f := range faltantes {
		resp.ProductosSinStock = append(resp.ProductosSinStock, dto.ProductoSinStock{
			ID:                 f.ProductoID,
			Nombre:             f.Nombre,
			StockActual:        f.Disponible,
			CantidadSolicitada: f.Solicitado,
			Mensaje:            f.Mensaje,
		})
	}
	return resp, nil
}

// ── Catálogo ────────────────────────────────────────────────────────────────

type catalogoTx struct {
	repo repository.ProductoRepository
	tx   *gorm.DB
}

func (s *stockService) CatalogoTx(tx *gorm.DB) items.Catalogo {
	return &catalogoTx{repo: s.repo, tx: tx}
}

func (c *catalogoTx) FichaPorID(_ context.Context, id uint) (*items.Ficha, error) {
	p, err := c.repo.FindByIDTx(c.tx, id)
	return ficha(p, err)
}

func (c *catalogoTx) FichaPorNombre(_ context.Context, nombre string) (*items.Ficha, error) {
	p, err := c.repo.BuscarTx(c.tx, nombre, repository.NombreExacto)
	return ficha(p, err)
}

func ficha(p *model.Producto, err error) (*items.Ficha, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &items.Ficha{ID: p.ID, Codigo: p.Codigo, Nombre: p.Nombre, Categoria: p.Categoria}, nil
}

// ── Inventario ──────────────────────────────────────────────────────────────

func (s *stockService) CrearProducto(ctx context.Context, req dto.CrearProductoRequest) (*model.Producto, error) {
	var base model.Producto
	if err := copier.Copy(&base, &req); err != nil {
		return nil, fmt.Errorf("copiar producto: %w", err)
	}
	base.Nombre = strings.TrimSpace(base.Nombre)
	if base.Cantidad.IsNegative() || base.PrecioCompra.IsNegative() {
		return nil, errValidacion("cantidad", "cantidad y precio no pueden ser negativos")
	}

	var creado *model.Producto
	err := conReintentos(ctx, s.repo.DB(), s.opts.Reintentos, "crear producto", func(tx *gorm.DB, _ int) error {
		p := base
		codigo, err := codigoProducto(p.Categoria, time.Now())
		if err != nil {
			return err
		}
		p.Codigo = codigo
		if err := s.repo.CreateTx(tx, &p); err != nil {
			return err
		}
		creado = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Uint("producto_id", creado.ID).Str("codigo", creado.Codigo).Msg("producto creado")
	return creado, nil
}

func (s *stockService) RegistrarSalida(ctx context.Context, usuarioID *uuid.UUID, req dto.RegistrarSalidaRequest) (*ResultadoAjuste, error) {
	if !req.Cantidad.IsPositive() {
		return nil, errValidacion("cantidad", "la cantidad debe ser mayor a cero")
	}
	var res *ResultadoAjuste
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		p, err := s.repo.LockTx(tx, req.ProductoID)
		if err != nil {
			return noEncontrado(err, "producto", req.ProductoID)
		}
		if p.EsBebida() {
			return errValidacion("producto_id", "las bebidas se descuentan con pedidos y facturas")
		}
		if p.Cantidad.LessThan(req.Cantidad) {
			return &InsufficientStockError{Faltantes: []Faltante{{
				ProductoID: p.ID,
				Nombre:     p.Nombre,
				Solicitado: req.Cantidad,
				Disponible: p.Cantidad,
				Mensaje:    fmt.Sprintf("No hay suficiente stock de %s. Disponible: %s, Solicitado: %s", p.Nombre, p.Cantidad, req.Cantidad),
			}}}
		}
		motivo := fmt.Sprintf("%s (%s)", req.Motivo, req.Responsable)
		if req.Observaciones != "" {
			motivo += ": " + req.Observaciones
		}
		res, err = s.ajustarProductoTx(tx, p.ID, repository.CampoCantidad, req.Cantidad.Neg(),
			model.MovimientoSalida, Referencia{UsuarioID: usuarioID, Motivo: motivo})
		return err
	})
	return res, err
}

func (s *stockService) Reabastecer(ctx context.Context, usuarioID *uuid.UUID, req dto.ReabastecerRequest) (*ResultadoAjuste, error) {
	if !req.Cantidad.IsPositive() {
		return nil, errValidacion("cantidad", "la cantidad debe ser mayor a cero")
	}
	var res *ResultadoAjuste
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		res, err = s.ajustarProductoTx(tx, req.ProductoID, repository.CampoCantidad, req.Cantidad,
			model.MovimientoReabasto, Referencia{UsuarioID: usuarioID, Motivo: req.Motivo})
		return err
	})
	return res, err
}

func (s *stockService) Alertas(ctx context.Context) ([]model.Producto, error) {
	return s.repo.BajoStock(ctx, s.opts.UmbralBajo)
}

func (s *stockService) ListarProductos(ctx context.Context, filter dto.ProductoFilter) ([]model.Producto, int64, error) {
	return s.repo.List(ctx, filter)
}

func (s *stockService) ListarMovimientos(ctx context.Context, filter dto.MovimientoFilter) ([]model.MovimientoStock, int64, error) {
	return s.movRepo.List(ctx, repository.MovimientoStockFilter{
		ProductoID: filter.ProductoID,
		Tipo:       filter.Tipo,
		Page:       filter.Page,
		Limit:      filter.Limit,
	})
}
