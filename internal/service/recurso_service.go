package service

import (
	"context"
	"errors"
	"fmt"

	"restaurantepos/internal/model"
	"restaurantepos/internal/repository"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Pool fijo de recursos.
const (
	cantidadMesas   = 10
	codigosPorTipo  = 5
	capacidadMesa   = 4
	ubicacionSalon  = "salon"
	prefijoDelivery = "D"
	prefijoLlevar   = "L"
)

// Correccion describe un estado de recurso corregido por Reconciliar.
type Correccion struct {
	Recurso        string
	EstadoAnterior string
	EstadoNuevo    string
}

// RecursoService es el único componente que escribe Mesa.Estado y
// DeliveryConfig.Estado. Ocupar y liberar son idempotentes.
type RecursoService interface {
	OcuparMesaTx(tx *gorm.DB, mesaID, pedidoID uint) (*model.Mesa, error)
	LiberarMesaTx(tx *gorm.DB, mesaID uint) ([]Advertencia, error)
	OcuparCodigoTx(tx *gorm.DB, tipo, codigo string, pedidoID uint) ([]Advertencia, error)
	LiberarCodigoTx(tx *gorm.DB, tipo, codigo string) ([]Advertencia, error)
	// AsignarCodigoTx devuelve el primer código disponible del tipo.
	AsignarCodigoTx(tx *gorm.DB, tipo string) (string, error)

	// OcuparRecursosTx ocupa la mesa o el código que referencia el pedido.
	OcuparRecursosTx(tx *gorm.DB, p *model.Pedido) ([]Advertencia, error)
	// LiberarRecursosTx libera la mesa o el código del pedido sin evaluar la regla.
	LiberarRecursosTx(tx *gorm.DB, p *model.Pedido) ([]Advertencia, error)
	// LiberarSiCorrespondeTx aplica model.DebeLiberarRecursos y libera si corresponde.
	LiberarSiCorrespondeTx(tx *gorm.DB, p *model.Pedido) (bool, []Advertencia, error)

	Reconciliar(ctx context.Context) ([]Correccion, error)
	Inicializar(ctx context.Context) error
	ListarMesas(ctx context.Context) ([]model.Mesa, error)
	ListarCodigos(ctx context.Context, tipo string) ([]model.DeliveryConfig, error)
}

type recursoService struct {
	repo        repository.RecursoRepository
	pedidoRepo  repository.PedidoRepository
	facturaRepo repository.FacturaRepository
}

func NewRecursoService(
	repo repository.RecursoRepository,
	pedidoRepo repository.PedidoRepository,
	facturaRepo repository.FacturaRepository,
) RecursoService {
	return &recursoService{repo: repo, pedidoRepo: pedidoRepo, facturaRepo: facturaRepo}
}

// ── Mesas ───────────────────────────────────────────────────────────────────

func (s *recursoService) OcuparMesaTx(tx *gorm.DB, mesaID, pedidoID uint) (*model.Mesa, error) {
	mesa, err := s.repo.LockMesaTx(tx, mesaID)
	if err != nil {
		return nil, noEncontrado(err, "mesa", mesaID)
	}
	if mesa.Estado == model.MesaMantenimiento {
		return nil, &ResourceConflictError{
			Recurso: mesa.Numero,
			Mensaje: fmt.Sprintf("La %s está en mantenimiento", mesa.Numero),
		}
	}
	otros, err := s.pedidoRepo.OcupantesMesaTx(tx, mesaID, pedidoID)
	if err != nil {
		return nil, fmt.Errorf("verificar ocupacion de %s: %w", mesa.Numero, err)
	}
	if otros > 0 {
		return nil, &ResourceConflictError{
			Recurso: mesa.Numero,
			Mensaje: fmt.Sprintf("La %s ya está ocupada por otro pedido activo", mesa.Numero),
		}
	}
	if mesa.Estado == model.MesaOcupada {
		return mesa, nil
	}
	if err := s.repo.UpdateMesaEstadoTx(tx, mesa.ID, model.MesaOcupada); err != nil {
		return nil, fmt.Errorf("ocupar %s: %w", mesa.Numero, err)
	}
	mesa.Estado = model.MesaOcupada
	log.Info().Uint("mesa_id", mesa.ID).Uint("pedido_id", pedidoID).Msg("mesa ocupada")
	return mesa, nil
}

func (s *recursoService) LiberarMesaTx(tx *gorm.DB, mesaID uint) ([]Advertencia, error) {
	mesa, err := s.repo.LockMesaTx(tx, mesaID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return noConfigurado(fmt.Sprintf("mesa %d", mesaID)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("buscar mesa %d: %w", mesaID, err)
	}
	if mesa.Estado == model.MesaDisponible {
		return nil, nil
	}
	if err := s.repo.UpdateMesaEstadoTx(tx, mesa.ID, model.MesaDisponible); err != nil {
		return nil, fmt.Errorf("liberar %s: %w", mesa.Numero, err)
	}
	log.Info().Uint("mesa_id", mesa.ID).Str("estado_anterior", mesa.Estado).Msg("mesa liberada")
	return nil, nil
}

// ── Códigos ─────────────────────────────────────────────────────────────────

// OcuparCodigoTx bloquea la fila del código antes de contar los pedidos activos
// que lo usan, igual que OcuparMesaTx.
func (s *recursoService) OcuparCodigoTx(tx *gorm.DB, tipo, codigo string, pedidoID uint) ([]Advertencia, error) {
	cfg, err := s.repo.LockCodigoTx(tx, tipo, codigo)
	configurado := true
	if errors.Is(err, gorm.ErrRecordNotFound) {
		configurado = false
	} else if err != nil {
		return nil, fmt.Errorf("buscar codigo %s: %w", codigo, err)
	}

	otros, err := s.pedidoRepo.OcupantesCodigoTx(tx, tipo, codigo, pedidoID)
	if err != nil {
		return nil, fmt.Errorf("verificar ocupacion de %s: %w", codigo, err)
	}
	if otros > 0 {
		return nil, &ResourceConflictError{
			Recurso: codigo,
			Mensaje: fmt.Sprintf("El código %s ya está asignado a otro pedido activo", codigo),
		}
	}
	if !configurado {
		return noConfigurado(fmt.Sprintf("%s %s", tipo, codigo)), nil
	}
	switch cfg.Estado {
	case model.CodigoInactivo:
		return nil, &ResourceConflictError{
			Recurso: codigo,
			Mensaje: fmt.Sprintf("El código %s está inactivo", codigo),
		}
	case model.CodigoOcupado:
		return nil, nil
	}
	if err := s.repo.UpdateCodigoEstadoTx(tx, cfg.ID, model.CodigoOcupado); err != nil {
		return nil, fmt.Errorf("ocupar codigo %s: %w", codigo, err)
	}
	log.Info().Str("tipo", tipo).Str("codigo", codigo).Uint("pedido_id", pedidoID).Msg("codigo ocupado")
	return nil, nil
}

func (s *recursoService) LiberarCodigoTx(tx *gorm.DB, tipo, codigo string) ([]Advertencia, error) {
	cfg, err := s.repo.LockCodigoTx(tx, tipo, codigo)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return noConfigurado(fmt.Sprintf("%s %s", tipo, codigo)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("buscar codigo %s: %w", codigo, err)
	}
	if cfg.Estado == model.CodigoDisponible {
		return nil, nil
	}
	if err := s.repo.UpdateCodigoEstadoTx(tx, cfg.ID, model.CodigoDisponible); err != nil {
		return nil, fmt.Errorf("liberar codigo %s: %w", codigo, err)
	}
	log.Info().Str("tipo", tipo).Str("codigo", codigo).Msg("codigo liberado")
	return nil, nil
}

func (s *recursoService) AsignarCodigoTx(tx *gorm.DB, tipo string) (string, error) {
	cfg, err := s.repo.PrimerDisponibleTx(tx, tipo)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", &ResourceConflictError{
			Recurso: tipo,
			Mensaje: fmt.Sprintf("No hay códigos de %s disponibles", tipo),
		}
	}
	if err != nil {
		return "", fmt.Errorf("asignar codigo de %s: %w", tipo, err)
	}
	return cfg.Codigo, nil
}

func noConfigurado(recurso string) []Advertencia {
	log.Warn().Str("recurso", recurso).Msg("recurso sin configurar, se omite")
	return []Advertencia{{
		Tipo:    AdvRecursoNoConfigurado,
		Mensaje: fmt.Sprintf("%s no está configurado; estado sin cambios", recurso),
	}}
}

// ── Por pedido ──────────────────────────────────────────────────────────────

func (s *recursoService) OcuparRecursosTx(tx *gorm.DB, p *model.Pedido) ([]Advertencia, error) {
	switch {
	case p.TipoPedido == model.TipoPedidoMesa && p.MesaID != nil:
		mesa, err := s.OcuparMesaTx(tx, *p.MesaID, p.ID)
		if err != nil {
			return nil, err
		}
		p.Mesa = mesa
		return nil, nil
	case p.CodigoDelivery != "":
		return s.OcuparCodigoTx(tx, p.TipoPedido, p.CodigoDelivery, p.ID)
	}
	return nil, nil
}

func (s *recursoService) LiberarRecursosTx(tx *gorm.DB, p *model.Pedido) ([]Advertencia, error) {
	switch {
	case p.TipoPedido == model.TipoPedidoMesa && p.MesaID != nil:
		return s.LiberarMesaTx(tx, *p.MesaID)
	case p.CodigoDelivery != "":
		return s.LiberarCodigoTx(tx, p.TipoPedido, p.CodigoDelivery)
	}
	return nil, nil
}

func (s *recursoService) LiberarSiCorrespondeTx(tx *gorm.DB, p *model.Pedido) (bool, []Advertencia, error) {
	tienePagada, err := s.facturaRepo.TienePagadaTx(tx, p.ID, 0)
	if err != nil {
		return false, nil, fmt.Errorf("consultar facturas del pedido %d: %w", p.ID, err)
	}
	if !model.DebeLiberarRecursos(p.Estado, tienePagada) {
		return false, nil, nil
	}
	advs, err := s.LiberarRecursosTx(tx, p)
	if err != nil {
		return false, advs, err
	}
	return true, advs, nil
}

// ── Reconciliación ──────────────────────────────────────────────────────────

func (s *recursoService) Reconciliar(ctx context.Context) ([]Correccion, error) {
	var correcciones []Correccion
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		activos, err := s.pedidoRepo.ActivosTx(tx)
		if err != nil {
			return fmt.Errorf("listar pedidos activos: %w", err)
		}
		mesasEnUso := map[uint]bool{}
		codigosEnUso := map[string]bool{}
		for _, p := range activos {
			if p.TipoPedido == model.TipoPedidoMesa && p.MesaID != nil {
				mesasEnUso[*p.MesaID] = true
			} else if p.CodigoDelivery != "" {
				codigosEnUso[p.TipoPedido+"/"+p.CodigoDelivery] = true
			}
		}

		mesas, err := s.repo.ListMesasTx(tx)
		if err != nil {
			return err
		}
		for _, m := range mesas {
			nuevo := m.Estado
			switch {
			case mesasEnUso[m.ID]:
				nuevo = model.MesaOcupada
			case m.Estado == model.MesaOcupada:
				nuevo = model.MesaDisponible
			}
			if nuevo == m.Estado {
				continue
			}
			if err := s.repo.UpdateMesaEstadoTx(tx, m.ID, nuevo); err != nil {
				return err
			}
			correcciones = append(correcciones, Correccion{Recurso: m.Numero, EstadoAnterior: m.Estado, EstadoNuevo: nuevo})
		}

		codigos, err := s.repo.ListCodigosTx(tx)
		if err != nil {
			return err
		}
		for _, c := range codigos {
			nuevo := c.Estado
			switch {
			case codigosEnUso[c.Tipo+"/"+c.Codigo]:
				nuevo = model.CodigoOcupado
			case c.Estado == model.CodigoOcupado:
				nuevo = model.CodigoDisponible
			}
			if nuevo == c.Estado {
				continue
			}
			if err := s.repo.UpdateCodigoEstadoTx(tx, c.ID, nuevo); err != nil {
				return err
			}
			correcciones = append(correcciones, Correccion{
				Recurso:        c.Tipo + " " + c.Codigo,
				EstadoAnterior: c.Estado,
				EstadoNuevo:    nuevo,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, c := range correcciones {
		log.Warn().Str("recurso", c.Recurso).Str("anterior", c.EstadoAnterior).Str("nuevo", c.EstadoNuevo).
			Msg("estado de recurso corregido")
	}
	return correcciones, nil
}

// Inicializar crea las mesas y el pool de códigos que falten.
func (s *recursoService) Inicializar(ctx context.Context) error {
	mesas := make([]model.Mesa, 0, cantidadMesas)
	for i := 1; i <= cantidadMesas; i++ {
		mesas = append(mesas, model.Mesa{
			Numero:    model.NumeroMesa(i),
			Capacidad: capacidadMesa,
			Estado:    model.MesaDisponible,
			Ubicacion: ubicacionSalon,
		})
	}
	codigos := make([]model.DeliveryConfig, 0, 2*codigosPorTipo)
	for _, pool := range []struct{ tipo, prefijo, desc string }{
		{model.TipoPedidoDelivery, prefijoDelivery, "Delivery"},
		{model.TipoPedidoLlevar, prefijoLlevar, "Para llevar"},
	} {
		for i := 1; i <= codigosPorTipo; i++ {
			codigos = append(codigos, model.DeliveryConfig{
				Tipo:        pool.tipo,
				Codigo:      fmt.Sprintf("%s%03d", pool.prefijo, i),
				Estado:      model.CodigoDisponible,
				Descripcion: fmt.Sprintf("%s %d", pool.desc, i),
			})
		}
	}
	return runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		return s.repo.SembrarTx(tx, mesas, codigos)
	})
}

func (s *recursoService) ListarMesas(ctx context.Context) ([]model.Mesa, error) {
	return s.repo.ListMesas(ctx)
}

func (s *recursoService) ListarCodigos(ctx context.Context, tipo string) ([]model.DeliveryConfig, error) {
	return s.repo.ListCodigos(ctx, tipo)
}
