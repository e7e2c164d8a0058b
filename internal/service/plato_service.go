package service

import (
	"context"
	"fmt"
	"strings"

	"restaurantepos/internal/dto"
	"restaurantepos/internal/model"
	"restaurantepos/internal/repository"

	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// PlatoService administra el menú. Los platos no llevan stock.
type PlatoService interface {
	Crear(ctx context.Context, req dto.CrearPlatoRequest) (*model.Plato, error)
	Listar(ctx context.Context, soloActivos bool) ([]model.Plato, error)
	Obtener(ctx context.Context, id uint) (*model.Plato, error)
}

type platoService struct {
	repo       repository.PlatoRepository
	secRepo    repository.SecuenciaRepository
	reintentos int
}

func NewPlatoService(repo repository.PlatoRepository, secRepo repository.SecuenciaRepository, reintentos int) PlatoService {
	return &platoService{repo: repo, secRepo: secRepo, reintentos: reintentos}
}

func (s *platoService) Crear(ctx context.Context, req dto.CrearPlatoRequest) (*model.Plato, error) {
	var base model.Plato
	if err := copier.Copy(&base, &req); err != nil {
		return nil, fmt.Errorf("copiar plato: %w", err)
	}
	base.Nombre = strings.TrimSpace(base.Nombre)
	base.Categoria = strings.ToLower(strings.TrimSpace(base.Categoria))
	if base.Nombre == "" {
		return nil, errValidacion("nombre", "el nombre del plato es obligatorio")
	}
	if !contiene(model.CategoriasPlato, base.Categoria) {
		return nil, errValidacion("categoria", "categoría de plato inválida: %q", req.Categoria)
	}
	if base.Precio.IsNegative() {
		return nil, errValidacion("precio", "el precio no puede ser negativo")
	}
	base.Activo = true

	var creado *model.Plato
	err := conReintentos(ctx, s.repo.DB(), s.reintentos, "crear plato", func(tx *gorm.DB, intento int) error {
		p := base
		seq, err := siguienteNumero(tx, s.secRepo, prefijoPlato, "", intento, func() (string, error) {
			return s.repo.UltimoCodigoTx(tx)
		})
		if err != nil {
			return err
		}
		p.Codigo = codigoPlato(seq)
		if err := s.repo.CreateTx(tx, &p); err != nil {
			return err
		}
		creado = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Uint("plato_id", creado.ID).Str("codigo", creado.Codigo).Str("nombre", creado.Nombre).Msg("plato creado")
	return creado, nil
}

func (s *platoService) Listar(ctx context.Context, soloActivos bool) ([]model.Plato, error) {
	return s.repo.List(ctx, soloActivos)
}

func (s *platoService) Obtener(ctx context.Context, id uint) (*model.Plato, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, noEncontrado(err, "plato", id)
	}
	return p, nil
}
