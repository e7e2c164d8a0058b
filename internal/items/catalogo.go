package items

import (
	"context"
	"strings"
)

// Ficha es lo mínimo del catálogo que necesita el normalizador.
type Ficha struct {
	ID        uint
	Codigo    string
	Nombre    string
	Categoria string
}

// Catalogo busca fichas de producto. Un resultado nil sin error significa "no existe".
type Catalogo interface {
	FichaPorID(ctx context.Context, id uint) (*Ficha, error)
	FichaPorNombre(ctx context.Context, nombre string) (*Ficha, error)
}

// Enriquecer completa código y categoría de un item buscándolo por producto_id
// y luego por nombre exacto. Es best-effort: sin coincidencia el item queda
// igual salvo la categoría, que pasa a "otro" si estaba vacía.
func Enriquecer(ctx context.Context, cat Catalogo, it Item) Item {
	if necesitaCatalogo(it) && cat != nil {
		if f := buscarFicha(ctx, cat, it); f != nil {
			if it.Codigo == "" {
				it.Codigo = f.Codigo
			}
			if it.Categoria == "" || it.Categoria == CategoriaOtro {
				it.Categoria = strings.ToLower(f.Categoria)
			}
			if it.ProductoID == nil {
				id := f.ID
				it.ProductoID = &id
			}
		}
	}
	if it.Categoria == "" {
		if strings.EqualFold(it.Tipo, TipoBebida) {
			it.Categoria = CategoriaBebida
		} else {
			it.Categoria = CategoriaOtro
		}
	}
	return it
}

// EnriquecerLista aplica Enriquecer a cada item y devuelve una lista nueva.
func EnriquecerLista(ctx context.Context, cat Catalogo, l List) List {
	out := make(List, len(l))
	for i, it := range l {
		out[i] = Enriquecer(ctx, cat, it)
	}
	return out
}

func necesitaCatalogo(it Item) bool {
	return it.Codigo == "" || it.Categoria == "" || it.Categoria == CategoriaOtro
}

func buscarFicha(ctx context.Context, cat Catalogo, it Item) *Ficha {
	var ids []uint
	if it.ProductoID != nil {
		ids = append(ids, *it.ProductoID)
	}
	if id, ok := ParseIdentificador(it.ID); ok && id.Tipo == PorID {
		ids = append(ids, id.ID)
	}
	for _, id := range ids {
		if f, err := cat.FichaPorID(ctx, id); err == nil && f != nil {
			return f
		}
	}
	if strings.TrimSpace(it.Nombre) == "" {
		return nil
	}
	if f, err := cat.FichaPorNombre(ctx, it.Nombre); err == nil && f != nil {
		return f
	}
	return nil
}
