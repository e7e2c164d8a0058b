package items

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// TipoIdentificador discrimina las variantes de Identificador.
type TipoIdentificador int

const (
	PorID TipoIdentificador = iota
	PorCodigo
	PorNombre
)

func (t TipoIdentificador) String() string {
	switch t {
	case PorID:
		return "id"
	case PorCodigo:
		return "codigo"
	case PorNombre:
		return "nombre"
	default:
		return "desconocido"
	}
}

// Identificador referencia un Producto por id, código o nombre.
// Solo uno de ID / Texto es significativo según Tipo.
type Identificador struct {
	Tipo  TipoIdentificador
	ID    uint
	Texto string
}

func IDProducto(id uint) Identificador { return Identificador{Tipo: PorID, ID: id} }
func Codigo(c string) Identificador { return Identificador{Tipo: PorCodigo, Texto: strings.TrimSpace(c)} }
func Nombre(n string) Identificador { return Identificador{Tipo: PorNombre, Texto: strings.TrimSpace(n)} }

func (i Identificador) Vacio() bool {
	if i.Tipo == PorID {
		return i.ID == 0
	}
	return i.Texto == ""
}

func (i Identificador) String() string {
	if i.Tipo == PorID {
		return fmt.Sprintf("id=%d", i.ID)
	}
	return fmt.Sprintf("%s=%q", i.Tipo, i.Texto)
}

var (
	reIDPrefijado = regexp.MustCompile(`(?i)^(?:bebida|producto|prod)[_-](\d+)$`)
	reSoloDigitos = regexp.MustCompile(`^\d+$`)
)

// ParseIdentificador interpreta el id que envía la interfaz: "7", "bebida_7",
// "PROD-7" son ids; cualquier otro texto se trata como código.
func ParseIdentificador(raw string) (Identificador, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Identificador{}, false
	}
	if reSoloDigitos.MatchString(s) {
		if n, err := strconv.ParseUint(s, 10, 64); err == nil && n > 0 {
			return IDProducto(uint(n)), true
		}
		return Identificador{}, false
	}
	if m := reIDPrefijado.FindStringSubmatch(s); m != nil {
		if n, err := strconv.ParseUint(m[1], 10, 64); err == nil && n > 0 {
			return IDProducto(uint(n)), true
		}
	}
	if strings.HasPrefix(strings.ToLower(s), "plato_") {
		// ids de platos no apuntan al inventario
		return Identificador{}, false
	}
	return Codigo(s), true
}

func esCodigoProducto(s string) bool {
	return strings.HasPrefix(strings.ToUpper(s), "PROD-")
}

// Candidatos devuelve, en orden de preferencia, los identificadores con los que
// se intenta ubicar el Producto de un item: producto_id, id, código y nombre.
func Candidatos(it Item) []Identificador {
	var out []Identificador
	vistos := map[Identificador]bool{}
	add := func(id Identificador) {
		if id.Vacio() || vistos[id] {
			return
		}
		vistos[id] = true
		out = append(out, id)
	}
	if it.ProductoID != nil && *it.ProductoID > 0 {
		add(IDProducto(*it.ProductoID))
	}
	if id, ok := ParseIdentificador(it.ID); ok && (id.Tipo == PorID || esCodigoProducto(id.Texto)) {
		add(id)
	}
	if it.Codigo != "" {
		add(Codigo(it.Codigo))
	}
	if it.Nombre != "" {
		add(Nombre(it.Nombre))
	}
	return out
}
