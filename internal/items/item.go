// Package items normaliza el detalle de items que se guarda como JSON en
// pedidos, facturas y devoluciones. El detalle es una copia puntual de lo
// vendido, nunca una referencia viva a Plato o Producto, y puede llegar con
// claves en español o inglés según quién lo haya escrito.
package items

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	CategoriaBebida = "bebida"
	CategoriaOtro   = "otro"

	TipoPlato  = "plato"
	TipoBebida = "bebida"
)

// Item es el registro canónico de una línea de detalle.
type Item struct {
	ID             string          `json:"id,omitempty"`
	ProductoID     *uint           `json:"producto_id,omitempty"`
	Codigo         string          `json:"codigo,omitempty"`
	Nombre         string          `json:"nombre"`
	Cantidad       decimal.Decimal `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Categoria      string          `json:"categoria"`
	Tipo           string          `json:"tipo,omitempty"`
	Notas          string          `json:"notas,omitempty"`
}

// EsBebida usa la etiqueta propia del item, no el catálogo.
func (it Item) EsBebida() bool {
	return strings.EqualFold(strings.TrimSpace(it.Categoria), CategoriaBebida) ||
		strings.EqualFold(strings.TrimSpace(it.Tipo), TipoBebida)
}

// Total devuelve el subtotal guardado o, si falta, cantidad × precio.
func (it Item) Total() decimal.Decimal {
	if !it.Subtotal.IsZero() {
		return it.Subtotal
	}
	return it.Cantidad.Mul(it.PrecioUnitario)
}

// Clave identifica el item al comparar listas: el id si lo tiene, si no el nombre normalizado.
func (it Item) Clave() string {
	if id := strings.TrimSpace(it.ID); id != "" {
		return "id:" + id
	}
	return "nombre:" + NormalizarNombre(it.Nombre)
}

// List es la columna JSON de items. Al leer acepta cualquier formato histórico.
type List []Item

// Subtotal suma los totales de línea.
func (l List) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range l {
		total = total.Add(it.Total())
	}
	return total
}

// Bebidas filtra los items con control de stock.
func (l List) Bebidas() List {
	out := make(List, 0, len(l))
	for _, it := range l {
		if it.EsBebida() {
			out = append(out, it)
		}
	}
	return out
}

// Value implements driver.Valuer.
func (l List) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *List) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = List{}
		return nil
	case string:
		*l = ParseStored(v)
		return nil
	case []byte:
		*l = ParseStored(string(v))
		return nil
	default:
		return fmt.Errorf("items: tipo no soportado %T", src)
	}
}

// UnmarshalJSON acepta cualquier forma que entienda Parse, así los request
// quedan normalizados al hacer el bind.
func (l *List) UnmarshalJSON(b []byte) error {
	parsed, err := Parse(b)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// NormalizarNombre compara nombres sin mayúsculas ni espacios.
func NormalizarNombre(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "")
}

// MismoNombre reports whether two item names match ignoring case and whitespace.
func MismoNombre(a, b string) bool {
	return NormalizarNombre(a) == NormalizarNombre(b)
}
