package items

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CantidadDevuelta suma lo ya devuelto de un producto en todas las devoluciones
// previas de una factura. Cada elemento de devoluciones es el detalle de una devolución.
func CantidadDevuelta(devoluciones []List, nombre string) decimal.Decimal {
	total := decimal.Zero
	for _, dev := range devoluciones {
		for _, it := range dev {
			if MismoNombre(it.Nombre, nombre) {
				total = total.Add(it.Cantidad)
			}
		}
	}
	return total
}

// BuscarPorNombre ubica un item por nombre: exacto sin mayúsculas ni espacios y,
// si no hay, el primero cuyo nombre contenga el buscado.
func BuscarPorNombre(l List, nombre string) (Item, bool) {
	buscado := NormalizarNombre(nombre)
	if buscado == "" {
		return Item{}, false
	}
	for _, it := range l {
		if NormalizarNombre(it.Nombre) == buscado {
			return it, true
		}
	}
	parcial := strings.ToLower(strings.TrimSpace(nombre))
	for _, it := range l {
		if strings.Contains(strings.ToLower(it.Nombre), parcial) {
			return it, true
		}
	}
	return Item{}, false
}

// Disponibilidad resume cuánto queda por devolver de un producto facturado.
type Disponibilidad struct {
	Item       Item
	Original   decimal.Decimal
	Devuelta   decimal.Decimal
	Disponible decimal.Decimal
}

// Disponibles agrupa la factura por nombre y descuenta lo ya devuelto.
// Solo incluye productos con cantidad disponible mayor a cero.
func Disponibles(facturados List, devoluciones []List) []Disponibilidad {
	orden := make([]string, 0, len(facturados))
	porNombre := make(map[string]*Disponibilidad, len(facturados))
	for _, it := range facturados {
		k := NormalizarNombre(it.Nombre)
		d, ok := porNombre[k]
		if !ok {
			d = &Disponibilidad{Item: it, Original: decimal.Zero}
			porNombre[k] = d
			orden = append(orden, k)
		}
		d.Original = d.Original.Add(it.Cantidad)
	}

	out := make([]Disponibilidad, 0, len(orden))
	for _, k := range orden {
		d := porNombre[k]
		d.Devuelta = CantidadDevuelta(devoluciones, d.Item.Nombre)
		d.Disponible = d.Original.Sub(d.Devuelta)
		if d.Disponible.IsPositive() {
			out = append(out, *d)
		}
	}
	return out
}

// CantidadOriginal suma las líneas facturadas con el mismo nombre.
func CantidadOriginal(facturados List, nombre string) decimal.Decimal {
	total := decimal.Zero
	for _, it := range facturados {
		if MismoNombre(it.Nombre, nombre) {
			total = total.Add(it.Cantidad)
		}
	}
	return total
}
