package items

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Claves alternativas por campo, en orden de prioridad.
var (
	clavesNombre    = []string{"nombre", "name", "producto", "product"}
	clavesCantidad  = []string{"cantidad", "quantity", "qty"}
	clavesPrecio    = []string{"precio", "price", "unit_price", "precio_unitario"}
	clavesSubtotal  = []string{"subtotal", "total"}
	clavesCategoria = []string{"categoria", "category", "categ"}
	clavesCodigo    = []string{"codigo", "code"}
	clavesTipo      = []string{"tipo", "type", "tipo_item"}
	clavesEnvoltura = []string{"items", "productos"}
)

// ErrFormatoItems indica que el detalle no pudo interpretarse ni reparado.
var ErrFormatoItems = errors.New("formato de items invalido")

// Parse interpreta raw (texto JSON, []byte, mapa, slice o List) y devuelve la
// lista canónica. Falla solo si el texto no es JSON ni después de reparar comillas.
func Parse(raw interface{}) (List, error) {
	switch v := raw.(type) {
	case nil:
		return List{}, nil
	case List:
		return v, nil
	case []Item:
		return List(v), nil
	case json.RawMessage:
		return parseTexto(string(v))
	case []byte:
		return parseTexto(string(v))
	case string:
		return parseTexto(v)
	default:
		return desdeValor(v), nil
	}
}

// ParseStored es la variante tolerante usada al leer de la base: ante datos
// irrecuperables registra el problema y devuelve una lista vacía.
func ParseStored(raw interface{}) List {
	l, err := Parse(raw)
	if err != nil {
		log.Warn().Err(err).Msg("items: detalle ilegible, se usa lista vacia")
		return List{}
	}
	return l
}

func parseTexto(s string) (List, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return List{}, nil
	}
	v, err := decodificar(s)
	if err != nil {
		v, err = decodificar(repararComillas(s))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormatoItems, err)
		}
	}
	return desdeValor(v), nil
}

func decodificar(s string) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// repararComillas convierte literales estilo Python a JSON.
func repararComillas(s string) string {
	r := strings.NewReplacer("'", `"`, "True", "true", "False", "false", "None", "null")
	return r.Replace(s)
}

func desdeValor(v interface{}) List {
	switch t := v.(type) {
	case []interface{}:
		out := make(List, 0, len(t))
		for i, e := range t {
			if m, ok := e.(map[string]interface{}); ok {
				out = append(out, Canonicalizar(m, i))
			}
		}
		return out
	case []map[string]interface{}:
		out := make(List, 0, len(t))
		for i, m := range t {
			out = append(out, Canonicalizar(m, i))
		}
		return out
	case map[string]interface{}:
		for _, k := range clavesEnvoltura {
			if inner, ok := t[k]; ok {
				if s, ok := inner.(string); ok {
					return ParseStored(s)
				}
				return desdeValor(inner)
			}
		}
		return List{Canonicalizar(t, 0)}
	default:
		return List{}
	}
}

// Canonicalizar arma un Item a partir de un objeto con claves variables.
// idx es la posición en la lista y se usa para el nombre por defecto.
func Canonicalizar(m map[string]interface{}, idx int) Item {
	it := Item{
		Nombre:    primerTexto(m, clavesNombre),
		Codigo:    primerTexto(m, clavesCodigo),
		Categoria: strings.ToLower(primerTexto(m, clavesCategoria)),
		Tipo:      strings.ToLower(primerTexto(m, clavesTipo)),
		Notas:     primerTexto(m, []string{"notas", "notes"}),
	}
	if it.Nombre == "" {
		it.Nombre = fmt.Sprintf("Producto %d", idx+1)
	}

	it.Cantidad = primerDecimal(m, clavesCantidad, decimal.NewFromInt(1))
	it.PrecioUnitario = primerDecimal(m, clavesPrecio, decimal.Zero)
	it.Subtotal = primerDecimal(m, clavesSubtotal, decimal.Zero)
	if it.Subtotal.IsZero() {
		it.Subtotal = it.Cantidad.Mul(it.PrecioUnitario)
	}

	if v, ok := m["id"]; ok {
		it.ID = comoTexto(v)
	}
	if v, ok := m["producto_id"]; ok {
		if n, ok := comoEntero(v); ok {
			it.ProductoID = &n
		}
	}
	if it.Tipo == "" {
		if b, ok := m["es_bebida"].(bool); ok && b {
			it.Tipo = TipoBebida
		}
	}
	return it
}

func primerTexto(m map[string]interface{}, claves []string) string {
	for _, k := range claves {
		if v, ok := m[k]; ok {
			if s := strings.TrimSpace(comoTexto(v)); s != "" {
				return s
			}
		}
	}
	return ""
}

// primerDecimal devuelve el primer valor numérico presente, cero incluido.
// Solo si ninguna clave trae un número se usa def.
func primerDecimal(m map[string]interface{}, claves []string, def decimal.Decimal) decimal.Decimal {
	for _, k := range claves {
		v, ok := m[k]
		if !ok {
			continue
		}
		if d, ok := comoDecimal(v); ok {
			return d
		}
	}
	return def
}

func comoTexto(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool, nil, map[string]interface{}, []interface{}:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func comoDecimal(v interface{}) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(t), true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int64:
		return decimal.NewFromInt(t), true
	case decimal.Decimal:
		return t, true
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(t), ",", ".")
		d, err := decimal.NewFromString(s)
		return d, err == nil
	default:
		return decimal.Zero, false
	}
}

func comoEntero(v interface{}) (uint, bool) {
	d, ok := comoDecimal(v)
	if !ok || d.IsNegative() || !d.Equal(d.Truncate(0)) {
		return 0, false
	}
	return uint(d.IntPart()), true
}
