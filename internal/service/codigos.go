package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"restaurantepos/internal/repository"

	"gorm.io/gorm"
)

// Prefijos del contador de secuencias.
const (
	prefijoPedido  = "ORD"
	prefijoFactura = "FAC"
	prefijoPlato   = "COD"
)

func codigoPedido(t time.Time, seq int64) string {
	return fmt.Sprintf("ORD-%s-%04d", t.Format("20060102"), seq)
}

func numeroFactura(t time.Time, seq int64) string {
	return fmt.Sprintf("FAC-%s-%06d", t.Format("200601"), seq)
}

func codigoPlato(seq int64) string {
	return fmt.Sprintf("COD%03d", seq)
}

// codigoProducto arma PROD-<CAT3>-<YYMMDD>-<RAND4>.
func codigoProducto(categoria string, t time.Time) (string, error) {
	sufijo, err := aleatorio(4)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("PROD-%s-%s-%s", prefijoCategoria(categoria), t.Format("060102"), sufijo), nil
}

func prefijoCategoria(categoria string) string {
	c := strings.ToUpper(strings.TrimSpace(categoria))
	switch {
	case c == "":
		return "GEN"
	case len(c) < 3:
		return c
	default:
		return c[:3]
	}
}

const alfabetoCodigo = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func aleatorio(n int) (string, error) {
	var b strings.Builder
	max := big.NewInt(int64(len(alfabetoCodigo)))
	for i := 0; i < n; i++ {
		k, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(alfabetoCodigo[k.Int64()])
	}
	return b.String(), nil
}

// secuenciaDeCodigo extrae los dígitos finales de un código ("ORD-20250101-0042" → 42).
func secuenciaDeCodigo(codigo string) (int64, bool) {
	i := len(codigo)
	for i > 0 && codigo[i-1] >= '0' && codigo[i-1] <= '9' {
		i--
	}
	if i == len(codigo) {
		return 0, false
	}
	n, err := strconv.ParseInt(codigo[i:], 10, 64)
	return n, err == nil
}

// siguienteNumero toma el próximo valor del contador (prefijo, periodo). En los
// reintentos primero alinea el contador con el mayor código ya persistido, para
// saltar filas cargadas sin pasar por el contador.
func siguienteNumero(tx *gorm.DB, sec repository.SecuenciaRepository, prefijo, periodo string, intento int, ultimo func() (string, error)) (int64, error) {
	if intento > 1 && ultimo != nil {
		cod, err := ultimo()
		if err != nil {
			return 0, err
		}
		if n, ok := secuenciaDeCodigo(cod); ok {
			if err := sec.AjustarMinimoTx(tx, prefijo, periodo, n); err != nil {
				return 0, err
			}
		}
	}
	return sec.SiguienteTx(tx, prefijo, periodo)
}
