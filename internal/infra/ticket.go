package infra

import (
	"fmt"
	"strings"

	"restaurantepos/internal/model"
)

const anchoTicket = 40

// TicketTexto arma la comanda de cocina en texto plano para impresoras térmicas.
type TicketTexto struct {
	Restaurante string
}

func NewTicketTexto(restaurante string) *TicketTexto {
	return &TicketTexto{Restaurante: restaurante}
}

func (t *TicketTexto) Comanda(p *model.Pedido) string {
	var b strings.Builder
	linea := strings.Repeat("=", anchoTicket)

	b.WriteString(linea + "\n")
	b.WriteString(centrar(strings.ToUpper(t.Restaurante)) + "\n")
	b.WriteString(centrar("COMANDA DE COCINA") + "\n")
	b.WriteString(linea + "\n")
	fmt.Fprintf(&b, "Pedido: %s\n", p.CodigoPedido)
	fmt.Fprintf(&b, "Fecha:  %s\n", p.FechaPedido.Format("02/01/2006 15:04"))
	fmt.Fprintf(&b, "Tipo:   %s\n", strings.ToUpper(p.TipoPedido))
	if destino := destinoPedido(p); destino != "" {
		fmt.Fprintf(&b, "%s\n", destino)
	}
	if p.NombreCliente != "" {
		fmt.Fprintf(&b, "Cliente: %s\n", p.NombreCliente)
	}
	b.WriteString(strings.Repeat("-", anchoTicket) + "\n")

	for _, it := range p.Items {
		fmt.Fprintf(&b, "%4s x %s\n", it.Cantidad.String(), it.Nombre)
		if it.Notas != "" {
			fmt.Fprintf(&b, "       * %s\n", it.Notas)
		}
	}
	if p.Notas != "" {
		b.WriteString(strings.Repeat("-", anchoTicket) + "\n")
		fmt.Fprintf(&b, "NOTAS: %s\n", p.Notas)
	}
	b.WriteString(linea + "\n")
	return b.String()
}

func destinoPedido(p *model.Pedido) string {
	switch {
	case p.Mesa != nil:
		return "Mesa:   " + p.Mesa.NumeroDisplay()
	case p.CodigoDelivery != "":
		return "Codigo: " + p.CodigoDelivery
	}
	return ""
}

func centrar(s string) string {
	if len(s) >= anchoTicket {
		return s
	}
	return strings.Repeat(" ", (anchoTicket-len(s))/2) + s
}
