package handler

import (
	"fmt"

	"restaurantepos/internal/dto"
	"restaurantepos/internal/items"
	"restaurantepos/internal/model"
	"restaurantepos/internal/service"
)

func advertenciasResponse(advs []service.Advertencia) []dto.AdvertenciaResponse {
	out := make([]dto.AdvertenciaResponse, 0, len(advs))
	for _, a := range advs {
		out = append(out, dto.AdvertenciaResponse{Tipo: a.Tipo, Mensaje: a.Mensaje, Producto: a.Producto})
	}
	return out
}

func pedidoResponse(p *model.Pedido) dto.PedidoResponse {
	r := dto.PedidoResponse{
		ID:               p.ID,
		CodigoPedido:     p.CodigoPedido,
		TipoPedido:       p.TipoPedido,
		MesaID:           p.MesaID,
		CodigoDelivery:   p.CodigoDelivery,
		NombreCliente:    p.NombreCliente,
		TelefonoCliente:  p.TelefonoCliente,
		DireccionEntrega: p.DireccionEntrega,
		Items:            p.Items,
		Subtotal:         p.Subtotal,
		Envio:            p.Envio,
		Total:            p.Total,
		Estado:           p.Estado,
		FechaPedido:      p.FechaPedido,
		FechaEntrega:     p.FechaEntrega,
		Notas:            p.Notas,
	}
	if r.Items == nil {
		r.Items = items.List{}
	}
	if p.Mesa != nil {
		r.Mesa = p.Mesa.NumeroDisplay()
	}
	return r
}

func resultadoPedidoResponse(res *service.ResultadoPedido) dto.ResultadoPedidoResponse {
	return dto.ResultadoPedidoResponse{
		Pedido:       pedidoResponse(res.Pedido),
		Comanda:      res.Comanda,
		Advertencias: advertenciasResponse(res.Advertencias),
	}
}

func historialResponse(h []model.HistorialEstadoPedido) []dto.HistorialEstadoResponse {
	out := make([]dto.HistorialEstadoResponse, 0, len(h))
	for _, e := range h {
		r := dto.HistorialEstadoResponse{
			EstadoAnterior: e.EstadoAnterior,
			EstadoNuevo:    e.EstadoNuevo,
			Motivo:         e.Motivo,
			FechaCambio:    e.FechaCambio,
		}
		if e.UsuarioID != nil {
			s := e.UsuarioID.String()
			r.UsuarioID = &s
		}
		out = append(out, r)
	}
	return out
}

func facturaResponse(f *model.Factura) dto.FacturaResponse {
	r := dto.FacturaResponse{
		ID:               f.ID,
		NumeroFactura:    f.NumeroFactura,
		FechaFactura:     f.FechaFactura,
		PedidoID:         f.PedidoID,
		TipoPedido:       f.TipoPedido,
		NumeroMesaCodigo: f.NumeroMesaCodigo,
		NombreCliente:    f.NombreCliente,
		TelefonoCliente:  f.TelefonoCliente,
		DireccionEntrega: f.DireccionEntrega,
		MetodoPago:       f.MetodoPago,
		Estado:           f.Estado,
		Subtotal:         f.Subtotal,
		IVA:              f.IVA,
		Envio:            f.Envio,
		Descuento:        f.Descuento,
		Total:            f.Total,
		Items:            f.Items,
		Impresa:          f.Impresa,
		FechaImpresion:   f.FechaImpresion,
		MotivoAnulacion:  f.MotivoAnulacion,
		FechaDevolucion:  f.FechaDevolucion,
	}
	if r.Items == nil {
		r.Items = items.List{}
	}
	if f.PDFPath != "" {
		url := fmt.Sprintf("/v1/facturas/%d/pdf", f.ID)
		r.PDFUrl = &url
	}
	return r
}

func devolucionResponse(d *model.Devolucion) dto.DevolucionResponse {
	return dto.DevolucionResponse{
		ID:                 d.ID,
		FacturaID:          d.FacturaID,
		TipoDevolucion:     d.TipoDevolucion,
		ProductosDevueltos: d.ProductosDevueltos,
		MontoDevuelto:      d.MontoDevuelto,
		Motivo:             d.Motivo,
		CreatedAt:          d.CreatedAt,
	}
}

func resultadoDevolucionResponse(res *service.ResultadoDevolucion) dto.ResultadoDevolucionResponse {
	return dto.ResultadoDevolucionResponse{
		Devolucion:    devolucionResponse(res.Devolucion),
		EstadoFactura: res.Factura.Estado,
		Advertencias:  advertenciasResponse(res.Advertencias),
	}
}

func disponiblesResponse(ds []items.Disponibilidad) []dto.DisponibleDevolucionResponse {
	out := make([]dto.DisponibleDevolucionResponse, 0, len(ds))
	for _, d := range ds {
		out = append(out, dto.DisponibleDevolucionResponse{
			Nombre:         d.Item.Nombre,
			Codigo:         d.Item.Codigo,
			Categoria:      d.Item.Categoria,
			PrecioUnitario: d.Item.PrecioUnitario,
			Original:       d.Original,
			Devuelta:       d.Devuelta,
			Disponible:     d.Disponible,
		})
	}
	return out
}

func productoResponse(p *model.Producto) dto.ProductoResponse {
	return dto.ProductoResponse{
		ID:           p.ID,
		Codigo:       p.Codigo,
		Nombre:       p.Nombre,
		Categoria:    p.Categoria,
		Cantidad:     p.Cantidad,
		Reservado:    p.Reservado,
		PrecioCompra: p.PrecioCompra,
		Subtotal:     p.Subtotal,
		UnidadMedida: p.UnidadMedida,
		EstadoStock:  p.EstadoStock(),
	}
}

func productosResponse(ps []model.Producto) []dto.ProductoResponse {
	out := make([]dto.ProductoResponse, 0, len(ps))
	for i := range ps {
		out = append(out, productoResponse(&ps[i]))
	}
	return out
}

func movimientoResponse(m *model.MovimientoStock) dto.MovimientoStockResponse {
	r := dto.MovimientoStockResponse{
		ID:            m.ID,
		ProductoID:    m.ProductoID,
		Tipo:          m.Tipo,
		Campo:         m.Campo,
		Cantidad:      m.Cantidad,
		StockAnterior: m.StockAnterior,
		StockNuevo:    m.StockNuevo,
		Motivo:        m.Motivo,
		PedidoID:      m.PedidoID,
		FacturaID:     m.FacturaID,
		CreatedAt:     m.CreatedAt,
	}
	if m.Producto != nil {
		r.Producto = m.Producto.Nombre
	}
	return r
}

func platoResponse(p *model.Plato) dto.PlatoResponse {
	return dto.PlatoResponse{
		ID:        p.ID,
		Codigo:    p.Codigo,
		Nombre:    p.Nombre,
		Categoria: p.Categoria,
		Precio:    p.Precio,
		Activo:    p.Activo,
	}
}

func mesaResponse(m *model.Mesa) dto.MesaResponse {
	return dto.MesaResponse{
		ID:        m.ID,
		Numero:    m.Numero,
		Display:   m.NumeroDisplay(),
		Capacidad: m.Capacidad,
		Estado:    m.Estado,
	}
}

func codigoResponse(d *model.DeliveryConfig) dto.CodigoDeliveryResponse {
	return dto.CodigoDeliveryResponse{ID: d.ID, Tipo: d.Tipo, Codigo: d.Codigo, Estado: d.Estado}
}
