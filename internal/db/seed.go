package db

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SeedDemo wypełnia tabele źródłowe małym zestawem danych na dzień day
// (plus jedna transakcja dnia następnego i jeden nieaktywny produkt).
// Tylko dev/testy; istniejące wiersze źródłowe są usuwane.
func (h *Handle) SeedDemo(salesSchema, inventorySchema string, day time.Time) error {
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	at := func(hour, minute int) time.Time { return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute) }
	dec := decimal.NewFromFloat
	factura := func(s string) *string { return &s }

	clientes := []Cliente{
		{IDCliente: 1, NombreCliente: "Constructora Andina", Ciudad: "Quito", Provincia: "Pichincha"},
		{IDCliente: 2, NombreCliente: "Metales del Sur", Ciudad: "Cuenca", Provincia: "Azuay"},
		{IDCliente: 3, NombreCliente: "Taller Ruiz", Ciudad: "Guayaquil", Provincia: "Guayas"},
	}
	productos := []Producto{
		{IDProducto: 1, CodigoProducto: "MT-001", NombreProducto: "Perfil de acero 40x40", Categoria: "Perfiles", Material: "Acero",
			PesoKg: dec(12.5), PrecioUnitario: dec(30), StockActual: 10, StockMinimo: 5, FechaCreacion: day.AddDate(-1, 0, 0), Activo: true},
		{IDProducto: 2, CodigoProducto: "MT-002", NombreProducto: "Lámina galvanizada", Categoria: "Laminas", Material: "Acero galvanizado",
			PesoKg: dec(20), PrecioUnitario: dec(150), StockActual: 3, StockMinimo: 5, FechaCreacion: day.AddDate(-1, 0, 0), Activo: true},
		{IDProducto: 3, CodigoProducto: "MT-003", NombreProducto: "Tubo descontinuado", Categoria: "Tubos", Material: "Hierro",
			PesoKg: dec(8), PrecioUnitario: dec(25), StockActual: 40, StockMinimo: 5, FechaCreacion: day.AddDate(-2, 0, 0), Activo: false},
		{IDProducto: 4, CodigoProducto: "MT-004", NombreProducto: "Tornillo autoperforante", Categoria: "Tornilleria", Material: "Acero",
			PesoKg: dec(0.01), PrecioUnitario: dec(0.5), StockActual: 100, StockMinimo: 10, FechaCreacion: day.AddDate(0, -6, 0), Activo: true},
	}
	transacciones := []Transaccion{
		{IDTransaccion: 1, NumeroFactura: factura("F-0001"), FechaVenta: at(9, 15), IDCliente: 1, Total: dec(150), MetodoPago: "Efectivo", Vendedor: "Ana Torres", Sucursal: "Quito Norte"},
		{IDTransaccion: 2, NumeroFactura: factura("F-0002"), FechaVenta: at(14, 30), IDCliente: 2, Total: dec(450), MetodoPago: "Transferencia", Vendedor: "Luis Paredes", Sucursal: "Cuenca"},
		{IDTransaccion: 3, NumeroFactura: nil, FechaVenta: at(16, 0), IDCliente: 3, Total: dec(80), MetodoPago: "Efectivo", Vendedor: "Ana Torres", Sucursal: "Quito Norte"},
		{IDTransaccion: 4, NumeroFactura: factura("F-0004"), FechaVenta: at(34, 0), IDCliente: 1, Total: dec(1200), MetodoPago: "Cheque", Vendedor: "Luis Paredes", Sucursal: "Cuenca"},
	}
	detalle := []DetalleVenta{
		{IDDetalle: 1, IDTransaccion: 1, IDProducto: 1, Cantidad: dec(5), PrecioUnitario: dec(30), Descuento: dec(0), Subtotal: dec(150)},
		{IDDetalle: 2, IDTransaccion: 2, IDProducto: 2, Cantidad: dec(3), PrecioUnitario: dec(150), Descuento: dec(0), Subtotal: dec(450)},
		{IDDetalle: 3, IDTransaccion: 3, IDProducto: 1, Cantidad: dec(2), PrecioUnitario: dec(40), Descuento: dec(0), Subtotal: dec(80)},
		{IDDetalle: 4, IDTransaccion: 4, IDProducto: 4, Cantidad: dec(2400), PrecioUnitario: dec(0.5), Descuento: dec(0), Subtotal: dec(1200)},
	}

	return h.DB.Transaction(func(tx *gorm.DB) error {
		steps := []struct {
			table string
			rows  any
		}{
			{h.Table(salesSchema, "detalle_ventas"), &detalle},
			{h.Table(salesSchema, "transacciones"), &transacciones},
			{h.Table(salesSchema, "clientes"), &clientes},
			{h.Table(inventorySchema, "productos"), &productos},
		}
		// najpierw czyścimy wszystko, potem wstawiamy
		for _, s := range steps {
			if err := tx.Table(s.table).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(modelFor(s.rows)).Error; err != nil {
				return fmt.Errorf("seed: clear %s: %w", s.table, err)
			}
		}
		for _, s := range steps {
			if err := tx.Table(s.table).Create(s.rows).Error; err != nil {
				return fmt.Errorf("seed: insert %s: %w", s.table, err)
			}
		}
		return nil
	})
}

func modelFor(rows any) any {
	switch rows.(type) {
	case *[]DetalleVenta:
		return &DetalleVenta{}
	case *[]Transaccion:
		return &Transaccion{}
	case *[]Cliente:
		return &Cliente{}
	}
	return &Producto{}
}
