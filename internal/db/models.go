// internal/db/models.go
package db

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	TableResumenVentasDiario = "resumen_ventas_diario"
	TableAnalisisInventario  = "analisis_inventario"
	TableRuns                = "etl_runs"
)

// analytics.resumen_ventas_diario
type ResumenVentasDiario struct {
	ID                  uint            `gorm:"primaryKey"`
	FechaResumen        time.Time       `gorm:"type:date;index"`
	TotalVentas         decimal.Decimal `gorm:"type:decimal(12,2)"`
	TotalTransacciones  int
	ProductosVendidos   decimal.Decimal `gorm:"type:decimal(12,2)"`
	ClientesUnicos      int
	ClienteMasFrecuente *string         `gorm:"size:200"`
	CategoriaMasVendida *string         `gorm:"size:50"`
	VendedorTop         *string         `gorm:"size:100"`
	PromedioTicket      decimal.Decimal `gorm:"type:decimal(12,2)"`
	FechaProcesamiento  time.Time
}

// analytics.analisis_inventario (snapshot, truncate + insert)
type AnalisisInventario struct {
	CodigoProducto     string  `gorm:"primaryKey;size:20"`
	NombreProducto     *string `gorm:"size:200"`
	Categoria          *string `gorm:"size:50"`
	StockActual        *int64
	CantidadVendida    int64
	IngresosProducto   decimal.Decimal `gorm:"type:decimal(12,2)"`
	RotacionInventario decimal.Decimal `gorm:"type:decimal(8,4)"`
	DiasStock          decimal.Decimal `gorm:"type:decimal(8,2)"`
	Performance        string          `gorm:"size:20"`
	FechaActualizacion time.Time
}

// analytics.etl_runs – jeden wiersz na przebieg pipeline'u
type Run struct {
	RunID      string            `gorm:"primaryKey;size:36"`
	Fecha      string            `gorm:"size:10;index"`
	Status     int               `gorm:"index"` // 0=running, 1=done, 2=error
	Stage      string            `gorm:"size:30"`
	Attempt    int               `gorm:"not null;default:1"`
	LastError  string            `gorm:"type:text"`
	Stats      datatypes.JSONMap // wiersze per zbiór, wynik walidacji
	StartedAt  time.Time         `gorm:"autoCreateTime"`
	FinishedAt *time.Time
}

const (
	RunRunning = 0
	RunDone    = 1
	RunError   = 2
)

// Tabele źródłowe (ventas.*, inventario.*). Produkcyjnie istnieją już
// w bazie transakcyjnej; tu służą do lokalnego seeda i testów.

type Cliente struct {
	IDCliente     int64  `gorm:"primaryKey;column:id_cliente"`
	NombreCliente string `gorm:"size:200"`
	Ciudad        string `gorm:"size:100"`
	Provincia     string `gorm:"size:100"`
}

type Transaccion struct {
	IDTransaccion int64           `gorm:"primaryKey;column:id_transaccion"`
	NumeroFactura *string         `gorm:"size:30"`
	FechaVenta    time.Time       `gorm:"index"`
	IDCliente     int64           `gorm:"column:id_cliente"`
	Total         decimal.Decimal `gorm:"type:decimal(12,2)"`
	MetodoPago    string          `gorm:"size:30"`
	Vendedor      string          `gorm:"size:100"`
	Sucursal      string          `gorm:"size:100"`
}

type DetalleVenta struct {
	IDDetalle      int64           `gorm:"primaryKey;column:id_detalle"`
	IDTransaccion  int64           `gorm:"index;column:id_transaccion"`
	IDProducto     int64           `gorm:"column:id_producto"`
	Cantidad       decimal.Decimal `gorm:"type:decimal(12,2)"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(12,2)"`
	Descuento      decimal.Decimal `gorm:"type:decimal(5,2)"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2)"`
}

type Producto struct {
	IDProducto     int64           `gorm:"primaryKey;column:id_producto"`
	CodigoProducto string          `gorm:"size:20;uniqueIndex"`
	NombreProducto string          `gorm:"size:200"`
	Categoria      string          `gorm:"size:50"`
	Material       string          `gorm:"size:50"`
	PesoKg         decimal.Decimal `gorm:"type:decimal(8,2)"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(12,2)"`
	StockActual    int64
	StockMinimo    int64
	FechaCreacion  time.Time
	Activo         bool
}
