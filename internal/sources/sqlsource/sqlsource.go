// Package sqlsource czyta sprzedaż i inwentarz z bazy transakcyjnej (gorm).
package sqlsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bartek5186/metaltronic-etl/internal/dataset"
	"github.com/bartek5186/metaltronic-etl/internal/db"
	"github.com/bartek5186/metaltronic-etl/internal/sources"
)

type Config struct {
	SalesSchema     string `json:"sales_schema"`     // np. ventas
	InventorySchema string `json:"inventory_schema"` // np. inventario
}

type SQL struct {
	log zerolog.Logger
	cfg Config
	h   *db.Handle
}

func init() {
	sources.Register("sql", New)
}

func New(log zerolog.Logger, deps sources.Deps, raw json.RawMessage) (sources.Source, error) {
	if deps.DB == nil {
		return nil, errors.New("sql: brak połączenia z bazą")
	}
	var cfg Config
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("sql: config: %w", err)
		}
	}
	return &SQL{log: log, cfg: cfg, h: deps.DB}, nil
}

func (s *SQL) Name() string { return "sql" }

func (s *SQL) Fetch(ctx context.Context, ds string, w sources.Window) (dataset.Table, error) {
	switch ds {
	case sources.Ventas:
		return s.query(ctx, s.salesQuery(), w.Start, w.End)
	case sources.Inventario:
		return s.query(ctx, s.inventoryQuery(), true)
	}
	return nil, fmt.Errorf("sql: %s: %w", ds, sources.ErrUnsupportedDataset)
}

func (s *SQL) salesQuery() string {
	sales := func(t string) string { return s.h.Table(s.cfg.SalesSchema, t) }
	return fmt.Sprintf(`
		SELECT
			t.id_transaccion,
			t.numero_factura,
			t.fecha_venta,
			c.nombre_cliente,
			c.ciudad,
			c.provincia,
			p.codigo_producto,
			p.nombre_producto,
			p.categoria,
			p.material,
			dv.cantidad,
			dv.precio_unitario,
			dv.descuento,
			dv.subtotal,
			t.total AS total_factura,
			t.metodo_pago,
			t.vendedor,
			t.sucursal
		FROM %s t
		JOIN %s c ON t.id_cliente = c.id_cliente
		JOIN %s dv ON t.id_transaccion = dv.id_transaccion
		JOIN %s p ON dv.id_producto = p.id_producto
		WHERE t.fecha_venta >= ? AND t.fecha_venta < ?
		ORDER BY t.fecha_venta, t.id_transaccion`,
		sales("transacciones"), sales("clientes"), sales("detalle_ventas"),
		s.h.Table(s.cfg.InventorySchema, "productos"))
}

func (s *SQL) inventoryQuery() string {
	return fmt.Sprintf(`
		SELECT
			id_producto,
			codigo_producto,
			nombre_producto,
			categoria,
			material,
			peso_kg,
			precio_unitario,
			stock_actual,
			stock_minimo,
			CASE
				WHEN stock_actual <= stock_minimo THEN 'BAJO'
				WHEN stock_actual <= stock_minimo * 2 THEN 'MEDIO'
				ELSE 'ALTO'
			END AS nivel_stock,
			fecha_creacion,
			activo
		FROM %s
		WHERE activo = ?
		ORDER BY categoria, codigo_producto`,
		s.h.Table(s.cfg.InventorySchema, "productos"))
}

// query skanuje wiersze do []any zamiast mapy: sterownik SQLite wybiera typ
// Go z deklaracji kolumny (decimal -> int64) i gubi ułamki przy Scan do mapy.
func (s *SQL) query(ctx context.Context, q string, args ...any) (dataset.Table, error) {
	rows, err := s.h.DB.WithContext(ctx).Raw(q, args...).Rows()
	if err != nil {
		return nil, fmt.Errorf("sql: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("sql: columns: %w", err)
	}
	out := dataset.Table{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("sql: scan: %w", err)
		}
		r := make(dataset.Row, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				r[c] = string(b)
				continue
			}
			r[c] = vals[i]
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sql: %w", err)
	}
	s.log.Debug().Int("rows", len(out)).Msg("sql: pobrano")
	return out, nil
}
