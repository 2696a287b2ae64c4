package db

import (
	"fmt"
)

// Source tables: nazwa tabeli -> model.
var (
	SalesTables = map[string]any{
		"clientes":       &Cliente{},
		"transacciones":  &Transaccion{},
		"detalle_ventas": &DetalleVenta{},
	}
	InventoryTables = map[string]any{
		"productos": &Producto{},
	}
)

// Migrate tworzy/aktualizuje schemat analityczny.
// Kolejność:
//  1. postgres: CREATE SCHEMA IF NOT EXISTS
//  2. AutoMigrate tabel wynikowych (z prefiksem schematu)
func (h *Handle) Migrate(analyticsSchema string) error {
	if err := h.ensureSchema(analyticsSchema); err != nil {
		return err
	}
	for name, model := range map[string]any{
		TableResumenVentasDiario: &ResumenVentasDiario{},
		TableAnalisisInventario:  &AnalisisInventario{},
		TableRuns:                &Run{},
	} {
		if err := h.DB.Table(h.Table(analyticsSchema, name)).AutoMigrate(model); err != nil {
			return fmt.Errorf("AutoMigrate %s: %w", name, err)
		}
	}
	return nil
}

// MigrateSources – tabele źródłowe, tylko dev/testy (seed).
func (h *Handle) MigrateSources(salesSchema, inventorySchema string) error {
	groups := []struct {
		schema string
		tables map[string]any
	}{
		{salesSchema, SalesTables},
		{inventorySchema, InventoryTables},
	}
	for _, g := range groups {
		if err := h.ensureSchema(g.schema); err != nil {
			return err
		}
		for name, model := range g.tables {
			if err := h.DB.Table(h.Table(g.schema, name)).AutoMigrate(model); err != nil {
				return fmt.Errorf("AutoMigrate %s: %w", name, err)
			}
		}
	}
	return nil
}

func (h *Handle) ensureSchema(schema string) error {
	if schema == "" || h.Dialect != "postgres" {
		return nil
	}
	if err := h.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %q`, schema)).Error; err != nil {
		return fmt.Errorf("create schema %s: %w", schema, err)
	}
	return nil
}
