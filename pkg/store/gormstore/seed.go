package gormstore

import (
	"context"
	"fmt"
	"time"

	"github.com/sistemamasajes/integracion/pkg/models"
	"gorm.io/gorm"
)

func seedClientes(now time.Time) []models.Cliente {
	juan := "juan@email.com"
	maria := "maria@email.com"
	return []models.Cliente{
		{
			ID:              1,
			NombreCliente:   "Juan Pérez",
			ApellidoCliente: "Pérez",
			TelefonoCliente: "8095550001",
			CorreoCliente:   &juan,
			FechaRegistro:   now,
		},
		{
			ID:              2,
			NombreCliente:   "María",
			ApellidoCliente: "García",
			TelefonoCliente: "8095550002",
			CorreoCliente:   &maria,
			FechaRegistro:   now,
		},
	}
}

// Seed inserts the demo customers that are missing. Existing rows are left
// untouched, so Seed can run after every migration.
func (d *DB) Seed(ctx context.Context) (int, error) {
	inserted := 0
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, c := range seedClientes(time.Now()) {
			var count int64
			if err := tx.Model(&models.Cliente{}).Where("id = ?", c.ID).Count(&count).Error; err != nil {
				return fmt.Errorf("seed cliente %d: %w", c.ID, err)
			}
			if count > 0 {
				continue
			}
			if err := tx.Create(&c).Error; err != nil {
				return fmt.Errorf("seed cliente %d: %w", c.ID, err)
			}
			inserted++
		}
		if d.driver == DriverPostgres && inserted > 0 {
			// Explicit keys do not advance the serial sequence.
			return tx.Exec("SELECT setval(pg_get_serial_sequence('clientes', 'id'), (SELECT MAX(id) FROM clientes))").Error
		}
		return nil
	})
	return inserted, err
}
