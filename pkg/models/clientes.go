package models

import (
	"time"

	"gorm.io/gorm"
)

// Cliente is a customer of the spa.
type Cliente struct {
	ID              int       `gorm:"primaryKey" json:"id"`
	NombreCliente   string    `gorm:"size:50;not null" json:"nombreCliente"`
	ApellidoCliente string    `gorm:"size:50;not null" json:"apellidoCliente"`
	TelefonoCliente string    `gorm:"size:13;not null" json:"telefonoCliente"`
	CorreoCliente   *string   `gorm:"size:150;uniqueIndex" json:"correoCliente,omitempty"`
	FechaRegistro   time.Time `json:"fechaRegistro"`
}

func (Cliente) TableName() string { return "clientes" }

func (*Cliente) Resource() string { return "Cliente" }
func (c *Cliente) Key() int       { return c.ID }
func (c *Cliente) SetKey(id int)  { c.ID = id }

// BeforeSave stamps the registration date when the caller left it empty.
func (c *Cliente) BeforeSave(tx *gorm.DB) error {
	if c.FechaRegistro.IsZero() {
		c.FechaRegistro = time.Now()
	}
	return nil
}

func (c *Cliente) Validate() error {
	correo := ""
	if c.CorreoCliente != nil {
		correo = *c.CorreoCliente
	}
	return firstError(
		required("nombreCliente", c.NombreCliente),
		maxLen("nombreCliente", c.NombreCliente, 50),
		required("apellidoCliente", c.ApellidoCliente),
		maxLen("apellidoCliente", c.ApellidoCliente, 50),
		required("telefonoCliente", c.TelefonoCliente),
		maxLen("telefonoCliente", c.TelefonoCliente, 13),
		maxLen("correoCliente", correo, 150),
	)
}
