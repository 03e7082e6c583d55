package models

import (
	"time"

	"gorm.io/gorm"
)

// TipoItem distinguishes invoice lines billed for a service from those billed
// for a product.
type TipoItem string

const (
	TipoServicio TipoItem = "Servicio"
	TipoProducto TipoItem = "Producto"
)

// Factura is an invoice. Its lines are created together with it.
type Factura struct {
	FacturaID int              `gorm:"primaryKey" json:"facturaId"`
	ClienteID int              `gorm:"not null;index" json:"clienteId"`
	Fecha     time.Time        `json:"fecha"`
	Total     float64          `gorm:"type:decimal(10,2)" json:"total"`
	TipoPago  string           `gorm:"size:13;not null" json:"tipoPago"`
	Detalles  []FacturaDetalle `gorm:"foreignKey:FacturaID;constraint:OnDelete:CASCADE" json:"detalles"`
}

func (Factura) TableName() string { return "facturas" }

func (*Factura) Resource() string { return "Factura" }
func (f *Factura) Key() int       { return f.FacturaID }
func (f *Factura) SetKey(id int)  { f.FacturaID = id }

func (f *Factura) BeforeSave(tx *gorm.DB) error {
	if f.Fecha.IsZero() {
		f.Fecha = time.Now()
	}
	return nil
}

func (f *Factura) Validate() error {
	if err := firstError(
		positive("clienteId", f.ClienteID),
		nonNegative("total", f.Total),
		required("tipoPago", f.TipoPago),
		maxLen("tipoPago", f.TipoPago, 13),
	); err != nil {
		return err
	}
	for i := range f.Detalles {
		if err := f.Detalles[i].validateLine(); err != nil {
			return err
		}
	}
	return nil
}

// FacturaDetalle is one line of an invoice.
type FacturaDetalle struct {
	ID             int      `gorm:"primaryKey" json:"id"`
	FacturaID      int      `gorm:"not null;index" json:"facturaId"`
	Tipo           TipoItem `gorm:"size:8;not null" json:"tipo"`
	NombreItem     string   `gorm:"size:100;not null" json:"nombreItem"`
	PrecioUnitario float64  `gorm:"type:decimal(10,2)" json:"precioUnitario"`
	Cantidad       int      `json:"cantidad"`
	Subtotal       float64  `gorm:"type:decimal(10,2)" json:"subtotal"`
}

func (FacturaDetalle) TableName() string { return "factura_detalles" }

func (*FacturaDetalle) Resource() string { return "FacturaDetalle" }
func (d *FacturaDetalle) Key() int       { return d.ID }
func (d *FacturaDetalle) SetKey(id int)  { d.ID = id }

// Validate checks a line submitted on its own, which must name its invoice.
func (d *FacturaDetalle) Validate() error {
	if err := positive("facturaId", d.FacturaID); err != nil {
		return err
	}
	return d.validateLine()
}

// validateLine skips the invoice id, which is assigned on insert when the line
// travels inside its Factura.
func (d *FacturaDetalle) validateLine() error {
	if d.Tipo != TipoServicio && d.Tipo != TipoProducto {
		return &ValidationError{Field: "tipo", Reason: "must be Servicio or Producto"}
	}
	if d.Cantidad < 0 {
		return &ValidationError{Field: "cantidad", Reason: "must not be negative"}
	}
	return firstError(
		required("nombreItem", d.NombreItem),
		maxLen("nombreItem", d.NombreItem, 100),
		nonNegative("precioUnitario", d.PrecioUnitario),
		nonNegative("subtotal", d.Subtotal),
	)
}

// CuentaPorCobrar is an outstanding balance attached to an invoice.
type CuentaPorCobrar struct {
	ID             int     `gorm:"primaryKey" json:"id"`
	FacturaID      int     `gorm:"not null;index" json:"facturaId"`
	MontoPendiente float64 `gorm:"type:decimal(10,2)" json:"montoPendiente"`
	Pagado         bool    `gorm:"not null;index" json:"pagado"`
}

func (CuentaPorCobrar) TableName() string { return "cuentas_por_cobrar" }

func (*CuentaPorCobrar) Resource() string { return "CuentaPorCobrar" }
func (c *CuentaPorCobrar) Key() int       { return c.ID }
func (c *CuentaPorCobrar) SetKey(id int)  { c.ID = id }

func (c *CuentaPorCobrar) Validate() error {
	return firstError(
		positive("facturaId", c.FacturaID),
		nonNegative("montoPendiente", c.MontoPendiente),
	)
}
