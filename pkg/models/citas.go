package models

import (
	"time"

	"gorm.io/gorm"
)

// EstadoCita is the lifecycle state of an appointment.
type EstadoCita string

const (
	EstadoReservada EstadoCita = "Reservada"
	EstadoCancelada EstadoCita = "Cancelada"
	EstadoRealizada EstadoCita = "Realizada"
)

// Valid reports whether e is one of the known states.
func (e EstadoCita) Valid() bool {
	switch e {
	case EstadoReservada, EstadoCancelada, EstadoRealizada:
		return true
	}
	return false
}

// Cita is an appointment of a customer for a service, optionally with an
// assigned employee.
type Cita struct {
	CitaID             int        `gorm:"primaryKey" json:"citaId"`
	ClienteID          int        `gorm:"not null;index" json:"clienteId"`
	ServicioID         int        `gorm:"not null" json:"servicioId"`
	EmpleadoID         *int       `json:"empleadoId,omitempty"`
	FechaHoraCita      time.Time  `gorm:"not null" json:"fechaHoraCita"`
	FechaHoraIngresado time.Time  `gorm:"not null" json:"fechaHoraIngresado"`
	Estado             EstadoCita `gorm:"size:9;not null" json:"estado"`
	Observaciones      *string    `gorm:"size:300" json:"observaciones,omitempty"`
}

func (Cita) TableName() string { return "citas" }

func (*Cita) Resource() string { return "Cita" }
func (c *Cita) Key() int       { return c.CitaID }
func (c *Cita) SetKey(id int)  { c.CitaID = id }

// BeforeSave fills the intake timestamp and the default state.
func (c *Cita) BeforeSave(tx *gorm.DB) error {
	if c.FechaHoraIngresado.IsZero() {
		c.FechaHoraIngresado = time.Now()
	}
	if c.Estado == "" {
		c.Estado = EstadoReservada
	}
	return nil
}

func (c *Cita) Validate() error {
	if c.Estado != "" && !c.Estado.Valid() {
		return &ValidationError{Field: "estado", Reason: "must be Reservada, Cancelada or Realizada"}
	}
	if c.FechaHoraCita.IsZero() {
		return &ValidationError{Field: "fechaHoraCita", Reason: "is required"}
	}
	obs := ""
	if c.Observaciones != nil {
		obs = *c.Observaciones
	}
	return firstError(
		positive("clienteId", c.ClienteID),
		positive("servicioId", c.ServicioID),
		maxLen("observaciones", obs, 300),
	)
}
