package models

import (
	"time"

	"gorm.io/gorm"
)

// Empleado is a staff member: therapist, receptionist and so on.
type Empleado struct {
	EmpleadoID       int    `gorm:"primaryKey" json:"empleadoId"`
	NombreEmpleado   string `gorm:"size:50;not null" json:"nombreEmpleado"`
	ApellidoEmpleado string `gorm:"size:50;not null" json:"apellidoEmpleado"`
	TelefonoEmpleado string `gorm:"size:13;not null" json:"telefonoEmpleado"`
	Cargo            string `gorm:"size:100;not null" json:"cargo"`
	Activo           bool   `json:"activo"`
}

func (Empleado) TableName() string { return "empleados" }

func (*Empleado) Resource() string { return "Empleado" }
func (e *Empleado) Key() int       { return e.EmpleadoID }
func (e *Empleado) SetKey(id int)  { e.EmpleadoID = id }

func (e *Empleado) Validate() error {
	return firstError(
		required("nombreEmpleado", e.NombreEmpleado),
		maxLen("nombreEmpleado", e.NombreEmpleado, 50),
		required("apellidoEmpleado", e.ApellidoEmpleado),
		maxLen("apellidoEmpleado", e.ApellidoEmpleado, 50),
		required("telefonoEmpleado", e.TelefonoEmpleado),
		maxLen("telefonoEmpleado", e.TelefonoEmpleado, 13),
		required("cargo", e.Cargo),
		maxLen("cargo", e.Cargo, 100),
	)
}

// Rol groups the permissions of system users.
type Rol struct {
	RolID     int    `gorm:"primaryKey" json:"rolId"`
	NombreRol string `gorm:"size:50;not null" json:"nombreRol"`
}

func (Rol) TableName() string { return "roles" }

func (*Rol) Resource() string { return "Rol" }
func (r *Rol) Key() int       { return r.RolID }
func (r *Rol) SetKey(id int)  { r.RolID = id }

func (r *Rol) Validate() error {
	return firstError(
		required("nombreRol", r.NombreRol),
		maxLen("nombreRol", r.NombreRol, 50),
	)
}

// Usuario is a login account, optionally linked to an employee.
type Usuario struct {
	UsuarioID     int    `gorm:"primaryKey" json:"usuarioId"`
	UsuarioNombre string `gorm:"size:50;not null" json:"usuarioNombre"`
	ClaveUsuario  string `gorm:"size:20;not null" json:"claveUsuario"`
	RolID         int    `gorm:"not null" json:"rolId"`
	Activo        bool   `json:"activo"`
	EmpleadoID    *int   `json:"empleadoId,omitempty"`
}

func (Usuario) TableName() string { return "usuarios" }

func (*Usuario) Resource() string { return "Usuario" }
func (u *Usuario) Key() int       { return u.UsuarioID }
func (u *Usuario) SetKey(id int)  { u.UsuarioID = id }

func (u *Usuario) Validate() error {
	return firstError(
		required("usuarioNombre", u.UsuarioNombre),
		maxLen("usuarioNombre", u.UsuarioNombre, 50),
		required("claveUsuario", u.ClaveUsuario),
		maxLen("claveUsuario", u.ClaveUsuario, 20),
		positive("rolId", u.RolID),
	)
}

// HistorialDelSistema is an audit entry recording an action taken by a user.
type HistorialDelSistema struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	UsuarioID int       `gorm:"not null;index" json:"usuarioId"`
	Accion    string    `gorm:"type:text;not null" json:"accion"`
	FechaHora time.Time `json:"fechaHora"`
}

func (HistorialDelSistema) TableName() string { return "historial_del_sistema" }

func (*HistorialDelSistema) Resource() string { return "HistorialDelSistema" }
func (h *HistorialDelSistema) Key() int       { return h.ID }
func (h *HistorialDelSistema) SetKey(id int)  { h.ID = id }

func (h *HistorialDelSistema) BeforeSave(tx *gorm.DB) error {
	if h.FechaHora.IsZero() {
		h.FechaHora = time.Now()
	}
	return nil
}

func (h *HistorialDelSistema) Validate() error {
	return firstError(
		positive("usuarioId", h.UsuarioID),
		required("accion", h.Accion),
	)
}
