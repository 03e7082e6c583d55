package models

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityKeys(t *testing.T) {
	for _, m := range All() {
		e, ok := m.(Entity)
		require.True(t, ok, "%T does not implement Entity", m)
		assert.NotEmpty(t, e.Resource())

		e.SetKey(42)
		assert.Equal(t, 42, e.Key(), "%T", m)

		_, ok = m.(Validator)
		assert.True(t, ok, "%T does not implement Validator", m)
	}
}

func TestValidate(t *testing.T) {
	correo := "juan@email.com"
	long := strings.Repeat("x", 51)
	manana := time.Now().Add(24 * time.Hour)

	tests := []struct {
		name  string
		model Validator
		field string // empty means valid
	}{
		{
			name:  "cliente valid",
			model: &Cliente{NombreCliente: "Juan", ApellidoCliente: "Pérez", TelefonoCliente: "8095550001", CorreoCliente: &correo},
		},
		{
			name:  "cliente without name",
			model: &Cliente{ApellidoCliente: "Pérez", TelefonoCliente: "8095550001"},
			field: "nombreCliente",
		},
		{
			name:  "cliente name too long",
			model: &Cliente{NombreCliente: long, ApellidoCliente: "Pérez", TelefonoCliente: "8095550001"},
			field: "nombreCliente",
		},
		{
			name:  "cliente phone too long",
			model: &Cliente{NombreCliente: "Juan", ApellidoCliente: "Pérez", TelefonoCliente: "80955500011234"},
			field: "telefonoCliente",
		},
		{
			name:  "cita valid",
			model: &Cita{ClienteID: 1, ServicioID: 2, FechaHoraCita: manana},
		},
		{
			name:  "cita without date",
			model: &Cita{ClienteID: 1, ServicioID: 2},
			field: "fechaHoraCita",
		},
		{
			name:  "cita unknown state",
			model: &Cita{ClienteID: 1, ServicioID: 2, FechaHoraCita: manana, Estado: "Perdida"},
			field: "estado",
		},
		{
			name:  "cita without cliente",
			model: &Cita{ServicioID: 2, FechaHoraCita: manana},
			field: "clienteId",
		},
		{
			name: "factura with lines",
			model: &Factura{ClienteID: 1, TipoPago: "Efectivo", Total: 1500, Detalles: []FacturaDetalle{
				{Tipo: TipoServicio, NombreItem: "Masaje relajante", PrecioUnitario: 1500, Cantidad: 1, Subtotal: 1500},
			}},
		},
		{
			name: "factura with bad line",
			model: &Factura{ClienteID: 1, TipoPago: "Efectivo", Detalles: []FacturaDetalle{
				{Tipo: "Regalo", NombreItem: "Vale"},
			}},
			field: "tipo",
		},
		{
			name:  "factura negative total",
			model: &Factura{ClienteID: 1, TipoPago: "Tarjeta", Total: -1},
			field: "total",
		},
		{
			name:  "standalone line needs its factura",
			model: &FacturaDetalle{Tipo: TipoProducto, NombreItem: "Aceite", Cantidad: 1},
			field: "facturaId",
		},
		{
			name:  "cuenta valid",
			model: &CuentaPorCobrar{FacturaID: 3, MontoPendiente: 200},
		},
		{
			name:  "cuenta without factura",
			model: &CuentaPorCobrar{MontoPendiente: 200},
			field: "facturaId",
		},
		{
			name:  "rol without name",
			model: &Rol{},
			field: "nombreRol",
		},
		{
			name:  "usuario valid",
			model: &Usuario{UsuarioNombre: "recepcion", ClaveUsuario: "secreto", RolID: 1},
		},
		{
			name:  "historial without accion",
			model: &HistorialDelSistema{UsuarioID: 1},
			field: "accion",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.model.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestEstadoCita(t *testing.T) {
	assert.True(t, EstadoReservada.Valid())
	assert.True(t, EstadoCancelada.Valid())
	assert.True(t, EstadoRealizada.Valid())
	assert.False(t, EstadoCita("reservada").Valid())
}
