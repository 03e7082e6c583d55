// Package models defines the business entities the gateway stores locally and
// mirrors to the Core system of record.
//
// Every entity is identified by an integer key and maps to a Core resource
// name. The same key is used on both sides: a Cliente with id 7 is stored in
// the local clientes table and addressed remotely as "Cliente/7".
package models

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Entity is implemented by every model the dual-write gateway can manage.
type Entity interface {
	// Resource returns the Core resource name, e.g. "Cliente".
	Resource() string
	Key() int
	SetKey(id int)
}

// Validator is implemented by entities that check their own field constraints
// before any write reaches the local store.
type Validator interface {
	Validate() error
}

// ValidationError reports a single field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Reason: "is required"}
	}
	return nil
}

func maxLen(field, value string, n int) error {
	if utf8.RuneCountInString(value) > n {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must be at most %d characters", n)}
	}
	return nil
}

func positive(field string, value int) error {
	if value <= 0 {
		return &ValidationError{Field: field, Reason: "must be a positive id"}
	}
	return nil
}

func nonNegative(field string, value float64) error {
	if value < 0 {
		return &ValidationError{Field: field, Reason: "must not be negative"}
	}
	return nil
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// All returns one zero value of every entity, in dependency order, for schema
// migration.
func All() []any {
	return []any{
		&Rol{},
		&Empleado{},
		&Usuario{},
		&Cliente{},
		&Servicio{},
		&Producto{},
		&Cita{},
		&Factura{},
		&FacturaDetalle{},
		&CuentaPorCobrar{},
		&HistorialDelSistema{},
	}
}
