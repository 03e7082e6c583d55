package integracion

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sistemamasajes/integracion/pkg/dualwrite"
	"github.com/sistemamasajes/integracion/pkg/models"
	"github.com/sistemamasajes/integracion/pkg/outbox"
	"github.com/sistemamasajes/integracion/pkg/store"
	"github.com/sistemamasajes/integracion/pkg/syncqueue"
	"github.com/sistemamasajes/integracion/pkg/syncworker"
)

// DataSourceHeader tells the client which store answered a read.
const DataSourceHeader = "X-Data-Source"

// WriteResponse is the body of every successful write.
type WriteResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
	// Synced is false when Core did not take the write and it was queued.
	Synced bool   `json:"synced"`
	TaskID string `json:"taskId,omitempty"`
}

// entityHandlers serves the generic routes of one entity type.
type entityHandlers[T any, P dualwrite.Record[T]] struct {
	gw *dualwrite.Gateway[T, P]
}

func (h *entityHandlers[T, P]) list(w http.ResponseWriter, r *http.Request) {
	items, source, err := h.gw.List(r.Context())
	if err != nil {
		respondFailure(w, r, err)
		return
	}
	w.Header().Set(DataSourceHeader, string(source))
	respondJSON(w, http.StatusOK, items)
}

func (h *entityHandlers[T, P]) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	item, source, err := h.gw.Get(r.Context(), id)
	if err != nil {
		respondFailure(w, r, err)
		return
	}
	w.Header().Set(DataSourceHeader, string(source))
	respondJSON(w, http.StatusOK, item)
}

func (h *entityHandlers[T, P]) listLocal(w http.ResponseWriter, r *http.Request) {
	items, err := h.gw.ListLocal(r.Context())
	if err != nil {
		respondFailure(w, r, err)
		return
	}
	w.Header().Set(DataSourceHeader, string(dualwrite.SourceLocal))
	respondJSON(w, http.StatusOK, items)
}

func (h *entityHandlers[T, P]) getLocal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	item, err := h.gw.GetLocal(r.Context(), id)
	if err != nil {
		respondFailure(w, r, err)
		return
	}
	w.Header().Set(DataSourceHeader, string(dualwrite.SourceLocal))
	respondJSON(w, http.StatusOK, item)
}

func (h *entityHandlers[T, P]) create(w http.ResponseWriter, r *http.Request) {
	entity := new(T)
	if !decodeBody(w, r, entity) {
		return
	}
	res, err := h.gw.Create(r.Context(), entity)
	if err != nil {
		respondFailure(w, r, err)
		return
	}
	respondWrite(w, h.gw.Resource(), "created", res)
}

func (h *entityHandlers[T, P]) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	entity := new(T)
	if !decodeBody(w, r, entity) {
		return
	}
	res, err := h.gw.Update(r.Context(), id, entity)
	if err != nil {
		respondFailure(w, r, err)
		return
	}
	respondWrite(w, h.gw.Resource(), "updated", res)
}

func (h *entityHandlers[T, P]) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	res, err := h.gw.Delete(r.Context(), id)
	if err != nil {
		respondFailure(w, r, err)
		return
	}
	respondWrite(w, h.gw.Resource(), "deleted", res)
}

// handleCitasPorCliente lists the local appointments of one customer.
func (a *App) handleCitasPorCliente(w http.ResponseWriter, r *http.Request) {
	clienteID, ok := pathID(w, r, "clienteId")
	if !ok {
		return
	}
	citas, err := a.citas.FindLocal(r.Context(), store.Filter{"cliente_id": clienteID})
	if err != nil {
		respondFailure(w, r, err)
		return
	}
	w.Header().Set(DataSourceHeader, string(dualwrite.SourceLocal))
	respondJSON(w, http.StatusOK, citas)
}

// handleCuentasPorEstado lists local receivables by state: pagado or
// pendiente, in any case.
func (a *App) handleCuentasPorEstado(w http.ResponseWriter, r *http.Request) {
	var pagado bool
	switch strings.ToLower(mux.Vars(r)["estado"]) {
	case "pagado":
		pagado = true
	case "pendiente":
	default:
		respondError(w, http.StatusBadRequest, "invalid estado, use 'pagado' or 'pendiente'")
		return
	}
	cuentas, err := a.cuentas.FindLocal(r.Context(), store.Filter{"pagado": pagado})
	if err != nil {
		respondFailure(w, r, err)
		return
	}
	w.Header().Set(DataSourceHeader, string(dualwrite.SourceLocal))
	respondJSON(w, http.StatusOK, cuentas)
}

// handleEmpleadosPorCargo lists local employees with exactly that cargo.
func (a *App) handleEmpleadosPorCargo(w http.ResponseWriter, r *http.Request) {
	cargo := mux.Vars(r)["cargo"]
	empleados, err := a.empleados.FindLocal(r.Context(), store.Filter{"cargo": cargo})
	respondMatches(w, r, empleados, err, "no empleados with cargo '"+cargo+"'")
}

// handleProductosPorNombre searches local products by part of the name.
func (a *App) handleProductosPorNombre(w http.ResponseWriter, r *http.Request) {
	nombre := mux.Vars(r)["nombre"]
	productos, err := a.productos.FindLocal(r.Context(), store.Filter{"nombre_producto": store.Contains(nombre)})
	respondMatches(w, r, productos, err, "no productos named '"+nombre+"'")
}

func (a *App) handleProductosDisponibles(w http.ResponseWriter, r *http.Request) {
	productos, err := a.productos.FindLocal(r.Context(), store.Filter{"disponible": true})
	if err != nil {
		respondFailure(w, r, err)
		return
	}
	w.Header().Set(DataSourceHeader, string(dualwrite.SourceLocal))
	respondJSON(w, http.StatusOK, productos)
}

// handleServiciosPorNombre searches local services by part of the name.
func (a *App) handleServiciosPorNombre(w http.ResponseWriter, r *http.Request) {
	nombre := mux.Vars(r)["nombre"]
	servicios, err := a.servicios.FindLocal(r.Context(), store.Filter{"nombre_servicio": store.Contains(nombre)})
	respondMatches(w, r, servicios, err, "no servicios matching '"+nombre+"'")
}

// respondMatches writes the rows of a local search, or 404 when nothing matched.
func respondMatches[T any](w http.ResponseWriter, r *http.Request, rows []T, err error, notFound string) {
	if err != nil {
		respondFailure(w, r, err)
		return
	}
	if len(rows) == 0 {
		respondError(w, http.StatusNotFound, notFound)
		return
	}
	w.Header().Set(DataSourceHeader, string(dualwrite.SourceLocal))
	respondJSON(w, http.StatusOK, rows)
}

// handlePagarCuenta sets the paid flag of a receivable. The body is a bare
// JSON boolean. The change goes through the dual-write update.
func (a *App) handlePagarCuenta(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var pagado bool
	if !decodeBody(w, r, &pagado) {
		return
	}
	res, err := a.cuentas.Modify(r.Context(), id, func(c *models.CuentaPorCobrar) {
		c.Pagado = pagado
	})
	if err != nil {
		respondFailure(w, r, err)
		return
	}
	respondWrite(w, a.cuentas.Resource(), "updated", res)
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status   string `json:"status"`
	Time     int64  `json:"time"`
	Uptime   string `json:"uptime"`
	ReadOnly bool   `json:"readOnly"`
	Queue    int    `json:"queue"`
	Store    string `json:"store"`
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:   "healthy",
		Time:     time.Now().Unix(),
		Uptime:   time.Since(a.started).Round(time.Second).String(),
		ReadOnly: a.IsReadOnly(),
		Queue:    a.queue.Len(),
		Store:    "ok",
	}
	status := http.StatusOK
	if err := a.db.Ping(r.Context()); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("local store ping failed")
		resp.Status, resp.Store = "degraded", err.Error()
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, resp)
}

// SyncStatus is the body of GET /api/sync/status.
type SyncStatus struct {
	Queue       int              `json:"queue"`
	Pending     []syncqueue.Task `json:"pending"`
	Worker      syncworker.Stats `json:"worker"`
	Outbox      *outbox.Stats    `json:"outbox,omitempty"`
	Subscribers int              `json:"subscribers"`
	ReadOnly    bool             `json:"readOnly"`
	CoreURL     string           `json:"coreUrl"`
}

func (a *App) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	status := SyncStatus{
		Pending:     a.queue.Snapshot(),
		Worker:      a.worker.Stats(),
		Subscribers: a.hub.Subscribers(),
		ReadOnly:    a.IsReadOnly(),
		CoreURL:     a.core.BaseURL(),
	}
	status.Queue = len(status.Pending)
	if a.journal != nil {
		stats, err := a.journal.Stats(r.Context())
		if err != nil {
			respondFailure(w, r, err)
			return
		}
		status.Outbox = &stats
	}
	respondJSON(w, http.StatusOK, status)
}

type readOnlyBody struct {
	ReadOnly *bool `json:"readOnly"`
}

func (a *App) handleGetReadOnly(w http.ResponseWriter, r *http.Request) {
	ro := a.IsReadOnly()
	respondJSON(w, http.StatusOK, readOnlyBody{ReadOnly: &ro})
}

func (a *App) handleSetReadOnly(w http.ResponseWriter, r *http.Request) {
	var body readOnlyBody
	if !decodeBody(w, r, &body) {
		return
	}
	if body.ReadOnly == nil {
		respondError(w, http.StatusBadRequest, "readOnly is required")
		return
	}
	a.SetReadOnly(*body.ReadOnly)
	a.handleGetReadOnly(w, r)
}

func respondWrite[T any](w http.ResponseWriter, resource, verb string, res dualwrite.Result[T]) {
	resp := WriteResponse{
		Message: fmt.Sprintf("%s %s", resource, verb),
		Data:    res.Data,
		Synced:  res.Synced,
	}
	if !res.Synced {
		resp.Message = fmt.Sprintf("%s processed locally; sync with Core pending", resource)
		if !res.TaskID.IsZero() {
			resp.TaskID = res.TaskID.String()
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, dualwrite.ErrValidation), errors.Is(err, dualwrite.ErrIDMismatch):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrReadOnly):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
	}
	respondError(w, status, err.Error())
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Debug().Err(err).Msg("write response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
