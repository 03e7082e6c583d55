package integracion

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/hlog"
	"github.com/sistemamasajes/integracion/pkg/dualwrite"
	"github.com/sistemamasajes/integracion/pkg/models"
	"github.com/sistemamasajes/integracion/pkg/store"
	"github.com/sistemamasajes/integracion/pkg/store/gormstore"
)

// routes builds the router.
//
// Every entity gets the same seven routes under /api/{segment}:
//
//	GET    /api/{segment}               - list, Core first with local fallback
//	GET    /api/{segment}/{id}          - one record, Core first with local fallback
//	GET    /api/{segment}/local         - local list
//	GET    /api/{segment}/local/{id}    - one local record
//	POST   /api/{segment}               - dual-write create
//	PUT    /api/{segment}/{id}          - dual-write update
//	DELETE /api/{segment}/{id}          - dual-write delete
//
// Entity specific and operational routes:
//
//	GET    /api/cita/local/cliente/{clienteId}
//	GET    /api/cuentaporcobrar/estado/{estado}
//	PUT    /api/cuentaporcobrar/{id}/pagar
//	GET    /api/empleado/cargo/{cargo}
//	GET    /api/producto/nombre/{nombre}
//	GET    /api/producto/disponible
//	GET    /api/servicio/nombre/{nombre}
//	GET    /api/health
//	GET    /api/sync/status
//	GET    /api/sync/events             - websocket feed
//	GET    /api/admin/readonly
//	PUT    /api/admin/readonly
func (a *App) routes() *mux.Router {
	router := mux.NewRouter()
	router.Use(
		hlog.NewHandler(a.log),
		a.requestID,
		hlog.AccessHandler(accessLog),
	)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "route not found")
	})

	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/sync/status", a.handleSyncStatus).Methods(http.MethodGet)
	api.Handle("/sync/events", a.hub).Methods(http.MethodGet)
	api.HandleFunc("/admin/readonly", a.handleGetReadOnly).Methods(http.MethodGet)
	api.HandleFunc("/admin/readonly", a.handleSetReadOnly).Methods(http.MethodPut)

	// Routes more specific than /{segment}/{id} go first.
	api.HandleFunc("/cita/local/cliente/{clienteId:[0-9]+}", a.handleCitasPorCliente).Methods(http.MethodGet)
	api.HandleFunc("/cuentaporcobrar/estado/{estado}", a.handleCuentasPorEstado).Methods(http.MethodGet)
	api.HandleFunc("/cuentaporcobrar/{id:[0-9]+}/pagar", a.handlePagarCuenta).Methods(http.MethodPut)
	api.HandleFunc("/empleado/cargo/{cargo}", a.handleEmpleadosPorCargo).Methods(http.MethodGet)
	api.HandleFunc("/producto/nombre/{nombre}", a.handleProductosPorNombre).Methods(http.MethodGet)
	api.HandleFunc("/producto/disponible", a.handleProductosDisponibles).Methods(http.MethodGet)
	api.HandleFunc("/servicio/nombre/{nombre}", a.handleServiciosPorNombre).Methods(http.MethodGet)

	registerEntity[models.Cliente](a, api, "cliente")
	a.citas = registerEntity[models.Cita](a, api, "cita")
	registerEntity[models.Factura](a, api, "factura", gormstore.WithPreload("Detalles"))
	registerEntity[models.FacturaDetalle](a, api, "facturadetalle")
	a.productos = registerEntity[models.Producto](a, api, "producto")
	a.servicios = registerEntity[models.Servicio](a, api, "servicio")
	a.empleados = registerEntity[models.Empleado](a, api, "empleado")
	registerEntity[models.Rol](a, api, "rol")
	registerEntity[models.Usuario](a, api, "usuario")
	registerEntity[models.HistorialDelSistema](a, api, "historialdelsistema")
	a.cuentas = registerEntity[models.CuentaPorCobrar](a, api, "cuentaporcobrar")

	return router
}

// registerEntity wires the dual-write gateway of T and its routes.
func registerEntity[T any, P dualwrite.Record[T]](a *App, api *mux.Router, segment string, opts ...gormstore.RepoOption) *dualwrite.Gateway[T, P] {
	repo := store.NewReadOnly[T](gormstore.NewRepo[T](a.db, opts...), a.IsReadOnly)
	gw := dualwrite.New[T, P](repo, a.core, a.deferrer, a.log)
	h := &entityHandlers[T, P]{gw: gw}

	r := api.PathPrefix("/" + segment).Subrouter()
	r.HandleFunc("", h.list).Methods(http.MethodGet)
	r.HandleFunc("", h.create).Methods(http.MethodPost)
	r.HandleFunc("/local", h.listLocal).Methods(http.MethodGet)
	r.HandleFunc("/local/{id:[0-9]+}", h.getLocal).Methods(http.MethodGet)
	r.HandleFunc("/{id:[0-9]+}", h.get).Methods(http.MethodGet)
	r.HandleFunc("/{id:[0-9]+}", h.update).Methods(http.MethodPut)
	r.HandleFunc("/{id:[0-9]+}", h.delete).Methods(http.MethodDelete)
	return gw
}
