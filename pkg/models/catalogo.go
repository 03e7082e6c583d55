package models

// Producto is a retail product sold at the front desk.
type Producto struct {
	ProductoID          int     `gorm:"primaryKey" json:"productoId"`
	NombreProducto      string  `gorm:"size:50;not null" json:"nombreProducto"`
	DescripcionProducto string  `gorm:"size:200;not null" json:"descripcionProducto"`
	PrecioProducto      float64 `gorm:"type:decimal(10,2)" json:"precioProducto"`
	Stock               int     `json:"stock"`
	Disponible          bool    `json:"disponible"`
}

func (Producto) TableName() string { return "productos" }

func (*Producto) Resource() string { return "Producto" }
func (p *Producto) Key() int       { return p.ProductoID }
func (p *Producto) SetKey(id int)  { p.ProductoID = id }

func (p *Producto) Validate() error {
	if p.Stock < 0 {
		return &ValidationError{Field: "stock", Reason: "must not be negative"}
	}
	return firstError(
		required("nombreProducto", p.NombreProducto),
		maxLen("nombreProducto", p.NombreProducto, 50),
		required("descripcionProducto", p.DescripcionProducto),
		maxLen("descripcionProducto", p.DescripcionProducto, 200),
		nonNegative("precioProducto", p.PrecioProducto),
	)
}

// Servicio is a treatment offered by the spa.
type Servicio struct {
	ServicioID              int     `gorm:"primaryKey" json:"servicioId"`
	NombreServicio          string  `gorm:"size:100;not null" json:"nombreServicio"`
	PrecioServicio          float64 `gorm:"type:decimal(10,2)" json:"precioServicio"`
	DuracionPromedioMinutos int     `json:"duracionPromedioMinutos"`
	Activo                  bool    `json:"activo"`
}

func (Servicio) TableName() string { return "servicios" }

func (*Servicio) Resource() string { return "Servicio" }
func (s *Servicio) Key() int       { return s.ServicioID }
func (s *Servicio) SetKey(id int)  { s.ServicioID = id }

func (s *Servicio) Validate() error {
	if s.DuracionPromedioMinutos < 0 {
		return &ValidationError{Field: "duracionPromedioMinutos", Reason: "must not be negative"}
	}
	return firstError(
		required("nombreServicio", s.NombreServicio),
		maxLen("nombreServicio", s.NombreServicio, 100),
		nonNegative("precioServicio", s.PrecioServicio),
	)
}
