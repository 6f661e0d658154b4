package router

import (
	"time"

	"farmapos/internal/config"
	"farmapos/internal/handler"
	"farmapos/internal/infra"
	"farmapos/internal/middleware"
	"farmapos/internal/model"
	"farmapos/internal/repository"
	"farmapos/internal/service"
	"farmapos/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// App is the wired application. main uses the services to start the
// background workers on the same instances the HTTP layer uses.
type App struct {
	Engine     *gin.Engine
	Precios    service.PrecioService
	Alertas    service.AlertaService
	Dispatcher *worker.Dispatcher
	Limitador  *middleware.Limitador
}

// New wires all dependencies and returns the configured application.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis.
// rdb may be nil: prices are then uncached and post-sale jobs are skipped.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *App {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	limitador := middleware.NewLimitador(rdb)

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(limitador.Middleware("api", 1000, time.Minute, "Demasiadas solicitudes. Intente nuevamente en un momento."))

	// ── Infrastructure ───────────────────────────────────────────────────────
	var dispatcher *worker.Dispatcher
	if rdb != nil {
		dispatcher = worker.NewDispatcher(rdb)
	}
	cacheCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())

	// ── Repositories ─────────────────────────────────────────────────────────
	stockStore := repository.NewStockStore(db, cfg.VentaTxMaxReintentos)
	usuarioRepo := repository.NewUsuarioRepository(db)
	productoRepo := repository.NewProductoRepository(db)
	categoriaRepo := repository.NewCategoriaRepository(db)
	sucursalRepo := repository.NewSucursalRepository(db)
	loteRepo := repository.NewLoteRepository(db)
	promocionRepo := repository.NewPromocionRepository(db)
	ventaRepo := repository.NewVentaRepository(db)
	movimientoRepo := repository.NewMovimientoStockRepository(db)
	intentoRepo := repository.NewIntentoRepository(db)
	alertaRepo := repository.NewAlertaRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(usuarioRepo, cfg)
	precioSvc := service.NewPrecioService(productoRepo, loteRepo, promocionRepo, rdb, cacheCB, cfg.PrecioCacheTTL(), nil)
	ventaSvc := service.NewVentaService(stockStore, intentoRepo, ventaRepo, dispatcher, nil)
	loteSvc := service.NewLoteService(stockStore, loteRepo, precioSvc, nil)
	productoSvc := service.NewProductoService(productoRepo, loteRepo, promocionRepo, precioSvc, nil)
	promocionSvc := service.NewPromocionService(promocionRepo, productoRepo, precioSvc, nil)
	categoriaSvc := service.NewCategoriaService(categoriaRepo)
	sucursalSvc := service.NewSucursalService(sucursalRepo)
	inventarioSvc := service.NewInventarioService(loteRepo, movimientoRepo)
	intentoSvc := service.NewIntentoService(intentoRepo, nil)
	alertaSvc := service.NewAlertaService(alertaRepo, loteRepo, promocionRepo, service.AlertaConfig{
		StockMinimo:      cfg.StockMinimoAlerta,
		PromoSugeridaPct: decimal.NewFromInt(int64(cfg.PromoSugeridaPct)),
	}, nil)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	usuariosH := handler.NewUsuariosHandler(authSvc)
	ventasH := handler.NewVentasHandler(ventaSvc)
	lotesH := handler.NewLotesHandler(loteSvc)
	productosH := handler.NewProductosHandler(productoSvc)
	promocionesH := handler.NewPromocionesHandler(promocionSvc)
	categoriasH := handler.NewCategoriasHandler(categoriaSvc)
	sucursalesH := handler.NewSucursalesHandler(sucursalSvc)
	inventarioH := handler.NewInventarioHandler(inventarioSvc)
	intentosH := handler.NewIntentosHandler(intentoSvc)
	alertasH := handler.NewAlertasHandler(alertaSvc)
	consultaH := handler.NewConsultaPreciosHandler(precioSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, precioSvc))

	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", limitador.Middleware("login", 20, time.Minute, "Demasiados intentos de login. Intente en 1 minuto."), authH.Login)
		auth.POST("/refresh", authH.Refresh)
		auth.POST("/registro", limitador.Middleware("registro", 5, time.Minute, "Demasiados registros. Intente más tarde."), authH.Registro)
	}

	// Price check, no auth, no side effects
	r.GET("/v1/precio/:barcode", limitador.Middleware("precio", 120, time.Minute, "Demasiadas consultas de precio."), consultaH.GetPrecioPorBarcode)

	// Protected routes
	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		// Every role may buy; the engine applies the role's eligibility rules.
		ventas := v1.Group("/ventas", middleware.RequireCapability(model.CapVender))
		{
			ventas.POST("", ventasH.ProcesarVenta)
			ventas.GET("", ventasH.ListarVentas)
			ventas.GET("/:id", ventasH.ObtenerVenta)
			ventas.GET("/:id/ticket", ventasH.Ticket)
		}

		// Catalog reads are open to every authenticated role; customers get a filtered view.
		v1.GET("/productos", productosH.Listar)
		v1.GET("/productos/:id", productosH.ObtenerPorID)
		prods := v1.Group("/productos", middleware.RequireCapability(model.CapGestionarCatalogo))
		{
			prods.POST("", productosH.Crear)
			prods.PUT("/:id", productosH.Actualizar)
			prods.DELETE("/:id", productosH.Desactivar)
			prods.PATCH("/:id/reactivar", productosH.Reactivar)
		}

		v1.GET("/categorias", categoriasH.Listar)
		categorias := v1.Group("/categorias", middleware.RequireCapability(model.CapGestionarCatalogo))
		{
			categorias.POST("", categoriasH.Crear)
			categorias.PUT("/:id", categoriasH.Actualizar)
			categorias.DELETE("/:id", categoriasH.Desactivar)
		}

		v1.GET("/sucursales", sucursalesH.Listar)
		v1.POST("/sucursales", middleware.RequireCapability(model.CapGestionarUsuarios), sucursalesH.Crear)

		lotes := v1.Group("/lotes", middleware.RequireCapability(model.CapGestionarLotes))
		{
			lotes.POST("", lotesH.Ingresar)
			lotes.GET("", lotesH.Listar)
			lotes.GET("/proximos-a-vencer", lotesH.ProximosAVencer)
			lotes.POST("/:id/baja", lotesH.DarDeBaja)
		}

		inv := v1.Group("/inventario", middleware.RequireCapability(model.CapGestionarLotes))
		{
			inv.GET("", inventarioH.Consultar)
			inv.GET("/movimientos", inventarioH.Movimientos)
			inv.GET("/consistencia", inventarioH.Consistencia)
		}

		v1.GET("/promociones", promocionesH.Listar)
		v1.POST("/promociones", middleware.RequireCapability(model.CapCrearPromocion), promocionesH.Crear)
		v1.DELETE("/promociones/:id", middleware.RequireCapability(model.CapCrearPromocion), promocionesH.Desactivar)
		v1.POST("/promociones/:id/aprobar", middleware.RequireCapability(model.CapAprobarPromocion), promocionesH.Aprobar)

		intentos := v1.Group("/intentos-bloqueados", middleware.RequireCapability(model.CapVerAuditoria))
		{
			intentos.GET("", intentosH.Listar)
			intentos.GET("/recientes", intentosH.Recientes)
			intentos.GET("/usuario/:id", intentosH.PorUsuario)
		}

		alertas := v1.Group("/alertas", middleware.RequireCapability(model.CapVerAlertas))
		{
			alertas.GET("", alertasH.Listar)
			alertas.POST("/:id/leida", alertasH.MarcarLeida)
			alertas.POST("/escanear", middleware.RequireCapability(model.CapGestionarLotes), alertasH.Escanear)
		}

		usuarios := v1.Group("/usuarios", middleware.RequireCapability(model.CapGestionarUsuarios))
		{
			usuarios.POST("", usuariosH.Crear)
			usuarios.GET("", usuariosH.Listar)
			usuarios.PUT("/:id", usuariosH.Actualizar)
			usuarios.DELETE("/:id", usuariosH.Desactivar)
			usuarios.PATCH("/:id/reactivar", usuariosH.Reactivar)
		}
	}

	// Swagger UI, only outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return &App{
		Engine:     r,
		Precios:    precioSvc,
		Alertas:    alertaSvc,
		Dispatcher: dispatcher,
		Limitador:  limitador,
	}
}
