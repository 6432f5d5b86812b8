package bootstrap

import (
	"context"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ferremas-app/ferremas-backend/config"
	httpapi "github.com/ferremas-app/ferremas-backend/internal/api/http"
	"github.com/ferremas-app/ferremas-backend/internal/api/http/middleware"
	"github.com/ferremas-app/ferremas-backend/internal/auth"
	"github.com/ferremas-app/ferremas-backend/internal/cart"
	"github.com/ferremas-app/ferremas-backend/internal/catalog"
	"github.com/ferremas-app/ferremas-backend/internal/notifications"
	ordershttp "github.com/ferremas-app/ferremas-backend/internal/orders/http"
	ordersrepo "github.com/ferremas-app/ferremas-backend/internal/orders/repository"
	ordersvc "github.com/ferremas-app/ferremas-backend/internal/orders/service"
	"github.com/ferremas-app/ferremas-backend/internal/outbox"
	"github.com/ferremas-app/ferremas-backend/internal/payments"
	"github.com/ferremas-app/ferremas-backend/internal/payments/webpay"
	"github.com/ferremas-app/ferremas-backend/internal/reports"
	"github.com/ferremas-app/ferremas-backend/internal/users"
)

// App es el grafo de la aplicación ya cableado. cmd/api arranca el router y
// los jobs; los tests pueden construirlo por partes.
type App struct {
	Router    *gin.Engine
	Processor *outbox.Processor
	Cola      *outbox.Repo
	Reportes  *reports.Service
}

func Build(cfg *config.Config, logger *zap.Logger, cl *Clients, rdb *redis.Client) *App {
	// Repositorios
	usersRepo := users.NewRepo(cl.Firestore)
	catalogRepo := catalog.NewRepo(cl.Firestore, logger)
	cartRepo := cart.NewRepo(rdb)
	pedidosRepo := ordersrepo.NewRepo(cl.Firestore, logger)
	notifRepo := notifications.NewRepo(cl.Firestore)
	colaRepo := outbox.NewRepo(cl.Firestore)
	transaccionesRepo := payments.NewRepo(cl.Firestore)
	reportesRepo := reports.NewRepo(cl.Firestore)

	// Colaboradores externos
	wpClient := webpay.NewClient(cfg.Webpay.Host, cfg.Webpay.CommerceCode, cfg.Webpay.APIKey, cfg.Server.RelayTimeout)
	sender := notifications.NewSender(cl.Messaging, logger)

	// Servicios
	usersSvc := users.NewService(usersRepo, cl.Auth, logger)
	asignador := ordersvc.NewAsignadorBodegueros(rdb, usersRepo)
	pedidosSvc := ordersvc.New(pedidosRepo, catalogRepo, cartRepo, colaRepo, notifRepo, asignador, logger)
	pagosSvc := payments.NewService(transaccionesRepo, wpClient, cartRepo, pedidosSvc, cfg.Webpay.ReturnURL, logger)
	reportesSvc := reports.NewService(reportesRepo, pedidosRepo, logger)

	// Procesador de intentos con sus despachadores
	processor := outbox.NewProcessor(colaRepo, logger,
		cfg.Outbox.Interval, cfg.Outbox.BatchSize, cfg.Outbox.MaxAttempts)
	dispatchers := &outbox.Dispatchers{
		Usuarios:       usersRepo,
		Sender:         sender,
		Notificaciones: notifRepo,
		Catalogo:       catalogRepo,
		Webpay:         wpClient,
		Pedidos:        pedidosRepo,
		Transacciones:  transaccionesRepo,
		Logger:         logger,
	}
	dispatchers.RegistrarTodos(processor)
	processor.OnMuerto = func(ctx context.Context, intento *outbox.Intento) {
		_ = notifRepo.RegistrarEvento(ctx, "intento_muerto", map[string]interface{}{
			"tipo":        intento.Tipo,
			"intentos":    intento.Intentos,
			"ultimoError": intento.UltimoError,
		})
		switch intento.Tipo {
		case outbox.TipoNotificarVendedor, outbox.TipoNotificarCliente,
			outbox.TipoNotificarBodeguero, outbox.TipoNotificarContador:
			_ = notifRepo.RegistrarErrorPush(ctx, errorPushDeIntento(intento))
		}
	}

	// Handlers
	usersHandler := users.NewHandler(usersSvc)
	catalogHandler := catalog.NewHandler(catalogRepo)
	cartHandler := cart.NewHandler(cartRepo, catalogRepo)
	pedidosHandler := ordershttp.NewHandler(pedidosSvc)
	pagosHandler := payments.NewHandler(pagosSvc)
	relayHandler := payments.NewRelayHandler(wpClient, logger)
	notifHandler := notifications.NewHandler(sender, notifRepo, logger)
	reportesHandler := reports.NewHandler(reportesSvc)

	router := buildRouter(cfg, logger, cl, rdb, routerHandlers{
		users:     usersHandler,
		catalog:   catalogHandler,
		cart:      cartHandler,
		pedidos:   pedidosHandler,
		pagos:     pagosHandler,
		relay:     relayHandler,
		notif:     notifHandler,
		reportes:  reportesHandler,
		usersRepo: usersRepo,
	})

	return &App{
		Router:    router,
		Processor: processor,
		Cola:      colaRepo,
		Reportes:  reportesSvc,
	}
}

// errorPushDeIntento deja el rastro de un push que agotó sus reintentos en
// el mismo formato que los diagnósticos del relay.
func errorPushDeIntento(intento *outbox.Intento) *notifications.ErrorPush {
	return &notifications.ErrorPush{
		Detalle: map[string]interface{}{
			"tipo":        intento.Tipo,
			"intentos":    intento.Intentos,
			"ultimoError": intento.UltimoError,
		},
	}
}

type routerHandlers struct {
	users     *users.Handler
	catalog   *catalog.Handler
	cart      *cart.Handler
	pedidos   *ordershttp.Handler
	pagos     *payments.Handler
	relay     *payments.RelayHandler
	notif     *notifications.Handler
	reportes  *reports.Handler
	usersRepo *users.Repo
}

func buildRouter(cfg *config.Config, logger *zap.Logger, cl *Clients, rdb *redis.Client, h routerHandlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware(logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-Id"},
		AllowCredentials: false,
	}))

	healthHandler := httpapi.NewHealthHandler("ferremas-backend", cfg.App.Version, rdb)
	healthHandler.RegisterRoutes(r)

	// Relay público que consume la app móvil directamente. Sin sesión, con
	// freno por IP.
	relay := r.Group("/api")
	relay.Use(middleware.RateLimit(rate.Limit(5), 10))
	h.relay.RegisterRoutes(relay)
	h.notif.RegisterRelayRoutes(relay)

	// Superficie autenticada
	api := r.Group("/api/v1")
	api.Use(auth.Middleware(cl.Auth, h.usersRepo))

	h.users.RegisterSessionRoutes(api)
	h.notif.RegisterSessionRoutes(api)
	h.catalog.RegisterPublicRoutes(api)

	cliente := api.Group("")
	cliente.Use(auth.RequireRol(users.RolCliente, users.RolAdmin))
	h.cart.RegisterRoutes(cliente)
	h.pagos.RegisterRoutes(cliente)
	h.pedidos.RegisterClientRoutes(cliente)

	vendedor := api.Group("/vendedor")
	vendedor.Use(auth.RequireRol(users.RolVendedor, users.RolAdmin))
	h.pedidos.RegisterVendedorRoutes(vendedor)

	bodeguero := api.Group("/bodeguero")
	bodeguero.Use(auth.RequireRol(users.RolBodeguero, users.RolAdmin))
	h.pedidos.RegisterBodegueroRoutes(bodeguero)

	contador := api.Group("/contador")
	contador.Use(auth.RequireRol(users.RolContador, users.RolAdmin))
	h.pedidos.RegisterContadorRoutes(contador)
	h.notif.RegisterContadorRoutes(contador)
	h.reportes.RegisterRoutes(contador)

	admin := api.Group("/admin")
	admin.Use(auth.RequireRol(users.RolAdmin))
	h.users.RegisterAdminRoutes(admin)
	h.catalog.RegisterManagementRoutes(admin)

	return r
}
