package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tillpoint/tillpoint-backend/api/controllers"
	"github.com/tillpoint/tillpoint-backend/api/middleware"
	authsvc "github.com/tillpoint/tillpoint-backend/internal/auth"
	"github.com/tillpoint/tillpoint-backend/internal/customers"
	"github.com/tillpoint/tillpoint-backend/internal/dashboard"
	"github.com/tillpoint/tillpoint-backend/internal/paymentmethods"
	"github.com/tillpoint/tillpoint-backend/internal/products"
	"github.com/tillpoint/tillpoint-backend/internal/sales"
	"github.com/tillpoint/tillpoint-backend/internal/stock"
	"github.com/tillpoint/tillpoint-backend/internal/stores"
	"github.com/tillpoint/tillpoint-backend/internal/suppliers"
	"github.com/tillpoint/tillpoint-backend/pkg/config"
	"github.com/tillpoint/tillpoint-backend/pkg/db"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
	"github.com/tillpoint/tillpoint-backend/pkg/logger"
	"github.com/tillpoint/tillpoint-backend/pkg/metrics"
	pkgredis "github.com/tillpoint/tillpoint-backend/pkg/redis"
)

const (
	loginRateLimit  = 10
	loginRateWindow = time.Minute
)

// Services bundles everything the router wires into controllers.
type Services struct {
	Auth           authsvc.Service
	Products       products.Service
	Stock          stock.Service
	Sales          sales.Service
	Customers      customers.Service
	Suppliers      suppliers.Service
	Stores         stores.Service
	PaymentMethods paymentmethods.Service
	Dashboard      dashboard.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *pkgredis.Client,
	httpMetrics *metrics.HTTPMetrics,
	metricsHandler http.Handler,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, httpMetrics),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbP, redisClient, logg))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.RateLimit(redisClient, "login", loginRateLimit, loginRateWindow, logg)).
			Post("/login", controllers.Login(svcs.Auth, logg))
		r.With(middleware.Idempotency(redisClient, logg)).
			Post("/register", controllers.Register(svcs.Auth, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(
			middleware.Auth(cfg.JWT, logg),
			middleware.Idempotency(redisClient, logg),
		)

		manageOnly := middleware.RequireRole(logg, string(enums.MemberRoleOwner), string(enums.MemberRoleManager))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(svcs.Products, logg))
			r.Get("/{productID}", controllers.GetProduct(svcs.Products, logg))
			r.With(manageOnly).Post("/", controllers.CreateProduct(svcs.Products, logg))
			r.With(manageOnly).Patch("/{productID}", controllers.UpdateProduct(svcs.Products, logg))
			r.With(manageOnly).Delete("/{productID}", controllers.DeactivateProduct(svcs.Products, logg))
		})

		r.Route("/stock", func(r chi.Router) {
			r.Post("/movements", controllers.AppendMovement(svcs.Stock, logg))
			r.Post("/movements/{movementID}/reverse", controllers.ReverseMovement(svcs.Stock, logg))
			r.Get("/products/{productID}/summary", controllers.StockSummary(svcs.Stock, logg))
			r.Get("/products/{productID}/movements", controllers.ListMovements(svcs.Stock, logg))
		})

		r.Route("/sales", func(r chi.Router) {
			r.Post("/", controllers.CreateSale(svcs.Sales, logg))
			r.Get("/", controllers.ListSales(svcs.Sales, logg))
			r.Get("/{saleID}", controllers.GetSale(svcs.Sales, logg))
			r.Post("/{saleID}/cancel", controllers.CancelSale(svcs.Sales, logg))
			r.Post("/{saleID}/pay", controllers.PaySale(svcs.Sales, logg))
			r.Post("/{saleID}/overdue", controllers.MarkSaleOverdue(svcs.Sales, logg))
			r.With(manageOnly).Post("/overdue/sweep", controllers.SweepOverdueSales(svcs.Sales, logg))
		})

		r.Route("/customers", func(r chi.Router) {
			r.Post("/", controllers.CreateCustomer(svcs.Customers, logg))
			r.Get("/", controllers.ListCustomers(svcs.Customers, logg))
			r.Get("/{customerID}", controllers.GetCustomer(svcs.Customers, logg))
			r.Patch("/{customerID}", controllers.UpdateCustomer(svcs.Customers, logg))
			r.Delete("/{customerID}", controllers.DeleteCustomer(svcs.Customers, logg))
			r.Post("/{customerID}/restore", controllers.RestoreCustomer(svcs.Customers, logg))
		})

		r.Route("/suppliers", func(r chi.Router) {
			r.Post("/", controllers.CreateSupplier(svcs.Suppliers, logg))
			r.Get("/", controllers.ListSuppliers(svcs.Suppliers, logg))
			r.Get("/{supplierID}", controllers.GetSupplier(svcs.Suppliers, logg))
			r.Patch("/{supplierID}", controllers.UpdateSupplier(svcs.Suppliers, logg))
			r.Delete("/{supplierID}", controllers.DeleteSupplier(svcs.Suppliers, logg))
		})

		r.Route("/stores", func(r chi.Router) {
			r.Get("/", controllers.ListStores(svcs.Stores, logg))
			r.Get("/{storeID}", controllers.GetStore(svcs.Stores, logg))
			r.With(manageOnly).Post("/", controllers.CreateStore(svcs.Stores, logg))
			r.With(manageOnly).Patch("/{storeID}", controllers.UpdateStore(svcs.Stores, logg))
			r.With(manageOnly).Delete("/{storeID}", controllers.DeleteStore(svcs.Stores, logg))
		})

		r.Route("/payment-methods", func(r chi.Router) {
			r.Get("/", controllers.ListPaymentMethods(svcs.PaymentMethods, logg))
			r.With(manageOnly).Post("/", controllers.CreatePaymentMethod(svcs.PaymentMethods, logg))
			r.With(manageOnly).Patch("/{methodID}/active", controllers.SetPaymentMethodActive(svcs.PaymentMethods, logg))
		})

		r.Get("/dashboard/summary", controllers.DashboardSummary(svcs.Dashboard, logg))
	})

	return r
}
