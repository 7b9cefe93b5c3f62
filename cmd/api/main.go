package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/promocodes"
	"github.com/angelmondragon/storefront-backend/internal/users"
	stripewebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/instance"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/money"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
	pkgstripe "github.com/angelmondragon/storefront-backend/pkg/stripe"
)

const (
	stripeEventTTL  = 72 * time.Hour
	shutdownTimeout = 15 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	bootCtx := context.Background()

	baseCurrency, err := enums.ParseCurrency(cfg.Checkout.BaseCurrency)
	if err != nil {
		return err
	}

	dbClient, err := db.New(bootCtx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(bootCtx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(bootCtx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	stripeClient, err := pkgstripe.NewClient(bootCtx, cfg.Stripe, logg)
	if err != nil {
		return err
	}

	rates, err := newRateConverter(cfg, logg, redisClient)
	if err != nil {
		return err
	}

	checkoutMetrics := metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer)

	conn := dbClient.DB()
	cartRepo := cart.NewRepository(conn)
	productRepo := products.NewRepository(conn)
	promocodeRepo := promocodes.NewRepository(conn)
	orderRepo := orders.NewRepository(conn)
	paymentRepo := payments.NewRepository(conn)

	cartService, err := cart.NewService(cart.ServiceParams{
		DB:           dbClient,
		Carts:        cartRepo,
		Products:     productRepo,
		Promocodes:   promocodeRepo,
		Redemptions:  orderRepo,
		MaxItems:     cfg.Checkout.MaxCartItems,
		BaseCurrency: baseCurrency,
	})
	if err != nil {
		return err
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		DB:           dbClient,
		Carts:        cartRepo,
		Products:     productRepo,
		Promocodes:   promocodeRepo,
		Orders:       orderRepo,
		Rates:        rates,
		Logger:       logg,
		Metrics:      checkoutMetrics,
		BaseCurrency: baseCurrency,
	})
	if err != nil {
		return err
	}

	ordersService, err := orders.NewService(orderRepo)
	if err != nil {
		return err
	}

	gateway, err := payments.NewStripeGateway(payments.StripeGatewayParams{
		Sessions:   pkgstripe.NewCheckoutSessions(stripeClient),
		SuccessURL: stripeClient.SuccessURL(),
		CancelURL:  stripeClient.CancelURL(),
	})
	if err != nil {
		return err
	}

	paymentService, err := payments.NewService(payments.ServiceParams{
		DB:         dbClient,
		Payments:   paymentRepo,
		Orders:     orderRepo,
		Gateway:    gateway,
		Logger:     logg,
		Metrics:    checkoutMetrics,
		PaymentTTL: cfg.Checkout.PaymentTTL,
	})
	if err != nil {
		return err
	}

	promocodeService, err := promocodes.NewService(promocodeRepo)
	if err != nil {
		return err
	}

	userService, err := users.NewService(users.ServiceParams{
		DB:    dbClient,
		Users: users.NewRepository(conn),
		Carts: cartRepo,
	})
	if err != nil {
		return err
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Payments: paymentService,
		Logger:   logg,
	})
	if err != nil {
		return err
	}
	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, stripeEventTTL, "stripe-webhook")
	if err != nil {
		return err
	}

	handler := routes.NewRouter(routes.RouterParams{
		Config: cfg,
		Logger: logg,
		Ready: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
		},
		Idempotency:      redisClient,
		MetricsGatherer:  prometheus.DefaultGatherer,
		Accounts:         userService,
		Cart:             cartService,
		Checkout:         checkoutService,
		Orders:           ordersService,
		Payments:         paymentService,
		Promocodes:       promocodeService,
		StripeWebhooks:   webhookService,
		StripeVerifier:   stripeClient,
		StripeEventGuard: webhookGuard,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(bootCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":           cfg.App.Env,
		"addr":          addr,
		"stripe_env":    stripeClient.Environment(),
		"instance":      instance.GetID(),
		"base_currency": string(baseCurrency),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "api server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newRateConverter(cfg *config.Config, logg *logger.Logger, redisClient *redis.Client) (*money.Converter, error) {
	reference, err := enums.ParseCurrency(cfg.Rates.ReferenceCurrency)
	if err != nil {
		return nil, err
	}
	provider, err := money.NewHTTPRateProvider(money.HTTPRateProviderParams{
		URL:       cfg.Rates.ProviderURL,
		Reference: reference,
		Timeout:   cfg.Rates.Timeout,
	})
	if err != nil {
		return nil, err
	}
	cache, err := money.NewRedisRateCache(redisClient, redisClient.RatesKey(string(reference)))
	if err != nil {
		return nil, err
	}
	return money.NewConverter(money.ConverterParams{
		Provider: provider,
		Cache:    cache,
		Logger:   logg,
		TTL:      cfg.Rates.CacheTTL,
	})
}
