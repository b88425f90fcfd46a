package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fleetrent-backend/internal/auth"
	"fleetrent-backend/internal/cache"
	"fleetrent-backend/internal/config"
	"fleetrent-backend/internal/database"
	"fleetrent-backend/internal/db"
	"fleetrent-backend/internal/esign"
	"fleetrent-backend/internal/handlers"
	"fleetrent-backend/internal/health"
	h "fleetrent-backend/internal/http"
	"fleetrent-backend/internal/identity"
	"fleetrent-backend/internal/middleware"
	"fleetrent-backend/internal/models"
	"fleetrent-backend/internal/payments"
	"fleetrent-backend/internal/realtime"
	"fleetrent-backend/internal/repositories"
	"fleetrent-backend/internal/services"
	"fleetrent-backend/internal/storage"
	"fleetrent-backend/migrations"
)

func main() {
	// Parse command-line flags
	port := flag.Int("port", 0, "Server port (overrides config)")
	skipMigrations := flag.Bool("skip-migrations", false, "Do not run database migrations on startup")
	flag.Parse()

	// Load configuration
	cfg := config.Load()
	if *port != 0 {
		cfg.Server.Port = *port
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Initialize Redis cache (optional - graceful fallback if unavailable)
	var redisProbe health.RedisProbe
	if err := cache.Init(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password); err != nil {
		log.Printf("[Redis] Cache unavailable: %v (webhook dedupe and KPI sharing are per-process)", err)
	} else {
		redisProbe = cache.IsHealthy
	}

	// Run database migrations
	if !*skipMigrations {
		migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := database.NewMigratorWithFS(pool, migrations.FS, ".").RunMigrations(migrateCtx)
		cancel()
		if err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg)

	// Initialize repositories
	tenantRepo := repositories.NewTenantRepository(pool)
	userRepo := repositories.NewUserRepository(pool)
	customerRepo := repositories.NewCustomerRepository(pool)
	rentalRepo := repositories.NewRentalRepository(pool)
	paymentRepo := repositories.NewPaymentRepository(pool)
	ledgerRepo := repositories.NewLedgerRepository(pool)
	invoiceRepo := repositories.NewInvoiceRepository(pool)
	installmentRepo := repositories.NewInstallmentRepository(pool)
	documentRepo := repositories.NewDocumentRepository(pool)
	verificationRepo := repositories.NewVerificationRepository(pool)
	totpRepo := repositories.NewTOTPRepository(pool)
	auditRepo := repositories.NewAdminActionLogRepository(pool)

	// External providers
	processor := payments.NewRazorpayProcessor(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, cfg.Razorpay.Currency)
	objects := newObjectStore(ctx, cfg)
	signing := newSigningProvider(cfg)

	hub := realtime.NewHub()
	go hub.Run(ctx)

	// Initialize services
	ledgerService := services.NewLedgerService(ledgerRepo, paymentRepo, tenantRepo)
	cancellationService := services.NewCancellationService(
		rentalRepo, paymentRepo, customerRepo, processor, services.LogNotifier{}, hub, auditRepo,
	)
	dashboardService := services.NewDashboardService(
		paymentRepo, ledgerRepo, rentalRepo, installmentRepo, tenantRepo,
		cache.NewTTLCache[string, *models.DashboardKPIs](cfg.DashboardCacheTTL(), time.Now),
		cfg.DashboardCacheTTL(), cfg.Dashboard.SharedCache,
	)
	esignService := services.NewESignService(signing, rentalRepo, documentRepo, objects, hub, cfg.ESignWebhook.Secret)
	installmentService := services.NewInstallmentService(
		installmentRepo, rentalRepo, ledgerService, processor, tenantRepo, auditRepo,
	)
	invoiceService := services.NewInvoiceService(invoiceRepo, ledgerRepo, ledgerService, rentalRepo, customerRepo, tenantRepo)
	totpService := services.NewTOTPService(userRepo, totpRepo)
	userService := services.NewUserService(userRepo, customerRepo, jwtManager, totpService)
	customerService := services.NewCustomerService(customerRepo, jwtManager)
	tenantService := services.NewTenantService(tenantRepo, auditRepo)
	verificationService := newVerificationService(cfg, verificationRepo, objects)

	// Initialize handlers
	router := h.NewRouter(&h.Handlers{
		Auth:         handlers.NewAuthHandler(userService, totpService),
		Customer:     handlers.NewCustomerHandler(customerService, ledgerService),
		Rental:       handlers.NewRentalHandler(cancellationService),
		Dashboard:    handlers.NewDashboardHandler(dashboardService),
		ESign:        handlers.NewESignHandler(esignService),
		Payment:      handlers.NewPaymentHandler(ledgerService),
		Invoice:      handlers.NewInvoiceHandler(invoiceService),
		Installment:  handlers.NewInstallmentHandler(installmentService),
		Verification: handlers.NewVerificationHandler(verificationService),
		Admin:        handlers.NewAdminHandler(tenantService),
		Health:       handlers.NewHealthHandler(health.NewHealthChecker(pool, redisProbe)),
		Realtime:     hub.ServeWS,
	}, middleware.NewAuthMiddleware(jwtManager, userRepo))

	// Wrap with panic recovery and CORS
	handler := middleware.PanicRecovery(middleware.NewCORS(cfg)(router))

	// Background installment collection
	sweep := time.Duration(cfg.Installments.RetrySweepMinutes) * time.Minute
	retryWorker := services.NewInstallmentRetryWorker(installmentService, sweep)
	retryWorker.Start()
	defer retryWorker.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
}

// newObjectStore returns nil when R2 is not configured; documents are then not archived
func newObjectStore(ctx context.Context, cfg *config.Config) storage.ObjectStore {
	if !cfg.Storage.Enabled() {
		log.Println("[Storage] R2 not configured, signed agreements and ID images will not be archived")
		return nil
	}
	store, err := storage.NewR2Store(ctx, cfg.Storage)
	if err != nil {
		log.Printf("[Storage] R2 unavailable: %v", err)
		return nil
	}
	return store
}

func newSigningProvider(cfg *config.Config) esign.Provider {
	if cfg.DocuSign.IntegrationKey == "" {
		log.Println("[ESign] DocuSign not configured, status checks will fail with 401")
		return esign.Unconfigured{}
	}
	client, err := esign.NewDocuSignClient(esign.DocuSignOptions{
		IntegrationKey: cfg.DocuSign.IntegrationKey,
		UserID:         cfg.DocuSign.UserID,
		OAuthHost:      cfg.DocuSign.OAuthHost,
		PrivateKeyPEM:  cfg.DocuSign.PrivateKeyPEM,
		PrivateKeyPath: cfg.DocuSign.PrivateKeyPath,
	}, nil)
	if err != nil {
		log.Printf("[ESign] DocuSign client unavailable: %v", err)
		return esign.Unconfigured{}
	}
	return client
}

func newVerificationService(cfg *config.Config, repo *repositories.VerificationRepository, objects storage.ObjectStore) *services.VerificationService {
	if cfg.Identity.BaseURL == "" {
		log.Println("[Identity] Verification provider not configured")
		return services.NewVerificationService(nil, repo, objects)
	}
	client := identity.NewClient(cfg.Identity.BaseURL, cfg.Identity.APIKey, cfg.Identity.APISecret, nil)
	return services.NewVerificationService(client, repo, objects)
}
