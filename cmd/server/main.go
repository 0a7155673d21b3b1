package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc"

	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/audit"
	auditrepo "github.com/KoAt-DEV/multi-tenant-saas-starter/internal/audit/repository"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/config"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/db"
	healthhandler "github.com/KoAt-DEV/multi-tenant-saas-starter/internal/health/handler"
	identityrepo "github.com/KoAt-DEV/multi-tenant-saas-starter/internal/identity/repository"
	identityservice "github.com/KoAt-DEV/multi-tenant-saas-starter/internal/identity/service"
	membershiprepo "github.com/KoAt-DEV/multi-tenant-saas-starter/internal/membership/repository"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/notify"
	resetrepo "github.com/KoAt-DEV/multi-tenant-saas-starter/internal/passwordreset/repository"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/platform/rbac"
	rolerepo "github.com/KoAt-DEV/multi-tenant-saas-starter/internal/role/repository"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/security"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/server"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/server/middleware"
	sessionrepo "github.com/KoAt-DEV/multi-tenant-saas-starter/internal/session/repository"
	sessionservice "github.com/KoAt-DEV/multi-tenant-saas-starter/internal/session/service"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/telemetry"
	telemetryotel "github.com/KoAt-DEV/multi-tenant-saas-starter/internal/telemetry/otel"
	tenantrepo "github.com/KoAt-DEV/multi-tenant-saas-starter/internal/tenant/repository"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/tenant/resolver"
	userrepo "github.com/KoAt-DEV/multi-tenant-saas-starter/internal/user/repository"
)

const (
	healthInterval  = 10 * time.Second
	shutdownTimeout = 15 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env or set DATABASE_URL")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Options{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Env,
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	events := telemetryotel.NewEventEmitter(providers.LoggerProvider)

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	tokens, err := security.NewTokenProvider([]byte(cfg.JWTSecret), cfg.JWTAlgorithm, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL(), cfg.RefreshTTL())
	if err != nil {
		log.Fatalf("tokens: %v", err)
	}

	tenants := tenantrepo.NewPostgresRepository(conn)
	memberships := membershiprepo.NewPostgresRepository(conn)
	roles := rolerepo.NewPostgresRepository(conn)
	evaluator := rbac.NewEvaluator(memberships, roles)
	auditLogger := audit.NewLogger(auditrepo.NewPostgresRepository(conn))

	sender := notify.New(cfg.NotifyKafkaBrokersList(), cfg.NotifyKafkaTopic, cfg.NotifyWebhookURL)
	defer sender.Close()

	authSvc, err := identityservice.NewAuthService(identityservice.Deps{
		Users:    userrepo.NewPostgresRepository(conn),
		Profiles: identityrepo.NewPostgresRepository(conn),
		RBAC:     evaluator,
		Sessions: sessionservice.NewManager(sessionrepo.NewPostgresRepository(conn), memberships, roles, tokens),
		Resets:   resetrepo.NewPostgresRepository(conn),
		Hasher:   security.NewHasher(cfg.BcryptCost),
		Sender:   sender,
		Audit:    auditLogger,
		Events:   events,
		ResetTTL: cfg.ResetTTL(),
	})
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	health := healthhandler.NewServer(conn)
	go health.Run(ctx, healthInterval)

	proxies, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	router := server.NewRouter(server.HTTPDeps{
		Resolver:       resolver.New(tenants, cfg.IsDevelopment(), cfg.DefaultDevTenant),
		Tokens:         tokens,
		Guard:          evaluator,
		Audit:          auditLogger,
		Auth:           authSvc,
		EchoResetToken: cfg.IsDevelopment(),
		Proxies:        middleware.NewProxyTrust(proxies),
		Limiter:        middleware.NewRateLimiter(cfg.LoginRatePerMinute),
		Metrics:        middleware.NewMetrics(reg),
		Health:         health,
	})
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var grpcSrv *grpc.Server
	if cfg.GRPCEnabled() {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.Fatalf("listen: %v", err)
		}
		grpcSrv = server.NewGRPCServer(health)
		go func() {
			log.Printf("gRPC server listening on %s", cfg.GRPCAddr)
			if err := grpcSrv.Serve(lis); err != nil {
				log.Printf("grpc serve: %v", err)
			}
		}()
	} else {
		log.Println("gRPC server disabled")
	}
	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http serve: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}

	// Async audit events and reset deliveries run on their own timeouts; let them finish.
	drain := telemetry.ShutdownDrainDuration
	if notify.ShutdownDrainDuration > drain {
		drain = notify.ShutdownDrainDuration
	}
	time.Sleep(drain)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("telemetry shutdown: %v", err)
	}
	log.Println("server stopped")
}
