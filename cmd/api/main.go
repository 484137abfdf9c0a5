package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"bazara.org/internal/access"
	"bazara.org/internal/auth"
	"bazara.org/internal/httpapi"
	"bazara.org/internal/notify"
	"bazara.org/internal/obs"
	"bazara.org/internal/order"
	"bazara.org/internal/rls"
	"bazara.org/internal/scoped"
	"bazara.org/internal/store/pg"
	"bazara.org/internal/stream"
)

var version = "0.3.0"

func main() {
	_ = godotenv.Load()
	obs.Init()

	dsn := os.Getenv("BAZARA_PG_DSN")
	if dsn == "" {
		log.Fatal("BAZARA_PG_DSN is required")
	}
	secret := os.Getenv("BAZARA_TOKEN_SECRET")
	if secret == "" {
		log.Fatal("BAZARA_TOKEN_SECRET is required")
	}

	db, err := pg.Open(dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := rls.Apply(ctx, db.DB()); err != nil {
		cancel()
		log.Fatalf("apply row security policies: %v", err)
	}
	cancel()

	signer, err := auth.NewTokenSigner(secret)
	if err != nil {
		log.Fatalf("token signer: %v", err)
	}
	resolver, err := auth.NewResolver(signer, db)
	if err != nil {
		log.Fatalf("resolver: %v", err)
	}
	engine, err := access.NewEngine(access.DefaultPolicy(), db)
	if err != nil {
		log.Fatalf("permission engine: %v", err)
	}

	auditLog := db.AuditLog()
	products, err := scoped.NewProductCollection(engine, db.Products(), auditLog)
	if err != nil {
		log.Fatalf("product collection: %v", err)
	}
	roles, err := access.NewRoleService(engine, db.Roles(), auditLog)
	if err != nil {
		log.Fatalf("role service: %v", err)
	}

	events := stream.New()
	sinks := order.EventSinks{events}
	if addr := os.Getenv("BAZARA_REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		defer client.Close()
		sinks = append(sinks, notify.New(client))
	}
	orders, err := order.NewService(engine, db.Orders(), db.Products(), sinks)
	if err != nil {
		log.Fatalf("order service: %v", err)
	}

	api := httpapi.New(httpapi.Config{
		Resolver:    resolver,
		Signer:      signer,
		Actors:      db,
		Stores:      db.Stores(),
		Assignments: db.Assignments(),
		Products:    products,
		Roles:       roles,
		Orders:      orders,
		Engine:      engine,
		AuditLog:    auditLog,
		Stream:      events,
		Ready:       httpapi.ReadyProbe{DB: db.DB()},
		Version:     version,
		SessionTTL:  envDuration("BAZARA_SESSION_TTL", 24*time.Hour),
	})

	handler := httpapi.SecurityHeaders(
		httpapi.CORS(
			httpapi.RateLimit(
				httpapi.MaxBodyBytes(
					httpapi.Logging(api.Handler()),
					envInt64("BAZARA_MAX_BODY_BYTES", 1<<20),
				),
				envInt("BAZARA_RATE_BURST", 60),
				envInt("BAZARA_RATE_PER_SECOND", 20),
			),
			splitCSV(os.Getenv("BAZARA_CORS_ORIGINS")),
		),
	)

	srv := &http.Server{
		Addr:              envString("BAZARA_ADDR", ":8080"),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	grpcSrv := grpc.NewServer()
	healthSrv := health.NewServer()
	healthSrv.SetServingStatus("bazara-api", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)

	go func() {
		addr := envString("BAZARA_GRPC_ADDR", ":9090")
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			log.Fatalf("grpc listen: %v", err)
		}
		log.Printf("gRPC health on %s", addr)
		if err := grpcSrv.Serve(lis); err != nil {
			log.Fatalf("grpc serve: %v", err)
		}
	}()
	go func() {
		log.Printf("Starting bazara-api %s on %s", version, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("Shutting down...")

	healthSrv.SetServingStatus("bazara-api", healthpb.HealthCheckResponse_NOT_SERVING)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	grpcSrv.GracefulStop()
	log.Println("Stopped")
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
