package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smart-dining/internal/audit"
	"smart-dining/internal/config"
	"smart-dining/internal/database"
	"smart-dining/internal/inventory"
	"smart-dining/internal/logger"
	"smart-dining/internal/messaging"
	"smart-dining/internal/notifier"
	"smart-dining/internal/payment"
	"smart-dining/internal/services/pos"
	"smart-dining/internal/storage"
	"smart-dining/internal/workflow"
)

func main() {
	var (
		mode     = flag.String("mode", "", "Service mode (pos-service, inventory-worker, kitchen-display, bar-display, notification-subscriber)")
		port     = flag.Int("port", 3000, "HTTP port")
		prefetch = flag.Int("prefetch", 1, "RabbitMQ prefetch count")
	)
	flag.Parse()

	if *mode == "" {
		fmt.Fprintf(os.Stderr, "Error: --mode flag is required\n")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load("config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(*mode)
	requestID := logger.GenerateRequestID()

	log.Info("service_started", fmt.Sprintf("Starting %s", *mode), requestID, map[string]interface{}{
		"mode": *mode,
		"port": *port,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("graceful_shutdown", "Received shutdown signal", requestID, nil)
		cancel()
	}()

	switch *mode {
	case "pos-service":
		err = runPOSService(ctx, cfg, log, *port)
	case "inventory-worker":
		err = runInventoryWorker(ctx, cfg, log, *prefetch)
	case "kitchen-display":
		err = runDisplay(ctx, cfg, log, notifier.DisplayKitchen, messaging.KitchenQueue, *prefetch)
	case "bar-display":
		err = runDisplay(ctx, cfg, log, notifier.DisplayBar, messaging.BarQueue, *prefetch)
	case "notification-subscriber":
		err = runDisplay(ctx, cfg, log, notifier.DisplayNotifications, messaging.NotificationsQueue, *prefetch)
	default:
		log.Error("validation_failed", fmt.Sprintf("Unknown mode: %s", *mode), requestID, nil, nil)
		os.Exit(1)
	}

	if err != nil {
		log.Error("service_failed", fmt.Sprintf("%s failed", *mode), requestID, err, nil)
		os.Exit(1)
	}

	log.Info("service_stopped", "Service stopped gracefully", requestID, nil)
}

// runPOSService runs the order workflow HTTP service
func runPOSService(ctx context.Context, cfg *config.Config, log *logger.Logger, port int) error {
	requestID := logger.GenerateRequestID()

	db, err := database.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	log.Info("db_connected", "Connected to PostgreSQL database", requestID, nil)

	if err := db.RunMigrations(ctx, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	conn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}
	defer conn.Close()

	log.Info("rabbitmq_connected", "Connected to RabbitMQ", requestID, nil)

	publisher := messaging.NewPublisher(conn, log)
	staff := storage.NewStaffRepository(db)
	events := notifier.NewEvents(publisher, staff, log)

	orders := storage.NewOrderRepository(db)
	menu := storage.NewMenuRepository(db)
	tables := storage.NewTableRepository(db)
	payments := storage.NewPaymentRepository(db)
	trail := audit.NewTrail(db)

	ledger := inventory.NewLedger(menu, events, log)
	reconciler := payment.NewReconciler(payments)

	engine := workflow.NewEngine(orders, menu, tables, reconciler, ledger, events, events, log, workflow.Options{
		TaxRate:        cfg.App.TaxRate,
		AsyncInventory: cfg.App.AsyncInventory,
	})

	service := pos.NewService(engine, orders, menu, payments, ledger, reconciler, trail, db, log)
	handler := pos.NewHandler(service, log)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: handler.SetupRoutes(),
	}

	go func() {
		log.Info("service_started", fmt.Sprintf("POS service started on port %d", port), requestID, map[string]interface{}{
			"port":            port,
			"tax_rate":        cfg.App.TaxRate,
			"async_inventory": cfg.App.AsyncInventory,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server_failed", "HTTP server failed", requestID, err, nil)
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	return server.Shutdown(shutdownCtx)
}

// runInventoryWorker runs the async stock deduction worker
func runInventoryWorker(ctx context.Context, cfg *config.Config, log *logger.Logger, prefetch int) error {
	requestID := logger.GenerateRequestID()

	db, err := database.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	log.Info("db_connected", "Connected to PostgreSQL database", requestID, nil)

	conn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}
	defer conn.Close()

	publisher := messaging.NewPublisher(conn, log)
	staff := storage.NewStaffRepository(db)
	events := notifier.NewEvents(publisher, staff, log)

	orders := storage.NewOrderRepository(db)
	menu := storage.NewMenuRepository(db)
	ledger := inventory.NewLedger(menu, events, log)

	consumer := messaging.NewConsumer(conn, log, messaging.DeductionQueue, "inventory-worker", prefetch)
	worker := inventory.NewWorker(consumer, orders, ledger, log)
	defer worker.Close()

	return worker.Start(ctx)
}

// runDisplay runs one of the display subscribers
func runDisplay(ctx context.Context, cfg *config.Config, log *logger.Logger, kind notifier.DisplayKind, queue string, prefetch int) error {
	conn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}
	defer conn.Close()

	consumer := messaging.NewConsumer(conn, log, queue, fmt.Sprintf("%s-display", kind), prefetch)
	display := notifier.NewDisplay(kind, consumer, log)

	return display.Start(ctx)
}
