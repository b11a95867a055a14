package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"diamond-pay.backend/internal/config"
	"diamond-pay.backend/internal/infrastructure/blockchain"
	"diamond-pay.backend/internal/infrastructure/custodial"
	"diamond-pay.backend/internal/infrastructure/jobs"
	"diamond-pay.backend/internal/infrastructure/repositories"
	"diamond-pay.backend/internal/interfaces/http/handlers"
	"diamond-pay.backend/internal/interfaces/http/middleware"
	"diamond-pay.backend/internal/usecases"
	"diamond-pay.backend/pkg/jwt"
	"diamond-pay.backend/pkg/logger"
	"diamond-pay.backend/pkg/redis"
)

var (
	loadDotenv = godotenv.Load
	loadCfg    = config.Load
	initLog    = logger.Init
	initRedis  = redis.Init
	openDB     = func(dsn string) (*gorm.DB, error) {
		return gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			PrepareStmt: false,
		})
	}
	newChainClient = func(rpcURL, contractAddress string) (blockchain.ReadClient, error) {
		return blockchain.NewEVMClient(rpcURL, contractAddress)
	}
	runServer = func(r *gin.Engine, port string) error { return r.Run(":" + port) }
	getStdDB  = func(db *gorm.DB) (*sql.DB, error) { return db.DB() }
)

func main() {
	if err := runMainProcess(); err != nil {
		log.Fatal(err)
	}
}

func runMainProcess() error {
	// Load .env file
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := loadCfg()

	// Initialize Logger
	initLog(cfg.Server.Env)
	logger.Info(context.Background(), "Logger initialized", zap.String("env", cfg.Server.Env))
	defer logger.Sync()

	// Initialize Redis (balance cache)
	if err := initRedis(cfg.Redis.URL, cfg.Redis.Password); err != nil {
		logger.Error(context.Background(), "Failed to initialize Redis", zap.Error(err))
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	logger.Info(context.Background(), "Redis initialized")

	// Set Gin mode
	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database using GORM
	dsn := cfg.Database.URL()
	db, err := openDB(dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := getStdDB(db)
	if err != nil {
		return fmt.Errorf("failed to get generic database object: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		log.Printf("Database not available: %v (endpoints will return errors)", err)
	} else {
		log.Println("Connected to PostgreSQL via GORM")
	}

	// Initialize JWT service
	jwtService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiry)

	// Initialize repositories
	custodialWalletRepo := repositories.NewCustodialWalletRepository(db)
	linkedWalletRepo := repositories.NewLinkedWalletRepository(db)
	balanceCacheRepo := repositories.NewBalanceCacheRepository()
	ledgerBalanceRepo := repositories.NewLedgerBalanceRepository(db)
	ledgerEntryRepo := repositories.NewLedgerEntryRepository(db)
	settlementRepo := repositories.NewSettlementRepository(db)
	purchaseRepo := repositories.NewPurchaseRepository(db)
	uow := repositories.NewUnitOfWork(db)

	// Initialize external clients
	providerClient := custodial.NewHTTPClient(cfg.Provider)
	chainClient, err := newChainClient(cfg.Chain.RPCURL, cfg.Chain.PurchaseContractAddress)
	if err != nil {
		return fmt.Errorf("failed to connect to chain rpc: %w", err)
	}

	// Initialize usecases
	questNotifier := usecases.NewHTTPQuestNotifier(cfg.Quest)
	settlementUsecase := usecases.NewSettlementUsecase(settlementRepo, purchaseRepo, ledgerBalanceRepo, ledgerEntryRepo, linkedWalletRepo, uow, questNotifier)
	walletUsecase := usecases.NewWalletUsecase(custodialWalletRepo, linkedWalletRepo, balanceCacheRepo, providerClient, cfg.Provider, cfg.Chain, cfg.Exchange)
	purchaseUsecase := usecases.NewPurchaseUsecase(walletUsecase, settlementUsecase, purchaseRepo, providerClient, cfg.Chain, cfg.Exchange)
	exchangeUsecase := usecases.NewExchangeUsecase(custodialWalletRepo, linkedWalletRepo, ledgerBalanceRepo, ledgerEntryRepo, settlementRepo, balanceCacheRepo, uow, providerClient, cfg.Provider, cfg.Exchange)
	ledgerUsecase := usecases.NewLedgerUsecase(ledgerBalanceRepo, ledgerEntryRepo)
	webhookUsecase := usecases.NewWebhookUsecase(settlementUsecase, cfg.Provider, cfg.Server)

	// Initialize handlers
	paymentHandler := handlers.NewPaymentHandler(purchaseUsecase, exchangeUsecase, ledgerUsecase)
	walletHandler := handlers.NewWalletHandler(walletUsecase)
	webhookHandler := handlers.NewWebhookHandler(webhookUsecase)

	authMiddleware := middleware.AuthMiddleware(jwtService)

	// Start background jobs
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller := jobs.NewChainLogPoller(chainClient, settlementUsecase, cfg.Chain)
	go poller.Start(ctx)

	reconciler := jobs.NewSettlementReconciler(settlementRepo, settlementUsecase, providerClient, cfg.Reconcile)
	go reconciler.Start(ctx)

	// Initialize router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())

	applyCORSMiddleware(r)
	registerHealthRoute(r)
	registerMetricsRoute(r)
	registerAPIV1Routes(r, routeDeps{
		paymentHandler: paymentHandler,
		walletHandler:  walletHandler,
		webhookHandler: webhookHandler,
		authMiddleware: authMiddleware,
	})

	// Graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down server...")
		cancel()
	}()

	log.Printf("Diamond-Pay Backend starting on port %s", cfg.Server.Port)

	if err := runServer(r, cfg.Server.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}
