package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"school-progression-service/handlers"
	"school-progression-service/middleware"
	"school-progression-service/models"
	"school-progression-service/repository"
	"school-progression-service/services"
	"school-progression-service/utils"
	"school-progression-service/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, reading environment variables directly")
	}

	logger, err := utils.NewLogger()
	if err != nil {
		log.Fatal("failed to build logger:", err)
	}
	defer logger.Sync()

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // badge icons only
	})

	// GLOBAL: only Gateway requests allowed, no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("ALLOWED_ORIGINS not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(allowedOriginsList, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles, X-School-ID, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.PortalUser{},
		&models.UserProgress{},
		&models.UserAchievementProgress{},
		&models.UserChallengeProgress{},
		&models.ActivityLog{},
		&models.BadgeType{},
		&models.UserBadge{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	achievementRepo := repository.NewAchievementProgressRepository(db)
	challengeRepo := repository.NewChallengeProgressRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	badgeRepo := repository.NewBadgeRepository(db)

	catalog := services.NewCatalogProvider()
	achievementService := services.NewAchievementService(achievementRepo, ledgerRepo, catalog, logger)
	challengeService := services.NewChallengeService(challengeRepo, ledgerRepo, catalog, logger)
	progressionService := services.NewProgressionService(userRepo, profileRepo, ledgerRepo, achievementService, challengeService, catalog, logger)
	statsService := services.NewStatsService(profileRepo, achievementRepo, activityRepo, badgeRepo, progressionService, challengeService, catalog)
	badgeService := services.NewBadgeService(badgeRepo, logger)

	rosterServiceURL := os.Getenv("ROSTER_SERVICE_URL")
	if rosterServiceURL == "" {
		log.Fatal("ROSTER_SERVICE_URL environment variable not set")
	}
	serviceToken := os.Getenv("PROGRESSION_SERVICE_TOKEN")
	if serviceToken == "" {
		log.Fatal("PROGRESSION_SERVICE_TOKEN environment variable not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rosterWorker := workers.NewRosterSyncWorker(db, userRepo, rosterServiceURL, "/api/v1/public/roster", serviceToken, logger)
	rosterWorker.Start(ctx)

	challengeService.StartReissueSweep()

	handlers.SetupProgressionRoutes(app, progressionService, statsService, badgeService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("server running on http://localhost:5300")
	log.Println("roster sync worker running")
	log.Println("challenge re-issue sweep running (hourly)")
	log.Println("GatewayAuthMiddleware enforced globally, all requests must come from Gateway")

	<-ctx.Done()
	log.Println("shutting down server...")
	_ = app.Shutdown()
}
