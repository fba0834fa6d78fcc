package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/catbreakers/clash-sync-backend/internal/api/handlers"
	"github.com/catbreakers/clash-sync-backend/internal/clash"
	"github.com/catbreakers/clash-sync-backend/internal/config"
	"github.com/catbreakers/clash-sync-backend/internal/service"
	"github.com/catbreakers/clash-sync-backend/internal/store"
)

func main() {

	// LOAD ENV
	_ = godotenv.Load()
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	// RECORD STORE
	var recordStore store.RecordStore
	switch cfg.StoreBackend {
	case "postgres":
		pg, err := store.NewPostgresStore(cfg.PostgresDSN(), logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		if err := pg.RunMigrations(context.Background()); err != nil {
			logger.Fatal().Err(err).Msg("migration error")
		}
		recordStore = pg
	default:
		fs, err := store.NewFileStore(cfg.DataDir, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to open data dir")
		}
		recordStore = fs
	}
	defer recordStore.Close()

	// SERVICES
	stats := service.NewStats(recordStore)
	clashClient := clash.NewClient(cfg.ClashAPIBaseURL, cfg.ClashAPIToken, logger)
	if !clashClient.Configured() {
		logger.Warn().Msg("clash api token not configured, proxy routes disabled")
	}

	// HANDLERS
	clanHandler := handlers.NewClanHandler(recordStore, stats, logger)
	proxyHandler := handlers.NewProxyHandler(clashClient, logger)

	// ROUTER
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := r.Group("/api")

	// ANNOTATION SYNC ROUTES
	clan := api.Group("/clan/:clanTag")
	{
		clan.GET("/members", clanHandler.GetMembers)
		clan.POST("/members", clanHandler.SyncMembers)
		clan.POST("/member/:memberTag", clanHandler.SyncMember)
		clan.GET("/stats", clanHandler.GetStats)
	}

	// CLASH API PROXY ROUTES
	clans := api.Group("/clans")
	{
		clans.GET("/:clanTag", proxyHandler.GetClan)
		clans.GET("/:clanTag/currentwar", proxyHandler.GetCurrentWar)
		clans.GET("/:clanTag/currentwar/leaguegroup", proxyHandler.GetLeagueGroup)
	}
	api.GET("/players/:playerTag", proxyHandler.GetPlayer)

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "CatBreakers backend API",
			"version": "1.0.0",
			"endpoints": gin.H{
				"clans":       "/api/clans/:clanTag",
				"players":     "/api/players/:playerTag",
				"clanMembers": "/api/clan/:clanTag/members",
				"clanStats":   "/api/clan/:clanTag/stats",
			},
			"status": "online",
			"store":  cfg.StoreBackend,
		})
	})

	// START SERVER
	logger.Info().Str("port", cfg.Port).Str("store", cfg.StoreBackend).Msg("server running")
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
