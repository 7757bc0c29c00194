package main

import (
	"flag"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	migrateCmd := flag.Bool("migrate", false, "Run schema bootstrap and exit")
	seedDemoCmd := flag.Bool("seed-demo", false, "Seed demo receipts (idempotent)")
	flag.Parse()

	cfg := loadConfig()
	log := newLogger()

	// No report can succeed without storage: an unreachable database is fatal.
	db, err := initDB(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	if *migrateCmd {
		log.Info().Msg("migration completed successfully")
		os.Exit(0)
	}
	if *seedDemoCmd {
		if err := seedDemoData(db); err != nil {
			log.Fatal().Err(err).Msg("seeding demo receipts failed")
		}
		log.Info().Msg("demo receipts seeded")
		os.Exit(0)
	}

	srv := &server{db: db, log: log}

	// Redis is optional; reports are computed fresh per request regardless.
	cache, err := initRedis(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize Redis, continuing without cache")
	} else {
		srv.cache = cache
	}

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	r := gin.Default()

	// CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Routes
	r.GET("/health", srv.healthCheck)
	for _, def := range reportDefs {
		r.GET("/api/analytics/"+def.Slug, srv.reportHandler(def))
	}
	r.GET("/api/analytics/search", srv.searchItems)
	r.GET("/api/data", srv.getData)
	r.POST("/api/users", srv.createUser)

	log.Info().Str("port", cfg.Port).Msg("server starting")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}
