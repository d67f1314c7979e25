package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/ministryhub/platform/internal/config"
	"github.com/ministryhub/platform/internal/database"
	"github.com/ministryhub/platform/internal/handler"
	"github.com/ministryhub/platform/internal/queue"
	"github.com/ministryhub/platform/internal/repository"
	"github.com/ministryhub/platform/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; response cache and rate limiting disabled")
	}

	users := repository.NewUserRepo(db)
	sermons := repository.NewSermonRepo(db)
	prayers := repository.NewPrayerRepo(db)
	books := repository.NewBookRepo(db)
	materials := repository.NewMaterialRepo(db)
	assignments := repository.NewAssignmentRepo(db)
	submissions := repository.NewSubmissionRepo(db)

	// The submission consumer keeps its own reconnect loop; a missing broker
	// never blocks the API.
	go func() {
		if err := queue.StartSubmissionConsumer(); err != nil {
			log.Printf("submission consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.RegisterAll(e, router.Deps{
		Cfg:         cfg,
		Users:       users,
		Auth:        handler.NewAuthHandler(cfg, users),
		UserH:       handler.NewUserHandler(users),
		Sermons:     handler.NewSermonHandler(sermons),
		Prayers:     handler.NewPrayerHandler(prayers),
		Books:       handler.NewBookHandler(books),
		Materials:   handler.NewMaterialHandler(materials),
		Assignments: handler.NewAssignmentHandler(assignments, submissions),
		Redis:       rdb,
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
