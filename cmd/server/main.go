package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/iliyamo/restaurant-directory/internal/auth"
	"github.com/iliyamo/restaurant-directory/internal/cache"
	"github.com/iliyamo/restaurant-directory/internal/config"
	"github.com/iliyamo/restaurant-directory/internal/database"
	"github.com/iliyamo/restaurant-directory/internal/handler"
	"github.com/iliyamo/restaurant-directory/internal/pool"
	"github.com/iliyamo/restaurant-directory/internal/queue"
	"github.com/iliyamo/restaurant-directory/internal/repository"
	"github.com/iliyamo/restaurant-directory/internal/server"
)

func main() {
	_ = godotenv.Load() // optional .env; real env vars win
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.PoolSize)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	p := pool.New(db, cfg.PoolSize)

	users := repository.NewUserRepo(p)
	venues := repository.NewRestaurantRepo(p)
	reviews := repository.NewReviewRepo(p)
	favourites := repository.NewFavouriteRepo(p)

	registry := auth.NewRegistry()
	venueCache := cache.NewVenueCache(config.NewRedisClient(), config.CacheTTL())

	go func() {
		if err := queue.StartReviewConsumer(); err != nil {
			log.Printf("review-consumer: %v", err)
		}
	}()

	dispatcher := server.NewDispatcher(
		handler.NewSystemHandler(),
		handler.NewAuthHandler(users, registry, cfg.BcryptCost),
		handler.NewSearchHandler(venues),
		handler.NewRestaurantHandler(venues, users, venueCache),
		handler.NewReviewHandler(reviews, venueCache, queue.PublishReviewPosted),
		handler.NewResponseHandler(reviews),
		handler.NewFavouriteHandler(favourites),
	)

	srv := server.New(cfg.ListenAddr, dispatcher, registry)
	if err := srv.Start(); err != nil {
		log.Fatalf("listen: %v", err)
	}
	log.Printf("listening on %s (env=%s)", srv.Addr(), cfg.Env)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("shutting down")
	srv.Stop()
	p.Flush()
	_ = db.Close()
}
