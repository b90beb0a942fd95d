// README: Entry point; loads config, wires services, starts HTTP server and background consumers.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"hailer/internal/config"
	"hailer/internal/events"
	httptransport "hailer/internal/http"
	"hailer/internal/infra"
	"hailer/internal/modules/allocation"
	"hailer/internal/modules/ranking"
	"hailer/internal/modules/registry"
	"hailer/internal/modules/surge"
	"hailer/internal/mq"
	"hailer/internal/types"
	"hailer/internal/ws"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Postgres and Redis are mirror backends; the service runs without
	// either, it just loses the overview endpoint and the snapshot log.
	var dbPool *pgxpool.Pool
	if cfg.DB.DSN != "" {
		pool, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			log.Fatal(err)
		}
		dbPool = pool
		defer pool.Close()
	}
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = infra.NewRedis(cfg.Redis.Addr)
	}
	store := registry.NewStore(dbPool, redisClient)

	reg := registry.New(cfg.Registry.FreshnessWindow)
	regSvc := registry.NewService(reg, store, cfg.Registry.SnapshotEvery)

	hub := ws.NewHub()
	router := ws.NewResponseRouter()
	hub.OnResponse(func(driverID, requestID types.ID, accepted bool) {
		router.Deliver(driverID, requestID, accepted)
	})
	hub.OnDisconnect(func(driverID types.ID) {
		regSvc.Offline(context.Background(), driverID)
	})

	var sinks events.Multi
	if dbPool != nil {
		sinks = append(sinks, allocation.NewStore(dbPool))
	}
	if cfg.Kafka.Brokers != "" {
		kafkaPublisher := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kafkaPublisher.Close()
		sinks = append(sinks, kafkaPublisher)
	}
	var publisher allocation.EventPublisher
	if len(sinks) > 0 {
		publisher = sinks
	}

	ranker := ranking.New(ranking.Weights{
		Distance:   cfg.Ranking.DistanceWeight,
		Rating:     cfg.Ranking.RatingWeight,
		Experience: cfg.Ranking.ExperienceWeight,
		Response:   cfg.Ranking.ResponseWeight,
	}, cfg.Allocation.MaxRadiusKm)
	allocator := allocation.NewService(reg, ranker, ws.NewOfferNotifier(hub), router, publisher, cfg.Allocation)
	estimator := surge.New(reg)

	if cfg.AMQP.URL != "" {
		broker, err := mq.Dial(ctx, cfg.AMQP.URL)
		if err != nil {
			log.Fatalf("rabbitmq: %v", err)
		}
		defer broker.Close()
		consumer := mq.NewLocationConsumer(broker, cfg.AMQP.Exchange, regSvc)
		go func() {
			if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
				log.Printf("location consumer stopped: %v", err)
			}
		}()
	}

	go regSvc.RunSnapshotFlusher(ctx)

	handler := httptransport.NewRouter(httptransport.RouterDeps{
		Allocator: allocator,
		Registry:  regSvc,
		Store:     store,
		Surge:     estimator,
		Hub:       hub,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler}
	go func() {
		<-ctx.Done()
		_ = server.Shutdown(context.Background())
	}()

	log.Printf("hailer-api listening on %s", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
