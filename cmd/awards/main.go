// Job - выдача наград по событиям платформы
// Опрос Kafka (badge, campaign, milestone) -> создание наград
package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	db "github.com/glkeru/loyalty/marketplace/internal/db"
	kafka "github.com/glkeru/loyalty/marketplace/internal/external/kafka"
	interf "github.com/glkeru/loyalty/marketplace/internal/interfaces"
	services "github.com/glkeru/loyalty/marketplace/internal/services"
	"go.uber.org/zap"
)

func main() {
	// log
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// kafka
	reader, err := kafka.GetNewReader("awards")
	if err != nil {
		panic(err)
	}
	defer reader.CloseReader()

	// database
	var storage interf.MarketplaceStorage
	dt, err := db.NewMarketplaceDB(logger)
	if err != nil {
		panic(err)
	}
	storage = dt

	// cache
	var redis interf.CacheStorage
	redis, err = db.NewCacheService()
	if err != nil {
		logger.Error(err.Error())
		redis = nil
	}

	// services
	serv := services.NewAwardService(logger, storage, redis)

	// start
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var semcount int
	semenv := os.Getenv("MARKETPLACE_AWARDS_COUNT")
	if semenv == "" {
		semcount = 5
	} else {
		semcount, err = strconv.Atoi(semenv)
		if err != nil {
			semcount = 5
		}
	}
	if semcount == 0 {
		semcount = 1
	}

	wg := &sync.WaitGroup{}
	semaphore := make(chan struct{}, semcount)

loop:
	for {
		select {
		case <-interrupt:
			cancel()
			break loop
		case <-ctx.Done():
			break loop
		default:

			award, err := reader.GetNewMessage(ctx)
			if err != nil {
				logger.Error(err.Error())
				return
			}

			semaphore <- struct{}{}
			wg.Add(1)
			go func(award string) {
				defer wg.Done()
				defer func() { <-semaphore }()
				request := services.AwardRequest{}
				err := json.Unmarshal([]byte(award), &request)
				if err != nil {
					logger.Error(err.Error())
					return
				}
				_, err = serv.RequestAward(ctx, request)
				if err != nil {
					logger.Error(err.Error())
					return
				}
			}(award)
		}
	}
	wg.Wait()
}
