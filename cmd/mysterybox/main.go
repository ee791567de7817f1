// Job - запуск розыгрышей mystery box, у которых наступило время
package main

import (
	"context"

	"go.uber.org/zap"

	db "github.com/glkeru/loyalty/marketplace/internal/db"
	engine "github.com/glkeru/loyalty/marketplace/internal/external/engine"
	rabbit "github.com/glkeru/loyalty/marketplace/internal/external/rabbitmq"
	interf "github.com/glkeru/loyalty/marketplace/internal/interfaces"
	services "github.com/glkeru/loyalty/marketplace/internal/services"
)

func main() {
	// log
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// database
	var storage interf.MarketplaceStorage
	dt, err := db.NewMarketplaceDB(logger)
	if err != nil {
		panic(err)
	}
	storage = dt

	// events
	var events interf.EventStorage
	ev, err := db.NewEventsDB()
	if err != nil {
		panic(err)
	}
	events = ev

	// cache
	var redis interf.CacheStorage
	redis, err = db.NewCacheService()
	if err != nil {
		logger.Error(err.Error())
		redis = nil
	}

	// notifications
	var notifier interf.WinnerNotifier
	rb, err := rabbit.NewRabbitNotifier()
	if err != nil {
		logger.Error(err.Error())
	} else {
		notifier = rb
		defer rb.Close()
	}

	awards := services.NewAwardService(logger, storage, redis)
	serv := services.NewMysteryBoxService(logger, storage, events, engine.EngineResolver{}, notifier, awards)
	err = serv.RunDue(context.Background())
	if err != nil {
		logger.Error(err.Error())
		return
	}
	logger.Info("Job mystery box run is finished")
}
