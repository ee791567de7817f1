// Job - просрочка наград (разметка истекших и возврат остатков)
// Если срок награды вышел - награда размечается expired, единица возвращается в каталог
package main

import (
	"context"

	"go.uber.org/zap"

	db "github.com/glkeru/loyalty/marketplace/internal/db"
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

	serv := services.NewSweepService(logger, storage)
	count, err := serv.Sweep(context.Background())
	if err != nil {
		logger.Error(err.Error())
		return
	}
	logger.Info("Job awards sweep is finished",
		zap.Int64("expired", count),
	)
}
