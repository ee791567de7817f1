package marketplace

import (
	"context"
	"time"

	model "github.com/glkeru/loyalty/marketplace/internal/models"
	"github.com/google/uuid"
)

//go:generate mockgen -destination=./../services/mock_marketplace_test.go -package=marketplace . EventStorage,EligibilityResolver,WinnerNotifier

type MarketplaceStorage interface {
	// каталог
	GetItem(ctx context.Context, itemID uuid.UUID) (model.CatalogItem, error)
	GetCatalog(ctx context.Context) ([]model.CatalogEntry, error)
	GetTiers(ctx context.Context) ([]model.PrizeTier, error)
	GetMysteryItems(ctx context.Context) ([]model.CatalogItem, error)

	// остатки: условные операции, гонки разрешает хранилище
	ReserveStock(ctx context.Context, itemID uuid.UUID) error
	ReleaseStock(ctx context.Context, itemID uuid.UUID) error

	// награды
	AwardCreate(ctx context.Context, award model.PrizeAward) error
	AwardGet(ctx context.Context, awardID uuid.UUID) (model.PrizeAward, error)
	AwardFlip(ctx context.Context, awardID uuid.UUID, from, to model.AwardStatus, actor, reason string) error
	AwardCountForUser(ctx context.Context, itemID uuid.UUID, userID string) (count int, last time.Time, err error)
	ExpireAwards(ctx context.Context, now time.Time) (int64, error)

	// погашения
	RedemptionCreate(ctx context.Context, redemption model.PrizeRedemption) (model.PrizeRedemption, error)
	RedemptionGet(ctx context.Context, redemptionID uuid.UUID) (model.PrizeRedemption, error)
	RedemptionAdvance(ctx context.Context, req model.AdvanceRequest, now time.Time) (model.PrizeRedemption, error)
	RedemptionFeedback(ctx context.Context, redemptionID uuid.UUID, rating int, feedback string) error
	RedemptionHistory(ctx context.Context, redemptionID uuid.UUID) ([]model.StatusHistory, error)
	RedemptionStats(ctx context.Context, from, to time.Time) (model.RedemptionStats, error)

	// кошелек
	Wallet(ctx context.Context, userID string) ([]model.WalletEntry, error)
}

type CacheStorage interface {
	GetWallet(ctx context.Context, userID string) ([]model.WalletEntry, error)
	SetWallet(ctx context.Context, userID string, wallet []model.WalletEntry) error
	InvalidateWallet(ctx context.Context, userID string) error
}

type EventStorage interface {
	EventCreate(ctx context.Context, event model.MysteryBoxEvent) (uuid.UUID, error)
	EventGet(ctx context.Context, eventID uuid.UUID) (model.MysteryBoxEvent, error)
	EventsDue(ctx context.Context, now time.Time) ([]model.MysteryBoxEvent, error)
	EventMarkRunning(ctx context.Context, eventID uuid.UUID) error
	EventComplete(ctx context.Context, eventID uuid.UUID, winners []model.EventWinner, eligible int) error
	EventFail(ctx context.Context, eventID uuid.UUID, message string) error
}

// EligibilityResolver вычисляет круг участников по критерию события.
// Реализация - вызов сервиса engine.
type EligibilityResolver interface {
	Eligible(ctx context.Context, criteria map[string]any) ([]string, error)
}

type WinnerNotifier interface {
	NotifyWinner(ctx context.Context, event model.MysteryBoxEvent, winner model.EventWinner) error
}
