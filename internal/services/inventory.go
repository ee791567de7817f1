package marketplace

import (
	"context"

	interf "github.com/glkeru/loyalty/marketplace/internal/interfaces"
	model "github.com/glkeru/loyalty/marketplace/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type InventoryService struct {
	logger *zap.Logger
	db     interf.MarketplaceStorage
}

func NewInventoryService(logger *zap.Logger, db interf.MarketplaceStorage) *InventoryService {
	return &InventoryService{logger, db}
}

// Каталог с уровнями и статусом остатков
func (s *InventoryService) Catalog(ctx context.Context) ([]model.CatalogEntry, error) {
	return s.db.GetCatalog(ctx)
}

func (s *InventoryService) Item(ctx context.Context, itemID uuid.UUID) (model.CatalogItem, error) {
	return s.db.GetItem(ctx, itemID)
}

func (s *InventoryService) Tiers(ctx context.Context) ([]model.PrizeTier, error) {
	return s.db.GetTiers(ctx)
}
