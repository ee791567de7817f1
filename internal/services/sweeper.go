package marketplace

import (
	"context"
	"time"

	interf "github.com/glkeru/loyalty/marketplace/internal/interfaces"
	"go.uber.org/zap"
)

type SweepService struct {
	logger *zap.Logger
	db     interf.MarketplaceStorage
}

func NewSweepService(logger *zap.Logger, db interf.MarketplaceStorage) *SweepService {
	return &SweepService{logger, db}
}

// Просрочка наград: available с истекшим сроком переводятся в expired,
// единицы возвращаются в остаток. Повторный запуск ничего не меняет.
func (s *SweepService) Sweep(ctx context.Context) (int64, error) {
	count, err := s.db.ExpireAwards(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.logger.Info("awards expired",
			zap.Int64("count", count),
		)
	}
	return count, nil
}
