package marketplace

import (
	"context"
	"fmt"
	"time"

	interf "github.com/glkeru/loyalty/marketplace/internal/interfaces"
	model "github.com/glkeru/loyalty/marketplace/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AwardService struct {
	logger *zap.Logger
	db     interf.MarketplaceStorage
	cache  interf.CacheStorage
}

func NewAwardService(logger *zap.Logger, db interf.MarketplaceStorage, cache interf.CacheStorage) *AwardService {
	return &AwardService{logger, db, cache}
}

// Параметры выдачи награды
type AwardRequest struct {
	ItemID        uuid.UUID         `json:"itemId"`
	UserID        string            `json:"userId"`
	Source        model.AwardSource `json:"source"`
	SourceRef     string            `json:"sourceRef,omitempty"`
	IssuedBy      string            `json:"issuedBy,omitempty"`
	Message       string            `json:"message,omitempty"`
	ExpiresInDays int               `json:"expiresInDays,omitempty"`
	Pending       bool              `json:"pending,omitempty"` // награда требует активации
	Attributes    map[string]string `json:"attributes,omitempty"`
}

// Выдача награды: проверка лимитов пользователя, резерв единицы,
// снимок стоимости. При сбое вставки резерв возвращается.
func (s *AwardService) RequestAward(ctx context.Context, req AwardRequest) (model.PrizeAward, error) {
	if req.UserID == "" {
		return model.PrizeAward{}, fmt.Errorf("userId is required: %w", model.ErrValidation)
	}
	if req.Source == "" {
		return model.PrizeAward{}, fmt.Errorf("source is required: %w", model.ErrValidation)
	}

	item, err := s.db.GetItem(ctx, req.ItemID)
	if err != nil {
		return model.PrizeAward{}, err
	}
	if !item.Active || item.Deleted {
		return model.PrizeAward{}, fmt.Errorf("item %s is not active: %w", item.ID, model.ErrValidation)
	}

	// лимиты на пользователя
	if item.MaxPerUser > 0 || item.CooldownDays > 0 {
		count, last, err := s.db.AwardCountForUser(ctx, item.ID, req.UserID)
		if err != nil {
			return model.PrizeAward{}, err
		}
		if item.MaxPerUser > 0 && count >= item.MaxPerUser {
			return model.PrizeAward{}, fmt.Errorf("max per user reached: %w", model.ErrNotEligible)
		}
		if item.CooldownDays > 0 && count > 0 {
			next := last.Add(time.Duration(item.CooldownDays) * 24 * time.Hour)
			if time.Now().Before(next) {
				return model.PrizeAward{}, fmt.Errorf("cooldown until %s: %w", next.Format(time.RFC3339), model.ErrNotEligible)
			}
		}
	}

	err = s.db.ReserveStock(ctx, item.ID)
	if err != nil {
		return model.PrizeAward{}, err
	}

	now := time.Now()
	award := model.PrizeAward{
		ID:              uuid.New(),
		ItemID:          item.ID,
		UserID:          req.UserID,
		Source:          req.Source,
		SourceRef:       req.SourceRef,
		IssuedBy:        req.IssuedBy,
		Message:         req.Message,
		Status:          model.AwardAvailable,
		StatusChangedAt: now,
		PointsValue:     item.PointsCost,
		MonetaryValue:   item.MonetaryValue,
		Attributes:      req.Attributes,
		CreatedAt:       now,
	}
	if req.Pending {
		award.Status = model.AwardPending
	}
	if req.ExpiresInDays > 0 {
		exp := now.Add(time.Duration(req.ExpiresInDays) * 24 * time.Hour)
		award.ExpiresAt = &exp
	}

	err = s.db.AwardCreate(ctx, award)
	if err != nil {
		// компенсация резерва
		if relerr := s.db.ReleaseStock(ctx, item.ID); relerr != nil {
			s.logger.Error("release after failed award create",
				zap.String("item", item.ID.String()),
				zap.Error(relerr),
			)
		}
		return model.PrizeAward{}, err
	}

	s.invalidate(ctx, req.UserID)
	return award, nil
}

// Активация отложенной награды: pending -> available
func (s *AwardService) Activate(ctx context.Context, awardID uuid.UUID, actor string) error {
	err := s.db.AwardFlip(ctx, awardID, model.AwardPending, model.AwardAvailable, actor, "")
	if err != nil {
		return err
	}
	award, err := s.db.AwardGet(ctx, awardID)
	if err == nil {
		s.invalidate(ctx, award.UserID)
	}
	return nil
}

// Отмена награды с возвратом единицы в остаток
func (s *AwardService) Cancel(ctx context.Context, awardID uuid.UUID, actor, reason string) error {
	award, err := s.db.AwardGet(ctx, awardID)
	if err != nil {
		return err
	}
	if !model.AwardTransitionAllowed(award.Status, model.AwardCancelled) {
		return fmt.Errorf("%s -> cancelled: %w", award.Status, model.ErrInvalidTransition)
	}
	err = s.db.AwardFlip(ctx, awardID, award.Status, model.AwardCancelled, actor, reason)
	if err != nil {
		return err
	}
	err = s.db.ReleaseStock(ctx, award.ItemID)
	if err != nil {
		s.logger.Error("release on cancel",
			zap.String("award", awardID.String()),
			zap.Error(err),
		)
	}
	s.invalidate(ctx, award.UserID)
	return nil
}

func (s *AwardService) Get(ctx context.Context, awardID uuid.UUID) (model.PrizeAward, error) {
	return s.db.AwardGet(ctx, awardID)
}

// Кошелек: сначала кэш, потом база
func (s *AwardService) Wallet(ctx context.Context, userID string) (wallet []model.WalletEntry, err error) {
	if s.cache != nil {
		wallet, err = s.cache.GetWallet(ctx, userID)
		if err == nil {
			return wallet, nil
		}
	}
	wallet, err = s.db.Wallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.SetWallet(ctx, userID, wallet)
	}
	return wallet, nil
}

func (s *AwardService) invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateWallet(ctx, userID); err != nil {
		s.logger.Error(err.Error())
	}
}
