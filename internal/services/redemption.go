package marketplace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	interf "github.com/glkeru/loyalty/marketplace/internal/interfaces"
	model "github.com/glkeru/loyalty/marketplace/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type RedemptionService struct {
	logger *zap.Logger
	db     interf.MarketplaceStorage
	cache  interf.CacheStorage
}

func NewRedemptionService(logger *zap.Logger, db interf.MarketplaceStorage, cache interf.CacheStorage) *RedemptionService {
	return &RedemptionService{logger, db, cache}
}

// Параметры запуска погашения
type InitiateRequest struct {
	AwardID            uuid.UUID         `json:"awardId"`
	UserID             string            `json:"userId"`
	FulfillmentMethod  string            `json:"fulfillmentMethod,omitempty"`
	FulfillmentDetails map[string]string `json:"fulfillmentDetails,omitempty"`
	ShippingAddress    map[string]string `json:"shippingAddress,omitempty"`
}

// Код погашения для выдачи приза: RDM-XXXXXXXXXX
func redemptionCode() string {
	b := make([]byte, 5)
	rand.Read(b)
	return "RDM-" + strings.ToUpper(hex.EncodeToString(b))
}

// Старт погашения. Награда должна принадлежать пользователю и быть
// доступной, повторное погашение той же награды отклоняется хранилищем.
func (s *RedemptionService) Initiate(ctx context.Context, req InitiateRequest) (model.PrizeRedemption, error) {
	if req.UserID == "" {
		return model.PrizeRedemption{}, fmt.Errorf("userId is required: %w", model.ErrValidation)
	}

	award, err := s.db.AwardGet(ctx, req.AwardID)
	if err != nil {
		return model.PrizeRedemption{}, err
	}
	if award.UserID != req.UserID {
		return model.PrizeRedemption{}, fmt.Errorf("award %s: %w", req.AwardID, model.ErrNotFound)
	}

	item, err := s.db.GetItem(ctx, award.ItemID)
	if err != nil {
		return model.PrizeRedemption{}, err
	}
	method := req.FulfillmentMethod
	if method == "" {
		method = item.FulfillmentType
	}

	now := time.Now()
	redemption := model.PrizeRedemption{
		ID:                 uuid.New(),
		AwardID:            award.ID,
		ItemID:             award.ItemID,
		UserID:             req.UserID,
		Code:               redemptionCode(),
		Status:             model.RedemptionInitiated,
		FulfillmentMethod:  method,
		FulfillmentDetails: req.FulfillmentDetails,
		ShippingAddress:    req.ShippingAddress,
		InitiatedAt:        now,
		CreatedAt:          now,
	}

	redemption, err = s.db.RedemptionCreate(ctx, redemption)
	if err != nil {
		return model.PrizeRedemption{}, err
	}

	s.invalidate(ctx, req.UserID)
	return redemption, nil
}

// Переход погашения в новый статус
func (s *RedemptionService) Advance(ctx context.Context, req model.AdvanceRequest) (model.PrizeRedemption, error) {
	if req.Target == "" {
		return model.PrizeRedemption{}, fmt.Errorf("target is required: %w", model.ErrValidation)
	}
	redemption, err := s.db.RedemptionAdvance(ctx, req, time.Now())
	if err != nil {
		return model.PrizeRedemption{}, err
	}
	s.invalidate(ctx, redemption.UserID)
	return redemption, nil
}

// Оценка пользователя, только после получения приза
func (s *RedemptionService) Feedback(ctx context.Context, redemptionID uuid.UUID, rating int, feedback string) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("rating must be 1..5: %w", model.ErrValidation)
	}
	redemption, err := s.db.RedemptionGet(ctx, redemptionID)
	if err != nil {
		return err
	}
	if redemption.Status != model.RedemptionCompleted {
		return fmt.Errorf("redemption is not completed: %w", model.ErrValidation)
	}
	return s.db.RedemptionFeedback(ctx, redemptionID, rating, feedback)
}

func (s *RedemptionService) Get(ctx context.Context, redemptionID uuid.UUID) (model.PrizeRedemption, error) {
	return s.db.RedemptionGet(ctx, redemptionID)
}

func (s *RedemptionService) History(ctx context.Context, redemptionID uuid.UUID) ([]model.StatusHistory, error) {
	return s.db.RedemptionHistory(ctx, redemptionID)
}

func (s *RedemptionService) Stats(ctx context.Context, from, to time.Time) (model.RedemptionStats, error) {
	return s.db.RedemptionStats(ctx, from, to)
}

func (s *RedemptionService) invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateWallet(ctx, userID); err != nil {
		s.logger.Error(err.Error())
	}
}
