package marketplace

import (
	"context"
	"fmt"
	"sync"
	"time"

	model "github.com/glkeru/loyalty/marketplace/internal/models"
	"github.com/google/uuid"
)

// memStore - хранилище в памяти для тестов, повторяет условную
// семантику операций Postgres под общим мьютексом
type memStore struct {
	mu          sync.Mutex
	items       map[uuid.UUID]*model.CatalogItem
	tiers       []model.PrizeTier
	awards      map[uuid.UUID]*model.PrizeAward
	redemptions map[uuid.UUID]*model.PrizeRedemption
	byAward     map[uuid.UUID]uuid.UUID // уникальный индекс awardid
	history     []model.StatusHistory
}

func newMemStore() *memStore {
	return &memStore{
		items:       map[uuid.UUID]*model.CatalogItem{},
		awards:      map[uuid.UUID]*model.PrizeAward{},
		redemptions: map[uuid.UUID]*model.PrizeRedemption{},
		byAward:     map[uuid.UUID]uuid.UUID{},
	}
}

func (m *memStore) addItem(item model.CatalogItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := item
	m.items[item.ID] = &copy
}

func (m *memStore) addTier(tier model.PrizeTier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tiers = append(m.tiers, tier)
}

func (m *memStore) GetItem(ctx context.Context, itemID uuid.UUID) (model.CatalogItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok {
		return model.CatalogItem{}, fmt.Errorf("item %s: %w", itemID, model.ErrNotFound)
	}
	return *item, nil
}

func (m *memStore) GetCatalog(ctx context.Context) ([]model.CatalogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var entries []model.CatalogEntry
	for _, item := range m.items {
		if item.Deleted {
			continue
		}
		entry := model.CatalogEntry{Item: *item, StockStatus: item.StockStatus()}
		for _, tier := range m.tiers {
			if tier.ID == item.TierID {
				entry.TierName = tier.Name
				entry.TierLevel = tier.Level
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (m *memStore) GetTiers(ctx context.Context) ([]model.PrizeTier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.PrizeTier(nil), m.tiers...), nil
}

func (m *memStore) GetMysteryItems(ctx context.Context) ([]model.CatalogItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []model.CatalogItem
	for _, item := range m.items {
		if item.MysteryEligible && item.Active && !item.Deleted &&
			(item.TotalQuantity == nil || item.AvailableQuantity > 0) {
			items = append(items, *item)
		}
	}
	return items, nil
}

func (m *memStore) ReserveStock(ctx context.Context, itemID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok {
		return fmt.Errorf("item %s: %w", itemID, model.ErrNotFound)
	}
	if item.TotalQuantity == nil {
		return nil
	}
	if item.AvailableQuantity <= 0 {
		return model.ErrOutOfStock
	}
	item.AvailableQuantity--
	return nil
}

func (m *memStore) ReleaseStock(ctx context.Context, itemID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok {
		return fmt.Errorf("item %s: %w", itemID, model.ErrNotFound)
	}
	if item.TotalQuantity != nil && item.AvailableQuantity < *item.TotalQuantity {
		item.AvailableQuantity++
	}
	return nil
}

func (m *memStore) AwardCreate(ctx context.Context, award model.PrizeAward) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := award
	m.awards[award.ID] = &copy
	return nil
}

func (m *memStore) AwardGet(ctx context.Context, awardID uuid.UUID) (model.PrizeAward, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	award, ok := m.awards[awardID]
	if !ok {
		return model.PrizeAward{}, fmt.Errorf("award %s: %w", awardID, model.ErrNotFound)
	}
	return *award, nil
}

func (m *memStore) AwardFlip(ctx context.Context, awardID uuid.UUID, from, to model.AwardStatus, actor, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	award, ok := m.awards[awardID]
	if !ok {
		return fmt.Errorf("award %s: %w", awardID, model.ErrNotFound)
	}
	if award.Status != from {
		return model.ErrInvalidTransition
	}
	award.Status = to
	award.StatusChangedAt = time.Now()
	award.StatusReason = reason
	return nil
}

func (m *memStore) AwardCountForUser(ctx context.Context, itemID uuid.UUID, userID string) (int, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int
	var last time.Time
	for _, award := range m.awards {
		if award.ItemID == itemID && award.UserID == userID && award.Status != model.AwardCancelled {
			count++
			if award.CreatedAt.After(last) {
				last = award.CreatedAt
			}
		}
	}
	return count, last, nil
}

func (m *memStore) ExpireAwards(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, award := range m.awards {
		if award.Status == model.AwardAvailable && award.ExpiredAt(now) {
			award.Status = model.AwardExpired
			award.StatusChangedAt = now
			item := m.items[award.ItemID]
			if item != nil && item.TotalQuantity != nil && item.AvailableQuantity < *item.TotalQuantity {
				item.AvailableQuantity++
			}
			count++
		}
	}
	return count, nil
}

func (m *memStore) RedemptionCreate(ctx context.Context, redemption model.PrizeRedemption) (model.PrizeRedemption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	award, ok := m.awards[redemption.AwardID]
	if !ok {
		return model.PrizeRedemption{}, fmt.Errorf("award %s: %w", redemption.AwardID, model.ErrNotFound)
	}
	if award.Status == model.AwardReserved || award.Status == model.AwardRedeemed {
		return model.PrizeRedemption{}, model.ErrDuplicateRedemption
	}
	if _, exists := m.byAward[redemption.AwardID]; exists {
		return model.PrizeRedemption{}, model.ErrDuplicateRedemption
	}
	if award.Status != model.AwardAvailable || award.ExpiredAt(redemption.InitiatedAt) {
		return model.PrizeRedemption{}, model.ErrAwardNotAvailable
	}

	copy := redemption
	m.redemptions[redemption.ID] = &copy
	m.byAward[redemption.AwardID] = redemption.ID
	award.Status = model.AwardReserved
	award.StatusChangedAt = redemption.InitiatedAt
	return redemption, nil
}

func (m *memStore) RedemptionGet(ctx context.Context, redemptionID uuid.UUID) (model.PrizeRedemption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	redemption, ok := m.redemptions[redemptionID]
	if !ok {
		return model.PrizeRedemption{}, fmt.Errorf("redemption %s: %w", redemptionID, model.ErrNotFound)
	}
	return *redemption, nil
}

func (m *memStore) RedemptionAdvance(ctx context.Context, req model.AdvanceRequest, now time.Time) (model.PrizeRedemption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	redemption, ok := m.redemptions[req.RedemptionID]
	if !ok {
		return model.PrizeRedemption{}, fmt.Errorf("redemption %s: %w", req.RedemptionID, model.ErrNotFound)
	}
	if redemption.Status == req.Target {
		return *redemption, nil
	}
	item, ok := m.items[redemption.ItemID]
	if !ok {
		return model.PrizeRedemption{}, fmt.Errorf("item %s: %w", redemption.ItemID, model.ErrNotFound)
	}
	if !model.RedemptionTransitionAllowed(redemption.Status, req.Target, item.RequiresApproval) {
		return model.PrizeRedemption{}, fmt.Errorf("%s -> %s: %w", redemption.Status, req.Target, model.ErrInvalidTransition)
	}

	// сначала проверка статуса награды, потом запись: переход
	// погашения и смена награды атомарны
	award := m.awards[redemption.AwardID]
	var next model.AwardStatus
	var flip bool
	if award != nil {
		next, flip = model.AwardStatusAfterRedemption(req.Target, *award, now)
		if flip && !model.AwardTransitionAllowed(award.Status, next) {
			return model.PrizeRedemption{}, fmt.Errorf("award %s is %s: %w", award.ID, award.Status, model.ErrInvalidTransition)
		}
	}

	previous := redemption.Status
	model.ApplyTransition(redemption, req, now)
	m.history = append(m.history, model.StatusHistory{
		ID:           uuid.New(),
		RedemptionID: redemption.ID,
		Previous:     previous,
		New:          redemption.Status,
		Actor:        req.Actor,
		Reason:       req.Reason,
		ChangedAt:    now,
	})
	if award != nil && flip {
		award.Status = next
		award.StatusChangedAt = now
	}
	return *redemption, nil
}

func (m *memStore) RedemptionFeedback(ctx context.Context, redemptionID uuid.UUID, rating int, feedback string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	redemption, ok := m.redemptions[redemptionID]
	if !ok {
		return fmt.Errorf("redemption %s: %w", redemptionID, model.ErrNotFound)
	}
	redemption.Rating = rating
	redemption.Feedback = feedback
	return nil
}

func (m *memStore) RedemptionHistory(ctx context.Context, redemptionID uuid.UUID) ([]model.StatusHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var history []model.StatusHistory
	for _, h := range m.history {
		if h.RedemptionID == redemptionID {
			history = append(history, h)
		}
	}
	return history, nil
}

func (m *memStore) RedemptionStats(ctx context.Context, from, to time.Time) (model.RedemptionStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stats model.RedemptionStats
	var completeSum, ratingSum float64
	var rated int
	for _, r := range m.redemptions {
		if r.InitiatedAt.Before(from) || r.InitiatedAt.After(to) {
			continue
		}
		stats.Total++
		switch r.Status {
		case model.RedemptionCompleted:
			stats.Completed++
			if r.TimeToCompleteSeconds != nil {
				completeSum += float64(*r.TimeToCompleteSeconds)
			}
		case model.RedemptionCancelled:
			stats.Cancelled++
		case model.RedemptionRejected:
			stats.Rejected++
		case model.RedemptionFailed:
			stats.Failed++
		default:
			stats.InProgress++
		}
		if r.Rating > 0 {
			ratingSum += float64(r.Rating)
			rated++
		}
	}
	if stats.Completed > 0 {
		stats.AvgCompleteSeconds = completeSum / float64(stats.Completed)
	}
	if rated > 0 {
		stats.AvgRating = ratingSum / float64(rated)
	}
	return stats, nil
}

func (m *memStore) Wallet(ctx context.Context, userID string) ([]model.WalletEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	var wallet []model.WalletEntry
	for _, award := range m.awards {
		if award.UserID != userID {
			continue
		}
		entry := model.WalletEntry{Award: *award}
		if item, ok := m.items[award.ItemID]; ok {
			entry.ItemName = item.Name
			for _, tier := range m.tiers {
				if tier.ID == item.TierID {
					entry.TierName = tier.Name
				}
			}
		}
		if rid, ok := m.byAward[award.ID]; ok {
			if redemption, ok := m.redemptions[rid]; ok {
				id := redemption.ID
				status := redemption.Status
				entry.RedemptionID = &id
				entry.RedemptionStatus = &status
				entry.RedemptionCode = redemption.Code
			}
		}
		entry.CanRedeem = award.Status == model.AwardAvailable && !award.ExpiredAt(now) && entry.RedemptionID == nil
		wallet = append(wallet, entry)
	}
	return wallet, nil
}
