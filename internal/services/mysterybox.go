package marketplace

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	interf "github.com/glkeru/loyalty/marketplace/internal/interfaces"
	model "github.com/glkeru/loyalty/marketplace/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type MysteryBoxService struct {
	logger      *zap.Logger
	db          interf.MarketplaceStorage
	events      interf.EventStorage
	eligibility interf.EligibilityResolver
	notifier    interf.WinnerNotifier
	awards      *AwardService
	rnd         *rand.Rand
}

func NewMysteryBoxService(logger *zap.Logger, db interf.MarketplaceStorage, events interf.EventStorage,
	eligibility interf.EligibilityResolver, notifier interf.WinnerNotifier, awards *AwardService) *MysteryBoxService {
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &MysteryBoxService{logger, db, events, eligibility, notifier, awards, rnd}
}

// Создание события розыгрыша
func (s *MysteryBoxService) Create(ctx context.Context, event model.MysteryBoxEvent) (uuid.UUID, error) {
	if event.Name == "" {
		return uuid.Nil, fmt.Errorf("name is required: %w", model.ErrValidation)
	}
	if event.WinnerCount <= 0 {
		return uuid.Nil, fmt.Errorf("winnerCount must be positive: %w", model.ErrValidation)
	}
	if event.ScheduledAt.IsZero() {
		event.ScheduledAt = time.Now()
	}
	return s.events.EventCreate(ctx, event)
}

func (s *MysteryBoxService) Get(ctx context.Context, eventID uuid.UUID) (model.MysteryBoxEvent, error) {
	return s.events.EventGet(ctx, eventID)
}

// Запуск всех событий, у которых наступило время
func (s *MysteryBoxService) RunDue(ctx context.Context) error {
	events, err := s.events.EventsDue(ctx, time.Now())
	if err != nil {
		return err
	}
	for _, event := range events {
		if err := s.Run(ctx, event.ID); err != nil {
			s.logger.Error("mystery box run",
				zap.String("event", event.ID.String()),
				zap.Error(err),
			)
		}
	}
	return nil
}

// Розыгрыш: захват события, круг участников, жеребьевка по уровням
// редкости и выдача призов победителям. Призы выдаются последовательно,
// за остатки отвечает условный резерв в хранилище.
func (s *MysteryBoxService) Run(ctx context.Context, eventID uuid.UUID) error {
	event, err := s.events.EventGet(ctx, eventID)
	if err != nil {
		return err
	}
	if err = s.events.EventMarkRunning(ctx, eventID); err != nil {
		return err
	}

	users, err := s.eligibility.Eligible(ctx, event.Criteria)
	if err != nil {
		err = fmt.Errorf("eligibility: %w", err)
		if failerr := s.events.EventFail(ctx, eventID, err.Error()); failerr != nil {
			s.logger.Error("event fail mark", zap.Error(failerr))
		}
		return err
	}

	// уровни и призы загружаем параллельно
	var tiers []model.PrizeTier
	var items []model.CatalogItem
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tiers, err = s.db.GetTiers(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		items, err = s.db.GetMysteryItems(gctx)
		return err
	})
	if err = g.Wait(); err != nil {
		if failerr := s.events.EventFail(ctx, eventID, err.Error()); failerr != nil {
			s.logger.Error("event fail mark", zap.Error(failerr))
		}
		return err
	}

	winners := s.draw(ctx, event, users, tiers, items)

	if err = s.events.EventComplete(ctx, eventID, winners, len(users)); err != nil {
		return err
	}

	if s.notifier != nil {
		for _, winner := range winners {
			if winner.Failed {
				continue
			}
			if err := s.notifier.NotifyWinner(ctx, event, winner); err != nil {
				s.logger.Error("winner notify",
					zap.String("user", winner.UserID),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

// Жеребьевка: случайные победители из круга участников, для каждого
// бросок уровня и взвешенный выбор приза
func (s *MysteryBoxService) draw(ctx context.Context, event model.MysteryBoxEvent,
	users []string, tiers []model.PrizeTier, items []model.CatalogItem) []model.EventWinner {

	picked := append([]string(nil), users...)
	s.rnd.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	if len(picked) > event.WinnerCount {
		picked = picked[:event.WinnerCount]
	}

	tierNames := make(map[uuid.UUID]string, len(tiers))
	for _, t := range tiers {
		tierNames[t.ID] = t.Name
	}

	exhausted := make(map[uuid.UUID]bool)
	winners := make([]model.EventWinner, 0, len(picked))
	for _, user := range picked {
		winner := model.EventWinner{UserID: user}

		// при исчерпании остатка приз выбирается заново без этой позиции
		for {
			item, ok := s.pickPrize(event, tiers, items, exhausted)
			if !ok {
				winner.Failed = true
				winner.Reason = "no prizes left"
				break
			}

			award, err := s.awards.RequestAward(ctx, AwardRequest{
				ItemID:        item.ID,
				UserID:        user,
				Source:        model.SourceMysteryBox,
				SourceRef:     event.ID.String(),
				Message:       event.Name,
				ExpiresInDays: event.ExpiresInDays,
			})
			if errors.Is(err, model.ErrOutOfStock) {
				exhausted[item.ID] = true
				continue
			}
			if err != nil {
				winner.Failed = true
				winner.Reason = err.Error()
				break
			}

			winner.ItemID = item.ID
			winner.ItemName = item.Name
			winner.TierName = tierNames[item.TierID]
			winner.AwardID = award.ID
			break
		}
		winners = append(winners, winner)
	}
	return winners
}

// Бросок уровня с учетом переопределений события, затем взвешенный
// выбор приза внутри уровня. Если в выпавшем уровне призов нет,
// перебираем остальные уровни по убыванию редкости.
func (s *MysteryBoxService) pickPrize(event model.MysteryBoxEvent, tiers []model.PrizeTier,
	items []model.CatalogItem, exhausted map[uuid.UUID]bool) (model.CatalogItem, bool) {

	rolled, ok := rollTier(s.rnd, tiers, event.TierOverrides)
	if !ok {
		return model.CatalogItem{}, false
	}

	order := tierFallback(tiers, rolled)
	for _, tier := range order {
		candidates := itemsForTier(items, tier.ID, exhausted)
		if len(candidates) == 0 {
			continue
		}
		return pickWeighted(s.rnd, candidates), true
	}
	return model.CatalogItem{}, false
}

// rollTier - нормализованный бросок по droprate уровней,
// переопределения события имеют приоритет
func rollTier(rnd *rand.Rand, tiers []model.PrizeTier, overrides map[string]float64) (model.PrizeTier, bool) {
	var total float64
	rates := make([]float64, len(tiers))
	for i, tier := range tiers {
		rate := tier.DropRate
		if override, ok := overrides[tier.ID.String()]; ok {
			rate = override
		}
		if rate < 0 {
			rate = 0
		}
		rates[i] = rate
		total += rate
	}
	if total == 0 {
		return model.PrizeTier{}, false
	}

	roll := rnd.Float64() * total
	var cumulative float64
	for i, tier := range tiers {
		cumulative += rates[i]
		if roll < cumulative {
			return tier, true
		}
	}
	return tiers[len(tiers)-1], true
}

// Порядок обхода уровней: выпавший, затем остальные по убыванию level
func tierFallback(tiers []model.PrizeTier, rolled model.PrizeTier) []model.PrizeTier {
	order := make([]model.PrizeTier, 0, len(tiers))
	order = append(order, rolled)
	rest := make([]model.PrizeTier, 0, len(tiers))
	for _, tier := range tiers {
		if tier.ID != rolled.ID {
			rest = append(rest, tier)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].Level > rest[j].Level })
	return append(order, rest...)
}

// Кандидаты уровня: нулевой и отрицательный вес исключают приз из розыгрыша
func itemsForTier(items []model.CatalogItem, tierID uuid.UUID, exhausted map[uuid.UUID]bool) []model.CatalogItem {
	var result []model.CatalogItem
	for _, item := range items {
		if item.TierID == tierID && !exhausted[item.ID] && item.MysteryWeight > 0 {
			result = append(result, item)
		}
	}
	return result
}

// pickWeighted - взвешенный выбор приза по mysteryweight, веса кандидатов
// строго положительны
func pickWeighted(rnd *rand.Rand, items []model.CatalogItem) model.CatalogItem {
	var total int
	for _, item := range items {
		total += item.MysteryWeight
	}
	roll := rnd.Intn(total)
	var cumulative int
	for _, item := range items {
		cumulative += item.MysteryWeight
		if roll < cumulative {
			return item
		}
	}
	return items[len(items)-1]
}
