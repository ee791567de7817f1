package marketplace

import (
	"context"
	"sync"
	"testing"
	"time"

	model "github.com/glkeru/loyalty/marketplace/internal/models"
	uuid "github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func intptr(v int) *int { return &v }

func testItem(total *int) model.CatalogItem {
	available := 0
	if total != nil {
		available = *total
	}
	return model.CatalogItem{
		ID:                uuid.New(),
		Name:              "Фирменная кружка",
		TierID:            uuid.New(),
		PointsCost:        500,
		MonetaryValue:     15.5,
		TotalQuantity:     total,
		AvailableQuantity: available,
		Active:            true,
	}
}

func TestRequestAward(t *testing.T) {
	store := newMemStore()
	item := testItem(intptr(10))
	store.addItem(item)

	serv := NewAwardService(zap.NewNop(), store, nil)
	award, err := serv.RequestAward(context.Background(), AwardRequest{
		ItemID:        item.ID,
		UserID:        "user1",
		Source:        model.SourceBadge,
		SourceRef:     "badge-42",
		ExpiresInDays: 30,
	})
	require.NoError(t, err)
	require.Equal(t, model.AwardAvailable, award.Status)
	// снимок стоимости на момент выдачи
	require.Equal(t, 500, award.PointsValue)
	require.Equal(t, 15.5, award.MonetaryValue)
	require.NotNil(t, award.ExpiresAt)

	// единица зарезервирована
	got, err := store.GetItem(context.Background(), item.ID)
	require.NoError(t, err)
	require.Equal(t, 9, got.AvailableQuantity)
}

func TestRequestAwardValidation(t *testing.T) {
	store := newMemStore()
	item := testItem(intptr(1))
	store.addItem(item)
	serv := NewAwardService(zap.NewNop(), store, nil)

	_, err := serv.RequestAward(context.Background(), AwardRequest{ItemID: item.ID, Source: model.SourceBadge})
	require.ErrorIs(t, err, model.ErrValidation)

	_, err = serv.RequestAward(context.Background(), AwardRequest{ItemID: item.ID, UserID: "user1"})
	require.ErrorIs(t, err, model.ErrValidation)

	_, err = serv.RequestAward(context.Background(), AwardRequest{ItemID: uuid.New(), UserID: "user1", Source: model.SourceBadge})
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestRequestAwardOutOfStock(t *testing.T) {
	store := newMemStore()
	item := testItem(intptr(1))
	store.addItem(item)
	serv := NewAwardService(zap.NewNop(), store, nil)

	_, err := serv.RequestAward(context.Background(), AwardRequest{ItemID: item.ID, UserID: "user1", Source: model.SourceBadge})
	require.NoError(t, err)

	_, err = serv.RequestAward(context.Background(), AwardRequest{ItemID: item.ID, UserID: "user2", Source: model.SourceBadge})
	require.ErrorIs(t, err, model.ErrOutOfStock)
}

// Гонка за последнюю единицу: успех ровно у одного из конкурентов
func TestRequestAwardLastUnitRace(t *testing.T) {
	store := newMemStore()
	item := testItem(intptr(1))
	store.addItem(item)
	serv := NewAwardService(zap.NewNop(), store, nil)

	const workers = 20
	var success, outofstock int
	mu := sync.Mutex{}
	wg := &sync.WaitGroup{}
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			_, err := serv.RequestAward(context.Background(), AwardRequest{
				ItemID: item.ID,
				UserID: "user" + string(rune('a'+i)),
				Source: model.SourceCampaign,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			default:
				require.ErrorIs(t, err, model.ErrOutOfStock)
				outofstock++
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, success)
	require.Equal(t, workers-1, outofstock)
	got, err := store.GetItem(context.Background(), item.ID)
	require.NoError(t, err)
	require.Equal(t, 0, got.AvailableQuantity)
}

func TestRequestAwardUnlimited(t *testing.T) {
	store := newMemStore()
	item := testItem(nil)
	store.addItem(item)
	serv := NewAwardService(zap.NewNop(), store, nil)

	for i := 0; i < 50; i++ {
		_, err := serv.RequestAward(context.Background(), AwardRequest{
			ItemID: item.ID,
			UserID: "user1",
			Source: model.SourceManual,
		})
		require.NoError(t, err)
	}
}

func TestRequestAwardMaxPerUser(t *testing.T) {
	store := newMemStore()
	item := testItem(intptr(10))
	item.MaxPerUser = 2
	store.addItem(item)
	serv := NewAwardService(zap.NewNop(), store, nil)

	for i := 0; i < 2; i++ {
		_, err := serv.RequestAward(context.Background(), AwardRequest{ItemID: item.ID, UserID: "user1", Source: model.SourceBadge})
		require.NoError(t, err)
	}
	_, err := serv.RequestAward(context.Background(), AwardRequest{ItemID: item.ID, UserID: "user1", Source: model.SourceBadge})
	require.ErrorIs(t, err, model.ErrNotEligible)

	// лимит на пользователя, другому можно
	_, err = serv.RequestAward(context.Background(), AwardRequest{ItemID: item.ID, UserID: "user2", Source: model.SourceBadge})
	require.NoError(t, err)
}

func TestRequestAwardCooldown(t *testing.T) {
	store := newMemStore()
	item := testItem(intptr(10))
	item.CooldownDays = 7
	store.addItem(item)
	serv := NewAwardService(zap.NewNop(), store, nil)

	_, err := serv.RequestAward(context.Background(), AwardRequest{ItemID: item.ID, UserID: "user1", Source: model.SourceBadge})
	require.NoError(t, err)

	_, err = serv.RequestAward(context.Background(), AwardRequest{ItemID: item.ID, UserID: "user1", Source: model.SourceBadge})
	require.ErrorIs(t, err, model.ErrNotEligible)
}

func TestPendingActivate(t *testing.T) {
	store := newMemStore()
	item := testItem(intptr(10))
	store.addItem(item)
	serv := NewAwardService(zap.NewNop(), store, nil)

	award, err := serv.RequestAward(context.Background(), AwardRequest{
		ItemID:  item.ID,
		UserID:  "user1",
		Source:  model.SourcePurchase,
		Pending: true,
	})
	require.NoError(t, err)
	require.Equal(t, model.AwardPending, award.Status)

	// единица занята уже с момента выдачи
	got, err := store.GetItem(context.Background(), item.ID)
	require.NoError(t, err)
	require.Equal(t, 9, got.AvailableQuantity)

	err = serv.Activate(context.Background(), award.ID, "admin")
	require.NoError(t, err)
	activated, err := serv.Get(context.Background(), award.ID)
	require.NoError(t, err)
	require.Equal(t, model.AwardAvailable, activated.Status)

	// повторная активация - ошибка
	err = serv.Activate(context.Background(), award.ID, "admin")
	require.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestCancelReleasesStock(t *testing.T) {
	store := newMemStore()
	item := testItem(intptr(10))
	store.addItem(item)
	serv := NewAwardService(zap.NewNop(), store, nil)

	award, err := serv.RequestAward(context.Background(), AwardRequest{ItemID: item.ID, UserID: "user1", Source: model.SourceBadge})
	require.NoError(t, err)

	err = serv.Cancel(context.Background(), award.ID, "admin", "ошибочная выдача")
	require.NoError(t, err)

	cancelled, err := serv.Get(context.Background(), award.ID)
	require.NoError(t, err)
	require.Equal(t, model.AwardCancelled, cancelled.Status)
	require.Equal(t, "ошибочная выдача", cancelled.StatusReason)

	got, err := store.GetItem(context.Background(), item.ID)
	require.NoError(t, err)
	require.Equal(t, 10, got.AvailableQuantity)

	// из терминального статуса отмена невозможна
	err = serv.Cancel(context.Background(), award.ID, "admin", "")
	require.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestWallet(t *testing.T) {
	store := newMemStore()
	item := testItem(intptr(10))
	store.addItem(item)
	store.addTier(model.PrizeTier{ID: item.TierID, Name: "rare", Level: 3, DropRate: 0.1})
	serv := NewAwardService(zap.NewNop(), store, nil)

	expired := time.Now().Add(-time.Hour)
	_, err := serv.RequestAward(context.Background(), AwardRequest{ItemID: item.ID, UserID: "user1", Source: model.SourceBadge})
	require.NoError(t, err)
	award2, err := serv.RequestAward(context.Background(), AwardRequest{ItemID: item.ID, UserID: "user1", Source: model.SourceBadge})
	require.NoError(t, err)
	store.mu.Lock()
	store.awards[award2.ID].ExpiresAt = &expired
	store.mu.Unlock()

	wallet, err := serv.Wallet(context.Background(), "user1")
	require.NoError(t, err)
	require.Len(t, wallet, 2)
	for _, entry := range wallet {
		require.Equal(t, "Фирменная кружка", entry.ItemName)
		require.Equal(t, "rare", entry.TierName)
		if entry.Award.ID == award2.ID {
			require.False(t, entry.CanRedeem)
		} else {
			require.True(t, entry.CanRedeem)
		}
	}
}
