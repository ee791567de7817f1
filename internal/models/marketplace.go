package marketplace

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Ошибки домена
var (
	ErrNotFound            = errors.New("not found")
	ErrOutOfStock          = errors.New("out of stock")
	ErrDuplicateRedemption = errors.New("award already has a redemption")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrAwardNotAvailable   = errors.New("award is not available")
	ErrValidation          = errors.New("validation error")
	ErrNotEligible         = errors.New("user is not eligible for this prize")
)

// Статусы награды — значения хранятся в БД, не переименовывать
type AwardStatus string

const (
	AwardPending   AwardStatus = "pending"
	AwardAvailable AwardStatus = "available"
	AwardReserved  AwardStatus = "reserved"
	AwardRedeemed  AwardStatus = "redeemed"
	AwardExpired   AwardStatus = "expired"
	AwardCancelled AwardStatus = "cancelled"
	AwardFailed    AwardStatus = "failed"
)

// Источник награды
type AwardSource string

const (
	SourceBadge      AwardSource = "badge"
	SourceMysteryBox AwardSource = "mystery_box"
	SourcePurchase   AwardSource = "purchase"
	SourceManual     AwardSource = "manual"
	SourceCampaign   AwardSource = "campaign"
	SourceMilestone  AwardSource = "milestone"
	SourceReferral   AwardSource = "referral"
	SourceLottery    AwardSource = "lottery"
)

// Статусы погашения — значения хранятся в БД, не переименовывать
type RedemptionStatus string

const (
	RedemptionInitiated       RedemptionStatus = "initiated"
	RedemptionPendingApproval RedemptionStatus = "pending_approval"
	RedemptionApproved        RedemptionStatus = "approved"
	RedemptionProcessing      RedemptionStatus = "processing"
	RedemptionShipped         RedemptionStatus = "shipped"
	RedemptionCompleted       RedemptionStatus = "completed"
	RedemptionRejected        RedemptionStatus = "rejected"
	RedemptionCancelled       RedemptionStatus = "cancelled"
	RedemptionFailed          RedemptionStatus = "failed"
)

// Статусы события mystery box
type EventStatus string

const (
	EventScheduled EventStatus = "scheduled"
	EventRunning   EventStatus = "running"
	EventCompleted EventStatus = "completed"
	EventFailed    EventStatus = "failed"
	EventCancelled EventStatus = "cancelled"
)

// Классификация остатков
type StockStatus string

const (
	StockUnlimited  StockStatus = "unlimited"
	StockInStock    StockStatus = "in_stock"
	StockLowStock   StockStatus = "low_stock"
	StockOutOfStock StockStatus = "out_of_stock"
)

// Уровень редкости приза
type PrizeTier struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Level    int       `json:"level"` // 1 = common ... 5 = legendary
	DropRate float64   `json:"dropRate"`
	Color    string    `json:"color,omitempty"`
}

// Позиция каталога призов
type CatalogItem struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description,omitempty"`
	Category          string    `json:"category,omitempty"`
	TierID            uuid.UUID `json:"tierId"`
	PointsCost        int       `json:"pointsCost"`
	MonetaryValue     float64   `json:"monetaryValue"`
	TotalQuantity     *int      `json:"totalQuantity,omitempty"` // nil = без ограничений
	AvailableQuantity int       `json:"availableQuantity"`
	ReservedQuantity  int       `json:"reservedQuantity"`
	MaxPerUser        int       `json:"maxPerUser"` // 0 = без ограничений
	CooldownDays      int       `json:"cooldownDays"`
	RequiresApproval  bool      `json:"requiresApproval"`
	MysteryEligible   bool      `json:"mysteryEligible"`
	MysteryWeight     int       `json:"mysteryWeight"`
	LinkedBadgeID     string    `json:"linkedBadgeId,omitempty"`
	FulfillmentType   string    `json:"fulfillmentType,omitempty"`
	Active            bool      `json:"active"`
	Deleted           bool      `json:"deleted"`
}

func (c CatalogItem) Unlimited() bool {
	return c.TotalQuantity == nil
}

// Статус остатков: low_stock при остатке <= 10% от общего количества
func (c CatalogItem) StockStatus() StockStatus {
	if c.TotalQuantity == nil {
		return StockUnlimited
	}
	switch {
	case c.AvailableQuantity <= 0:
		return StockOutOfStock
	case float64(c.AvailableQuantity) <= float64(*c.TotalQuantity)*0.1:
		return StockLowStock
	default:
		return StockInStock
	}
}

// Награда — выдача приза пользователю
type PrizeAward struct {
	ID              uuid.UUID         `json:"id"`
	ItemID          uuid.UUID         `json:"itemId"`
	UserID          string            `json:"userId"`
	Source          AwardSource       `json:"source"`
	SourceRef       string            `json:"sourceRef,omitempty"` // ссылка на инициатора: badge, событие и т.д.
	LinkedAwardID   string            `json:"linkedAwardId,omitempty"`
	IssuedBy        string            `json:"issuedBy,omitempty"`
	Message         string            `json:"message,omitempty"`
	Status          AwardStatus       `json:"status"`
	StatusChangedAt time.Time         `json:"statusChangedAt"`
	StatusReason    string            `json:"statusReason,omitempty"`
	PointsValue     int               `json:"pointsValue"`   // снимок стоимости на момент выдачи
	MonetaryValue   float64           `json:"monetaryValue"` // снимок ценности на момент выдачи
	ExpiresAt       *time.Time        `json:"expiresAt,omitempty"`
	Attributes      map[string]string `json:"attributes,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
}

func (a PrizeAward) ExpiredAt(now time.Time) bool {
	return a.ExpiresAt != nil && a.ExpiresAt.Before(now)
}

// Погашение — процесс получения приза по награде, 1:1 с наградой
type PrizeRedemption struct {
	ID                 uuid.UUID         `json:"id"`
	AwardID            uuid.UUID         `json:"awardId"`
	ItemID             uuid.UUID         `json:"itemId"`
	UserID             string            `json:"userId"`
	Code               string            `json:"code"`
	Status             RedemptionStatus  `json:"status"`
	FulfillmentMethod  string            `json:"fulfillmentMethod,omitempty"`
	FulfillmentDetails map[string]string `json:"fulfillmentDetails,omitempty"`
	ShippingAddress    map[string]string `json:"shippingAddress,omitempty"`
	TrackingNumber     string            `json:"trackingNumber,omitempty"`
	AdminNotes         string            `json:"adminNotes,omitempty"`
	Rating             int               `json:"rating,omitempty"`
	Feedback           string            `json:"feedback,omitempty"`
	InitiatedAt        time.Time         `json:"initiatedAt"`
	ApprovedAt         *time.Time        `json:"approvedAt,omitempty"`
	ProcessingAt       *time.Time        `json:"processingAt,omitempty"`
	ShippedAt          *time.Time        `json:"shippedAt,omitempty"`
	CompletedAt        *time.Time        `json:"completedAt,omitempty"`
	CancelledAt        *time.Time        `json:"cancelledAt,omitempty"`
	CancelReason       string            `json:"cancelReason,omitempty"`
	// метрики считаются при переходах, см. ApplyTransition
	TimeToApproveSeconds   *int64    `json:"timeToApproveSeconds,omitempty"`
	TimeToCompleteSeconds  *int64    `json:"timeToCompleteSeconds,omitempty"`
	TotalProcessingSeconds *int64    `json:"totalProcessingSeconds,omitempty"`
	CreatedAt              time.Time `json:"createdAt"`
}

// Строка аудита переходов погашения, только добавление
type StatusHistory struct {
	ID           uuid.UUID        `json:"id"`
	RedemptionID uuid.UUID        `json:"redemptionId"`
	Previous     RedemptionStatus `json:"previous"`
	New          RedemptionStatus `json:"new"`
	Actor        string           `json:"actor,omitempty"`
	Reason       string           `json:"reason,omitempty"`
	ChangedAt    time.Time        `json:"changedAt"`
}

// Событие mystery box
type MysteryBoxEvent struct {
	ID            uuid.UUID          `bson:"id" json:"id"`
	Name          string             `bson:"name" json:"name"`
	ScheduledAt   time.Time          `bson:"scheduledat" json:"scheduledAt"`
	ExecutedAt    *time.Time         `bson:"executedat,omitempty" json:"executedAt,omitempty"`
	Criteria      map[string]any     `bson:"criteria,omitempty" json:"criteria,omitempty"`
	WinnerCount   int                `bson:"winnercount" json:"winnerCount"`
	ExpiresInDays int                `bson:"expiresindays" json:"expiresInDays"`
	TierOverrides map[string]float64 `bson:"tieroverrides,omitempty" json:"tierOverrides,omitempty"` // tier id -> drop rate
	Status        EventStatus        `bson:"status" json:"status"`
	Error         string             `bson:"error,omitempty" json:"error,omitempty"`
	Winners       []EventWinner      `bson:"winners,omitempty" json:"winners,omitempty"`
	EligibleCount int                `bson:"eligiblecount" json:"eligibleCount"`
	LinkedBadgeID string             `bson:"linkedbadgeid,omitempty" json:"linkedBadgeId,omitempty"`
	CreatedBy     string             `bson:"createdby,omitempty" json:"createdBy,omitempty"`
}

// Результат по одному победителю
type EventWinner struct {
	UserID   string    `bson:"userid" json:"userId"`
	ItemID   uuid.UUID `bson:"itemid,omitempty" json:"itemId,omitempty"`
	ItemName string    `bson:"itemname,omitempty" json:"itemName,omitempty"`
	TierName string    `bson:"tiername,omitempty" json:"tierName,omitempty"`
	AwardID  uuid.UUID `bson:"awardid,omitempty" json:"awardId,omitempty"`
	Failed   bool      `bson:"failed,omitempty" json:"failed,omitempty"`
	Reason   string    `bson:"reason,omitempty" json:"reason,omitempty"`
}

// Запись кошелька: награда + погашение
type WalletEntry struct {
	Award            PrizeAward        `json:"award"`
	ItemName         string            `json:"itemName"`
	TierName         string            `json:"tierName,omitempty"`
	RedemptionID     *uuid.UUID        `json:"redemptionId,omitempty"`
	RedemptionStatus *RedemptionStatus `json:"redemptionStatus,omitempty"`
	RedemptionCode   string            `json:"redemptionCode,omitempty"`
	CanRedeem        bool              `json:"canRedeem"`
}

// Запись каталога с вычисленными остатками
type CatalogEntry struct {
	Item        CatalogItem `json:"item"`
	TierName    string      `json:"tierName,omitempty"`
	TierLevel   int         `json:"tierLevel,omitempty"`
	StockStatus StockStatus `json:"stockStatus"`
}

// Метрики погашений
type RedemptionStats struct {
	Total              int     `json:"total"`
	Completed          int     `json:"completed"`
	Cancelled          int     `json:"cancelled"`
	Rejected           int     `json:"rejected"`
	Failed             int     `json:"failed"`
	InProgress         int     `json:"inProgress"`
	AvgCompleteSeconds float64 `json:"avgCompleteSeconds"`
	AvgRating          float64 `json:"avgRating"`
}

// Параметры перехода погашения
type AdvanceRequest struct {
	RedemptionID       uuid.UUID         `json:"redemptionId"`
	Target             RedemptionStatus  `json:"target"`
	Actor              string            `json:"actor"`
	Reason             string            `json:"reason,omitempty"`
	TrackingNumber     string            `json:"trackingNumber,omitempty"`
	FulfillmentDetails map[string]string `json:"fulfillmentDetails,omitempty"`
	AdminNotes         string            `json:"adminNotes,omitempty"`
}
