package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	sq "github.com/Masterminds/squirrel"
	model "github.com/glkeru/loyalty/marketplace/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type MarketplaceDB struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewMarketplaceDB(logger *zap.Logger) (db *MarketplaceDB, err error) {
	// config
	purl := os.Getenv("MARKETPLACE_DB")
	if purl == "" {
		return nil, fmt.Errorf("env MARKETPLACE_DB is not set")
	}
	port := os.Getenv("MARKETPLACE_DB_PORT")
	if port == "" {
		return nil, fmt.Errorf("env MARKETPLACE_DB_PORT is not set")
	}
	user := os.Getenv("MARKETPLACE_DB_USER")
	if user == "" {
		return nil, fmt.Errorf("env MARKETPLACE_DB_USER is not set")
	}
	password := os.Getenv("MARKETPLACE_DB_PASSWORD")
	if password == "" {
		return nil, fmt.Errorf("env MARKETPLACE_DB_PASSWORD is not set")
	}
	database := os.Getenv("MARKETPLACE_DB_BASE")
	if database == "" {
		return nil, fmt.Errorf("env MARKETPLACE_DB_BASE is not set")
	}
	dsn := "postgres://" + user + ":" + password + "@" + purl + ":" + port + "/" + database

	pool, err := pgxpool.New(context.Background(), dsn)
	return &MarketplaceDB{pool, logger}, err
}

func (m *MarketplaceDB) logSQL(err error, query string, args []any) {
	m.logger.Error("SQL error",
		zap.Error(err),
		zap.String("query", query),
		zap.Any("args", args),
	)
}

// uniqueViolation - конфликт уникального индекса (23505)
func uniqueViolation(err error) bool {
	var pgerr *pgconn.PgError
	return errors.As(err, &pgerr) && pgerr.Code == "23505"
}

const itemColumns = `id, name, description, category, tierid, pointscost, monetaryvalue,
	totalquantity, availablequantity, reservedquantity, maxperuser, cooldowndays,
	requiresapproval, mysteryeligible, mysteryweight, linkedbadgeid, fulfillmenttype,
	active, deleted`

func scanItem(row pgx.Row) (item model.CatalogItem, err error) {
	var id, tierid pgtype.UUID
	var description, category, badge, fulfillment pgtype.Text
	err = row.Scan(&id, &item.Name, &description, &category, &tierid,
		&item.PointsCost, &item.MonetaryValue, &item.TotalQuantity,
		&item.AvailableQuantity, &item.ReservedQuantity, &item.MaxPerUser,
		&item.CooldownDays, &item.RequiresApproval, &item.MysteryEligible,
		&item.MysteryWeight, &badge, &fulfillment, &item.Active, &item.Deleted)
	if err != nil {
		return item, err
	}
	item.ID, _ = uuid.FromBytes(id.Bytes[:])
	item.TierID, _ = uuid.FromBytes(tierid.Bytes[:])
	item.Description = description.String
	item.Category = category.String
	item.LinkedBadgeID = badge.String
	item.FulfillmentType = fulfillment.String
	return item, nil
}

// Получить позицию каталога
func (m *MarketplaceDB) GetItem(ctx context.Context, itemID uuid.UUID) (model.CatalogItem, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return model.CatalogItem{}, err
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, "SELECT "+itemColumns+" FROM catalog WHERE id = $1", itemID)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.CatalogItem{}, fmt.Errorf("item %s: %w", itemID, model.ErrNotFound)
		}
		return model.CatalogItem{}, err
	}
	return item, nil
}

// Каталог с уровнями редкости, без удаленных
func (m *MarketplaceDB) GetCatalog(ctx context.Context) ([]model.CatalogEntry, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `SELECT
		c.id, c.name, c.description, c.category, c.tierid, c.pointscost, c.monetaryvalue,
		c.totalquantity, c.availablequantity, c.reservedquantity, c.maxperuser, c.cooldowndays,
		c.requiresapproval, c.mysteryeligible, c.mysteryweight, c.linkedbadgeid, c.fulfillmenttype,
		c.active, c.deleted, t.name, t.level
		FROM catalog c LEFT JOIN tiers t ON c.tierid = t.id
		WHERE c.deleted = false ORDER BY t.level DESC, c.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.CatalogEntry
	for rows.Next() {
		var entry model.CatalogEntry
		var tiername pgtype.Text
		var tierlevel pgtype.Int4
		var id, tierid pgtype.UUID
		var description, category, badge, fulfillment pgtype.Text
		item := &entry.Item
		err = rows.Scan(&id, &item.Name, &description, &category, &tierid,
			&item.PointsCost, &item.MonetaryValue, &item.TotalQuantity,
			&item.AvailableQuantity, &item.ReservedQuantity, &item.MaxPerUser,
			&item.CooldownDays, &item.RequiresApproval, &item.MysteryEligible,
			&item.MysteryWeight, &badge, &fulfillment, &item.Active, &item.Deleted,
			&tiername, &tierlevel)
		if err != nil {
			return nil, err
		}
		item.ID, _ = uuid.FromBytes(id.Bytes[:])
		item.TierID, _ = uuid.FromBytes(tierid.Bytes[:])
		item.Description = description.String
		item.Category = category.String
		item.LinkedBadgeID = badge.String
		item.FulfillmentType = fulfillment.String
		entry.TierName = tiername.String
		entry.TierLevel = int(tierlevel.Int)
		entry.StockStatus = item.StockStatus()
		entries = append(entries, entry)
	}
	return entries, nil
}

// Уровни редкости
func (m *MarketplaceDB) GetTiers(ctx context.Context) ([]model.PrizeTier, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, "SELECT id, name, level, droprate, color FROM tiers ORDER BY level")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tiers []model.PrizeTier
	for rows.Next() {
		var tier model.PrizeTier
		var id pgtype.UUID
		var color pgtype.Text
		if err = rows.Scan(&id, &tier.Name, &tier.Level, &tier.DropRate, &color); err != nil {
			return nil, err
		}
		tier.ID, _ = uuid.FromBytes(id.Bytes[:])
		tier.Color = color.String
		tiers = append(tiers, tier)
	}
	return tiers, nil
}

// Призы для mystery box: активные, с остатком
func (m *MarketplaceDB) GetMysteryItems(ctx context.Context) ([]model.CatalogItem, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, "SELECT "+itemColumns+` FROM catalog
		WHERE mysteryeligible = true AND active = true AND deleted = false
		AND (totalquantity IS NULL OR availablequantity > 0)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.CatalogItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// Резерв единицы: условный декремент, гонку за последнюю единицу
// выигрывает ровно один вызов
func (m *MarketplaceDB) ReserveStock(ctx context.Context, itemID uuid.UUID) error {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `UPDATE catalog
		SET availablequantity = availablequantity - 1
		WHERE id = $1 AND totalquantity IS NOT NULL AND availablequantity > 0`, itemID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// без ограничений - успех без изменений
	var total *int
	row := conn.QueryRow(ctx, "SELECT totalquantity FROM catalog WHERE id = $1", itemID)
	err = row.Scan(&total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("item %s: %w", itemID, model.ErrNotFound)
		}
		return err
	}
	if total == nil {
		return nil
	}
	return model.ErrOutOfStock
}

// Возврат единицы в остаток
func (m *MarketplaceDB) ReleaseStock(ctx context.Context, itemID uuid.UUID) error {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `UPDATE catalog
		SET availablequantity = availablequantity + 1
		WHERE id = $1 AND totalquantity IS NOT NULL AND availablequantity < totalquantity`, itemID)
	return err
}

// Создание награды
func (m *MarketplaceDB) AwardCreate(ctx context.Context, award model.PrizeAward) error {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	attrs, err := json.Marshal(award.Attributes)
	if err != nil {
		return err
	}

	sql, args, err := sq.Insert("awards").
		Columns("id", "itemid", "userid", "source", "sourceref", "linkedawardid",
			"issuedby", "message", "status", "statuschangedat", "statusreason",
			"pointsvalue", "monetaryvalue", "expiresat", "attributes", "createdat").
		Values(award.ID, award.ItemID, award.UserID, award.Source, award.SourceRef,
			award.LinkedAwardID, award.IssuedBy, award.Message, award.Status,
			award.StatusChangedAt, award.StatusReason, award.PointsValue,
			award.MonetaryValue, award.ExpiresAt, attrs, award.CreatedAt).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		m.logSQL(err, sql, args)
		return err
	}

	_, err = conn.Exec(ctx, sql, args...)
	if err != nil {
		m.logSQL(err, sql, args)
		return err
	}
	return nil
}

const awardColumns = `id, itemid, userid, source, sourceref, linkedawardid, issuedby,
	message, status, statuschangedat, statusreason, pointsvalue, monetaryvalue,
	expiresat, attributes, createdat`

func scanAward(row pgx.Row) (award model.PrizeAward, err error) {
	var id, itemid pgtype.UUID
	var sourceref, linked, issuedby, message, reason pgtype.Text
	var attrs []byte
	err = row.Scan(&id, &itemid, &award.UserID, &award.Source, &sourceref, &linked,
		&issuedby, &message, &award.Status, &award.StatusChangedAt, &reason,
		&award.PointsValue, &award.MonetaryValue, &award.ExpiresAt, &attrs,
		&award.CreatedAt)
	if err != nil {
		return award, err
	}
	award.ID, _ = uuid.FromBytes(id.Bytes[:])
	award.ItemID, _ = uuid.FromBytes(itemid.Bytes[:])
	award.SourceRef = sourceref.String
	award.LinkedAwardID = linked.String
	award.IssuedBy = issuedby.String
	award.Message = message.String
	award.StatusReason = reason.String
	if len(attrs) > 0 {
		_ = json.Unmarshal(attrs, &award.Attributes)
	}
	return award, nil
}

// Получить награду
func (m *MarketplaceDB) AwardGet(ctx context.Context, awardID uuid.UUID) (model.PrizeAward, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return model.PrizeAward{}, err
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, "SELECT "+awardColumns+" FROM awards WHERE id = $1", awardID)
	award, err := scanAward(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PrizeAward{}, fmt.Errorf("award %s: %w", awardID, model.ErrNotFound)
		}
		return model.PrizeAward{}, err
	}
	return award, nil
}

// Условная смена статуса награды: либо награда еще в статусе from и
// переход применяется, либо конкурирующий переход уже победил
func (m *MarketplaceDB) AwardFlip(ctx context.Context, awardID uuid.UUID, from, to model.AwardStatus, actor, reason string) error {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `UPDATE awards
		SET status = $1, statuschangedat = now(), statuschangedby = $2, statusreason = $3
		WHERE id = $4 AND status = $5`, to, actor, reason, awardID, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	row := conn.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM awards WHERE id = $1)", awardID)
	if err = row.Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("award %s: %w", awardID, model.ErrNotFound)
	}
	return model.ErrInvalidTransition
}

// Кол-во и дата последней выдачи приза пользователю, отмененные не в счет
func (m *MarketplaceDB) AwardCountForUser(ctx context.Context, itemID uuid.UUID, userID string) (int, time.Time, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return 0, time.Time{}, err
	}
	defer conn.Release()

	var count int
	var last pgtype.Timestamptz
	row := conn.QueryRow(ctx, `SELECT COUNT(*), MAX(createdat) FROM awards
		WHERE itemid = $1 AND userid = $2 AND status != $3`, itemID, userID, model.AwardCancelled)
	if err = row.Scan(&count, &last); err != nil {
		return 0, time.Time{}, err
	}
	return count, last.Time, nil
}

// Разметка просроченных наград: каждая строка - отдельная транзакция
// с возвратом единицы в остаток, повторный запуск ничего не меняет
func (m *MarketplaceDB) ExpireAwards(ctx context.Context, now time.Time) (int64, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `SELECT id, itemid FROM awards
		WHERE status = $1 AND expiresat IS NOT NULL AND expiresat < $2`,
		model.AwardAvailable, now)
	if err != nil {
		return 0, err
	}
	type pair struct{ award, item uuid.UUID }
	var candidates []pair
	for rows.Next() {
		var aid, iid pgtype.UUID
		if err = rows.Scan(&aid, &iid); err != nil {
			rows.Close()
			return 0, err
		}
		var p pair
		p.award, _ = uuid.FromBytes(aid.Bytes[:])
		p.item, _ = uuid.FromBytes(iid.Bytes[:])
		candidates = append(candidates, p)
	}
	rows.Close()

	var count int64
	for _, c := range candidates {
		tx, err := conn.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return count, err
		}
		tag, err := tx.Exec(ctx, `UPDATE awards
			SET status = $1, statuschangedat = $2
			WHERE id = $3 AND status = $4 AND expiresat < $2`,
			model.AwardExpired, now, c.award, model.AwardAvailable)
		if err != nil {
			tx.Rollback(ctx)
			return count, err
		}
		if tag.RowsAffected() == 0 {
			// строку уже перевели конкурентно
			tx.Rollback(ctx)
			continue
		}
		_, err = tx.Exec(ctx, `UPDATE catalog
			SET availablequantity = availablequantity + 1
			WHERE id = $1 AND totalquantity IS NOT NULL AND availablequantity < totalquantity`, c.item)
		if err != nil {
			tx.Rollback(ctx)
			return count, err
		}
		if err = tx.Commit(ctx); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// Создание погашения: блокировка награды, проверка доступности, вставка
// под уникальным индексом по awardid и перевод награды в reserved -
// одна транзакция
func (m *MarketplaceDB) RedemptionCreate(ctx context.Context, redemption model.PrizeRedemption) (model.PrizeRedemption, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return model.PrizeRedemption{}, err
	}
	defer conn.Release()

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return model.PrizeRedemption{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	var status model.AwardStatus
	var expires *time.Time
	row := tx.QueryRow(ctx, "SELECT status, expiresat FROM awards WHERE id = $1 FOR UPDATE", redemption.AwardID)
	err = row.Scan(&status, &expires)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = fmt.Errorf("award %s: %w", redemption.AwardID, model.ErrNotFound)
		}
		return model.PrizeRedemption{}, err
	}
	if status == model.AwardReserved || status == model.AwardRedeemed {
		err = model.ErrDuplicateRedemption
		return model.PrizeRedemption{}, err
	}
	if status != model.AwardAvailable || (expires != nil && expires.Before(redemption.InitiatedAt)) {
		err = model.ErrAwardNotAvailable
		return model.PrizeRedemption{}, err
	}

	details, err := json.Marshal(redemption.FulfillmentDetails)
	if err != nil {
		return model.PrizeRedemption{}, err
	}
	address, err := json.Marshal(redemption.ShippingAddress)
	if err != nil {
		return model.PrizeRedemption{}, err
	}

	sql, args, err := sq.Insert("redemptions").
		Columns("id", "awardid", "itemid", "userid", "code", "status",
			"fulfillmentmethod", "fulfillmentdetails", "shippingaddress",
			"initiatedat", "createdat").
		Values(redemption.ID, redemption.AwardID, redemption.ItemID, redemption.UserID,
			redemption.Code, redemption.Status, redemption.FulfillmentMethod,
			details, address, redemption.InitiatedAt, redemption.CreatedAt).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		m.logSQL(err, sql, args)
		return model.PrizeRedemption{}, err
	}
	_, err = tx.Exec(ctx, sql, args...)
	if err != nil {
		if uniqueViolation(err) {
			err = model.ErrDuplicateRedemption
		}
		return model.PrizeRedemption{}, err
	}

	_, err = tx.Exec(ctx, `UPDATE awards SET status = $1, statuschangedat = $2 WHERE id = $3`,
		model.AwardReserved, redemption.InitiatedAt, redemption.AwardID)
	if err != nil {
		return model.PrizeRedemption{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return model.PrizeRedemption{}, err
	}
	return redemption, nil
}

const redemptionColumns = `id, awardid, itemid, userid, code, status, fulfillmentmethod,
	fulfillmentdetails, shippingaddress, trackingnumber, adminnotes, rating, feedback,
	initiatedat, approvedat, processingat, shippedat, completedat, cancelledat,
	cancelreason, timetoapprove, timetocomplete, totalprocessing, createdat`

func scanRedemption(row pgx.Row) (r model.PrizeRedemption, err error) {
	var id, awardid, itemid pgtype.UUID
	var method, tracking, notes, reason, feedback pgtype.Text
	var rating pgtype.Int4
	var details, address []byte
	err = row.Scan(&id, &awardid, &itemid, &r.UserID, &r.Code, &r.Status, &method,
		&details, &address, &tracking, &notes, &rating, &feedback,
		&r.InitiatedAt, &r.ApprovedAt, &r.ProcessingAt, &r.ShippedAt, &r.CompletedAt,
		&r.CancelledAt, &reason, &r.TimeToApproveSeconds, &r.TimeToCompleteSeconds,
		&r.TotalProcessingSeconds, &r.CreatedAt)
	if err != nil {
		return r, err
	}
	r.ID, _ = uuid.FromBytes(id.Bytes[:])
	r.AwardID, _ = uuid.FromBytes(awardid.Bytes[:])
	r.ItemID, _ = uuid.FromBytes(itemid.Bytes[:])
	r.FulfillmentMethod = method.String
	r.TrackingNumber = tracking.String
	r.AdminNotes = notes.String
	r.CancelReason = reason.String
	r.Rating = int(rating.Int)
	r.Feedback = feedback.String
	if len(details) > 0 {
		_ = json.Unmarshal(details, &r.FulfillmentDetails)
	}
	if len(address) > 0 {
		_ = json.Unmarshal(address, &r.ShippingAddress)
	}
	return r, nil
}

// Получить погашение
func (m *MarketplaceDB) RedemptionGet(ctx context.Context, redemptionID uuid.UUID) (model.PrizeRedemption, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return model.PrizeRedemption{}, err
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, "SELECT "+redemptionColumns+" FROM redemptions WHERE id = $1", redemptionID)
	r, err := scanRedemption(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PrizeRedemption{}, fmt.Errorf("redemption %s: %w", redemptionID, model.ErrNotFound)
		}
		return model.PrizeRedemption{}, err
	}
	return r, nil
}

// Переход погашения: блокировка строки, проверка таблицы переходов,
// отметки и метрики, строка аудита и смена статуса награды -
// все или ничего
func (m *MarketplaceDB) RedemptionAdvance(ctx context.Context, req model.AdvanceRequest, now time.Time) (model.PrizeRedemption, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return model.PrizeRedemption{}, err
	}
	defer conn.Release()

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return model.PrizeRedemption{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	row := tx.QueryRow(ctx, "SELECT "+redemptionColumns+" FROM redemptions WHERE id = $1 FOR UPDATE", req.RedemptionID)
	r, err := scanRedemption(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = fmt.Errorf("redemption %s: %w", req.RedemptionID, model.ErrNotFound)
		}
		return model.PrizeRedemption{}, err
	}

	// повтор того же статуса - ничего не пишем
	if r.Status == req.Target {
		tx.Rollback(ctx)
		return r, nil
	}

	var requiresApproval bool
	row = tx.QueryRow(ctx, "SELECT requiresapproval FROM catalog WHERE id = $1", r.ItemID)
	if err = row.Scan(&requiresApproval); err != nil {
		return model.PrizeRedemption{}, err
	}
	if !model.RedemptionTransitionAllowed(r.Status, req.Target, requiresApproval) {
		err = fmt.Errorf("%s -> %s: %w", r.Status, req.Target, model.ErrInvalidTransition)
		return model.PrizeRedemption{}, err
	}

	previous := r.Status
	model.ApplyTransition(&r, req, now)

	details, err := json.Marshal(r.FulfillmentDetails)
	if err != nil {
		return model.PrizeRedemption{}, err
	}
	sql, args, err := sq.Update("redemptions").
		Set("status", r.Status).
		Set("fulfillmentdetails", details).
		Set("trackingnumber", r.TrackingNumber).
		Set("adminnotes", r.AdminNotes).
		Set("approvedat", r.ApprovedAt).
		Set("processingat", r.ProcessingAt).
		Set("shippedat", r.ShippedAt).
		Set("completedat", r.CompletedAt).
		Set("cancelledat", r.CancelledAt).
		Set("cancelreason", r.CancelReason).
		Set("timetoapprove", r.TimeToApproveSeconds).
		Set("timetocomplete", r.TimeToCompleteSeconds).
		Set("totalprocessing", r.TotalProcessingSeconds).
		Where(sq.Eq{"id": r.ID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		m.logSQL(err, sql, args)
		return model.PrizeRedemption{}, err
	}
	_, err = tx.Exec(ctx, sql, args...)
	if err != nil {
		return model.PrizeRedemption{}, err
	}

	// аудит
	_, err = tx.Exec(ctx, `INSERT INTO redemptionhistory
		(id, redemptionid, previous, new, actor, reason, changedat)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New(), r.ID, previous, r.Status, req.Actor, req.Reason, now)
	if err != nil {
		return model.PrizeRedemption{}, err
	}

	// сопутствующая смена статуса награды
	var award model.PrizeAward
	row = tx.QueryRow(ctx, "SELECT "+awardColumns+" FROM awards WHERE id = $1 FOR UPDATE", r.AwardID)
	award, err = scanAward(row)
	if err != nil {
		return model.PrizeRedemption{}, err
	}
	if next, ok := model.AwardStatusAfterRedemption(req.Target, award, now); ok {
		// награда могла быть отменена администратором параллельно,
		// поэтому смена статуса условная: ноль строк откатывает погашение
		var tag pgconn.CommandTag
		tag, err = tx.Exec(ctx, `UPDATE awards SET status = $1, statuschangedat = $2, statuschangedby = $3, statusreason = $4
			WHERE id = $5 AND status = $6`,
			next, now, req.Actor, req.Reason, award.ID, model.AwardReserved)
		if err != nil {
			return model.PrizeRedemption{}, err
		}
		if tag.RowsAffected() == 0 {
			err = fmt.Errorf("award %s is %s: %w", award.ID, award.Status, model.ErrInvalidTransition)
			return model.PrizeRedemption{}, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return model.PrizeRedemption{}, err
	}
	return r, nil
}

// Оценка пользователя после получения приза
func (m *MarketplaceDB) RedemptionFeedback(ctx context.Context, redemptionID uuid.UUID, rating int, feedback string) error {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `UPDATE redemptions
		SET rating = $1, feedback = $2, feedbackat = now() WHERE id = $3`,
		rating, feedback, redemptionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("redemption %s: %w", redemptionID, model.ErrNotFound)
	}
	return nil
}

// История переходов погашения
func (m *MarketplaceDB) RedemptionHistory(ctx context.Context, redemptionID uuid.UUID) ([]model.StatusHistory, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `SELECT id, redemptionid, previous, new, actor, reason, changedat
		FROM redemptionhistory WHERE redemptionid = $1 ORDER BY changedat`, redemptionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []model.StatusHistory
	for rows.Next() {
		var h model.StatusHistory
		var id, rid pgtype.UUID
		var actor, reason pgtype.Text
		if err = rows.Scan(&id, &rid, &h.Previous, &h.New, &actor, &reason, &h.ChangedAt); err != nil {
			return nil, err
		}
		h.ID, _ = uuid.FromBytes(id.Bytes[:])
		h.RedemptionID, _ = uuid.FromBytes(rid.Bytes[:])
		h.Actor = actor.String
		h.Reason = reason.String
		history = append(history, h)
	}
	return history, nil
}

// Метрики погашений за период
func (m *MarketplaceDB) RedemptionStats(ctx context.Context, from, to time.Time) (model.RedemptionStats, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return model.RedemptionStats{}, err
	}
	defer conn.Release()

	var stats model.RedemptionStats
	var avgComplete, avgRating pgtype.Float8
	row := conn.QueryRow(ctx, `SELECT
		COUNT(*),
		COUNT(*) FILTER (WHERE status = 'completed'),
		COUNT(*) FILTER (WHERE status = 'cancelled'),
		COUNT(*) FILTER (WHERE status = 'rejected'),
		COUNT(*) FILTER (WHERE status = 'failed'),
		COUNT(*) FILTER (WHERE status IN ('initiated', 'pending_approval', 'approved', 'processing', 'shipped')),
		AVG(timetocomplete) FILTER (WHERE status = 'completed'),
		AVG(rating) FILTER (WHERE rating > 0)
		FROM redemptions WHERE initiatedat >= $1 AND initiatedat <= $2`, from, to)
	err = row.Scan(&stats.Total, &stats.Completed, &stats.Cancelled, &stats.Rejected,
		&stats.Failed, &stats.InProgress, &avgComplete, &avgRating)
	if err != nil {
		return model.RedemptionStats{}, err
	}
	stats.AvgCompleteSeconds = avgComplete.Float
	stats.AvgRating = avgRating.Float
	return stats, nil
}

// Кошелек пользователя: награды с погашениями
func (m *MarketplaceDB) Wallet(ctx context.Context, userID string) ([]model.WalletEntry, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `SELECT
		a.id, a.itemid, a.userid, a.source, a.sourceref, a.linkedawardid, a.issuedby,
		a.message, a.status, a.statuschangedat, a.statusreason, a.pointsvalue, a.monetaryvalue,
		a.expiresat, a.attributes, a.createdat,
		c.name, t.name, r.id, r.status, r.code
		FROM awards a
		JOIN catalog c ON a.itemid = c.id
		LEFT JOIN tiers t ON c.tierid = t.id
		LEFT JOIN redemptions r ON r.awardid = a.id
		WHERE a.userid = $1
		ORDER BY a.createdat DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	now := time.Now()
	var wallet []model.WalletEntry
	for rows.Next() {
		var entry model.WalletEntry
		a := &entry.Award
		var id, itemid, rid pgtype.UUID
		var sourceref, linked, issuedby, message, reason, tiername, rstatus, rcode pgtype.Text
		var attrs []byte
		err = rows.Scan(&id, &itemid, &a.UserID, &a.Source, &sourceref, &linked,
			&issuedby, &message, &a.Status, &a.StatusChangedAt, &reason, &a.PointsValue,
			&a.MonetaryValue, &a.ExpiresAt, &attrs, &a.CreatedAt,
			&entry.ItemName, &tiername, &rid, &rstatus, &rcode)
		if err != nil {
			return nil, err
		}
		a.ID, _ = uuid.FromBytes(id.Bytes[:])
		a.ItemID, _ = uuid.FromBytes(itemid.Bytes[:])
		a.SourceRef = sourceref.String
		a.LinkedAwardID = linked.String
		a.IssuedBy = issuedby.String
		a.Message = message.String
		a.StatusReason = reason.String
		if len(attrs) > 0 {
			_ = json.Unmarshal(attrs, &a.Attributes)
		}
		entry.TierName = tiername.String
		if rid.Status == pgtype.Present {
			u, _ := uuid.FromBytes(rid.Bytes[:])
			entry.RedemptionID = &u
			status := model.RedemptionStatus(rstatus.String)
			entry.RedemptionStatus = &status
			entry.RedemptionCode = rcode.String
		}
		// погашение на награду создается один раз, отмененное не обнуляется
		entry.CanRedeem = a.Status == model.AwardAvailable && !a.ExpiredAt(now) && entry.RedemptionID == nil
		wallet = append(wallet, entry)
	}
	return wallet, nil
}
