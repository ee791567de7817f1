package marketplace

import "time"

// Таблицы переходов. Новый статус добавляется только через изменение таблицы.

var awardTransitions = map[AwardStatus][]AwardStatus{
	AwardPending:   {AwardAvailable, AwardCancelled},
	AwardAvailable: {AwardReserved, AwardExpired, AwardCancelled},
	AwardReserved:  {AwardRedeemed, AwardAvailable, AwardExpired, AwardCancelled},
}

var redemptionTransitions = map[RedemptionStatus][]RedemptionStatus{
	RedemptionInitiated:       {RedemptionPendingApproval, RedemptionApproved, RedemptionCancelled},
	RedemptionPendingApproval: {RedemptionApproved, RedemptionRejected, RedemptionCancelled},
	RedemptionApproved:        {RedemptionProcessing, RedemptionCancelled},
	RedemptionProcessing:      {RedemptionShipped, RedemptionCompleted, RedemptionFailed, RedemptionCancelled},
	RedemptionShipped:         {RedemptionCompleted},
}

func (s AwardStatus) Terminal() bool {
	switch s {
	case AwardRedeemed, AwardExpired, AwardCancelled, AwardFailed:
		return true
	}
	return false
}

func (s RedemptionStatus) Terminal() bool {
	switch s {
	case RedemptionCompleted, RedemptionRejected, RedemptionCancelled, RedemptionFailed:
		return true
	}
	return false
}

func AwardTransitionAllowed(from, to AwardStatus) bool {
	for _, next := range awardTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// RedemptionTransitionAllowed проверяет переход с учетом флага requiresApproval:
// initiated -> approved напрямую разрешен только без согласования
func RedemptionTransitionAllowed(from, to RedemptionStatus, requiresApproval bool) bool {
	if from == RedemptionInitiated && to == RedemptionApproved && requiresApproval {
		return false
	}
	for _, next := range redemptionTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ApplyTransition переводит погашение в новый статус: отметки времени,
// метрики при первом входе, атрибуты отгрузки. Валидность перехода
// проверяет вызывающий, здесь только эффекты.
func ApplyTransition(r *PrizeRedemption, req AdvanceRequest, now time.Time) {
	r.Status = req.Target

	switch req.Target {
	case RedemptionApproved:
		if r.ApprovedAt == nil {
			t := now
			r.ApprovedAt = &t
			sec := int64(now.Sub(r.InitiatedAt) / time.Second)
			r.TimeToApproveSeconds = &sec
		}
	case RedemptionProcessing:
		if r.ProcessingAt == nil {
			t := now
			r.ProcessingAt = &t
		}
	case RedemptionShipped:
		if r.ShippedAt == nil {
			t := now
			r.ShippedAt = &t
		}
	case RedemptionCompleted:
		if r.CompletedAt == nil {
			t := now
			r.CompletedAt = &t
			complete := int64(now.Sub(r.InitiatedAt) / time.Second)
			total := int64(now.Sub(r.CreatedAt) / time.Second)
			r.TimeToCompleteSeconds = &complete
			r.TotalProcessingSeconds = &total
		}
	case RedemptionCancelled, RedemptionRejected, RedemptionFailed:
		t := now
		r.CancelledAt = &t
		r.CancelReason = req.Reason
	}

	if req.TrackingNumber != "" {
		r.TrackingNumber = req.TrackingNumber
	}
	if req.AdminNotes != "" {
		r.AdminNotes = req.AdminNotes
	}
	for k, v := range req.FulfillmentDetails {
		if r.FulfillmentDetails == nil {
			r.FulfillmentDetails = map[string]string{}
		}
		r.FulfillmentDetails[k] = v
	}
}

// AwardStatusAfterRedemption определяет сопутствующее изменение награды:
// completed -> redeemed, отмена/отказ/сбой -> возврат в available,
// либо expired если срок награды уже вышел
func AwardStatusAfterRedemption(target RedemptionStatus, award PrizeAward, now time.Time) (AwardStatus, bool) {
	switch target {
	case RedemptionCompleted:
		return AwardRedeemed, true
	case RedemptionCancelled, RedemptionRejected, RedemptionFailed:
		if award.ExpiredAt(now) {
			return AwardExpired, true
		}
		return AwardAvailable, true
	}
	return "", false
}
