package marketplace

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	model "github.com/glkeru/loyalty/marketplace/internal/models"
	service "github.com/glkeru/loyalty/marketplace/internal/services"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type MarketplaceHandler struct {
	router     *mux.Router
	inventory  *service.InventoryService
	awards     *service.AwardService
	redemption *service.RedemptionService
	mystery    *service.MysteryBoxService
	sweeper    *service.SweepService
	logger     *zap.Logger
}

func NewHandler(inventory *service.InventoryService, awards *service.AwardService,
	redemption *service.RedemptionService, mystery *service.MysteryBoxService,
	sweeper *service.SweepService, logger *zap.Logger) *MarketplaceHandler {

	router := mux.NewRouter()
	handler := &MarketplaceHandler{router, inventory, awards, redemption, mystery, sweeper, logger}

	router.HandleFunc("/catalog", handler.CatalogHandler).Methods(http.MethodGet)
	router.HandleFunc("/tiers", handler.TiersHandler).Methods(http.MethodGet)

	router.HandleFunc("/awards", handler.RequestAwardHandler).Methods(http.MethodPost)
	router.HandleFunc("/award/{id}", handler.GetAwardHandler).Methods(http.MethodGet)
	router.HandleFunc("/award/{id}/activate", handler.ActivateAwardHandler).Methods(http.MethodPost)
	router.HandleFunc("/award/{id}/cancel", handler.CancelAwardHandler).Methods(http.MethodPost)

	router.HandleFunc("/redemptions", handler.InitiateHandler).Methods(http.MethodPost)
	router.HandleFunc("/redemptions/stats", handler.StatsHandler).Methods(http.MethodGet)
	router.HandleFunc("/redemption/{id}", handler.GetRedemptionHandler).Methods(http.MethodGet)
	router.HandleFunc("/redemption/{id}/history", handler.HistoryHandler).Methods(http.MethodGet)
	router.HandleFunc("/redemption/{id}/advance", handler.AdvanceHandler).Methods(http.MethodPost)
	router.HandleFunc("/redemption/{id}/feedback", handler.FeedbackHandler).Methods(http.MethodPost)

	router.HandleFunc("/wallet/{user}", handler.WalletHandler).Methods(http.MethodGet)

	router.HandleFunc("/events", handler.CreateEventHandler).Methods(http.MethodPost)
	router.HandleFunc("/event/{id}", handler.GetEventHandler).Methods(http.MethodGet)
	router.HandleFunc("/event/{id}/run", handler.RunEventHandler).Methods(http.MethodPost)

	router.HandleFunc("/sweep", handler.SweepHandler).Methods(http.MethodPost)

	return handler
}

func (h *MarketplaceHandler) ServeHTTP(w http.ResponseWriter, res *http.Request) {
	h.router.ServeHTTP(w, res)
}

func (h *MarketplaceHandler) Log(msg string, handler string, err error) {
	h.logger.Error(msg,
		zap.String("handler", handler),
		zap.Error(err),
	)
}

// Код ответа по ошибке домена
func statusOf(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation),
		errors.Is(err, model.ErrNotEligible):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrOutOfStock),
		errors.Is(err, model.ErrDuplicateRedemption),
		errors.Is(err, model.ErrInvalidTransition),
		errors.Is(err, model.ErrAwardNotAvailable):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *MarketplaceHandler) respond(w http.ResponseWriter, handler string, payload any) {
	j, err := json.Marshal(payload)
	if err != nil {
		h.Log("Marshal", handler, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(j)
}

func (h *MarketplaceHandler) readBody(w http.ResponseWriter, req *http.Request, handler string, target any) bool {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		h.Log("Get request body", handler, err)
		http.Error(w, "Body is empty", http.StatusBadRequest)
		return false
	}
	defer req.Body.Close()
	err = json.Unmarshal(body, target)
	if err != nil {
		h.Log("Unmarshal", handler, err)
		http.Error(w, "Body is not correct", http.StatusBadRequest)
		return false
	}
	return true
}

func pathID(req *http.Request) (uuid.UUID, bool) {
	vars := mux.Vars(req)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Каталог призов
func (h *MarketplaceHandler) CatalogHandler(w http.ResponseWriter, req *http.Request) {
	catalog, err := h.inventory.Catalog(req.Context())
	if err != nil {
		h.Log("Catalog", "CatalogHandler", err)
		http.Error(w, err.Error(), statusOf(err))
		return
	}
	h.respond(w, "CatalogHandler", catalog)
}

// Уровни редкости
func (h *MarketplaceHandler) TiersHandler(w http.ResponseWriter, req *http.Request) {
	tiers, err := h.inventory.Tiers(req.Context())
	if err != nil {
		h.Log("Tiers", "TiersHandler", err)
		http.Error(w, err.Error(), statusOf(err))
		return
	}
	h.respond(w, "TiersHandler", tiers)
}

// Выдача награды
func (h *MarketplaceHandler) RequestAwardHandler(w http.ResponseWriter, req *http.Request) {
	request := service.AwardRequest{}
	if !h.readBody(w, req, "RequestAwardHandler", &request) {
		return
	}
	award, err := h.awards.RequestAward(req.Context(), request)
	if err != nil {
		h.Log("RequestAward", "RequestAwardHandler", err)
		http.Error(w, err.Error(), statusOf(err))
		return
	}
	h.respond(w, "RequestAwardHandler", award)
}

// Получить награду
func (h *MarketplaceHandler) GetAwardHandler(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(req)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	award, err := h.awards.Get(req.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), statusOf(err))
		return
	}
	h.respond(w, "GetAwardHandler", award)
}

type actorRequest struct {
	Actor  string `json:"actor,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Активация отложенной награды
func (h *MarketplaceHandler) ActivateAwardHandler(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(req)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	request := actorRequest{}
	if req.ContentLength > 0 && !h.readBody(w, req, "ActivateAwardHandler", &request) {
		return
	}
	err := h.awards.Activate(req.Context(), id, request.Actor)
	if err != nil {
		h.Log("Activate", "ActivateAwardHandler", err)
		http.Error(w, err.Error(), statusOf(err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Отмена награды
func (h *MarketplaceHandler) CancelAwardHandler(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(req)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	request := actorRequest{}
	if req.ContentLength > 0 && !h.readBody(w, req, "CancelAwardHandler", &request) {
		return
	}
	err := h.awards.Cancel(req.Context(), id, request.Actor, request.Reason)
	if err != nil {
		h.Log("Cancel", "CancelAwardHandler", err)
		http.Error(w, err.Error(), statusOf(err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Старт погашения
func (h *MarketplaceHandler) InitiateHandler(w http.ResponseWriter, req *http.Request) {
	request := service.InitiateRequest{}
	if !h.readBody(w, req, "InitiateHandler", &request) {
		return
	}
	redemption, err := h.redemption.Initiate(req.Context(), request)
	if err != nil {
		h.Log("Initiate", "InitiateHandler", err)
		http.Error(w, err.Error(), statusOf(err))
		return
	}
	h.respond(w, "InitiateHandler", redemption)
}

// Получить погашение
func (h *MarketplaceHandler) GetRedemptionHandler(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(req)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	redemption, err := h.redemption.Get(req.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), statusOf(err))
		return
	}
	h.respond(w, "GetRedemptionHandler", redemption)
}

// История переходов погашения
func (h *MarketplaceHandler) HistoryHandler(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(req)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	history, err := h.redemption.History(req.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), statusOf(err))
		return
	}
	h.respond(w, "HistoryHandler", history)
}

// Переход погашения
func (h *MarketplaceHandler) AdvanceHandler(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(req)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	request := model.AdvanceRequest{}
	if !h.readBody(w, req, "AdvanceHandler", &request) {
		return
	}
	request.RedemptionID = id
	redemption, err := h.redemption.Advance(req.Context(), request)
	if err != nil {
		h.Log("Advance", "AdvanceHandler", err)
		http.Error(w, err.Error(), statusOf(err))
		return
	}
	h.respond(w, "AdvanceHandler", redemption)
}

type feedbackRequest struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback,omitempty"`
}

// Оценка пользователя
func (h *MarketplaceHandler) FeedbackHandler(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(req)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	request := feedbackRequest{}
	if !h.readBody(w, req, "FeedbackHandler", &request) {
		return
	}
	err := h.redemption.Feedback(req.Context(), id, request.Rating, request.Feedback)
	if err != nil {
		h.Log("Feedback", "FeedbackHandler", err)
		http.Error(w, err.Error(), statusOf(err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Метрики погашений за период
func (h *MarketplaceHandler) StatsHandler(w http.ResponseWriter, req *http.Request) {
	from := time.Time{}
	to := time.Now()
	if v := req.URL.Query().Get("from"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "from is not correct", http.StatusBadRequest)
			return
		}
		from = parsed
	}
	if v := req.URL.Query().Get("to"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "to is not correct", http.StatusBadRequest)
			return
		}
		to = parsed
	}
	stats, err := h.redemption.Stats(req.Context(), from, to)
	if err != nil {
		h.Log("Stats", "StatsHandler", err)
		http.Error(w, err.Error(), statusOf(err))
		return
	}
	h.respond(w, "StatsHandler", stats)
}

// Кошелек пользователя
func (h *MarketplaceHandler) WalletHandler(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	user := vars["user"]
	if user == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	wallet, err := h.awards.Wallet(req.Context(), user)
	if err != nil {
		h.Log("Wallet", "WalletHandler", err)
		http.Error(w, err.Error(), statusOf(err))
		return
	}
	h.respond(w, "WalletHandler", wallet)
}

// Создать событие розыгрыша
func (h *MarketplaceHandler) CreateEventHandler(w http.ResponseWriter, req *http.Request) {
	event := model.MysteryBoxEvent{}
	if !h.readBody(w, req, "CreateEventHandler", &event) {
		return
	}
	id, err := h.mystery.Create(req.Context(), event)
	if err != nil {
		h.Log("Create", "CreateEventHandler", err)
		http.Error(w, err.Error(), statusOf(err))
		return
	}
	h.respond(w, "CreateEventHandler", map[string]string{"id": id.String()})
}

// Получить событие
func (h *MarketplaceHandler) GetEventHandler(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(req)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	event, err := h.mystery.Get(req.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), statusOf(err))
		return
	}
	h.respond(w, "GetEventHandler", event)
}

// Запуск розыгрыша вручную
func (h *MarketplaceHandler) RunEventHandler(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(req)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	err := h.mystery.Run(req.Context(), id)
	if err != nil {
		h.Log("Run", "RunEventHandler", err)
		http.Error(w, err.Error(), statusOf(err))
		return
	}
	event, err := h.mystery.Get(req.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), statusOf(err))
		return
	}
	h.respond(w, "RunEventHandler", event)
}

// Запуск просрочки вручную
func (h *MarketplaceHandler) SweepHandler(w http.ResponseWriter, req *http.Request) {
	count, err := h.sweeper.Sweep(req.Context())
	if err != nil {
		h.Log("Sweep", "SweepHandler", err)
		http.Error(w, err.Error(), statusOf(err))
		return
	}
	h.respond(w, "SweepHandler", map[string]int64{"expired": count})
}
