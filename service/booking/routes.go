package booking

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/KNartey/ServiceHub-server/cmd/models"
	"github.com/KNartey/ServiceHub-server/cmd/utils"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type BookingHandler struct {
	db        *gorm.DB
	scheduler *Scheduler
}

func NewBookingHandler(db *gorm.DB, log *zap.Logger) *BookingHandler {
	return &BookingHandler{
		db:        db,
		scheduler: NewScheduler(NewGormStore(db), log),
	}
}

// Scheduler exposes the underlying scheduler so the API server can attach
// the push notifier after construction.
func (h *BookingHandler) Scheduler() *Scheduler {
	return h.scheduler
}

func (h *BookingHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/bookings", utils.AuthMiddleware(h.CreateBooking)).Methods("POST")
	router.HandleFunc("/bookings", h.GetAllBookings).Methods("GET")
	router.HandleFunc("/bookings/{id:[0-9]+}", h.GetBooking).Methods("GET")
	router.HandleFunc("/bookings/{id:[0-9]+}", utils.AuthMiddleware(h.UpdateBooking)).Methods("PUT")
	router.HandleFunc("/bookings/{id:[0-9]+}/confirm", utils.AuthMiddleware(h.ConfirmBooking)).Methods("PATCH")
	router.HandleFunc("/bookings/{id:[0-9]+}/start", utils.AuthMiddleware(h.StartService)).Methods("PATCH")
	router.HandleFunc("/bookings/{id:[0-9]+}/complete", utils.AuthMiddleware(h.CompleteService)).Methods("PATCH")
	router.HandleFunc("/bookings/{id:[0-9]+}/cancel", utils.AuthMiddleware(h.CancelBooking)).Methods("PATCH")
	router.HandleFunc("/bookings/{id:[0-9]+}/status", utils.AuthMiddleware(h.UpdateStatus)).Methods("PATCH")
	router.HandleFunc("/bookings/customer/{customerId:[0-9]+}", h.GetCustomerBookings).Methods("GET")
	router.HandleFunc("/bookings/provider/{providerId:[0-9]+}", h.GetProviderBookings).Methods("GET")
	router.HandleFunc("/bookings/provider/{providerId:[0-9]+}/recent", h.GetRecentProviderBookings).Methods("GET")
	router.HandleFunc("/bookings/provider/{providerId:[0-9]+}/completed/count", h.GetCompletedCount).Methods("GET")
}

// writeError maps scheduler error kinds to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInterval):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrSlotConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, ErrIllegalTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func pathID(r *http.Request, key string) (uint, error) {
	id, err := strconv.ParseUint(mux.Vars(r)[key], 10, 64)
	return uint(id), err
}

func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	customerID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		ProviderID  uint      `json:"provider_id"`
		StartTime   time.Time `json:"start_time"`
		EndTime     time.Time `json:"end_time"`
		Description string    `json:"description"`
		Address     string    `json:"address"`
		TotalAmount *float64  `json:"total_amount,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	booking, err := h.scheduler.CreateBooking(r.Context(), CreateBookingInput{
		CustomerID:  customerID,
		ProviderID:  req.ProviderID,
		Start:       req.StartTime,
		End:         req.EndTime,
		Description: req.Description,
		Address:     req.Address,
		TotalAmount: req.TotalAmount,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.db.Preload("Customer").Preload("Provider").First(booking, booking.ID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(booking)
}

func (h *BookingHandler) GetAllBookings(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 100

	query := h.db.Model(&models.Booking{}).Preload("Customer").Preload("Provider")

	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)

	var bookings []models.Booking
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).
		Order("start_time DESC").Find(&bookings).Error; err != nil {
		http.Error(w, "Error retrieving bookings", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"bookings":    bookings,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid booking ID", http.StatusBadRequest)
		return
	}

	var booking models.Booking
	if err := h.db.Preload("Customer").Preload("Provider").First(&booking, bookingID).Error; err != nil {
		http.Error(w, "Booking not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(booking)
}

func (h *BookingHandler) UpdateBooking(w http.ResponseWriter, r *http.Request) {
	customerID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	bookingID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid booking ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Description string `json:"description"`
		Address     string `json:"address"`
		Notes       string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	booking, err := h.scheduler.UpdateBooking(r.Context(), bookingID, customerID, req.Description, req.Address, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(booking)
}

func (h *BookingHandler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.scheduler.ConfirmBooking)
}

func (h *BookingHandler) StartService(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.scheduler.StartService)
}

func (h *BookingHandler) CompleteService(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.scheduler.CompleteService)
}

func (h *BookingHandler) transition(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, bookingID, actorID uint) (*models.Booking, error)) {
	actorID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	bookingID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid booking ID", http.StatusBadRequest)
		return
	}

	booking, err := op(r.Context(), bookingID, actorID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(booking)
}

func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	actorID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	bookingID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid booking ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	// Reason is optional; an empty body is fine.
	_ = json.NewDecoder(r.Body).Decode(&req)

	role, _ := utils.GetUserRoleFromContext(r)

	var booking *models.Booking
	if role == models.RoleAdmin {
		booking, err = h.scheduler.CancelBookingWithReason(r.Context(), bookingID, req.Reason)
	} else {
		booking, err = h.scheduler.CancelBooking(r.Context(), bookingID, actorID)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(booking)
}

func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actorID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	bookingID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid booking ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	booking, err := h.scheduler.UpdateStatus(r.Context(), bookingID, req.Status, actorID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(booking)
}

func (h *BookingHandler) GetCustomerBookings(w http.ResponseWriter, r *http.Request) {
	customerID, err := pathID(r, "customerId")
	if err != nil {
		http.Error(w, "Invalid customer ID", http.StatusBadRequest)
		return
	}

	query := h.db.Model(&models.Booking{}).Where("customer_id = ?", customerID).Preload("Provider")
	if statuses := r.URL.Query()["status"]; len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}

	var bookings []models.Booking
	if err := query.Order("created_at DESC").Find(&bookings).Error; err != nil {
		http.Error(w, "Error retrieving bookings", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(bookings)
}

func (h *BookingHandler) GetProviderBookings(w http.ResponseWriter, r *http.Request) {
	providerID, err := pathID(r, "providerId")
	if err != nil {
		http.Error(w, "Invalid provider ID", http.StatusBadRequest)
		return
	}

	var bookings []models.Booking
	if err := h.db.Where("provider_id = ?", providerID).Preload("Customer").
		Order("start_time ASC").Find(&bookings).Error; err != nil {
		http.Error(w, "Error retrieving bookings", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(bookings)
}

func (h *BookingHandler) GetRecentProviderBookings(w http.ResponseWriter, r *http.Request) {
	providerID, err := pathID(r, "providerId")
	if err != nil {
		http.Error(w, "Invalid provider ID", http.StatusBadRequest)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 50 {
		limit = 5
	}

	var bookings []models.Booking
	if err := h.db.Where("provider_id = ?", providerID).Preload("Customer").
		Order("created_at DESC").Limit(limit).Find(&bookings).Error; err != nil {
		http.Error(w, "Error retrieving bookings", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(bookings)
}

func (h *BookingHandler) GetCompletedCount(w http.ResponseWriter, r *http.Request) {
	providerID, err := pathID(r, "providerId")
	if err != nil {
		http.Error(w, "Invalid provider ID", http.StatusBadRequest)
		return
	}

	var count int64
	if err := h.db.Model(&models.Booking{}).
		Where("provider_id = ? AND status = ?", providerID, models.BookingCompleted).
		Count(&count).Error; err != nil {
		http.Error(w, "Error counting bookings", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int64{"completed_bookings": count})
}
