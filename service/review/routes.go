package review

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/KNartey/ServiceHub-server/cmd/models"
	"github.com/KNartey/ServiceHub-server/cmd/utils"
	"github.com/KNartey/ServiceHub-server/service/booking"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ReviewHandler struct {
	db      *gorm.DB
	service *Service
}

func NewReviewHandler(db *gorm.DB, log *zap.Logger) *ReviewHandler {
	return &ReviewHandler{
		db:      db,
		service: NewService(NewGormStore(db), log),
	}
}

func (h *ReviewHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/reviews", utils.AuthMiddleware(h.CreateReview)).Methods("POST")
	router.HandleFunc("/reviews/recent", h.GetRecentReviews).Methods("GET")
	router.HandleFunc("/reviews/{id:[0-9]+}", h.GetReview).Methods("GET")
	router.HandleFunc("/reviews/{id:[0-9]+}", utils.AuthMiddleware(h.UpdateReview)).Methods("PUT")
	router.HandleFunc("/reviews/{id:[0-9]+}", utils.AuthMiddleware(h.DeleteReview)).Methods("DELETE")
	router.HandleFunc("/reviews/provider/{providerId:[0-9]+}", h.GetProviderReviews).Methods("GET")
	router.HandleFunc("/reviews/customer/{customerId:[0-9]+}", h.GetCustomerReviews).Methods("GET")
	router.HandleFunc("/reviews/booking/{bookingId:[0-9]+}", h.GetBookingReview).Methods("GET")
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidRating), errors.Is(err, ErrNotCompleted):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrDuplicateReview):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, booking.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, booking.ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	customerID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		BookingID  uint   `json:"booking_id"`
		Rating     int    `json:"rating"`
		ReviewText string `json:"review_text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	rv, err := h.service.Create(r.Context(), CreateReviewInput{
		BookingID:  req.BookingID,
		CustomerID: customerID,
		Rating:     req.Rating,
		ReviewText: req.ReviewText,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(rv)
}

func (h *ReviewHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	reviewID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid review ID", http.StatusBadRequest)
		return
	}

	var rv models.Review
	if err := h.db.Preload("Customer").First(&rv, reviewID).Error; err != nil {
		http.Error(w, "Review not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rv)
}

func (h *ReviewHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	actorID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	reviewID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid review ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Rating     int    `json:"rating"`
		ReviewText string `json:"review_text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	rv, err := h.service.Update(r.Context(), uint(reviewID), actorID, req.Rating, req.ReviewText)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rv)
}

func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	actorID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	reviewID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid review ID", http.StatusBadRequest)
		return
	}

	if err := h.service.Delete(r.Context(), uint(reviewID), actorID); err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Review deleted successfully",
	})
}

func (h *ReviewHandler) GetProviderReviews(w http.ResponseWriter, r *http.Request) {
	providerID, err := strconv.ParseUint(mux.Vars(r)["providerId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid provider ID", http.StatusBadRequest)
		return
	}

	query := h.db.Where("provider_id = ?", providerID).Preload("Customer")
	if min := r.URL.Query().Get("min_rating"); min != "" {
		minRating, err := strconv.Atoi(min)
		if err != nil {
			http.Error(w, "Invalid min_rating", http.StatusBadRequest)
			return
		}
		query = query.Where("rating >= ?", minRating)
	}

	var reviews []models.Review
	if err := query.Order("created_at DESC").Find(&reviews).Error; err != nil {
		http.Error(w, "Error retrieving reviews", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(reviews)
}

func (h *ReviewHandler) GetCustomerReviews(w http.ResponseWriter, r *http.Request) {
	customerID, err := strconv.ParseUint(mux.Vars(r)["customerId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid customer ID", http.StatusBadRequest)
		return
	}

	var reviews []models.Review
	if err := h.db.Where("customer_id = ?", customerID).
		Order("created_at DESC").Find(&reviews).Error; err != nil {
		http.Error(w, "Error retrieving reviews", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(reviews)
}

func (h *ReviewHandler) GetBookingReview(w http.ResponseWriter, r *http.Request) {
	bookingID, err := strconv.ParseUint(mux.Vars(r)["bookingId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid booking ID", http.StatusBadRequest)
		return
	}

	var rv models.Review
	if err := h.db.Where("booking_id = ?", bookingID).First(&rv).Error; err != nil {
		http.Error(w, "Review not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rv)
}

func (h *ReviewHandler) GetRecentReviews(w http.ResponseWriter, r *http.Request) {
	var reviews []models.Review
	if err := h.db.Preload("Customer").
		Order("created_at DESC").Limit(10).Find(&reviews).Error; err != nil {
		http.Error(w, "Error retrieving reviews", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(reviews)
}
