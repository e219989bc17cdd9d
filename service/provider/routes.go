package provider

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/KNartey/ServiceHub-server/cmd/models"
	"github.com/KNartey/ServiceHub-server/cmd/utils"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type ProviderHandler struct {
	db *gorm.DB
}

func NewProviderHandler(db *gorm.DB) *ProviderHandler {
	return &ProviderHandler{db: db}
}

func (h *ProviderHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/providers", utils.AuthMiddleware(h.CreateProvider)).Methods("POST")
	router.HandleFunc("/providers", h.GetProviders).Methods("GET")
	router.HandleFunc("/providers/{id:[0-9]+}", h.GetProvider).Methods("GET")
	router.HandleFunc("/providers/{id:[0-9]+}", utils.AuthMiddleware(h.UpdateProvider)).Methods("PUT")
	router.HandleFunc("/providers/{id:[0-9]+}/verify", utils.AuthMiddleware(h.VerifyProvider)).Methods("POST")
	router.HandleFunc("/categories", h.GetCategories).Methods("GET")
	router.HandleFunc("/categories", utils.AuthMiddleware(h.CreateCategory)).Methods("POST")
}

func (h *ProviderHandler) CreateProvider(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		CategoryID      uint    `json:"category_id"`
		Bio             string  `json:"bio"`
		ExperienceYears float64 `json:"experience_years"`
		HourlyRate      float64 `json:"hourly_rate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.HourlyRate < 0 {
		http.Error(w, "Hourly rate cannot be negative", http.StatusBadRequest)
		return
	}

	var category models.ServiceCategory
	if err := h.db.First(&category, req.CategoryID).Error; err != nil {
		http.Error(w, "Service category not found", http.StatusNotFound)
		return
	}

	var existing models.ServiceProvider
	if err := h.db.Where("user_id = ?", userID).First(&existing).Error; err == nil {
		http.Error(w, "Provider profile already exists", http.StatusConflict)
		return
	}

	provider := models.ServiceProvider{
		UserID:          userID,
		CategoryID:      req.CategoryID,
		Bio:             req.Bio,
		ExperienceYears: req.ExperienceYears,
		HourlyRate:      req.HourlyRate,
		Available:       true,
	}

	if err := h.db.Create(&provider).Error; err != nil {
		http.Error(w, "Error creating provider profile", http.StatusInternalServerError)
		return
	}

	h.db.Model(&models.User{}).Where("id = ?", userID).Update("role", models.RoleProvider)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(provider)
}

func (h *ProviderHandler) GetProviders(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 20

	query := h.db.Model(&models.ServiceProvider{}).Preload("User").Preload("Category")

	if categoryID := r.URL.Query().Get("category_id"); categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}
	if r.URL.Query().Get("available") == "true" {
		query = query.Where("available = ?", true)
	}

	var total int64
	query.Count(&total)

	var providers []models.ServiceProvider
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).
		Order("rating DESC").Find(&providers).Error; err != nil {
		http.Error(w, "Error retrieving providers", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"providers":   providers,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

func (h *ProviderHandler) GetProvider(w http.ResponseWriter, r *http.Request) {
	providerID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid provider ID", http.StatusBadRequest)
		return
	}

	var provider models.ServiceProvider
	if err := h.db.Preload("User").Preload("Category").First(&provider, providerID).Error; err != nil {
		http.Error(w, "Provider not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(provider)
}

func (h *ProviderHandler) UpdateProvider(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	providerID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid provider ID", http.StatusBadRequest)
		return
	}

	var provider models.ServiceProvider
	if err := h.db.First(&provider, providerID).Error; err != nil {
		http.Error(w, "Provider not found", http.StatusNotFound)
		return
	}
	if provider.UserID != userID {
		http.Error(w, "You can only update your own profile", http.StatusForbidden)
		return
	}

	var req struct {
		CategoryID      uint    `json:"category_id"`
		Bio             string  `json:"bio"`
		ExperienceYears float64 `json:"experience_years"`
		HourlyRate      float64 `json:"hourly_rate"`
		Available       *bool   `json:"available"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.HourlyRate < 0 {
		http.Error(w, "Hourly rate cannot be negative", http.StatusBadRequest)
		return
	}

	// Rating and total_reviews are owned by the review aggregator and are
	// never writable here.
	provider.Bio = req.Bio
	provider.ExperienceYears = req.ExperienceYears
	provider.HourlyRate = req.HourlyRate
	if req.CategoryID != 0 {
		provider.CategoryID = req.CategoryID
	}
	if req.Available != nil {
		provider.Available = *req.Available
	}

	if err := h.db.Save(&provider).Error; err != nil {
		http.Error(w, "Error updating provider", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(provider)
}

func (h *ProviderHandler) VerifyProvider(w http.ResponseWriter, r *http.Request) {
	role, _ := utils.GetUserRoleFromContext(r)
	if role != models.RoleAdmin {
		http.Error(w, "Admin access required", http.StatusForbidden)
		return
	}

	providerID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid provider ID", http.StatusBadRequest)
		return
	}

	result := h.db.Model(&models.ServiceProvider{}).Where("id = ?", providerID).
		Update("verified", true)
	if result.Error != nil {
		http.Error(w, "Error verifying provider", http.StatusInternalServerError)
		return
	}
	if result.RowsAffected == 0 {
		http.Error(w, "Provider not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Provider verified successfully"})
}

func (h *ProviderHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	var categories []models.ServiceCategory
	if err := h.db.Order("name ASC").Find(&categories).Error; err != nil {
		http.Error(w, "Error retrieving categories", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(categories)
}

func (h *ProviderHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	role, _ := utils.GetUserRoleFromContext(r)
	if role != models.RoleAdmin {
		http.Error(w, "Admin access required", http.StatusForbidden)
		return
	}

	var category models.ServiceCategory
	if err := json.NewDecoder(r.Body).Decode(&category); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if category.Name == "" {
		http.Error(w, "Category name is required", http.StatusBadRequest)
		return
	}

	if err := h.db.Create(&category).Error; err != nil {
		http.Error(w, "Error creating category", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(category)
}
