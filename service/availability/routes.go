package availability

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/KNartey/ServiceHub-server/cmd/models"
	"github.com/KNartey/ServiceHub-server/cmd/utils"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type SlotHandler struct {
	db *gorm.DB
}

func NewSlotHandler(db *gorm.DB) *SlotHandler {
	return &SlotHandler{db: db}
}

func (h *SlotHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/providers/{providerId:[0-9]+}/slots", utils.AuthMiddleware(h.CreateSlot)).Methods("POST")
	router.HandleFunc("/providers/{providerId:[0-9]+}/slots/batch", utils.AuthMiddleware(h.CreateSlots)).Methods("POST")
	router.HandleFunc("/providers/{providerId:[0-9]+}/slots", h.GetSlots).Methods("GET")
	router.HandleFunc("/providers/{providerId:[0-9]+}/slots/date/{date}", h.GetSlotsByDate).Methods("GET")
	router.HandleFunc("/slots/{id:[0-9]+}/available", utils.AuthMiddleware(h.MarkAvailable)).Methods("PATCH")
	router.HandleFunc("/slots/{id:[0-9]+}/unavailable", utils.AuthMiddleware(h.MarkUnavailable)).Methods("PATCH")
	router.HandleFunc("/slots/{id:[0-9]+}", utils.AuthMiddleware(h.DeleteSlot)).Methods("DELETE")
}

// ownsProvider checks that the authenticated user is the user behind the
// provider profile.
func (h *SlotHandler) ownsProvider(r *http.Request, providerID uint) bool {
	userID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		return false
	}
	role, _ := utils.GetUserRoleFromContext(r)
	if role == models.RoleAdmin {
		return true
	}
	var provider models.ServiceProvider
	if err := h.db.First(&provider, providerID).Error; err != nil {
		return false
	}
	return provider.UserID == userID
}

func (h *SlotHandler) CreateSlot(w http.ResponseWriter, r *http.Request) {
	providerID, err := strconv.ParseUint(mux.Vars(r)["providerId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid provider ID", http.StatusBadRequest)
		return
	}

	if !h.ownsProvider(r, uint(providerID)) {
		http.Error(w, "You can only manage your own availability", http.StatusForbidden)
		return
	}

	var slot models.AvailabilitySlot
	if err := json.NewDecoder(r.Body).Decode(&slot); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := ValidateInterval(slot.StartTime, slot.EndTime); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Overlap check against the provider's open slots.
	var existing models.AvailabilitySlot
	overlap := h.db.Where("provider_id = ? AND available = ? AND start_time < ? AND end_time > ?",
		providerID, true, slot.EndTime, slot.StartTime).First(&existing)

	if overlap.Error != nil && overlap.Error != gorm.ErrRecordNotFound {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	if overlap.Error == nil {
		http.Error(w, "Time slot overlaps with existing availability", http.StatusConflict)
		return
	}

	slot.ProviderID = uint(providerID)
	slot.Available = true

	if err := h.db.Create(&slot).Error; err != nil {
		http.Error(w, "Error creating availability slot", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(slot)
}

func (h *SlotHandler) CreateSlots(w http.ResponseWriter, r *http.Request) {
	providerID, err := strconv.ParseUint(mux.Vars(r)["providerId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid provider ID", http.StatusBadRequest)
		return
	}

	if !h.ownsProvider(r, uint(providerID)) {
		http.Error(w, "You can only manage your own availability", http.StatusForbidden)
		return
	}

	var slots []models.AvailabilitySlot
	if err := json.NewDecoder(r.Body).Decode(&slots); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(slots) == 0 {
		http.Error(w, "Provide at least one slot", http.StatusBadRequest)
		return
	}

	// All slots must be valid before any are saved.
	for i := range slots {
		if err := ValidateInterval(slots[i].StartTime, slots[i].EndTime); err != nil {
			http.Error(w, "End time must be after start time for all slots", http.StatusBadRequest)
			return
		}
		slots[i].ProviderID = uint(providerID)
		slots[i].Available = true
	}

	if err := h.db.Create(&slots).Error; err != nil {
		http.Error(w, "Error creating availability slots", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(slots)
}

func (h *SlotHandler) GetSlots(w http.ResponseWriter, r *http.Request) {
	providerID, err := strconv.ParseUint(mux.Vars(r)["providerId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid provider ID", http.StatusBadRequest)
		return
	}

	query := h.db.Where("provider_id = ?", providerID)
	if r.URL.Query().Get("available") == "true" {
		query = query.Where("available = ?", true)
	}

	var slots []models.AvailabilitySlot
	if err := query.Order("start_time ASC").Find(&slots).Error; err != nil {
		http.Error(w, "Error retrieving availability slots", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(slots)
}

func (h *SlotHandler) GetSlotsByDate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	providerID, err := strconv.ParseUint(vars["providerId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid provider ID", http.StatusBadRequest)
		return
	}

	date, err := time.Parse("2006-01-02", vars["date"])
	if err != nil {
		http.Error(w, "Invalid date format. Use YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	dayEnd := date.AddDate(0, 0, 1)

	var slots []models.AvailabilitySlot
	if err := h.db.Where("provider_id = ? AND available = ? AND start_time >= ? AND start_time < ?",
		providerID, true, date, dayEnd).
		Order("start_time ASC").Find(&slots).Error; err != nil {
		http.Error(w, "Error retrieving availability slots", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(slots)
}

func (h *SlotHandler) MarkAvailable(w http.ResponseWriter, r *http.Request) {
	h.setAvailability(w, r, true)
}

func (h *SlotHandler) MarkUnavailable(w http.ResponseWriter, r *http.Request) {
	h.setAvailability(w, r, false)
}

func (h *SlotHandler) setAvailability(w http.ResponseWriter, r *http.Request, available bool) {
	slotID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid slot ID", http.StatusBadRequest)
		return
	}

	var slot models.AvailabilitySlot
	if err := h.db.First(&slot, slotID).Error; err != nil {
		http.Error(w, "Availability slot not found", http.StatusNotFound)
		return
	}

	if !h.ownsProvider(r, slot.ProviderID) {
		http.Error(w, "You can only manage your own availability", http.StatusForbidden)
		return
	}

	slot.Available = available
	if err := h.db.Save(&slot).Error; err != nil {
		http.Error(w, "Error updating availability slot", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(slot)
}

func (h *SlotHandler) DeleteSlot(w http.ResponseWriter, r *http.Request) {
	slotID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid slot ID", http.StatusBadRequest)
		return
	}

	var slot models.AvailabilitySlot
	if err := h.db.First(&slot, slotID).Error; err != nil {
		http.Error(w, "Availability slot not found", http.StatusNotFound)
		return
	}

	if !h.ownsProvider(r, slot.ProviderID) {
		http.Error(w, "You can only manage your own availability", http.StatusForbidden)
		return
	}

	if err := h.db.Delete(&slot).Error; err != nil {
		http.Error(w, "Error deleting availability slot", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Availability slot deleted successfully",
	})
}
