package api

import (
	"net/http"
	"os"

	"github.com/KNartey/ServiceHub-server/cmd/utils"
	"github.com/KNartey/ServiceHub-server/service/availability"
	"github.com/KNartey/ServiceHub-server/service/booking"
	"github.com/KNartey/ServiceHub-server/service/notification"
	"github.com/KNartey/ServiceHub-server/service/provider"
	"github.com/KNartey/ServiceHub-server/service/review"
	"github.com/KNartey/ServiceHub-server/service/user"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type APIServer struct {
	address string
	db      *gorm.DB
}

func NewApiServer(address string, db *gorm.DB) *APIServer {
	return &APIServer{
		address: address,
		db:      db,
	}
}

func (s *APIServer) Run() error {
	log := utils.GetLogger()

	router := mux.NewRouter()
	subrouter := router.PathPrefix("/api/v1").Subrouter()

	userHandler := user.NewHandler(s.db)
	userHandler.RegisterRoutes(subrouter)

	providerHandler := provider.NewProviderHandler(s.db)
	providerHandler.RegisterRoutes(subrouter)

	slotHandler := availability.NewSlotHandler(s.db)
	slotHandler.RegisterRoutes(subrouter)

	bookingHandler := booking.NewBookingHandler(s.db, log)
	bookingHandler.Scheduler().SetNotifier(notification.NewPushNotifier(s.db, log))
	bookingHandler.RegisterRoutes(subrouter)

	reviewHandler := review.NewReviewHandler(s.db, log)
	reviewHandler.RegisterRoutes(subrouter)

	notificationHandler := notification.NewNotificationHandler(s.db)
	notificationHandler.RegisterRoutes(subrouter)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	log.Info("Server running at " + s.address)
	return http.ListenAndServe(s.address, handlers.LoggingHandler(os.Stdout, cors(router)))
}
