package notification

import (
	"fmt"
	"strconv"

	"github.com/KNartey/ServiceHub-server/cmd/models"
	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PushNotifier delivers booking lifecycle events to registered devices via
// Expo. It satisfies the booking scheduler's Notifier interface. Every send
// is best-effort: failures are logged and swallowed.
type PushNotifier struct {
	db         *gorm.DB
	expoClient *expo.PushClient
	log        *zap.Logger
}

func NewPushNotifier(db *gorm.DB, log *zap.Logger) *PushNotifier {
	return &PushNotifier{
		db:         db,
		expoClient: expo.NewPushClient(nil),
		log:        log,
	}
}

func (n *PushNotifier) BookingCreated(b *models.Booking) {
	var provider models.ServiceProvider
	if err := n.db.First(&provider, b.ProviderID).Error; err != nil {
		n.log.Warn("booking notification skipped, provider not found",
			zap.Uint("booking_id", b.ID), zap.Error(err))
		return
	}

	n.sendToUser(provider.UserID,
		"New booking request",
		fmt.Sprintf("You have a new booking request for %s", b.StartTime.Format("Jan 2 15:04")),
		b.ID)
}

func (n *PushNotifier) BookingStatusChanged(b *models.Booking) {
	title := "Booking update"
	body := fmt.Sprintf("Your booking is now %s", b.Status)

	n.sendToUser(b.CustomerID, title, body, b.ID)

	if b.Status == models.BookingCancelled {
		var provider models.ServiceProvider
		if err := n.db.First(&provider, b.ProviderID).Error; err == nil {
			n.sendToUser(provider.UserID, "Booking cancelled",
				fmt.Sprintf("The booking for %s was cancelled", b.StartTime.Format("Jan 2 15:04")), b.ID)
		}
	}
}

func (n *PushNotifier) sendToUser(userID uint, title, body string, bookingID uint) {
	var devices []models.Device
	if err := n.db.Where("user_id = ?", userID).Find(&devices).Error; err != nil {
		n.log.Warn("error loading devices for notification",
			zap.Uint("user_id", userID), zap.Error(err))
		return
	}

	status := "sent"
	for _, device := range devices {
		pushToken, err := expo.NewExponentPushToken(device.Token)
		if err != nil {
			n.log.Warn("invalid push token", zap.Uint("device_id", device.ID), zap.Error(err))
			continue
		}

		response, err := n.expoClient.Publish(&expo.PushMessage{
			To:       []expo.ExponentPushToken{pushToken},
			Title:    title,
			Body:     body,
			Sound:    "default",
			Priority: expo.DefaultPriority,
			Data:     map[string]string{"booking_id": strconv.FormatUint(uint64(bookingID), 10)},
		})
		if err != nil {
			n.log.Warn("error sending push notification",
				zap.Uint("user_id", userID), zap.Error(err))
			status = "failed"
			continue
		}
		if err := response.ValidateResponse(); err != nil {
			n.log.Warn("push notification rejected",
				zap.Uint("user_id", userID), zap.Error(err))
			status = "failed"
		}
	}

	history := models.NotificationHistory{
		UserID: userID,
		Title:  title,
		Body:   body,
		Status: status,
	}
	if err := n.db.Create(&history).Error; err != nil {
		n.log.Warn("error recording notification history", zap.Error(err))
	}
}
