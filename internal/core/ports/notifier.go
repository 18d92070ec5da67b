package ports

import (
	"context"
	"time"
)

// BookingNotification asks the communications service to e-mail a booking confirmation.
type BookingNotification struct {
	ShipmentID       string    `json:"shipmentId"`
	CompanyID        string    `json:"companyId"`
	UserID           string    `json:"userId"`
	Carrier          string    `json:"carrier"`
	DocumentsSummary string    `json:"documentsSummary"`
	BookedAt         time.Time `json:"bookedAt"`
}

type Notifier interface {
	NotifyBooked(ctx context.Context, n BookingNotification) error
}
