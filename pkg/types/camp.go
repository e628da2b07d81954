package types

import "time"

type Camp struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Location  *string   `db:"location" json:"location,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type Delegate struct {
	ID        string    `db:"id" json:"id"`
	CampID    *string   `db:"camp_id" json:"campId,omitempty"`
	Name      string    `db:"name" json:"name"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type ParcelStatus string

const (
	ParcelStatusActive    ParcelStatus = "active"
	ParcelStatusCompleted ParcelStatus = "completed"
)

type AidParcel struct {
	ID         string       `db:"id" json:"id"`
	CampID     string       `db:"camp_id" json:"campId"`
	Sequence   int          `db:"sequence" json:"sequence"`
	Name       string       `db:"name" json:"name"`
	ParcelDate string       `db:"parcel_date" json:"parcelDate"`
	Status     ParcelStatus `db:"status" json:"status"`
	CreatedAt  time.Time    `db:"created_at" json:"createdAt"`
}

type AidDelivery struct {
	ID            string    `db:"id" json:"id"`
	FamilyID      string    `db:"family_id" json:"familyId"`
	ParcelID      string    `db:"parcel_id" json:"parcelId"`
	DeliveredAt   time.Time `db:"delivered_at" json:"deliveredAt"`
	RecipientName *string   `db:"recipient_name" json:"recipientName,omitempty"`
	Notes         *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

type Notification struct {
	ID        string    `db:"id" json:"id"`
	CampID    *string   `db:"camp_id" json:"campId,omitempty"`
	Title     string    `db:"title" json:"title"`
	Body      string    `db:"body" json:"body"`
	IsRead    bool      `db:"is_read" json:"isRead"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
