package entity

import (
	"time"

	"github.com/google/uuid"
)

// Broker status values. Status is user-owned; aggregation never writes it.
const (
	BrokerActive   = "active"
	BrokerInactive = "inactive"
	BrokerProspect = "prospect"
)

// Broker is the CRM entity derived from the load set, one per unique
// (account, broker_email) pair.
type Broker struct {
	ID            uuid.UUID `json:"id"`
	AccountID     string    `json:"account_id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	FirstLoadDate *string   `json:"first_load_date,omitempty"` // YYYY-MM-DD
	LastLoadDate  *string   `json:"last_load_date,omitempty"`
	TotalLoads    int       `json:"total_loads"`
	TotalRevenue  string    `json:"total_revenue"` // decimal string
	AvgRate       string    `json:"avg_rate"`
	AvgRPM        string    `json:"avg_rpm"`
	Status        string    `json:"status"` // user-owned
	Notes         string    `json:"notes"`  // user-owned
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// BrokerInteraction is a timestamped CRM log entry.
type BrokerInteraction struct {
	ID         uuid.UUID `json:"id"`
	BrokerID   uuid.UUID `json:"broker_id"`
	AccountID  string    `json:"account_id"`
	Kind       string    `json:"kind"` // email | call | meeting | note
	Summary    string    `json:"summary"`
	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// BrokerTask is a user-authored follow-up item.
type BrokerTask struct {
	ID        uuid.UUID `json:"id"`
	BrokerID  uuid.UUID `json:"broker_id"`
	AccountID string    `json:"account_id"`
	Title     string    `json:"title"`
	Priority  string    `json:"priority"` // low | medium | high
	DueDate   *string   `json:"due_date,omitempty"`
	Status    string    `json:"status"` // pending | completed | cancelled
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
