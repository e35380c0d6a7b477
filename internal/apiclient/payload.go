package apiclient

// Status is a pack lifecycle state as the API spells it.
type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusInTransit Status = "IN_TRANSIT"
	StatusDelivered Status = "DELIVERED"
	StatusCanceled  Status = "CANCELED"
)

// PackPayload is the body of POST /packs.
type PackPayload struct {
	Description           string `json:"description"`
	Sender                string `json:"sender"`
	Recipient             string `json:"recipient"`
	EstimatedDeliveryDate string `json:"estimated_delivery_date"` // YYYY-MM-DD
}

// EventPayload is the body of POST /pack_events.
type EventPayload struct {
	PackID      string `json:"pack_id"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Date        string `json:"date"` // RFC 3339
}

type statusPayload struct {
	Status Status `json:"status"`
}
