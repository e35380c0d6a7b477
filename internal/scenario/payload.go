package scenario

import (
	"strings"
	"time"

	"github.com/torosent/packstorm/internal/apiclient"
)

// Fixed create-event body.
const (
	EventDescription = "Package arrived at the distribution center"
	EventLocation    = "São Paulo Distribution Center"
	EventDate        = "2025-01-20T15:13:59Z"
)

const letters = "abcdefghijklmnopqrstuvwxyz"

var (
	deliveryWindowStart = time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC)
	deliveryWindowEnd   = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
)

// Source is the randomness payload builders draw from. *Rand satisfies it.
type Source interface {
	Intn(n int) int
	Int64n(n int64) int64
}

// RandomString returns n lowercase ASCII letters.
func RandomString(rnd Source, n int) string {
	if n <= 0 {
		return ""
	}
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(letters[rnd.Intn(len(letters))])
	}
	return b.String()
}

// RandomDate returns a YYYY-MM-DD date in [2021-01-01, 2025-01-01).
func RandomDate(rnd Source) string {
	span := deliveryWindowEnd.Sub(deliveryWindowStart)
	offset := time.Duration(rnd.Int64n(int64(span)))
	return deliveryWindowStart.Add(offset).Format(time.DateOnly)
}

// NewPackPayload builds a randomized create-pack body.
func NewPackPayload(rnd Source) apiclient.PackPayload {
	return apiclient.PackPayload{
		Description:           "Books for delivery " + RandomString(rnd, 10),
		Sender:                "ABC Store " + RandomString(rnd, 5),
		Recipient:             "John Silva " + RandomString(rnd, 5),
		EstimatedDeliveryDate: RandomDate(rnd),
	}
}

// NewEventPayload builds the create-event body for packID.
func NewEventPayload(packID string) apiclient.EventPayload {
	return apiclient.EventPayload{
		PackID:      packID,
		Description: EventDescription,
		Location:    EventLocation,
		Date:        EventDate,
	}
}
