package scenario

import (
	"strings"
	"testing"
	"time"
)

func TestRandomString(t *testing.T) {
	rnd := NewRand(7)
	s := RandomString(rnd, 10)
	if len(s) != 10 {
		t.Fatalf("len = %d, want 10", len(s))
	}
	if strings.Trim(s, letters) != "" {
		t.Fatalf("unexpected characters in %q", s)
	}
	if RandomString(rnd, 0) != "" {
		t.Fatal("n=0 must give empty string")
	}
}

func TestRandomDateWindow(t *testing.T) {
	rnd := NewRand(11)
	for i := 0; i < 500; i++ {
		d, err := time.Parse(time.DateOnly, RandomDate(rnd))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if d.Before(deliveryWindowStart) || !d.Before(deliveryWindowEnd) {
			t.Fatalf("date %s outside window", d.Format(time.DateOnly))
		}
	}
}

func TestNewPackPayloadDeterministic(t *testing.T) {
	a := NewPackPayload(NewRand(42))
	b := NewPackPayload(NewRand(42))
	if a != b {
		t.Fatalf("same seed gave %+v and %+v", a, b)
	}
	if !strings.HasPrefix(a.Description, "Books for delivery ") || len(a.Description) != len("Books for delivery ")+10 {
		t.Fatalf("description = %q", a.Description)
	}
	if !strings.HasPrefix(a.Sender, "ABC Store ") || !strings.HasPrefix(a.Recipient, "John Silva ") {
		t.Fatalf("payload = %+v", a)
	}
}

func TestNewEventPayload(t *testing.T) {
	e := NewEventPayload("pk-1")
	if e.PackID != "pk-1" || e.Location != EventLocation || e.Date != EventDate || e.Description != EventDescription {
		t.Fatalf("payload = %+v", e)
	}
}
