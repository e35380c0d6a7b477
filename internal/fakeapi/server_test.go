package fakeapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/torosent/packstorm/internal/apiclient"
	"github.com/torosent/packstorm/internal/fakeapi"
)

func newClient(t *testing.T, opts fakeapi.Options) (*apiclient.Client, *fakeapi.Server) {
	t.Helper()
	srv := fakeapi.New(opts)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	c, err := apiclient.New(ts.URL, ts.Client())
	if err != nil {
		t.Fatalf("apiclient.New() error = %v", err)
	}
	return c, srv
}

var validPack = apiclient.PackPayload{
	Description:           "Books for delivery abcdefghij",
	Sender:                "ABC Store abcde",
	Recipient:             "John Silva abcde",
	EstimatedDeliveryDate: "2024-02-29",
}

func createPack(t *testing.T, c *apiclient.Client) string {
	t.Helper()
	res := c.CreatePack(context.Background(), validPack)
	if err := res.Expect(http.StatusCreated); err != nil {
		t.Fatalf("CreatePack: %v", err)
	}
	if res.ID() == "" {
		t.Fatal("CreatePack returned no id")
	}
	return res.ID()
}

func TestCreatePackValidation(t *testing.T) {
	c, srv := newClient(t, fakeapi.Options{})

	id := createPack(t, c)
	p, ok := srv.Pack(id)
	if !ok || p.Status != fakeapi.StatusCreated {
		t.Fatalf("stored pack = %+v, %v", p, ok)
	}

	bad := validPack
	bad.EstimatedDeliveryDate = "29/02/2024"
	if got := c.CreatePack(context.Background(), bad).StatusCode; got != http.StatusBadRequest {
		t.Fatalf("bad date status = %d, want 400", got)
	}
	bad = validPack
	bad.Sender = ""
	if got := c.CreatePack(context.Background(), bad).StatusCode; got != http.StatusBadRequest {
		t.Fatalf("missing sender status = %d, want 400", got)
	}
}

func TestStatusRules(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		steps []apiclient.Status
		codes []int
	}{
		{"happy path", []apiclient.Status{apiclient.StatusInTransit, apiclient.StatusDelivered}, []int{200, 200}},
		{"skip transit", []apiclient.Status{apiclient.StatusDelivered}, []int{400}},
		{"delivered is final", []apiclient.Status{apiclient.StatusInTransit, apiclient.StatusDelivered, apiclient.StatusInTransit}, []int{200, 200, 400}},
		{"canceled not patchable", []apiclient.Status{apiclient.StatusCanceled}, []int{400}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newClient(t, fakeapi.Options{})
			id := createPack(t, c)
			for i, st := range tt.steps {
				if got := c.PatchStatus(ctx, id, st).StatusCode; got != tt.codes[i] {
					t.Fatalf("patch %d (%s) = %d, want %d", i, st, got, tt.codes[i])
				}
			}
		})
	}
}

func TestCancelRules(t *testing.T) {
	ctx := context.Background()
	c, srv := newClient(t, fakeapi.Options{})

	id := createPack(t, c)
	if got := c.CancelPack(ctx, id).StatusCode; got != http.StatusOK {
		t.Fatalf("cancel created = %d, want 200", got)
	}
	if p, _ := srv.Pack(id); p.Status != fakeapi.StatusCanceled || p.CanceledAt == nil {
		t.Fatalf("pack after cancel = %+v", p)
	}
	if got := c.CancelPack(ctx, id).StatusCode; got != http.StatusBadRequest {
		t.Fatalf("cancel twice = %d, want 400", got)
	}

	moving := createPack(t, c)
	c.PatchStatus(ctx, moving, apiclient.StatusInTransit)
	if got := c.CancelPack(ctx, moving).StatusCode; got != http.StatusBadRequest {
		t.Fatalf("cancel in transit = %d, want 400", got)
	}

	if got := c.CancelPack(ctx, "missing").StatusCode; got != http.StatusNotFound {
		t.Fatalf("cancel missing = %d, want 404", got)
	}
	if got := c.PatchStatus(ctx, "missing", apiclient.StatusInTransit).StatusCode; got != http.StatusNotFound {
		t.Fatalf("patch missing = %d, want 404", got)
	}
}

func TestCreateEvent(t *testing.T) {
	ctx := context.Background()
	c, srv := newClient(t, fakeapi.Options{})
	id := createPack(t, c)

	ev := apiclient.EventPayload{PackID: id, Description: "arrived", Location: "hub", Date: "2025-01-20T15:13:59Z"}
	res := c.CreateEvent(ctx, ev)
	if err := res.Expect(http.StatusNoContent); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if len(res.Body) != 0 {
		t.Fatalf("204 body = %q", res.Body)
	}
	if got := len(srv.Events(id)); got != 1 {
		t.Fatalf("events = %d, want 1", got)
	}

	ev.PackID = "missing"
	if got := c.CreateEvent(ctx, ev).StatusCode; got != http.StatusNotFound {
		t.Fatalf("unknown pack = %d, want 404", got)
	}
	ev.PackID = id
	ev.Date = "yesterday"
	if got := c.CreateEvent(ctx, ev).StatusCode; got != http.StatusBadRequest {
		t.Fatalf("bad date = %d, want 400", got)
	}
}

func TestFaultInjection(t *testing.T) {
	c, srv := newClient(t, fakeapi.Options{FailureRate: 1})
	if got := c.CreatePack(context.Background(), validPack).StatusCode; got != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", got)
	}

	slow, _ := newClient(t, fakeapi.Options{Latency: 30 * time.Millisecond})
	res := slow.CreatePack(context.Background(), validPack)
	if res.Elapsed < 30*time.Millisecond {
		t.Fatalf("Elapsed = %s, want >= 30ms", res.Elapsed)
	}
	if srv.Requests() != 1 {
		t.Fatalf("Requests() = %d, want 1", srv.Requests())
	}
}
