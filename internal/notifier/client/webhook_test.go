package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/meterline/meterline/internal/config"
	"github.com/meterline/meterline/internal/notifier/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceCreatedDeliversPayload(t *testing.T) {
	received := make(chan map[string]any, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/webhook/invoice-created", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		received <- body
	}))
	defer srv.Close()

	w := New(config.Config{NotifierBaseURL: srv.URL, HTTPTimeout: 5 * time.Second})
	w.InvoiceCreated(context.Background(), domain.Notification{
		InvoiceID:      snowflake.ID(12345),
		OrganizationID: 42,
		CustomerID:     9,
		InvoiceNumber:  "INV-abc",
		TotalAmount:    decimal.RequireFromString("125.00"),
		Credential:     "tok",
	})

	select {
	case body := <-received:
		assert.Equal(t, "INV-abc", body["invoiceNumber"])
		assert.EqualValues(t, 42, body["organizationId"])
		assert.Equal(t, "tok", body["credential"])
	case <-time.After(3 * time.Second):
		t.Fatal("webhook was never called")
	}
}

func TestInvoiceCreatedNeverPropagatesFailure(t *testing.T) {
	called := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		called <- struct{}{}
	}))
	defer srv.Close()

	w := New(config.Config{NotifierBaseURL: srv.URL, HTTPTimeout: 5 * time.Second})
	// Must return immediately and never panic, whatever the downstream does.
	w.InvoiceCreated(context.Background(), domain.Notification{InvoiceNumber: "INV-abc"})

	select {
	case <-called:
	case <-time.After(3 * time.Second):
		t.Fatal("webhook was never called")
	}
}

func TestInvoiceCreatedSurvivesCanceledCaller(t *testing.T) {
	called := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called <- struct{}{}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := New(config.Config{NotifierBaseURL: srv.URL, HTTPTimeout: 5 * time.Second})
	w.InvoiceCreated(ctx, domain.Notification{InvoiceNumber: "INV-abc"})

	select {
	case <-called:
	case <-time.After(3 * time.Second):
		t.Fatal("notification should outlive the caller's context")
	}
}
