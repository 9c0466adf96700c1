// Package client pushes invoice notifications to the accounting-sync
// service over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/meterline/meterline/internal/config"
	"github.com/meterline/meterline/internal/notifier/domain"
	"github.com/meterline/meterline/pkg/log"
	"go.uber.org/zap"
)

type Webhook struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

// New builds the webhook client from application config.
func New(cfg config.Config) *Webhook {
	return &Webhook{
		baseURL: cfg.NotifierBaseURL,
		http:    &http.Client{Timeout: cfg.HTTPTimeout},
		timeout: cfg.HTTPTimeout,
	}
}

// InvoiceCreated fires the notification on its own goroutine and returns
// immediately. The call is detached from the caller's cancellation so an
// already-returned create cannot abort it, but keeps a bounded deadline.
func (w *Webhook) InvoiceCreated(ctx context.Context, n domain.Notification) {
	detached := context.WithoutCancel(ctx)
	go func() {
		sendCtx, cancel := context.WithTimeout(detached, w.timeout)
		defer cancel()

		if err := w.send(sendCtx, n); err != nil {
			log.L(sendCtx).Warn("invoice notification failed",
				zap.String("invoice_number", n.InvoiceNumber),
				zap.Error(err))
			return
		}
		log.L(sendCtx).Info("invoice notification delivered",
			zap.String("invoice_number", n.InvoiceNumber))
	}()
}

func (w *Webhook) send(ctx context.Context, n domain.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		w.baseURL+"/webhook/invoice-created", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if n.Credential != "" {
		req.Header.Set("Authorization", "Bearer "+n.Credential)
	}

	resp, err := w.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
