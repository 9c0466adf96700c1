// Package client is the HTTP consumer of the subscription service.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/meterline/meterline/internal/apperr"
	"github.com/meterline/meterline/internal/config"
	"github.com/meterline/meterline/internal/subscription/domain"
	"github.com/meterline/meterline/pkg/log"
	"github.com/meterline/meterline/pkg/tenantctx"
	"go.uber.org/zap"
)

type Client struct {
	baseURL  string
	http     *http.Client
	maxBytes int64
}

// New builds a subscription client from application config.
func New(cfg config.Config) *Client {
	return &Client{
		baseURL:  cfg.SubscriptionBaseURL,
		http:     &http.Client{Timeout: cfg.HTTPTimeout},
		maxBytes: cfg.MaxResponseBytes,
	}
}

func (c *Client) Get(ctx context.Context, subscriptionID int64) (*domain.Subscription, error) {
	tenant, err := tenantctx.Require(ctx)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/subscriptions/%d", c.baseURL, subscriptionID)
	resp, err := c.get(ctx, url, tenant)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindUpstreamUnavailable, "subscription service unreachable")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var sub domain.Subscription
		if err := json.NewDecoder(io.LimitReader(resp.Body, c.maxBytes)).Decode(&sub); err != nil {
			return nil, apperr.Wrap(err, apperr.KindUpstreamUnavailable, "malformed subscription response")
		}
		return &sub, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperr.New(apperr.KindNotFound, "subscription %d not found", subscriptionID)
	default:
		return nil, apperr.New(apperr.KindUpstreamUnavailable, "subscription fetch returned status %d", resp.StatusCode)
	}
}

func (c *Client) ListActive(ctx context.Context) []domain.Subscription {
	tenant, err := tenantctx.Require(ctx)
	if err != nil {
		log.L(ctx).Warn("list active subscriptions without tenant", zap.Error(err))
		return nil
	}

	url := fmt.Sprintf("%s/subscriptions?organizationId=%d&status=%s",
		c.baseURL, tenant.OrganizationID, domain.StatusActive)
	resp, err := c.get(ctx, url, tenant)
	if err != nil {
		log.L(ctx).Warn("list active subscriptions failed", zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.L(ctx).Warn("list active subscriptions degraded",
			zap.Int("status", resp.StatusCode))
		return nil
	}

	var subs []domain.Subscription
	if err := json.NewDecoder(io.LimitReader(resp.Body, c.maxBytes)).Decode(&subs); err != nil {
		log.L(ctx).Warn("malformed subscription list response", zap.Error(err))
		return nil
	}
	return subs
}

func (c *Client) get(ctx context.Context, url string, tenant tenantctx.Tenant) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Organization-Id", strconv.FormatInt(tenant.OrganizationID, 10))
	if tenant.Credential != "" {
		req.Header.Set("Authorization", "Bearer "+tenant.Credential)
	}
	req.Header.Set("Accept", "application/json")
	return c.http.Do(req)
}
