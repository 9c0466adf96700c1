// Package client is the HTTP consumer of the rate-plan service.
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
	"github.com/meterline/meterline/internal/rateplan/domain"
	"github.com/meterline/meterline/pkg/log"
	"github.com/meterline/meterline/pkg/tenantctx"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

type Client struct {
	baseURL  string
	http     *http.Client
	maxBytes int64
}

// New builds a rate-plan client from application config.
func New(cfg config.Config) *Client {
	return &Client{
		baseURL:  cfg.RatePlanBaseURL,
		http:     &http.Client{Timeout: cfg.HTTPTimeout},
		maxBytes: cfg.MaxResponseBytes,
	}
}

func (c *Client) Fetch(ctx context.Context, ratePlanID int64) (*domain.RatePlan, error) {
	tenant, err := tenantctx.Require(ctx)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/rateplans/%d", c.baseURL, ratePlanID)
	resp, err := c.get(ctx, url, tenant)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindUpstreamUnavailable, "rate plan service unreachable")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var plan domain.RatePlan
		if err := json.NewDecoder(io.LimitReader(resp.Body, c.maxBytes)).Decode(&plan); err != nil {
			return nil, apperr.Wrap(err, apperr.KindUpstreamUnavailable, "malformed rate plan response")
		}
		return &plan, nil

	case resp.StatusCode == http.StatusNotFound:
		return nil, apperr.New(apperr.KindNotFound, "rate plan %d not found", ratePlanID)

	case resp.StatusCode >= http.StatusInternalServerError:
		// Some deployments fail the by-id route while the collection route
		// still works. One list-and-filter pass before giving up; this is
		// the only retry the core ever performs.
		log.L(ctx).Warn("rate plan by-id degraded, trying list fallback",
			zap.Int64("rate_plan_id", ratePlanID),
			zap.Int("status", resp.StatusCode))
		return c.fetchViaList(ctx, ratePlanID, tenant)

	default:
		return nil, apperr.New(apperr.KindUpstreamUnavailable, "rate plan fetch returned status %d", resp.StatusCode)
	}
}

func (c *Client) fetchViaList(ctx context.Context, ratePlanID int64, tenant tenantctx.Tenant) (*domain.RatePlan, error) {
	resp, err := c.get(ctx, c.baseURL+"/rateplans", tenant)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindUpstreamUnavailable, "rate plan list fallback unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.New(apperr.KindUpstreamUnavailable, "rate plan list fallback returned status %d", resp.StatusCode)
	}

	var plans []domain.RatePlan
	if err := json.NewDecoder(io.LimitReader(resp.Body, c.maxBytes)).Decode(&plans); err != nil {
		return nil, apperr.Wrap(err, apperr.KindUpstreamUnavailable, "malformed rate plan list response")
	}
	plan, found := lo.Find(plans, func(p domain.RatePlan) bool {
		return p.RatePlanID == ratePlanID
	})
	if !found {
		return nil, apperr.New(apperr.KindNotFound, "rate plan %d not found", ratePlanID)
	}
	return &plan, nil
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
