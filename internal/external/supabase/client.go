package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/contracts"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/pkg/config"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/pkg/httputil"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/pkg/logger"
)

// PageSize is the number of rows requested per PostgREST page
const PageSize = 500

// Client reads journal rows from a Supabase PostgREST endpoint
// ⭐ SSOT: Supabase calls are made only from this client
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	table      string
	limiter    *rate.Limiter
}

// NewClient creates a new Supabase client; the API key is sent on every request
func NewClient(cfg config.SupabaseConfig, httpClient *httputil.Client, log *logger.Logger) *Client {
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 5
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}

	table := cfg.Table
	if table == "" {
		table = "operaciones"
	}

	httpClient.
		WithHeader("apikey", cfg.APIKey).
		WithHeader("Authorization", "Bearer "+cfg.APIKey).
		WithHeader("Accept", "application/json")

	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		table:      table,
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// FetchRows returns every row of the table belonging to cuentaID, oldest first
func (c *Client) FetchRows(ctx context.Context, cuentaID string) ([]Row, error) {
	var all []Row

	for offset := 0; ; offset += PageSize {
		page, err := c.fetchPage(ctx, cuentaID, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < PageSize {
			break
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"cuenta_id": cuentaID,
		"count":     len(all),
	}).Debug("Fetched supabase rows")
	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, cuentaID string, offset int) ([]Row, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	params := url.Values{}
	params.Set("select", "*")
	params.Set("cuenta_id", "eq."+cuentaID)
	params.Set("order", "fecha.asc,id.asc")
	params.Set("limit", fmt.Sprintf("%d", PageSize))
	params.Set("offset", fmt.Sprintf("%d", offset))

	fullURL := fmt.Sprintf("%s/rest/v1/%s?%s", c.baseURL, url.PathEscape(c.table), params.Encode())

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status code: %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()

	var rows []Row
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode rows: %w", err)
	}
	return rows, nil
}

// FetchOperations returns the rows of cuentaID as operations of accountID.
// Rows that cannot be mapped are logged and skipped.
func (c *Client) FetchOperations(ctx context.Context, cuentaID, accountID string) ([]*contracts.Operation, int, error) {
	rows, err := c.FetchRows(ctx, cuentaID)
	if err != nil {
		return nil, 0, err
	}

	ops := make([]*contracts.Operation, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		op, err := row.ToOperation(accountID)
		if err != nil {
			skipped++
			c.logger.WithError(err).WithFields(map[string]interface{}{
				"cuenta_id": cuentaID,
				"row_id":    row.ID.String(),
			}).Warn("Skipping supabase row")
			continue
		}
		ops = append(ops, op)
	}
	return ops, skipped, nil
}
