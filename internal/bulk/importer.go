// Package bulk imports client records through the Partner API with bounded
// concurrency and rate-limit aware pacing.
package bulk

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/OpenMoove/partnerapi"
)

// Result is the outcome of one record in an import.
type Result struct {
	Index    int
	Email    string
	ClientID int64
	Err      error
}

// Importer pushes batches of CreateClientRequest records through the API.
type Importer struct {
	client *partnerapi.Client
	logger zerolog.Logger

	// Concurrency bounds in-flight requests. Defaults to 4.
	Concurrency int
	// Pause is inserted between request starts to stay under the quota.
	Pause time.Duration
}

// New creates an importer using the given client.
func New(client *partnerapi.Client, logger zerolog.Logger) *Importer {
	return &Importer{
		client:      client,
		logger:      logger.With().Str("component", "bulk-import").Logger(),
		Concurrency: 4,
	}
}

// ImportFile reads a JSON array of client records from path and imports
// them. See Import.
func (imp *Importer) ImportFile(ctx context.Context, path string) ([]Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read import file: %w", err)
	}

	var records []partnerapi.CreateClientRequest
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse import file: %w", err)
	}

	return imp.Import(ctx, records)
}

// Import creates every record, collecting per-record outcomes. Validation
// and server rejections are recorded in the results and do not stop the
// batch; auth failures abort immediately since every remaining record would
// fail the same way.
func (imp *Importer) Import(ctx context.Context, records []partnerapi.CreateClientRequest) ([]Result, error) {
	results := make([]Result, len(records))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(imp.Concurrency)

	var mu sync.Mutex // guards pacing state
	var lastStart time.Time

	for i, rec := range records {
		g.Go(func() error {
			if err := imp.pace(ctx, &mu, &lastStart); err != nil {
				return err
			}

			created, err := imp.client.CreateClient(ctx, rec)
			result := Result{Index: i, Email: rec.Email, Err: err}
			if err == nil {
				result.ClientID = created.ID
				imp.logger.Info().Int("index", i).Str("email", rec.Email).Int64("client_id", created.ID).Msg("client imported")
			} else {
				imp.logger.Warn().Int("index", i).Str("email", rec.Email).Err(err).Msg("client import failed")
			}
			results[i] = result

			if partnerapi.IsUnauthorized(err) || partnerapi.IsForbidden(err) {
				return fmt.Errorf("aborting import: %w", err)
			}
			return nil
		})
	}

	err := g.Wait()
	return results, err
}

// pace spaces request starts by Pause and sleeps through the rate-limit
// window when the quota is exhausted.
func (imp *Importer) pace(ctx context.Context, mu *sync.Mutex, lastStart *time.Time) error {
	mu.Lock()
	var wait time.Duration
	now := time.Now()
	if imp.Pause > 0 && !lastStart.IsZero() {
		if next := lastStart.Add(imp.Pause); next.After(now) {
			wait = next.Sub(now)
		}
	}
	*lastStart = now.Add(wait)
	mu.Unlock()

	if rl := imp.client.RateLimit(); rl.Exhausted() {
		if until := time.Until(rl.Reset); until > wait {
			wait = until
			imp.logger.Debug().Dur("wait", wait).Msg("rate limit exhausted, pausing import")
		}
	}

	if wait <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}
