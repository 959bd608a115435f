// Package cost turns token usage into billable micro-currency units and
// records one usage entry per successful generation.
package cost

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/scribemark/feedback/llm"
)

// MicroUnitsPerUnit is the number of micro-units in one base currency unit.
const MicroUnitsPerUnit = 1_000_000

// ErrInvalidArgument is returned when RecordUsage is called without a required argument.
var ErrInvalidArgument = errors.New("invalid argument")

// Trackable identifies the entity a usage record is attributed to,
// e.g. an assignment or a piece of student work.
type Trackable struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// IsZero reports whether the trackable is missing either part.
func (t Trackable) IsZero() bool {
	return strings.TrimSpace(t.Type) == "" || strings.TrimSpace(t.ID) == ""
}

// UsageRecord is one billed generation.
type UsageRecord struct {
	ID             string    `json:"id"`
	Trackable      Trackable `json:"trackable"`
	UserID         string    `json:"user_id"`
	Provider       string    `json:"provider"`
	Model          string    `json:"model"`
	RequestType    string    `json:"request_type"`
	InputTokens    int64     `json:"input_tokens"`
	OutputTokens   int64     `json:"output_tokens"`
	TotalTokens    int64     `json:"total_tokens"`
	CostMicroUnits int64     `json:"cost_micro_units"`
	CreatedAt      time.Time `json:"created_at"`
}

// Ledger persists usage records.
type Ledger interface {
	InsertUsage(ctx context.Context, rec *UsageRecord) error
}

// Accountant computes costs from the model catalog and writes them to a Ledger.
type Accountant struct {
	catalog *llm.Catalog
	ledger  Ledger
	logger  zerolog.Logger
	now     func() time.Time
}

// NewAccountant creates an Accountant.
func NewAccountant(catalog *llm.Catalog, ledger Ledger, logger zerolog.Logger) *Accountant {
	return &Accountant{
		catalog: catalog,
		ledger:  ledger,
		logger:  logger.With().Str("component", "costAccountant").Logger(),
		now:     time.Now,
	}
}

// ComputeCost returns the cost of resp in micro-units:
// round(in*inRate + out*outRate) * 1e6 with rate = cost_per_million / 1e6,
// which is computed as round(in*inPerMillion + out*outPerMillion).
func (a *Accountant) ComputeCost(resp *llm.Response) (int64, error) {
	if resp == nil {
		return 0, fmt.Errorf("%w: response is required", ErrInvalidArgument)
	}
	m, ok := a.catalog.Lookup(resp.Model)
	if !ok {
		return 0, llm.NewUnknownModelError(resp.Model, "no pricing in catalog")
	}
	return computeMicroUnits(resp.InputTokens, resp.OutputTokens, m), nil
}

func computeMicroUnits(inputTokens, outputTokens int64, m llm.ModelConfig) int64 {
	return int64(math.Round(float64(inputTokens)*m.InputCostPerMillion + float64(outputTokens)*m.OutputCostPerMillion))
}

// RecordUsage prices resp and persists one UsageRecord for it.
func (a *Accountant) RecordUsage(ctx context.Context, resp *llm.Response, trackable Trackable, userID, requestType string) (*UsageRecord, error) {
	switch {
	case resp == nil:
		return nil, fmt.Errorf("%w: response is required", ErrInvalidArgument)
	case trackable.IsZero():
		return nil, fmt.Errorf("%w: trackable type and id are required", ErrInvalidArgument)
	case strings.TrimSpace(userID) == "":
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidArgument)
	case strings.TrimSpace(requestType) == "":
		return nil, fmt.Errorf("%w: request type is required", ErrInvalidArgument)
	}
	if a.ledger == nil {
		return nil, fmt.Errorf("cost: no ledger configured")
	}

	m, ok := a.catalog.Lookup(resp.Model)
	if !ok {
		return nil, llm.NewUnknownModelError(resp.Model, "no pricing in catalog")
	}

	rec := &UsageRecord{
		ID:             uuid.NewString(),
		Trackable:      trackable,
		UserID:         userID,
		Provider:       m.Provider,
		Model:          resp.Model,
		RequestType:    requestType,
		InputTokens:    resp.InputTokens,
		OutputTokens:   resp.OutputTokens,
		TotalTokens:    resp.TotalTokens(),
		CostMicroUnits: computeMicroUnits(resp.InputTokens, resp.OutputTokens, m),
		CreatedAt:      a.now().UTC(),
	}
	if err := a.ledger.InsertUsage(ctx, rec); err != nil {
		a.logger.Error().Err(err).Str("trackable_type", trackable.Type).Str("trackable_id", trackable.ID).Msg("Failed to record usage")
		return nil, fmt.Errorf("record usage: %w", err)
	}

	a.logger.Debug().
		Str("provider", rec.Provider).
		Str("model", rec.Model).
		Str("request_type", requestType).
		Int64("total_tokens", rec.TotalTokens).
		Int64("cost_micro_units", rec.CostMicroUnits).
		Msg("Usage recorded")
	return rec, nil
}

// FormatMicroUnits renders micro-units as a decimal amount with six places.
func FormatMicroUnits(micro int64) string {
	sign := ""
	if micro < 0 {
		sign = "-"
		micro = -micro
	}
	return fmt.Sprintf("%s%d.%06d", sign, micro/MicroUnitsPerUnit, micro%MicroUnitsPerUnit)
}
