// Package matching ranks open ledger entries as settlement candidates for a
// bank movement. The engine is pure computation: callers load the open-entry
// snapshot and persist whatever they confirm.
package matching

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/IgnaSubirachs/ContaCat/internal/models"
)

// Score weights. Amount equality within tolerance is the entry ticket and
// contributes the base; date proximity decays linearly across the window;
// the text bonus is scaled by Config.TextSimilarityWeight.
const (
	amountBaseScore = 0.5
	dateWeight      = 0.3
)

// Config carries the matching parameters. Always passed explicitly; the
// engine keeps no ambient state.
type Config struct {
	AmountTolerance      decimal.Decimal `json:"amount_tolerance"`
	DateWindowDays       int             `json:"date_window_days"`
	TextSimilarityWeight float64         `json:"text_similarity_weight"`
}

// DefaultConfig returns the production defaults: one cent of tolerance and a
// fifteen day window.
func DefaultConfig() Config {
	return Config{
		AmountTolerance:      decimal.New(1, -2),
		DateWindowDays:       15,
		TextSimilarityWeight: 0.2,
	}
}

// ConfigurationError reports an invalid matching parameter.
type ConfigurationError struct {
	Param  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("matching: invalid %s: %s", e.Param, e.Reason)
}

func (c Config) Validate() error {
	if c.AmountTolerance.IsNegative() {
		return &ConfigurationError{Param: "amount_tolerance", Reason: "must not be negative"}
	}
	if c.DateWindowDays < 0 {
		return &ConfigurationError{Param: "date_window_days", Reason: "must not be negative"}
	}
	if c.TextSimilarityWeight < 0 || c.TextSimilarityWeight > 1 {
		return &ConfigurationError{Param: "text_similarity_weight", Reason: "must be in [0,1]"}
	}
	return nil
}

// Suggestion is a candidate pairing of one movement to one ledger entry.
// Transient: computed per request and only persisted on the reconciliation
// record for display.
type Suggestion struct {
	EntryID      string  `json:"entry_id"`
	EntryNumber  string  `json:"entry_number"`
	Score        float64 `json:"score"`
	Rule         string  `json:"rule"`
	AmountScore  float64 `json:"amount_score"`
	DateScore    float64 `json:"date_score"`
	TextScore    float64 `json:"text_score"`
	DateDiffDays int     `json:"date_diff_days"`
}

// Suggest returns candidate entries for the movement ordered by descending
// confidence, then nearest date, then entry id. Entries that are not open,
// outside the amount tolerance, or outside the date window are skipped. An
// empty result is not an error.
func Suggest(m models.BankMovement, entries []models.LedgerEntry, cfg Config) ([]Suggestion, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	suggestions := make([]Suggestion, 0, len(entries))
	for _, e := range entries {
		if e.Status != models.EntryOpen {
			continue
		}
		if e.Amount.Sub(m.Amount).Abs().GreaterThan(cfg.AmountTolerance) {
			continue
		}
		days := dateDiffDays(m.OperationDate, e.DueDate)
		if days > cfg.DateWindowDays {
			continue
		}

		dateScore := dateWeight
		if cfg.DateWindowDays > 0 {
			dateScore = dateWeight * (1 - float64(days)/float64(cfg.DateWindowDays))
		}
		textScore := cfg.TextSimilarityWeight * conceptSimilarity(m.Concept, e.PartnerName)

		rule := "amount+date"
		if textScore > 0 {
			rule = "amount+date+text"
		}

		suggestions = append(suggestions, Suggestion{
			EntryID:      e.ID.String(),
			EntryNumber:  e.EntryNumber,
			Score:        math.Min(amountBaseScore+dateScore+textScore, 1),
			Rule:         rule,
			AmountScore:  amountBaseScore,
			DateScore:    dateScore,
			TextScore:    textScore,
			DateDiffDays: days,
		})
	}

	// Explicit sort key so ordering never depends on storage engine order.
	sort.Slice(suggestions, func(i, j int) bool {
		si, sj := suggestions[i], suggestions[j]
		if si.Score != sj.Score {
			return si.Score > sj.Score
		}
		if si.DateDiffDays != sj.DateDiffDays {
			return si.DateDiffDays < sj.DateDiffDays
		}
		return si.EntryID < sj.EntryID
	})
	return suggestions, nil
}
