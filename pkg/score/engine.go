package score

import (
	"fmt"
	"math"

	"github.com/ewanmck/rentscout/pkg/logging"
	"github.com/ewanmck/rentscout/pkg/property"
)

// Engine computes composite desirability scores for a record set against
// two reference points. Weights and penalty constants are passed in per
// run; the engine holds no process-wide mutable state.
type Engine struct {
	mode      Mode
	weights   Weights
	penalties Penalties
	refA      string
	refB      string
	log       *logging.Logger
}

// Result is one record's scores for a run. Factors maps score column
// name (e.g. "edinburgh_distance_score") to the normalized value. A nil
// Combined means the record was ineligible and stays unscored; it is
// never reported as zero.
type Result struct {
	ID       string
	Factors  map[string]float64
	Penalty  float64
	Combined *float64
}

// NewEngine validates the weight set and returns an engine for one run.
// A weight sum outside 1.0 ± 0.001 fails here, before any record is seen.
func NewEngine(mode Mode, weights Weights, penalties Penalties, refA, refB string, log *logging.Logger) (*Engine, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	if err := weights.Validate(); err != nil {
		return nil, fmt.Errorf("mode %s: %w", mode, err)
	}
	if refA == "" || refB == "" || refA == refB {
		return nil, fmt.Errorf("need two distinct reference points, got %q and %q", refA, refB)
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Engine{
		mode:      mode,
		weights:   weights,
		penalties: penalties,
		refA:      refA,
		refB:      refB,
		log:       log,
	}, nil
}

// RequiredColumns lists the input columns the active mode needs. The run
// aborts before scoring when any are absent from the input table.
func (e *Engine) RequiredColumns() []string {
	cols := []string{property.ColPrice, property.ColBedrooms, property.ColBathrooms}
	for _, ref := range []string{e.refA, e.refB} {
		cols = append(cols, property.DistanceColumn(ref), property.DriveTimeColumn(ref))
		if e.mode.IncludesTransit() {
			cols = append(cols, property.TransitTimeColumn(ref))
		}
	}
	if e.mode.IncludesSize() {
		cols = append(cols, property.ColSizeSqm)
	}
	return cols
}

// ScoreColumns lists the per-factor output columns for the active mode,
// in the order they appear in the output file.
func (e *Engine) ScoreColumns() []string {
	var cols []string
	if e.weights.Price > 0 {
		cols = append(cols, "price_score")
	}
	for _, ref := range []string{e.refA, e.refB} {
		cols = append(cols, ref+"_distance_score", ref+"_drive_score")
		if e.mode.IncludesTransit() {
			cols = append(cols, ref+"_transit_score")
		}
	}
	if e.mode.IncludesSize() {
		cols = append(cols, "size_score")
	}
	cols = append(cols, "bedroom_score", "bathroom_score", "balance_score")
	return cols
}

// Score runs the full pipeline: eligibility filter, per-factor min-max
// normalization over the eligible subset, lookup and balance scoring,
// weighted combination, penalty subtraction, clamp and round. Every input
// record gets a Result keyed by its ID; ineligible ones stay unscored.
func (e *Engine) Score(records []property.Record) map[string]Result {
	results := make(map[string]Result, len(records))
	for _, rec := range records {
		results[rec.ID] = Result{ID: rec.ID}
	}

	eligible := e.eligible(records)
	e.log.Info("eligibility filter applied",
		"mode", string(e.mode), "total", len(records), "eligible", len(eligible))
	if len(eligible) == 0 {
		return results
	}

	factors := e.normalizeFactors(eligible)

	for _, rec := range eligible {
		recFactors := make(map[string]float64, len(factors)+3)
		base := 0.0
		for col, series := range factors {
			v := series.scores[rec.ID]
			recFactors[col] = round2(v)
			base += v * series.weight
		}

		bed := BedroomScore(*rec.Bedrooms)
		bath := BathroomScore(*rec.Bathrooms)
		balance := e.balance(rec)
		recFactors["bedroom_score"] = bed
		recFactors["bathroom_score"] = bath
		recFactors["balance_score"] = balance
		base += bed*e.weights.Bedrooms + bath*e.weights.Bathrooms + balance*e.weights.Balance

		tA, tB := rec.TravelTo(e.refA), rec.TravelTo(e.refB)
		penalty := e.penalties.Total(*tA.DriveMinutes, *tB.DriveMinutes, *tA.DistanceKm, *tB.DistanceKm)

		combined := round2(clamp(base-penalty, 0, 100))
		results[rec.ID] = Result{
			ID:       rec.ID,
			Factors:  recFactors,
			Penalty:  round2(penalty),
			Combined: &combined,
		}
	}
	return results
}

// eligible returns the records carrying every field the mode requires.
// The check happens here, up front, so a missing field can never surface
// later as a NaN propagating through the weighted sum.
func (e *Engine) eligible(records []property.Record) []property.Record {
	var out []property.Record
	for _, rec := range records {
		if e.isEligible(rec) {
			out = append(out, rec)
		}
	}
	return out
}

func (e *Engine) isEligible(rec property.Record) bool {
	if rec.PricePCM == nil || rec.Bedrooms == nil || rec.Bathrooms == nil {
		return false
	}
	if e.mode.IncludesSize() && rec.SizeSqm == nil {
		return false
	}
	for _, ref := range []string{e.refA, e.refB} {
		t := rec.TravelTo(ref)
		if t.DistanceKm == nil || t.DriveMinutes == nil {
			return false
		}
		if e.mode.IncludesTransit() && t.TransitMinutes == nil {
			return false
		}
	}
	return true
}

type factorSeries struct {
	scores map[string]float64
	weight float64
}

// normalizeFactors builds the min-max normalized series for every factor
// with a non-zero weight, using only the eligible subset's statistics.
func (e *Engine) normalizeFactors(eligible []property.Record) map[string]factorSeries {
	out := map[string]factorSeries{}

	add := func(col string, weight float64, dir Direction, value func(property.Record) *float64) {
		if weight <= 0 {
			return
		}
		raw := make(map[string]float64, len(eligible))
		for _, rec := range eligible {
			if v := value(rec); v != nil {
				raw[rec.ID] = *v
			}
		}
		out[col] = factorSeries{scores: Normalize(raw, dir), weight: weight}
	}

	add("price_score", e.weights.Price, LowerIsBetter,
		func(r property.Record) *float64 { return r.PricePCM })
	add("size_score", e.weights.Size, HigherIsBetter,
		func(r property.Record) *float64 { return r.SizeSqm })

	for _, ref := range []string{e.refA, e.refB} {
		ref := ref
		add(ref+"_distance_score", e.weights.Distance, LowerIsBetter,
			func(r property.Record) *float64 { return r.TravelTo(ref).DistanceKm })
		add(ref+"_drive_score", e.weights.DriveTime, LowerIsBetter,
			func(r property.Record) *float64 { return r.TravelTo(ref).DriveMinutes })
		if e.mode.IncludesTransit() {
			add(ref+"_transit_score", e.weights.TransitTime, LowerIsBetter,
				func(r property.Record) *float64 { return r.TravelTo(ref).TransitMinutes })
		}
	}
	return out
}

// balance uses transit times when the mode carries them and falls back to
// drive times otherwise, with the same formula.
func (e *Engine) balance(rec property.Record) float64 {
	tA, tB := rec.TravelTo(e.refA), rec.TravelTo(e.refB)
	if e.mode.IncludesTransit() {
		return BalanceScore(*tA.TransitMinutes, *tB.TransitMinutes)
	}
	return BalanceScore(*tA.DriveMinutes, *tB.DriveMinutes)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
