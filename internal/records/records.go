// Package records maintains monotonic best-performance records per exercise
// and derives weight suggestions for new sets.
package records

import (
	"math"
	"sort"
	"time"

	"github.com/meltforce/ironlog/internal/models"
)

// DefaultE1RMThresholdPct is the minimum estimated-1RM improvement, in
// percent, that counts as a record for notification purposes. Smaller
// improvements are usually rounding noise from plate math.
const DefaultE1RMThresholdPct = 2.0

// Epley1RM estimates a one-rep max from a weight and rep count using the
// Epley formula: weight * (1 + reps/30).
func Epley1RM(weightKg float64, reps int) float64 {
	if reps <= 0 || weightKg <= 0 {
		return 0
	}
	return weightKg * (1 + float64(reps)/30)
}

// WeightForReps inverts Epley1RM: the weight that would produce the given
// estimated 1RM at the given rep count.
func WeightForReps(e1rm float64, reps int) float64 {
	if reps <= 0 || e1rm <= 0 {
		return 0
	}
	return e1rm / (1 + float64(reps)/30)
}

// PR describes one detected record, for celebratory UI.
type PR struct {
	ExerciseID   string
	ExerciseName string
	Reps         int
	WeightKg     float64
	E1RM         float64
}

// UpdateResult summarizes one ApplyWorkout call.
type UpdateResult struct {
	PRCount      int
	PRs          []PR
	NewExercises []string
}

// Index is the in-memory PR index: exercise id to best known records.
// It is not safe for concurrent use; the session engine serializes access.
type Index struct {
	recs         map[string]*models.ExerciseRecord
	thresholdPct float64
	now          func() time.Time
}

// NewIndex creates an empty index. A non-positive thresholdPct falls back to
// DefaultE1RMThresholdPct.
func NewIndex(thresholdPct float64) *Index {
	if thresholdPct <= 0 {
		thresholdPct = DefaultE1RMThresholdPct
	}
	return &Index{
		recs:         make(map[string]*models.ExerciseRecord),
		thresholdPct: thresholdPct,
		now:          time.Now,
	}
}

// Load seeds the index from persisted records, replacing current contents.
func (ix *Index) Load(recs []models.ExerciseRecord) {
	ix.recs = make(map[string]*models.ExerciseRecord, len(recs))
	for i := range recs {
		r := recs[i]
		if r.BestWeightByReps == nil {
			r.BestWeightByReps = make(map[int]float64)
		}
		ix.recs[r.ExerciseID] = &r
	}
}

// Record returns a copy of the record for an exercise.
func (ix *Index) Record(exerciseID string) (models.ExerciseRecord, bool) {
	r, ok := ix.recs[exerciseID]
	if !ok {
		return models.ExerciseRecord{}, false
	}
	out := *r
	out.BestWeightByReps = make(map[int]float64, len(r.BestWeightByReps))
	for k, v := range r.BestWeightByReps {
		out.BestWeightByReps[k] = v
	}
	return out, true
}

// Snapshot returns all records, sorted by exercise id, for persistence.
func (ix *Index) Snapshot() []models.ExerciseRecord {
	out := make([]models.ExerciseRecord, 0, len(ix.recs))
	for _, r := range ix.recs {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExerciseID < out[j].ExerciseID })
	return out
}

// Reset drops all records. Only a full data reset may shrink the index.
func (ix *Index) Reset() {
	ix.recs = make(map[string]*models.ExerciseRecord)
}

// ApplyWorkout folds a completed workout into the index and reports detected
// records. Each eligible set contributes at most one PR. Records never
// decrease.
func (ix *Index) ApplyWorkout(w *models.CompletedWorkout) UpdateResult {
	var res UpdateResult
	for i := range w.Entries {
		entry := &w.Entries[i]
		rec, existed := ix.recs[entry.ExerciseID]
		if !existed {
			rec = &models.ExerciseRecord{
				ExerciseID:       entry.ExerciseID,
				BestWeightByReps: make(map[int]float64),
				FirstRecorded:    ix.now(),
			}
			ix.recs[entry.ExerciseID] = rec
			res.NewExercises = append(res.NewExercises, entry.ExerciseID)
		}

		for _, set := range entry.Sets {
			if !set.CountsForPR() {
				continue
			}
			if ix.applySet(rec, entry, set, &res) {
				res.PRCount++
			}
		}
	}
	return res
}

// applySet updates the record from one set and reports whether the set is a
// PR for notification purposes.
func (ix *Index) applySet(rec *models.ExerciseRecord, entry *models.WorkoutEntry, set models.SetInput, res *UpdateResult) bool {
	switch set.Mode {
	case models.ModeWeighted:
		isPR := false

		if best, ok := rec.BestWeightByReps[set.Reps]; !ok || set.WeightKg > best {
			rec.BestWeightByReps[set.Reps] = set.WeightKg
			if ok {
				isPR = true
			}
			// A first-ever entry at this rep count is a baseline,
			// not a beaten record, unless the e1rm gate fires below.
		}

		e1rm := Epley1RM(set.WeightKg, set.Reps)
		if e1rm > rec.BestE1RM {
			if rec.BestE1RM > 0 && e1rm > rec.BestE1RM*(1+ix.thresholdPct/100) {
				isPR = true
			}
			rec.BestE1RM = e1rm
		}

		if set.Tag == models.TagWorking {
			rec.LastWorkingWeightKg = set.WeightKg
			rec.LastWorkingReps = set.Reps
		}

		if isPR {
			res.PRs = append(res.PRs, PR{
				ExerciseID:   entry.ExerciseID,
				ExerciseName: entry.Name,
				Reps:         set.Reps,
				WeightKg:     set.WeightKg,
				E1RM:         e1rm,
			})
		}
		return isPR

	case models.ModeBodyweight:
		if set.Reps > rec.BestBodyweightReps {
			prior := rec.BestBodyweightReps
			rec.BestBodyweightReps = set.Reps
			if prior > 0 {
				res.PRs = append(res.PRs, PR{
					ExerciseID:   entry.ExerciseID,
					ExerciseName: entry.Name,
					Reps:         set.Reps,
				})
				return true
			}
		}
		return false

	case models.ModeTimed:
		if set.DurationSec > rec.BestTimedSec {
			prior := rec.BestTimedSec
			rec.BestTimedSec = set.DurationSec
			if prior > 0 {
				res.PRs = append(res.PRs, PR{
					ExerciseID:   entry.ExerciseID,
					ExerciseName: entry.Name,
				})
				return true
			}
		}
		return false
	}
	return false
}

// Suggest proposes a weight for the given exercise at the target rep count.
// Preference order: an exact historical match, a nearby rep count back-solved
// through the e1rm formula, the last working set, and finally the best known
// e1rm. Returns false when nothing is known about the exercise.
func (ix *Index) Suggest(exerciseID string, targetReps int) (float64, bool) {
	rec, ok := ix.recs[exerciseID]
	if !ok || targetReps <= 0 {
		return 0, false
	}

	// Exact match always wins.
	if w, ok := rec.BestWeightByReps[targetReps]; ok && w > 0 {
		return w, true
	}

	// Nearby match within ±2 reps: closest rep count, ties broken by the
	// higher weight, then back-solve a weight at the target rep count.
	bestDist := math.MaxInt
	bestReps, bestWeight := 0, 0.0
	for reps, weight := range rec.BestWeightByReps {
		if weight <= 0 {
			continue
		}
		dist := reps - targetReps
		if dist < 0 {
			dist = -dist
		}
		if dist == 0 || dist > 2 {
			continue
		}
		if dist < bestDist || (dist == bestDist && weight > bestWeight) {
			bestDist, bestReps, bestWeight = dist, reps, weight
		}
	}
	if bestReps > 0 {
		return WeightForReps(Epley1RM(bestWeight, bestReps), targetReps), true
	}

	if rec.LastWorkingWeightKg > 0 {
		return rec.LastWorkingWeightKg, true
	}
	if rec.BestE1RM > 0 {
		return WeightForReps(rec.BestE1RM, targetReps), true
	}
	return 0, false
}
