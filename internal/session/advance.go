package session

import (
	"github.com/google/uuid"
	"github.com/meltforce/ironlog/internal/models"
)

// advanceActive applies the auto-advance policy after an entry's sets were
// replaced. prevCompleted is the entry's completed-set count before the
// update.
//
// The first completed set of an entry claims the active pointer outright,
// overriding superset routing. Within a superset, focus moves to the grouped
// entry with fewer completed sets than the just-updated one; when the whole
// group is complete, to the next incomplete entry outside the group.
// Standalone entries hand off only once all their sets are complete.
func advanceActive(w *models.CurrentWorkout, entry *models.WorkoutEntry, prevCompleted int) {
	nowCompleted := entry.CompletedSets()

	if prevCompleted == 0 && nowCompleted >= 1 {
		setActive(w, entry.ID)
		return
	}

	if entry.SupersetGroup != nil {
		group := *entry.SupersetGroup
		for _, m := range w.GroupMembers(group) {
			if m.ID == entry.ID {
				continue
			}
			if m.CompletedSets() < nowCompleted {
				setActive(w, m.ID)
				return
			}
		}
		if groupComplete(w, group) {
			if next := nextIncomplete(w, entry.ID, &group); next != nil {
				setActive(w, next.ID)
			}
		}
		return
	}

	if entry.AllSetsCompleted() {
		if next := nextIncomplete(w, entry.ID, nil); next != nil {
			setActive(w, next.ID)
		}
	}
}

func setActive(w *models.CurrentWorkout, id uuid.UUID) {
	w.ActiveEntryID = &id
}

func groupComplete(w *models.CurrentWorkout, group uuid.UUID) bool {
	for _, m := range w.GroupMembers(group) {
		if !m.AllSetsCompleted() {
			return false
		}
	}
	return true
}

// nextIncomplete finds the next entry with incomplete sets, scanning forward
// from the given entry and wrapping around. Entries in skipGroup are passed
// over.
func nextIncomplete(w *models.CurrentWorkout, after uuid.UUID, skipGroup *uuid.UUID) *models.WorkoutEntry {
	start := 0
	for i, e := range w.Entries {
		if e.ID == after {
			start = i + 1
			break
		}
	}
	n := len(w.Entries)
	for off := 0; off < n; off++ {
		e := w.Entries[(start+off)%n]
		if e.ID == after {
			continue
		}
		if skipGroup != nil && e.SupersetGroup != nil && *e.SupersetGroup == *skipGroup {
			continue
		}
		if !e.AllSetsCompleted() {
			return e
		}
	}
	return nil
}
