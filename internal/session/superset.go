package session

import (
	"github.com/google/uuid"
	"github.com/meltforce/ironlog/internal/models"
)

// AddToSuperset joins an entry to an existing superset group. The group must
// already have a member: a group can never exist with fewer than two entries,
// so joining an empty group id would mint a singleton.
func (e *Engine) AddToSuperset(entryID, group uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return ErrNoActiveWorkout
	}
	entry := e.current.Entry(entryID)
	if entry == nil {
		return ErrEntryNotFound
	}
	if len(e.current.GroupMembers(group)) == 0 {
		return ErrEntryNotFound
	}
	if entry.SupersetGroup != nil && *entry.SupersetGroup != group {
		old := *entry.SupersetGroup
		entry.SupersetGroup = nil
		dissolveIfSingleton(e.current, old)
	}
	g := group
	entry.SupersetGroup = &g
	entry.SupersetOrder = len(e.current.GroupMembers(group)) - 1
	e.persistLive()
	return nil
}

// RemoveFromSuperset detaches an entry from its superset group, dissolving
// the group if only one member remains.
func (e *Engine) RemoveFromSuperset(entryID uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return ErrNoActiveWorkout
	}
	entry := e.current.Entry(entryID)
	if entry == nil {
		return ErrEntryNotFound
	}
	if entry.SupersetGroup == nil {
		return nil
	}
	group := *entry.SupersetGroup
	entry.SupersetGroup = nil
	entry.SupersetOrder = 0
	dissolveIfSingleton(e.current, group)
	e.persistLive()
	return nil
}

// ToggleSuperset joins the entry to the previous entry's group, creating a
// group with that neighbor when it isn't grouped yet, or detaches the entry
// when it already belongs to a group.
func (e *Engine) ToggleSuperset(entryID uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return ErrNoActiveWorkout
	}
	entry := e.current.Entry(entryID)
	if entry == nil {
		return ErrEntryNotFound
	}

	if entry.SupersetGroup != nil {
		group := *entry.SupersetGroup
		entry.SupersetGroup = nil
		entry.SupersetOrder = 0
		dissolveIfSingleton(e.current, group)
		e.persistLive()
		return nil
	}

	var prev *models.WorkoutEntry
	for i, en := range e.current.Entries {
		if en.ID == entryID {
			if i > 0 {
				prev = e.current.Entries[i-1]
			}
			break
		}
	}
	if prev == nil {
		return nil // first entry has no neighbor to pair with
	}

	if prev.SupersetGroup == nil {
		group := uuid.New()
		g := group
		prev.SupersetGroup = &g
		prev.SupersetOrder = 0
	}
	g := *prev.SupersetGroup
	entry.SupersetGroup = &g
	entry.SupersetOrder = len(e.current.GroupMembers(g)) - 1
	e.persistLive()
	return nil
}

// dissolveIfSingleton clears a superset group left with exactly one member.
// Must be re-checked after every removal.
func dissolveIfSingleton(w *models.CurrentWorkout, group uuid.UUID) {
	members := w.GroupMembers(group)
	if len(members) == 1 {
		members[0].SupersetGroup = nil
		members[0].SupersetOrder = 0
	}
}
