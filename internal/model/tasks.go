package model

import "time"

// Events is the collection of calendar events.
type Events struct {
	Collection[*Event]
}

// Tasks is the journal. Besides the generic operations it knows about
// timers, subtasks and collapsed parents.
type Tasks struct {
	Collection[*Task]
}

// InsertFront places a task at the top of the journal.
func (t *Tasks) InsertFront(task *Task) { t.Insert(0, task) }

// AddSubtask inserts sub immediately after the task with parentID, or at
// the end when the parent is unknown.
func (t *Tasks) AddSubtask(parentID int, sub *Task) {
	sub.Subtask = true
	pos := t.Position(parentID)
	if pos < 0 {
		t.Add(sub)
		return
	}
	// Keep existing subtasks of the parent together.
	pos++
	for pos < len(t.items) && t.items[pos].Subtask {
		pos++
	}
	t.Insert(pos, sub)
}

func (t *Tasks) ToggleSubtask(id int) {
	if task, ok := t.Get(id); ok {
		task.Subtask = !task.Subtask
		t.changed = true
	}
}

func (t *Tasks) ToggleCollapsed(id int) {
	if task, ok := t.Get(id); ok {
		task.Collapsed = !task.Collapsed
		t.changed = true
	}
}

// AddTimestamp starts or stops the task's timer.
func (t *Tasks) AddTimestamp(id int, now time.Time) {
	if task, ok := t.Get(id); ok {
		task.Timer.Stamp(now)
		t.changed = true
	}
}

// PauseOtherTimers stops every running timer except the one on id.
func (t *Tasks) PauseOtherTimers(id int, now time.Time) {
	for _, task := range t.items {
		if task.Header || task.ID == id {
			continue
		}
		if task.Timer.Running() {
			task.Timer.Stamp(now)
			t.changed = true
		}
	}
}

func (t *Tasks) ResetTimer(id int) {
	if task, ok := t.Get(id); ok {
		task.Timer.Reset()
		t.changed = true
	}
}

// RemoveDeadline clears the task's date.
func (t *Tasks) RemoveDeadline(id int) { t.ChangeDate(id, Date{}) }

// Visible returns the selectable tasks, hiding subtasks whose parent is
// collapsed.
func (t *Tasks) Visible() View[*Task] {
	out := make([]*Task, 0, len(t.items))
	collapsed := false
	for _, task := range t.items {
		if task.Header {
			collapsed = false
			continue
		}
		if !task.Subtask {
			collapsed = task.Collapsed
			out = append(out, task)
			continue
		}
		if !collapsed {
			out = append(out, task)
		}
	}
	return View[*Task]{items: out}
}
