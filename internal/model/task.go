package model

import "time"

// Timer is an alternating start/stop log of unix seconds.
type Timer struct {
	Stamps []int64
}

// Running reports whether the timer has an open segment.
func (t Timer) Running() bool { return len(t.Stamps)%2 == 1 }

// Elapsed sums every closed segment and measures an open one against now.
func (t Timer) Elapsed(now time.Time) time.Duration {
	var total int64
	for i := 0; i+1 < len(t.Stamps); i += 2 {
		total += t.Stamps[i+1] - t.Stamps[i]
	}
	if t.Running() {
		total += now.Unix() - t.Stamps[len(t.Stamps)-1]
	}
	return time.Duration(total) * time.Second
}

// Stamp appends now, starting or stopping the timer.
func (t *Timer) Stamp(now time.Time) {
	t.Stamps = append(t.Stamps, now.Unix())
}

func (t *Timer) Reset() { t.Stamps = nil }

// Task is a journal entry. Its Date is the optional deadline.
type Task struct {
	Item

	Timer   Timer
	Subtask bool

	// Collapsed hides the subtasks that follow a parent task.
	Collapsed bool

	// Project groups remote tasks under a header.
	Project string
}

// NewTask returns a local, undated task.
func NewTask(id int, name string) *Task {
	return &Task{
		Item: Item{
			ID:     id,
			Name:   name,
			Origin: LocalOrigin{},
		},
	}
}

// NewHeader returns a synthetic grouping row for a remote project.
func NewHeader(project string) *Task {
	return &Task{
		Item: Item{
			ID:     HeaderID,
			Name:   project,
			Header: true,
			Origin: &RemoteOrigin{},
		},
		Project: project,
	}
}
