package controller

import (
	"fmt"
	"strconv"
	"strings"

	"termcal/internal/model"
	"termcal/internal/notion"
)

// JournalView returns the visible tasks: headers and the subtasks of
// collapsed parents are left out. Selection numbers index this view.
func (c *Controller) JournalView() model.View[*model.Task] {
	return c.ag.Tasks.Visible()
}

func (c *Controller) journalView() []int { return idsOf(c.JournalView()) }

func (c *Controller) journalKey(key string) {
	tasks := c.ag.Tasks
	cfg := c.ag.Config()

	taskSelection := func(prompt string, apply func(id int)) {
		c.startSelection(Selection{Key: key, Prompt: prompt, View: c.journalView, Apply: apply})
	}

	switch key {
	case "i", "h":
		taskSelection("Mark important, task number: ", c.toggleTask(model.StatusImportant))
	case "l":
		taskSelection("Mark unimportant, task number: ", c.toggleTask(model.StatusUnimportant))
	case "u":
		taskSelection("Reset status, task number: ", c.toggleTask(model.StatusNormal))
	case "d", "v":
		taskSelection("Mark done, task number: ", c.toggleTask(model.StatusDone))
	case ".":
		taskSelection("Toggle privacy, task number: ", tasks.TogglePrivacy)
	case "x":
		taskSelection("Delete task number: ", c.deleteTask)
	case "e", "r":
		taskSelection("Rename task number: ", func(id int) {
			if name := strings.TrimSpace(c.prompt.Line("New name: ")); name != "" {
				tasks.Rename(id, name)
			}
		})
	case "m":
		taskSelection("Move task number: ", c.moveTask)
	case "s":
		taskSelection("Start/stop timer, task number: ", func(id int) {
			now := c.now()
			if cfg.OneTimerAtATime {
				tasks.PauseOtherTimers(id, now)
			}
			tasks.AddTimestamp(id, now)
		})
	case "T":
		taskSelection("Reset timer, task number: ", tasks.ResetTimer)
	case "f":
		taskSelection("Deadline for task number: ", func(id int) {
			if d, ok := parseDate(c.prompt.Line("Deadline (YYYY-MM-DD): "), c.ag.System()); ok {
				tasks.ChangeDate(id, d)
			}
		})
	case "F":
		taskSelection("Remove deadline, task number: ", tasks.RemoveDeadline)
	case "S":
		taskSelection("Toggle subtask, task number: ", tasks.ToggleSubtask)
	case "o":
		taskSelection("Collapse/expand task number: ", tasks.ToggleCollapsed)
	case "A":
		taskSelection("Add subtask to task number: ", func(id int) {
			c.addTaskWizard(func(t *model.Task) { tasks.AddSubtask(id, t) })
		})
	case "c":
		taskSelection("Change remote status, task number: ", c.chooseRemoteStatus)

	case "t":
		c.addTaskWizard(tasks.InsertFront)
	case "a":
		c.addTaskWizard(tasks.Add)
	case "V", "D":
		c.bulkStatus(model.StatusDone)
	case "U":
		c.bulkStatus(model.StatusNormal)
	case "L":
		c.bulkStatus(model.StatusUnimportant)
	case "I", "H":
		c.bulkStatus(model.StatusImportant)
	case "X":
		if c.confirm("Really delete all tasks?", cfg.AskConfirmations) {
			for _, t := range tasks.Items() {
				c.tombstone(t)
			}
			tasks.DeleteAll()
		}
	case "Q":
		c.reload()
	case "*":
		c.hidePrivate = !c.hidePrivate
	case "tab", "btab", " ":
		c.screen = ScreenCalendar
	case "?":
		c.screen = ScreenHelp
	case "q":
		c.requestQuit()
	}
}

// toggleTask toggles a status and mirrors the change on remote tasks.
func (c *Controller) toggleTask(target model.Status) func(id int) {
	return func(id int) {
		task, ok := c.ag.Tasks.Get(id)
		if !ok {
			return
		}
		old := task.Status
		c.ag.Tasks.ToggleStatus(id, target)
		if _, remote := model.Remote(task.Origin); remote {
			c.ag.Remote().StatusChanged(c.ctx, task, old, task.Status)
		}
	}
}

func (c *Controller) bulkStatus(s model.Status) {
	if c.confirm("Really change the status of all tasks?", c.ag.Config().AskConfirmations) {
		c.ag.Tasks.ChangeAllStatuses(s)
	}
}

func (c *Controller) deleteTask(id int) {
	task, ok := c.ag.Tasks.Get(id)
	if !ok {
		return
	}
	if !c.confirm(fmt.Sprintf("Really delete task %q?", task.Name), c.ag.Config().AskConfirmations) {
		return
	}
	c.tombstone(task)
	c.ag.Tasks.Delete(id)
}

// tombstone keeps a deleted remote task out of the next fetch.
func (c *Controller) tombstone(task *model.Task) {
	if origin, ok := model.Remote(task.Origin); ok && origin.RemoteID != "" {
		c.ag.Tombstones().Add(origin.RemoteID)
	}
}

// moveTask asks for the target number in the visible view and moves the
// task there.
func (c *Controller) moveTask(id int) {
	n, ok := parseIndex(c.prompt.Line("Move to number: "))
	visible := c.journalView()
	if !ok || n < 0 || n >= len(visible) {
		return
	}

	selectable := idsOf(c.ag.Tasks.Selectable())
	from, to := -1, -1
	for i, sid := range selectable {
		if sid == id {
			from = i
		}
		if sid == visible[n] {
			to = i
		}
	}
	c.ag.Tasks.Move(from, to)
}

// chooseRemoteStatus lets the user pick one of a remote task's status
// options and pushes it.
func (c *Controller) chooseRemoteStatus(id int) {
	task, ok := c.ag.Tasks.Get(id)
	if !ok {
		return
	}
	origin, ok := model.Remote(task.Origin)
	if !ok || len(origin.StatusOptions) == 0 {
		return
	}

	labels := make([]string, len(origin.StatusOptions))
	for i, opt := range origin.StatusOptions {
		labels[i] = strconv.Itoa(i+1) + "." + opt.Name
	}
	n, ok := parseIndex(c.prompt.Line("Select status (" + strings.Join(labels, " | ") + "): "))
	if !ok || n < 0 || n >= len(origin.StatusOptions) {
		return
	}

	name := origin.StatusOptions[n].Name
	if err := c.ag.Remote().SetStatus(c.ctx, task, name); err != nil {
		c.logger.Warn("remote status not pushed", "task", id, "status", name, "error", err.Error())
	}
	origin.CurrentStatus = name
	c.ag.Tasks.SetStatus(id, notion.MapStatus(name))
}
