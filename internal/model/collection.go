package model

// Entry is implemented by *Event and *Task through the embedded Item.
type Entry interface {
	Base() *Item
}

// Collection is an ordered list of items with a dirty flag. Order is
// display order. Lookups by id skip header rows, which all carry HeaderID.
type Collection[T Entry] struct {
	items   []T
	changed bool
}

// Items returns a copy of the backing slice.
func (c *Collection[T]) Items() []T {
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Collection[T]) Len() int { return len(c.items) }

// Changed reports whether a mutation happened since the last MarkSaved.
func (c *Collection[T]) Changed() bool { return c.changed }

func (c *Collection[T]) MarkSaved()   { c.changed = false }
func (c *Collection[T]) MarkChanged() { c.changed = true }

func (c *Collection[T]) Add(item T) {
	c.items = append(c.items, item)
	c.changed = true
}

// Insert places item at raw position pos, clamped to the list bounds.
func (c *Collection[T]) Insert(pos int, item T) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(c.items) {
		pos = len(c.items)
	}
	c.items = append(c.items, item)
	copy(c.items[pos+1:], c.items[pos:])
	c.items[pos] = item
	c.changed = true
}

// Get returns the first non-header item with id.
func (c *Collection[T]) Get(id int) (T, bool) {
	if i := c.index(id); i >= 0 {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

// Position returns the raw position of id, or -1.
func (c *Collection[T]) Position(id int) int { return c.index(id) }

func (c *Collection[T]) index(id int) int {
	for i, it := range c.items {
		b := it.Base()
		if !b.Header && b.ID == id {
			return i
		}
	}
	return -1
}

// Delete removes the first item with id. Unknown ids are ignored.
func (c *Collection[T]) Delete(id int) {
	i := c.index(id)
	if i < 0 {
		return
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	c.changed = true
}

// DeleteAll empties the collection.
func (c *Collection[T]) DeleteAll() {
	c.items = nil
	c.changed = true
}

func (c *Collection[T]) update(id int, fn func(*Item)) {
	i := c.index(id)
	if i < 0 {
		return
	}
	fn(c.items[i].Base())
	c.changed = true
}

func (c *Collection[T]) Rename(id int, name string) {
	c.update(id, func(it *Item) { it.Name = name })
}

func (c *Collection[T]) ToggleStatus(id int, target Status) {
	c.update(id, func(it *Item) { it.Status = it.Status.Toggle(target) })
}

// SetStatus assigns s without toggling.
func (c *Collection[T]) SetStatus(id int, s Status) {
	c.update(id, func(it *Item) { it.Status = s })
}

func (c *Collection[T]) TogglePrivacy(id int) {
	c.update(id, func(it *Item) { it.Private = !it.Private })
}

func (c *Collection[T]) ChangeDate(id int, d Date) {
	c.update(id, func(it *Item) { it.Date = d })
}

func (c *Collection[T]) ChangeDay(id int, day int) {
	c.update(id, func(it *Item) { it.Date.Day = day })
}

// ChangeAllStatuses sets status on every non-header item.
func (c *Collection[T]) ChangeAllStatuses(s Status) {
	for _, it := range c.items {
		if b := it.Base(); !b.Header {
			b.Status = s
		}
	}
	c.changed = true
}

// GenerateID returns one more than the largest id, or 1 when empty.
func (c *Collection[T]) GenerateID() int {
	max := 0
	for _, it := range c.items {
		if id := it.Base().ID; id > max {
			max = id
		}
	}
	return max + 1
}

// selectable returns the raw positions of non-header items.
func (c *Collection[T]) selectable() []int {
	pos := make([]int, 0, len(c.items))
	for i, it := range c.items {
		if !it.Base().Header {
			pos = append(pos, i)
		}
	}
	return pos
}

// Move reorders the item at selectable index from so that it ends up at
// selectable index to. Out-of-range indices are ignored.
func (c *Collection[T]) Move(from, to int) {
	sel := c.selectable()
	if from < 0 || from >= len(sel) || to < 0 || to >= len(sel) || from == to {
		return
	}
	item := c.items[sel[from]]
	c.items = append(c.items[:sel[from]], c.items[sel[from]+1:]...)

	sel = c.selectable()
	pos := len(c.items)
	if to < len(sel) {
		pos = sel[to]
	} else if len(sel) > 0 {
		pos = sel[len(sel)-1] + 1
	}
	c.items = append(c.items, item)
	copy(c.items[pos+1:], c.items[pos:])
	c.items[pos] = item
	c.changed = true
}

// Replace drops every item matched by match and appends with. It does not
// set the dirty flag: it exists for rows that are never saved locally.
func (c *Collection[T]) Replace(match func(T) bool, with []T) {
	kept := c.items[:0]
	for _, it := range c.items {
		if !match(it) {
			kept = append(kept, it)
		}
	}
	c.items = append(kept, with...)
}

// Filter returns the items accepted by pred, in order.
func (c *Collection[T]) Filter(pred func(T) bool) View[T] {
	out := make([]T, 0)
	for _, it := range c.items {
		if pred(it) {
			out = append(out, it)
		}
	}
	return View[T]{items: out}
}

// Selectable returns every non-header item.
func (c *Collection[T]) Selectable() View[T] {
	return c.Filter(func(it T) bool { return !it.Base().Header })
}

// View is an ordered snapshot of part of a collection.
type View[T Entry] struct {
	items []T
}

// NewView wraps items in a view.
func NewView[T Entry](items []T) View[T] { return View[T]{items: items} }

func (v View[T]) Len() int { return len(v.items) }

// IsValidIndex bounds-checks a zero-based index.
func (v View[T]) IsValidIndex(n int) bool { return n >= 0 && n < len(v.items) }

func (v View[T]) At(n int) T { return v.items[n] }

func (v View[T]) Items() []T { return v.items }
