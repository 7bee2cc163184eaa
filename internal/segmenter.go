package internal

import (
	"sort"
	"strconv"
)

// Category is the display category of a renderable item
type Category string

const (
	CategoryText     Category = "text"
	CategoryThinking Category = "thinking"
	CategoryTool     Category = "tool"
	CategoryData     Category = "data"
	CategoryStatus   Category = "status"
)

// Item is one renderable group of same-category events
type Item struct {
	Key      string   `json:"key"`
	Category Category `json:"category"`
	Events   []Event  `json:"events"`

	// position of the first event in arrival order
	first int
}

// DataKind returns "table" or "chart" for data items, "" otherwise
func (it Item) DataKind() string {
	if it.Category != CategoryData || len(it.Events) == 0 {
		return ""
	}
	switch it.Events[0].Kind {
	case KindTable:
		return "table"
	case KindChart:
		return "chart"
	}
	return ""
}

// IsError reports whether the item is the indicator for an error event
func (it Item) IsError() bool {
	return it.Category == CategoryStatus && len(it.Events) == 1 && it.Events[0].Kind == KindError
}

// run is an open buffer of events waiting for its boundary
type run struct {
	events []Event
	first  int
}

func (r *run) add(ev Event, pos int) {
	if len(r.events) == 0 {
		r.first = pos
	}
	r.events = append(r.events, ev)
}

// Segmenter groups an ordered event sequence into items in a single
// left-to-right pass. Closed items are kept between pushes, so feeding it
// one event at a time costs the same as a batch pass over the whole turn.
//
// Tool events without an invocation id join whatever tool run is open. A run
// opened by such an event is keyed on the empty id and adopts the first real
// id that follows instead of being flushed by it.
type Segmenter struct {
	closed []Item

	text     run
	thinking run
	tool     run
	toolID   string

	pos int
}

// NewSegmenter creates a new Segmenter
func NewSegmenter() *Segmenter {
	return &Segmenter{}
}

// Push feeds the next event in arrival order
func (s *Segmenter) Push(ev Event) {
	pos := s.pos
	s.pos++

	switch {
	case ev.IsText():
		s.text.add(ev, pos)

	case ev.IsThinking():
		s.flush(CategoryText, &s.text)
		s.thinking.add(ev, pos)
		if ev.Kind == KindThinking {
			s.flush(CategoryThinking, &s.thinking)
		}

	case ev.IsTool():
		s.flush(CategoryText, &s.text)
		id := ev.ToolUseID()
		if len(s.tool.events) > 0 && id != "" && s.toolID != "" && id != s.toolID {
			s.flushTool()
		}
		if s.toolID == "" {
			s.toolID = id
		}
		s.tool.add(ev, pos)
		if ev.Kind == KindToolResult {
			s.flushTool()
		}

	case ev.Kind == KindTable || ev.Kind == KindChart:
		s.flushAll()
		s.closed = append(s.closed, single(CategoryData, ev, pos))

	case ev.Kind == KindStatus:
		// Thinking and tool runs stay open: status updates are interstitial
		s.flush(CategoryText, &s.text)
		s.closed = append(s.closed, single(CategoryStatus, ev, pos))

	case ev.Kind == KindError:
		s.flushAll()
		s.closed = append(s.closed, single(CategoryStatus, ev, pos))

	case ev.IsStructural():
		s.flushAll()

	default:
		// Unknown kinds stay in the raw event log only
	}
}

// Items returns the items for everything pushed so far, as if the input
// ended here. Open runs are included but not closed.
func (s *Segmenter) Items() []Item {
	items, _ := s.Snapshot()
	return items
}

// Snapshot returns the current items plus the number of leading items that
// can no longer change. New events only ever extend an open run or create
// an item after every existing one.
func (s *Segmenter) Snapshot() ([]Item, int) {
	items := make([]Item, 0, len(s.closed)+3)
	items = append(items, s.closed...)

	openFirst := -1
	for _, open := range []struct {
		category Category
		r        *run
	}{
		{CategoryText, &s.text},
		{CategoryThinking, &s.thinking},
		{CategoryTool, &s.tool},
	} {
		if len(open.r.events) == 0 {
			continue
		}
		items = append(items, newItem(open.category, open.r.events, open.r.first))
		if openFirst < 0 || open.r.first < openFirst {
			openFirst = open.r.first
		}
	}

	sortItems(items)

	settled := len(items)
	if openFirst >= 0 {
		for i, it := range items {
			if it.first == openFirst {
				settled = i
				break
			}
		}
	}
	return items, settled
}

// Finish flushes the open runs in the order text, thinking, tool and
// returns the final items
func (s *Segmenter) Finish() []Item {
	s.flushAll()
	items := append([]Item(nil), s.closed...)
	sortItems(items)
	return items
}

// Segment partitions a complete event sequence into items
func Segment(events []Event) []Item {
	s := NewSegmenter()
	for _, ev := range events {
		s.Push(ev)
	}
	return s.Finish()
}

func (s *Segmenter) flushAll() {
	s.flush(CategoryText, &s.text)
	s.flush(CategoryThinking, &s.thinking)
	s.flushTool()
}

func (s *Segmenter) flushTool() {
	s.flush(CategoryTool, &s.tool)
	s.toolID = ""
}

func (s *Segmenter) flush(category Category, r *run) {
	if len(r.events) == 0 {
		return
	}
	s.closed = append(s.closed, newItem(category, r.events, r.first))
	*r = run{}
}

func single(category Category, ev Event, pos int) Item {
	return newItem(category, []Event{ev}, pos)
}

func newItem(category Category, events []Event, first int) Item {
	return Item{
		Key:      string(category) + "-" + strconv.Itoa(first),
		Category: category,
		Events:   append([]Event(nil), events...),
		first:    first,
	}
}

// sortItems orders items by the arrival of their first event
func sortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].first < items[j].first
	})
}
