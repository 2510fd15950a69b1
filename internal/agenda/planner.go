package agenda

import (
	"sync"
	"time"

	"github.com/vnthuan01/law-stand-sub001/internal/models"
)

type plannerKey struct {
	version   string
	date      string
	daysCount int
}

// Planner memoizes the last derived view. The caller supplies a version
// string identifying the appointment list (a fetch revision or response
// hash); any change of version, date or day-count bucket rebuilds the view.
// There is no hidden cache beyond this single explicit entry.
type Planner struct {
	loc *time.Location

	mu   sync.Mutex
	key  plannerKey
	view View
	ok   bool
}

func NewPlanner(loc *time.Location) *Planner {
	return &Planner{loc: loc}
}

func (p *Planner) View(version string, appts []models.Appointment, selected time.Time, width int) View {
	key := plannerKey{
		version:   version,
		date:      selected.Format(DateLayout),
		daysCount: DaysCountForWidth(width),
	}

	p.mu.Lock()
	if p.ok && p.key == key {
		view := p.view
		p.mu.Unlock()
		return view
	}
	p.mu.Unlock()

	view := BuildView(appts, selected, width, p.loc)

	p.mu.Lock()
	p.key = key
	p.view = view
	p.ok = true
	p.mu.Unlock()

	return view
}
