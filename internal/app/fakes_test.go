package app

import (
	"context"
	"errors"
	"io"
	"sync"

	"class_monitor/internal/domain/notification"
	"class_monitor/internal/domain/section"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type sentMail struct {
	From, To, Body string
}

type fakeMailer struct {
	mu     sync.Mutex
	sent   []sentMail
	failTo map[string]error
}

func (m *fakeMailer) Send(_ context.Context, from, to, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failTo[to]; ok {
		return err
	}
	m.sent = append(m.sent, sentMail{From: from, To: to, Body: body})
	return nil
}

func (m *fakeMailer) to(recipient string) []sentMail {
	var out []sentMail
	for _, s := range m.sent {
		if s.To == recipient {
			out = append(out, s)
		}
	}
	return out
}

// fakeSession serves canned rows per course number.
type fakeSession struct {
	rows     map[string][]string
	missing  map[string]bool
	failStep string
	current  string
	calls    []string
	closed   bool
}

func (f *fakeSession) step(name string) error {
	f.calls = append(f.calls, name)
	if f.failStep == name {
		return errors.New("page did not load")
	}
	return nil
}

func (f *fakeSession) Login(context.Context, string, string) error { return f.step("login") }
func (f *fakeSession) OpenCourseSearch(context.Context) error      { return f.step("search") }
func (f *fakeSession) SelectTerm(context.Context, string) error    { return f.step("term") }
func (f *fakeSession) SelectSubject(context.Context, string) error { return f.step("subject") }

func (f *fakeSession) SelectCourse(_ context.Context, _, number string) error {
	if err := f.step("course"); err != nil {
		return err
	}
	if f.missing[number] {
		return ErrCourseNotFound
	}
	f.current = number
	return nil
}

func (f *fakeSession) Rows(context.Context) ([]string, error) {
	if err := f.step("rows"); err != nil {
		return nil, err
	}
	return f.rows[f.current], nil
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

func (f *fakeSession) factory() SessionFactory {
	return func(context.Context) (Session, error) { return f, nil }
}

type fakeTelegram struct {
	sent []string
}

func (f *fakeTelegram) SendMessage(_ int64, text string) error {
	f.sent = append(f.sent, text)
	return nil
}

// memoryHistory is an in-memory notification.Repository.
type memoryHistory struct {
	cycles     []*notification.Cycle
	snapshots  []notification.Snapshot
	deliveries []notification.Delivery
}

func (h *memoryHistory) CreateCycle(_ context.Context, c *notification.Cycle) error {
	cp := *c
	h.cycles = append(h.cycles, &cp)
	return nil
}

func (h *memoryHistory) FinishCycle(_ context.Context, c *notification.Cycle) error {
	for i, existing := range h.cycles {
		if existing.ID == c.ID {
			cp := *c
			h.cycles[i] = &cp
			return nil
		}
	}
	return errors.New("cycle not found")
}

func (h *memoryHistory) GetLastCycle(context.Context) (*notification.Cycle, error) {
	if len(h.cycles) == 0 {
		return nil, errors.New("cycle not found")
	}
	return h.cycles[len(h.cycles)-1], nil
}

func (h *memoryHistory) SaveSnapshots(_ context.Context, s []notification.Snapshot) error {
	h.snapshots = append(h.snapshots, s...)
	return nil
}

func (h *memoryHistory) ListSnapshotsByCycle(_ context.Context, cycleID string) ([]notification.Snapshot, error) {
	var out []notification.Snapshot
	for _, s := range h.snapshots {
		if s.CycleID == cycleID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (h *memoryHistory) GetLastSectionStatus(_ context.Context, number, term, sectionID, exclude string) (section.Status, error) {
	for i := len(h.snapshots) - 1; i >= 0; i-- {
		s := h.snapshots[i]
		if s.CycleID != exclude && s.CourseNumber == number && s.Term == term && s.SectionID == sectionID {
			return s.Status, nil
		}
	}
	return "", errors.New("section status not found")
}

func (h *memoryHistory) SaveDelivery(_ context.Context, d *notification.Delivery) error {
	h.deliveries = append(h.deliveries, *d)
	return nil
}

func (h *memoryHistory) ListDeliveriesByCycle(_ context.Context, cycleID string) ([]notification.Delivery, error) {
	var out []notification.Delivery
	for _, d := range h.deliveries {
		if d.CycleID == cycleID {
			out = append(out, d)
		}
	}
	return out, nil
}
