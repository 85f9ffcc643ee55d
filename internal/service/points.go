package service

import (
	"sync"

	"github.com/sitekit/nudge/internal/domain"
)

// PointsLedger is an in-memory completion sink that accumulates awarded
// points, standing in for the gamification side of the application.
type PointsLedger struct {
	mu     sync.RWMutex
	events []domain.CompletionEvent
}

func NewPointsLedger() *PointsLedger {
	return &PointsLedger{}
}

func (l *PointsLedger) OnTaskCompleted(ev domain.CompletionEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *PointsLedger) Total() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	total := 0
	for _, ev := range l.events {
		total += ev.Points
	}
	return total
}

func (l *PointsLedger) Events() []domain.CompletionEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]domain.CompletionEvent, len(l.events))
	copy(result, l.events)
	return result
}

// CompletionsFor counts events recorded for one task identity; a correctly
// behaving engine never produces more than one.
func (l *PointsLedger) CompletionsFor(id domain.Identity) int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	count := 0
	for _, ev := range l.events {
		if ev.TaskID == id {
			count++
		}
	}
	return count
}
