package service

import (
	"sync"
	"time"

	"github.com/sitekit/nudge/internal/domain"
)

// CelebrationBridge fans completion events out to subscribed sinks. Callers
// invoke Completed only at the moment a record transitions into completed,
// never for records that are already there, which gives sinks exactly-once
// delivery per identity.
type CelebrationBridge struct {
	mu    sync.RWMutex
	sinks []domain.CompletionSink
}

func NewCelebrationBridge() *CelebrationBridge {
	return &CelebrationBridge{}
}

func (b *CelebrationBridge) Subscribe(sink domain.CompletionSink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, sink)
}

func (b *CelebrationBridge) Completed(task *domain.TaskRecord, now time.Time) {
	ev := domain.NewCompletionEvent(task, now)

	b.mu.RLock()
	sinks := make([]domain.CompletionSink, len(b.sinks))
	copy(sinks, b.sinks)
	b.mu.RUnlock()

	for _, sink := range sinks {
		sink.OnTaskCompleted(ev)
	}
}
