package session

import (
	"context"
	"fmt"
	"time"
)

// Purge deletes sessions closed longer than Retention ago and open
// sessions idle longer than IdleTTL. It returns the number removed.
func (m *Manager) Purge(ctx context.Context, now time.Time) (int, error) {
	closedBefore, idleBefore := now.Add(-m.cfg.Retention), now.Add(-m.cfg.IdleTTL)
	ids, err := m.store.Expired(ctx, closedBefore, idleBefore)
	if err != nil {
		return 0, fmt.Errorf("list expired sessions: %w", err)
	}

	removed := 0
	for _, id := range ids {
		ok, err := m.purgeOne(ctx, id, closedBefore, idleBefore)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}

	if removed > 0 {
		m.logger.Info("purged sessions", "count", removed)
	}
	return removed, nil
}

// purgeOne re-checks expiry under the state lock, so a session touched
// since the listing survives.
func (m *Manager) purgeOne(ctx context.Context, id string, closedBefore, idleBefore time.Time) (bool, error) {
	unlock := m.state.Lock(id)
	defer unlock()

	s, err := m.store.Get(ctx, id)
	if err != nil {
		return false, nil
	}
	if !isExpired(s, closedBefore, idleBefore) {
		return false, nil
	}
	if err := m.store.Delete(ctx, id); err != nil {
		return false, fmt.Errorf("delete session %s: %w", id, err)
	}
	return true, nil
}

// StartPurgeRoutine runs Purge every interval until Close is called.
func (m *Manager) StartPurgeRoutine(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := m.Purge(ctx, m.now()); err != nil {
					m.logger.Warn("session purge failed", "error", err)
				}
			}
		}
	}()
}

// Close stops the purge goroutine and waits for it to exit.
// It is safe to call Close even if StartPurgeRoutine was never called.
func (m *Manager) Close() error {
	if m.cancel != nil {
		m.cancel()
		<-m.done
	}
	return nil
}
