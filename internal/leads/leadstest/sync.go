package leadstest

import (
	"context"
	"sync"

	"leadflow_backend/internal/leads/ports"
)

// SyncRecorder is a ports.SyncDispatcher that keeps every notification.
type SyncRecorder struct {
	mu            sync.Mutex
	notifications []ports.SyncNotification
}

func (r *SyncRecorder) Dispatch(_ context.Context, n ports.SyncNotification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, n)
}

// Notifications returns a copy of what was dispatched so far.
func (r *SyncRecorder) Notifications() []ports.SyncNotification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ports.SyncNotification(nil), r.notifications...)
}
