package services

import (
	"sync"
	"time"

	"livechat-service/internal/models"
)

type sentEvent struct {
	to      string
	payload any
}

type fakeNotifier struct {
	mu         sync.Mutex
	connected  map[string]bool
	toVisitor  []sentEvent
	toAgent    []sentEvent
	broadcasts []any
	toSession  map[int64][]any
	tracked    map[int64]models.ChatSession
}

var _ Notifier = (*fakeNotifier)(nil)

func newFakeNotifier(connected ...string) *fakeNotifier {
	n := &fakeNotifier{
		connected: map[string]bool{},
		toSession: map[int64][]any{},
		tracked:   map[int64]models.ChatSession{},
	}
	for _, id := range connected {
		n.connected[id] = true
	}
	return n
}

func (n *fakeNotifier) SendToVisitor(visitorID string, payload any) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.toVisitor = append(n.toVisitor, sentEvent{to: visitorID, payload: payload})
	return n.connected[visitorID]
}

func (n *fakeNotifier) SendToAgent(agentID string, payload any) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.toAgent = append(n.toAgent, sentEvent{to: agentID, payload: payload})
	return n.connected[agentID]
}

func (n *fakeNotifier) BroadcastToAgents(payload any) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.broadcasts = append(n.broadcasts, payload)
	return len(n.connected)
}

func (n *fakeNotifier) TrackSession(session models.ChatSession) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tracked[session.ID] = session
}

func (n *fakeNotifier) BroadcastToSession(sessionID int64, payload any) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.toSession[sessionID] = append(n.toSession[sessionID], payload)
	return 2
}

func (n *fakeNotifier) UntrackSession(sessionID int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.tracked, sessionID)
}

type fakeScheduler struct {
	mu        sync.Mutex
	scheduled map[int64]time.Time
	canceled  []int64
}

var _ Scheduler = (*fakeScheduler)(nil)

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{scheduled: map[int64]time.Time{}}
}

func (s *fakeScheduler) Schedule(requestID int64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled[requestID] = at
}

func (s *fakeScheduler) Cancel(requestID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scheduled, requestID)
	s.canceled = append(s.canceled, requestID)
}

func eventType(payload any) string {
	if ev, ok := payload.(models.Event); ok {
		return ev.Type
	}
	return ""
}
