package ticket

import (
	"sync"
	"time"

	"economy-server/internal/domain/ticket"
)

type sessionEntry struct {
	session    *ticket.Session
	committing bool
}

// SessionStore プロセス内のロール交換セッション
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

// NewSessionStore 新しいSessionStoreを作成
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*sessionEntry)}
}

// put セッションを登録
func (s *SessionStore) put(session *ticket.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID()] = &sessionEntry{session: session}
}

// update ロックを保持したままセッションを操作する
func (s *SessionStore) update(id, userID string, fn func(e *sessionEntry) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok || e.session.UserID() != userID {
		return ticket.ErrSessionNotFound
	}
	return fn(e)
}

// Sweep 終了したセッションと期限切れのセッションを削除し、削除数を返す
func (s *SessionStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, e := range s.sessions {
		if e.committing {
			continue
		}
		e.session.Expire(now)
		if e.session.State().Terminal() {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len 保持しているセッション数
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// peek セッションの複製を返す
func (s *SessionStore) peek(id, userID string) (ticket.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok || e.session.UserID() != userID {
		return ticket.Session{}, ticket.ErrSessionNotFound
	}
	return *e.session, nil
}
