// Package memory is the in-process store used by tests and single-node
// development runs. It implements the same ResultStore/SessionStore
// contracts as the Postgres repositories.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nsmelov/exam-insights/internal/core/domain"
)

type Store struct {
	mu       sync.RWMutex
	results  map[string]domain.RecentResult
	sessions map[string]domain.AnalysisSession
}

func NewStore() *Store {
	return &Store{
		results:  make(map[string]domain.RecentResult),
		sessions: make(map[string]domain.AnalysisSession),
	}
}

func (s *Store) Create(_ context.Context, rec *domain.RecentResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.results[rec.ID]; exists {
		return fmt.Errorf("duplicate result id %s", rec.ID)
	}
	s.results[rec.ID] = *rec
	return nil
}

func (s *Store) GetByID(_ context.Context, id string) (*domain.RecentResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.results[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrResultNotFound, "load result", errors.New("id="+id))
	}
	out := rec
	return &out, nil
}

func (s *Store) FindByFingerprint(_ context.Context, fp domain.Fingerprint) (*domain.RecentResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var match *domain.RecentResult
	for _, rec := range s.results {
		if rec.Data.Fingerprint() != fp {
			continue
		}
		if match == nil || rec.CreatedAt.Before(match.CreatedAt) {
			copied := rec
			match = &copied
		}
	}
	if match == nil {
		return nil, domain.WrapError(domain.ErrResultNotFound, "load result",
			fmt.Errorf("fingerprint=(%d,%s)", fp.Count, fp.FirstID))
	}
	return match, nil
}

func (s *Store) Rename(_ context.Context, id, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.results[id]
	if !ok {
		return domain.WrapError(domain.ErrResultNotFound, "rename result", errors.New("id="+id))
	}
	rec.Filename = newName
	s.results[id] = rec
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[id]; !ok {
		return domain.WrapError(domain.ErrResultNotFound, "delete result", errors.New("id="+id))
	}
	delete(s.results, id)
	for key, sess := range s.sessions {
		if sess.ResultID == id {
			delete(s.sessions, key)
		}
	}
	return nil
}

func (s *Store) List(_ context.Context) ([]domain.RecentResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.RecentResult, 0, len(s.results))
	for _, rec := range s.results {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func linkKey(userID, resultID string) string {
	return userID + "\x00" + resultID
}

func (s *Store) FindLink(_ context.Context, userID, resultID string) (*domain.AnalysisSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[linkKey(userID, resultID)]
	if !ok {
		return nil, domain.WrapError(domain.ErrSessionNotFound, "load session",
			fmt.Errorf("user=%s result=%s", userID, resultID))
	}
	out := sess
	return &out, nil
}

func (s *Store) CreateLink(_ context.Context, sess *domain.AnalysisSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := linkKey(sess.UserID, sess.ResultID)
	if _, exists := s.sessions[key]; exists {
		return nil
	}
	s.sessions[key] = *sess
	return nil
}

func (s *Store) ListByUser(_ context.Context, userID string) ([]domain.AnalysisSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.AnalysisSession
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastAccessed.After(out[j].LastAccessed) })
	return out, nil
}

func (s *Store) Touch(_ context.Context, userID, resultID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := linkKey(userID, resultID)
	sess, ok := s.sessions[key]
	if !ok {
		return domain.WrapError(domain.ErrSessionNotFound, "touch session",
			fmt.Errorf("user=%s result=%s", userID, resultID))
	}
	sess.LastAccessed = at
	s.sessions[key] = sess
	return nil
}
