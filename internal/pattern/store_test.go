package pattern

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/Veraticus/spice-budget/internal/model"
)

var errRuleNotFound = errors.New("rule not found")

// memoryStore is an in-memory RuleStore for tests.
type memoryStore struct {
	rules  map[int]Rule
	nextID int
	mu     sync.Mutex
}

func newMemoryStore() *memoryStore {
	return &memoryStore{rules: make(map[int]Rule), nextID: 1}
}

func (s *memoryStore) CreateRule(_ context.Context, rule *model.CategoryRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rule.ID = s.nextID
	s.nextID++
	s.rules[rule.ID] = rule.Clone()
	return nil
}

func (s *memoryStore) GetRule(_ context.Context, id int) (*model.CategoryRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rule, ok := s.rules[id]
	if !ok {
		return nil, errRuleNotFound
	}
	clone := rule.Clone()
	return &clone, nil
}

func (s *memoryStore) ListRules(_ context.Context, userID string, activeOnly bool) ([]model.CategoryRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.CategoryRule
	for _, rule := range s.rules {
		if rule.UserID != userID || (activeOnly && !rule.IsActive) {
			continue
		}
		out = append(out, rule.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memoryStore) UpdateRule(_ context.Context, rule *model.CategoryRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[rule.ID]; !ok {
		return errRuleNotFound
	}
	s.rules[rule.ID] = rule.Clone()
	return nil
}

func (s *memoryStore) DeleteRule(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[id]; !ok {
		return errRuleNotFound
	}
	delete(s.rules, id)
	return nil
}

func (s *memoryStore) RestoreRule(_ context.Context, rule *model.CategoryRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[rule.ID] = rule.Clone()
	return nil
}

func (s *memoryStore) SetRuleActive(_ context.Context, id int, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rule, ok := s.rules[id]
	if !ok {
		return errRuleNotFound
	}
	rule.IsActive = active
	s.rules[id] = rule
	return nil
}

func (s *memoryStore) IncrementRuleMatchCount(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rule, ok := s.rules[id]
	if !ok {
		return errRuleNotFound
	}
	rule.MatchCount++
	s.rules[id] = rule
	return nil
}

func (s *memoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rules)
}

var _ RuleStore = (*memoryStore)(nil)
