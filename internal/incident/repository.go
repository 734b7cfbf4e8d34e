package incident

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/OnlyArkMani/Flowboard/internal/validation"
)

// RuleRepository is the externally-administered known-error library. The
// engine depends only on this interface, never on a process-wide singleton.
type RuleRepository interface {
	// ListActive returns active rules ordered by most-recent update.
	ListActive() ([]*KnownErrorRule, error)
	// GetOrCreate returns the rule with the given pattern, creating it
	// from the template when absent.
	GetOrCreate(pattern string, template KnownErrorRule) (*KnownErrorRule, error)
}

// MemoryRuleRepository is an in-memory implementation of RuleRepository.
type MemoryRuleRepository struct {
	mu    sync.RWMutex
	rules map[string]*KnownErrorRule // keyed by pattern
}

// NewMemoryRuleRepository creates a new in-memory rule repository.
func NewMemoryRuleRepository() *MemoryRuleRepository {
	return &MemoryRuleRepository{rules: make(map[string]*KnownErrorRule)}
}

// ListActive returns active rules, most recently updated first.
func (r *MemoryRuleRepository) ListActive() ([]*KnownErrorRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*KnownErrorRule
	for _, rule := range r.rules {
		if !rule.Active {
			continue
		}
		ruleCopy := *rule
		result = append(result, &ruleCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].UpdatedAt.Equal(result[j].UpdatedAt) {
			return result[i].Pattern < result[j].Pattern
		}
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result, nil
}

// GetOrCreate returns the rule for a pattern, creating it when missing.
// Safe to call repeatedly with the same template.
func (r *MemoryRuleRepository) GetOrCreate(pattern string, template KnownErrorRule) (*KnownErrorRule, error) {
	if pattern == "" {
		return nil, fmt.Errorf("rule pattern is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.rules[pattern]; ok {
		ruleCopy := *existing
		return &ruleCopy, nil
	}

	now := time.Now().UTC()
	rule := template
	rule.ID = uuid.NewString()
	rule.Pattern = pattern
	rule.Active = true
	rule.CreatedAt = now
	rule.UpdatedAt = now
	if err := validation.Payload(&rule); err != nil {
		return nil, fmt.Errorf("rule %q: %w", rule.Name, err)
	}
	r.rules[pattern] = &rule

	ruleCopy := rule
	return &ruleCopy, nil
}

// Update replaces a stored rule, bumping its update time so it scans first.
func (r *MemoryRuleRepository) Update(rule *KnownErrorRule) error {
	if err := validation.Payload(rule); err != nil {
		return fmt.Errorf("rule %q: %w", rule.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.rules[rule.Pattern]
	if !ok {
		return fmt.Errorf("rule with pattern %q not found", rule.Pattern)
	}

	updated := *rule
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	r.rules[rule.Pattern] = &updated
	return nil
}
