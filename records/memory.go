package records

import (
	"context"
	"fmt"
	"maps"
	"sync"
)

// MemoryStore is an in-memory Store for tests and local development.
// Records are copied on the way in and out so callers cannot alias stored state.
type MemoryStore struct {
	mu           sync.RWMutex
	applications map[string]Application
	versions     map[string]Version
	rules        map[string]Rules
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		applications: make(map[string]Application),
		versions:     make(map[string]Version),
		rules:        make(map[string]Rules),
	}
}

var _ Store = (*MemoryStore)(nil)

func versionKey(appName, semVer string) string {
	return normalize(appName) + "#" + normalize(semVer)
}

func checkContext(ctx context.Context, op string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s cancelled: %w", op, ctx.Err())
	default:
		return nil
	}
}

// LoadApplication implements Store.
func (s *MemoryStore) LoadApplication(ctx context.Context, appName string) (*Application, error) {
	if err := checkContext(ctx, "load application"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	app, ok := s.applications[normalize(appName)]
	if !ok {
		return nil, nil
	}
	return &app, nil
}

// SaveApplication implements Store.
func (s *MemoryStore) SaveApplication(ctx context.Context, app *Application) error {
	if err := checkContext(ctx, "save application"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *app
	stored.AppName = normalize(app.AppName)
	s.applications[stored.AppName] = stored
	return nil
}

// LoadVersion implements Store.
func (s *MemoryStore) LoadVersion(ctx context.Context, appName, semVer string) (*Version, error) {
	if err := checkContext(ctx, "load version"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.versions[versionKey(appName, semVer)]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

// SaveVersion implements Store.
func (s *MemoryStore) SaveVersion(ctx context.Context, v *Version) error {
	if err := checkContext(ctx, "save version"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *v
	stored.AppName = normalize(v.AppName)
	stored.SemVer = normalize(v.SemVer)
	s.versions[versionKey(v.AppName, v.SemVer)] = stored
	return nil
}

// DeleteVersion implements Store. Deleting an absent version is not an error.
func (s *MemoryStore) DeleteVersion(ctx context.Context, appName, semVer string) error {
	if err := checkContext(ctx, "delete version"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.versions, versionKey(appName, semVer))
	return nil
}

// LoadRules implements Store.
func (s *MemoryStore) LoadRules(ctx context.Context, appName string) (*Rules, error) {
	if err := checkContext(ctx, "load rules"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rules[normalize(appName)]
	if !ok {
		return nil, nil
	}
	r.RuleSet = maps.Clone(r.RuleSet)
	return &r, nil
}

// SaveRules implements Store.
func (s *MemoryStore) SaveRules(ctx context.Context, rules *Rules) error {
	if err := checkContext(ctx, "save rules"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *rules
	stored.AppName = normalize(rules.AppName)
	stored.RuleSet = maps.Clone(rules.RuleSet)
	s.rules[stored.AppName] = stored
	return nil
}
