package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/zktaccess/zktadmin/internal/client/models"
	"github.com/zktaccess/zktadmin/internal/client/repositories/metadata"
	"github.com/zktaccess/zktadmin/internal/logging"
)

const (
	TokenKey = "auth_token"
	UserKey  = "current_user"
)

// Session is a point-in-time view of the persisted state.
type Session struct {
	Token string
	User  *models.Identity
}

// Authenticated reports whether both halves of the session are present.
func (s Session) Authenticated() bool {
	return s.Token != "" && s.User != nil
}

type Store struct {
	repo   metadata.Transactional
	logger logging.Logger
}

func NewStore(repo metadata.Transactional, logger logging.Logger) *Store {
	return &Store{repo: repo, logger: logger.With("component", "session")}
}

// NewMemoryStore returns a Store that forgets everything on exit.
func NewMemoryStore(logger logging.Logger) *Store {
	return NewStore(metadata.NewMemoryRepository(), logger)
}

// Save stores token, replacing any previous one.
func (s *Store) Save(ctx context.Context, token string) error {
	if err := s.repo.Set(ctx, TokenKey, []byte(token)); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// SaveUser caches the identity of the signed-in account.
func (s *Store) SaveUser(ctx context.Context, id models.Identity) error {
	b, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	if err := s.repo.Set(ctx, UserKey, b); err != nil {
		return fmt.Errorf("save identity: %w", err)
	}
	return nil
}

// Login stores token and identity together.
func (s *Store) Login(ctx context.Context, token string, id models.Identity) error {
	b, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	return s.repo.InTx(ctx, func(ctx context.Context, repo metadata.Repository) error {
		if err := repo.Set(ctx, TokenKey, []byte(token)); err != nil {
			return err
		}
		return repo.Set(ctx, UserKey, b)
	})
}

// Token returns the stored token, or false when there is none.
func (s *Store) Token(ctx context.Context) (string, bool) {
	b, err := s.repo.Get(ctx, TokenKey)
	if err != nil {
		s.logger.Warn(ctx, "read token failed", "err", err)
		return "", false
	}
	if len(b) == 0 {
		return "", false
	}
	return string(b), true
}

// CurrentUser returns the cached identity. A missing token, a missing or
// undecodable identity all yield false.
func (s *Store) CurrentUser(ctx context.Context) (models.Identity, bool) {
	if _, ok := s.Token(ctx); !ok {
		return models.Identity{}, false
	}
	b, err := s.repo.Get(ctx, UserKey)
	if err != nil {
		s.logger.Warn(ctx, "read identity failed", "err", err)
		return models.Identity{}, false
	}
	if len(b) == 0 {
		return models.Identity{}, false
	}
	var id models.Identity
	if err := json.Unmarshal(b, &id); err != nil {
		s.logger.Debug(ctx, "cached identity is not valid JSON", "err", err)
		return models.Identity{}, false
	}
	if id.Username == "" {
		return models.Identity{}, false
	}
	return id, true
}

// Current returns both halves of the session.
func (s *Store) Current(ctx context.Context) Session {
	var out Session
	out.Token, _ = s.Token(ctx)
	if id, ok := s.CurrentUser(ctx); ok {
		out.User = &id
	}
	return out
}

// Clear removes the token and the cached identity. Clearing an empty store
// is not an error.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.repo.Delete(ctx, TokenKey, UserKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
