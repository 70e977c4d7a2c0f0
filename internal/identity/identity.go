// Package identity signs family members in and out and tells the rest of the
// application about it through identity events on the bus.
package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/kinboard/internal/bus"
	"github.com/dukerupert/kinboard/internal/event"
	"github.com/dukerupert/kinboard/internal/model"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrNotSignedIn        = errors.New("not signed in")
	ErrFamilyNotFound     = errors.New("family not found")
)

// FamilyDocuments receives the family document every member subscribes to.
type FamilyDocuments interface {
	Put(ctx context.Context, familyID string, kind model.Kind, id string, doc any) error
}

type Options struct {
	Secret   []byte
	TokenTTL time.Duration
	Now      func() time.Time
}

type Service struct {
	db     *sql.DB
	docs   FamilyDocuments
	cache  TokenCache
	bus    *bus.Bus
	logger *slog.Logger
	tokens tokens

	mu      sync.Mutex
	current *model.User
}

func New(db *sql.DB, docs FamilyDocuments, cache TokenCache, b *bus.Bus, logger *slog.Logger, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 30 * 24 * time.Hour
	}
	return &Service{
		db:     db,
		docs:   docs,
		cache:  cache,
		bus:    b,
		logger: logger.With("component", "identity"),
		tokens: tokens{secret: opts.Secret, ttl: opts.TokenTTL, now: opts.Now},
	}
}

// Current returns the signed-in user.
func (s *Service) Current() (model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return model.User{}, false
	}
	return *s.current, true
}

// Start restores the session from the cached token and publishes the
// resulting identity event.
func (s *Service) Start(ctx context.Context) error {
	token, err := s.cache.Load()
	if err != nil {
		s.publishFailure(event.AuthenticationError, err)
		return err
	}
	if token == "" {
		s.signedOut()
		return nil
	}

	userID, err := s.tokens.verify(token)
	if err != nil {
		s.logger.Info("discarding cached token", "error", err)
		if err := s.cache.Clear(); err != nil {
			s.logger.Warn("clear token", "error", err)
		}
		s.signedOut()
		return nil
	}

	u, err := s.userByID(ctx, userID)
	if err != nil {
		s.publishFailure(event.AuthenticationError, err)
		return err
	}
	if u == nil {
		if err := s.cache.Clear(); err != nil {
			s.logger.Warn("clear token", "error", err)
		}
		s.signedOut()
		return nil
	}
	s.signedIn(*u)
	return nil
}

// Register creates an account and signs it in.
func (s *Service) Register(ctx context.Context, email, name, password string) (model.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return model.User{}, fmt.Errorf("register: email and password required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	u := model.User{ID: uuid.NewString(), Email: email, Name: strings.TrimSpace(name)}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, string(hash), s.tokens.now().UTC().Format(time.RFC3339))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return model.User{}, ErrEmailTaken
		}
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}

	if err := s.establish(u); err != nil {
		return model.User{}, err
	}
	return u, nil
}

// SignIn checks the credentials. Failures publish SIGN_IN_ERROR.
func (s *Service) SignIn(ctx context.Context, email, password string) error {
	var (
		u    model.User
		hash string
		fam  sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, avatar, family_id, password_hash FROM users WHERE email = ?`,
		normalizeEmail(email)).Scan(&u.ID, &u.Email, &u.Name, &u.Avatar, &fam, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrInvalidCredentials
	} else if err == nil {
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
			err = ErrInvalidCredentials
		}
	}
	if err != nil {
		s.publishFailure(event.SignInError, err)
		return err
	}
	u.FamilyID = fam.String
	return s.establish(u)
}

// SignOut forgets the cached token.
func (s *Service) SignOut(context.Context) error {
	if err := s.cache.Clear(); err != nil {
		return err
	}
	s.signedOut()
	return nil
}

// CreateFamily creates a family with the signed-in user as its first member.
func (s *Service) CreateFamily(ctx context.Context, name string) (model.Family, error) {
	u, ok := s.Current()
	if !ok {
		return model.Family{}, ErrNotSignedIn
	}
	f := model.Family{
		ID:      uuid.NewString(),
		Name:    strings.TrimSpace(name),
		Created: s.tokens.now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Family{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO families (id, name, created_at) VALUES (?, ?, ?)`,
		f.ID, f.Name, f.Created.Format(time.RFC3339)); err != nil {
		return model.Family{}, fmt.Errorf("insert family: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE users SET family_id = ? WHERE id = ?`, f.ID, u.ID); err != nil {
		return model.Family{}, fmt.Errorf("join family: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Family{}, fmt.Errorf("commit: %w", err)
	}

	f, err = s.writeFamilyDoc(ctx, f.ID, u)
	if err != nil {
		return model.Family{}, err
	}
	u.FamilyID = f.ID
	s.signedIn(u)
	return f, nil
}

// JoinFamily moves the signed-in user into an existing family.
func (s *Service) JoinFamily(ctx context.Context, familyID string) error {
	u, ok := s.Current()
	if !ok {
		return ErrNotSignedIn
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET family_id = ? WHERE id = ? AND EXISTS (SELECT 1 FROM families WHERE id = ?)`,
		familyID, u.ID, familyID)
	if err != nil {
		return fmt.Errorf("join family: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrFamilyNotFound
	}
	if _, err := s.writeFamilyDoc(ctx, familyID, u); err != nil {
		return err
	}
	u.FamilyID = familyID
	s.signedIn(u)
	return nil
}

// writeFamilyDoc rebuilds the family document from the members table.
func (s *Service) writeFamilyDoc(ctx context.Context, familyID string, joining model.User) (model.Family, error) {
	f := model.Family{ID: familyID, Users: make(map[string]model.FamilyMember)}
	var created string
	err := s.db.QueryRowContext(ctx, `SELECT name, created_at FROM families WHERE id = ?`, familyID).Scan(&f.Name, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Family{}, ErrFamilyNotFound
	}
	if err != nil {
		return model.Family{}, fmt.Errorf("get family: %w", err)
	}
	f.Created, _ = time.Parse(time.RFC3339, created)

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, avatar FROM users WHERE family_id = ?`, familyID)
	if err != nil {
		return model.Family{}, fmt.Errorf("list members: %w", err)
	}
	for rows.Next() {
		var id string
		var m model.FamilyMember
		if err := rows.Scan(&id, &m.Name, &m.Avatar); err != nil {
			rows.Close()
			return model.Family{}, fmt.Errorf("scan member: %w", err)
		}
		f.Users[id] = m
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return model.Family{}, fmt.Errorf("list members: %w", err)
	}
	f.Users[joining.ID] = model.FamilyMember{Name: joining.Name, Avatar: joining.Avatar}

	if err := s.docs.Put(ctx, familyID, model.KindFamily, familyID, f); err != nil {
		return model.Family{}, fmt.Errorf("store family document: %w", err)
	}
	return f, nil
}

func (s *Service) establish(u model.User) error {
	token, err := s.tokens.issue(u.ID)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	if err := s.cache.Save(token); err != nil {
		return err
	}
	s.signedIn(u)
	return nil
}

func (s *Service) userByID(ctx context.Context, id string) (*model.User, error) {
	var (
		u   model.User
		fam sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, avatar, family_id FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Email, &u.Name, &u.Avatar, &fam)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.FamilyID = fam.String
	return &u, nil
}

func (s *Service) signedIn(u model.User) {
	s.mu.Lock()
	s.current = &u
	s.mu.Unlock()

	typ := event.Authenticated
	if u.FamilyID != "" {
		typ = event.AuthenticatedWithFamily
	}
	s.logger.Info("signed in", "user", u.ID, "family", u.FamilyID)
	s.bus.Publish(event.New(typ, u))
}

func (s *Service) signedOut() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	s.bus.Publish(event.New(event.Unauthenticated, nil))
}

func (s *Service) publishFailure(typ string, err error) {
	s.logger.Warn("identity failure", "event", typ, "error", err)
	s.bus.Publish(event.New(typ, event.Failure{Message: err.Error()}))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
