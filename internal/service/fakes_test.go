package service

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/repository"
)

type fakeUsers struct {
	mu   sync.Mutex
	byID map[string]model.User
}

func newFakeUsers() *fakeUsers { return &fakeUsers{byID: map[string]model.User{}} }

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.byID {
		if v.Email == u.Email || v.Username == u.Username {
			return repository.ErrConflict
		}
	}
	f.byID[u.ID] = *u
	return nil
}

func (f *fakeUsers) find(match func(model.User) bool) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.byID {
		if match(v) {
			cp := v
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) FindByID(_ context.Context, id string) (*model.User, error) {
	return f.find(func(u model.User) bool { return u.ID == id })
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	return f.find(func(u model.User) bool { return u.Email == email })
}

func (f *fakeUsers) FindByUsername(_ context.Context, username string) (*model.User, error) {
	return f.find(func(u model.User) bool { return u.Username == username })
}

func (f *fakeUsers) MarkVerified(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.IsVerified = true
	f.byID[id] = u
	return nil
}

type fakeRoles struct {
	mu     sync.Mutex
	byName map[string]model.Role
}

func newFakeRoles() *fakeRoles { return &fakeRoles{byName: map[string]model.Role{}} }

func (f *fakeRoles) FindByName(_ context.Context, name string) (*model.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byName[name]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (f *fakeRoles) Create(_ context.Context, r *model.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byName[r.Name]; ok {
		return repository.ErrConflict
	}
	f.byName[r.Name] = *r
	return nil
}

type fakeSessions struct {
	mu   sync.Mutex
	byID map[string]model.Session
}

func newFakeSessions() *fakeSessions { return &fakeSessions{byID: map[string]model.Session{}} }

func (f *fakeSessions) Upsert(_ context.Context, s *model.Session) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, v := range f.byID {
		if v.UserID == s.UserID && v.DeviceHash == s.DeviceHash {
			v.RefreshToken = nil
			v.UserAgent, v.IPAddress = s.UserAgent, s.IPAddress
			f.byID[id] = v
			cp := v
			return &cp, nil
		}
	}
	n := model.Session{ID: uuid.NewString(), UserID: s.UserID, DeviceHash: s.DeviceHash,
		UserAgent: s.UserAgent, IPAddress: s.IPAddress}
	f.byID[n.ID] = n
	return &n, nil
}

func (f *fakeSessions) ListByUser(_ context.Context, userID string) ([]model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Session
	for _, v := range f.byID {
		if v.UserID == userID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeSessions) SetRefreshToken(_ context.Context, id, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	v.RefreshToken = &token
	f.byID[id] = v
	return nil
}

func (f *fakeSessions) Invalidate(_ context.Context, id, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.byID[id]
	if !ok || v.UserID != userID {
		return repository.ErrNotFound
	}
	v.RefreshToken = nil
	v.TokenVersion++
	f.byID[id] = v
	return nil
}

func (f *fakeSessions) IncrementTokenVersion(_ context.Context, id string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	v.TokenVersion++
	f.byID[id] = v
	return &v, nil
}

func (f *fakeSessions) get(id string) model.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id]
}

type fakeTokens struct {
	mu   sync.Mutex
	byID map[string]model.VerificationToken

	// beforeMarkUsed runs ahead of the conditional transition.
	beforeMarkUsed func(id string)
}

func newFakeTokens() *fakeTokens { return &fakeTokens{byID: map[string]model.VerificationToken{}} }

func (f *fakeTokens) Create(_ context.Context, t *model.VerificationToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[t.ID] = *t
	return nil
}

func (f *fakeTokens) FindByToken(_ context.Context, token string) (*model.VerificationToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.byID {
		if v.Token == token {
			cp := v
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeTokens) transition(id string, to model.TokenStatus) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.byID[id]
	if !ok || v.Status != model.TokenActive {
		return false
	}
	v.Status = to
	f.byID[id] = v
	return true
}

func (f *fakeTokens) MarkUsed(_ context.Context, id string) (bool, error) {
	if f.beforeMarkUsed != nil {
		f.beforeMarkUsed(id)
	}
	return f.transition(id, model.TokenUsed), nil
}

func (f *fakeTokens) MarkExpired(_ context.Context, id string) error {
	f.transition(id, model.TokenExpired)
	return nil
}

func (f *fakeTokens) all() []model.VerificationToken {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.VerificationToken
	for _, v := range f.byID {
		out = append(out, v)
	}
	return out
}

func (f *fakeTokens) status(token string) model.TokenStatus {
	t, _ := f.FindByToken(context.Background(), token)
	if t == nil {
		return ""
	}
	return t.Status
}

type sentMail struct{ Email, Username, Token string }

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeMailer) SendVerification(_ context.Context, email, username, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{email, username, token})
	return f.err
}

func (f *fakeMailer) last() sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}
