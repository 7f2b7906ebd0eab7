package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/Eyad010/postfeed/internal/common"
	"github.com/Eyad010/postfeed/internal/dbx"
	"github.com/Eyad010/postfeed/internal/logging"
	"github.com/Eyad010/postfeed/internal/server/media"
	"github.com/Eyad010/postfeed/internal/server/models"
	"github.com/Eyad010/postfeed/internal/server/notify"
	"github.com/Eyad010/postfeed/internal/server/repositories/posts"
	"github.com/Eyad010/postfeed/internal/server/repositories/users"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// --- users repository ---

type fakeUsersRepo struct {
	mu     sync.Mutex
	byID   map[string]*models.User
	nextID int
	now    func() time.Time

	// createErr simulates a unique violation raced past the pre-check.
	createErr error
	getErr    error
	deleteErr error
}

func newFakeUsersRepo(now func() time.Time) *fakeUsersRepo {
	return &fakeUsersRepo{byID: map[string]*models.User{}, now: now}
}

func copyUser(u *models.User) *models.User {
	cp := *u
	return &cp
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, existing := range f.byID {
		if strings.EqualFold(existing.Email, u.Email) {
			return nil, common.ErrorAlreadyExists
		}
	}
	f.nextID++
	u.ID = fmt.Sprintf("u-%d", f.nextID)
	u.CreatedAt = f.now()
	f.byID[u.ID] = copyUser(u)
	return u, nil
}

func (f *fakeUsersRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return copyUser(u), nil
}

func (f *fakeUsersRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, email) {
			return copyUser(u), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) List(context.Context) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.User{}
	for _, u := range f.byID {
		out = append(out, copyUser(u))
	}
	return out, nil
}

func (f *fakeUsersRepo) UpdateProfile(_ context.Context, id string, name, phone *string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if name != nil {
		u.Name = *name
	}
	if phone != nil {
		u.Phone = *phone
	}
	return copyUser(u), nil
}

func (f *fakeUsersRepo) UpdatePhoto(_ context.Context, id, url string) error {
	return f.mutate(id, func(u *models.User) { u.Photo = url })
}

func (f *fakeUsersRepo) UpdatePassword(_ context.Context, id, hash string, changedAt time.Time) error {
	return f.mutate(id, func(u *models.User) {
		u.PasswordHash = hash
		u.PasswordChangedAt = &changedAt
		clearReset(u)
	})
}

func (f *fakeUsersRepo) SetResetCode(_ context.Context, id, codeHash string, expiresAt time.Time) error {
	return f.mutate(id, func(u *models.User) {
		u.PasswordResetCodeHash = codeHash
		u.PasswordResetExpiresAt = &expiresAt
		u.PasswordResetVerified = false
	})
}

func (f *fakeUsersRepo) ClearResetCode(_ context.Context, id string) error {
	return f.mutate(id, clearReset)
}

func (f *fakeUsersRepo) MarkResetVerified(_ context.Context, email, codeHash string, now time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, email) && u.PasswordResetCodeHash == codeHash &&
			u.PasswordResetExpiresAt != nil && u.PasswordResetExpiresAt.After(now) {
			u.PasswordResetVerified = true
			return u.ID, nil
		}
	}
	return "", common.ErrorNotFound
}

func (f *fakeUsersRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeUsersRepo) mutate(id string, fn func(u *models.User)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	fn(u)
	return nil
}

func (f *fakeUsersRepo) stored(t *testing.T, email string) *models.User {
	t.Helper()
	u, err := f.GetByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("stored user %s: %v", email, err)
	}
	return u
}

func clearReset(u *models.User) {
	u.PasswordResetCodeHash = ""
	u.PasswordResetExpiresAt = nil
	u.PasswordResetVerified = false
}

// --- posts repository ---

type fakePostsRepo struct {
	mu     sync.Mutex
	byID   map[string]*models.Post
	order  []string
	nextID int
	users  *fakeUsersRepo

	createErr       error
	deleteByUserErr error
}

func newFakePostsRepo(u *fakeUsersRepo) *fakePostsRepo {
	return &fakePostsRepo{byID: map[string]*models.Post{}, users: u}
}

func (f *fakePostsRepo) withAuthor(p *models.Post) *models.Post {
	cp := *p
	cp.Images = append([]models.Image{}, p.Images...)
	if u, err := f.users.GetByID(context.Background(), p.UserID); err == nil {
		cp.User = &models.Author{ID: u.ID, Name: u.Name, Photo: u.Photo, Phone: u.Phone}
	}
	return &cp
}

func (f *fakePostsRepo) Create(_ context.Context, p *models.Post) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	p.ID = fmt.Sprintf("p-%d", f.nextID)
	cp := *p
	f.byID[p.ID] = &cp
	f.order = append([]string{p.ID}, f.order...)
	return p, nil
}

func (f *fakePostsRepo) GetByID(_ context.Context, id string) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return f.withAuthor(p), nil
}

func (f *fakePostsRepo) filter(keep func(p *models.Post) bool, limit int) []*models.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Post{}
	for _, id := range f.order {
		p := f.byID[id]
		if keep(p) {
			out = append(out, f.withAuthor(p))
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (f *fakePostsRepo) List(_ context.Context, limit int) ([]*models.Post, error) {
	return f.filter(func(*models.Post) bool { return true }, limit), nil
}

func (f *fakePostsRepo) ListByCategory(_ context.Context, category string) ([]*models.Post, error) {
	return f.filter(func(p *models.Post) bool { return p.Category == category }, 0), nil
}

func (f *fakePostsRepo) ListByUser(_ context.Context, userID string) ([]*models.Post, error) {
	return f.filter(func(p *models.Post) bool { return p.UserID == userID }, 0), nil
}

func (f *fakePostsRepo) Search(_ context.Context, q string) ([]*models.Post, error) {
	q = strings.ToLower(q)
	return f.filter(func(p *models.Post) bool { return strings.Contains(strings.ToLower(p.Content), q) }, 0), nil
}

func (f *fakePostsRepo) Update(ctx context.Context, id string, upd models.PostUpdate) (*models.Post, error) {
	f.mu.Lock()
	p, ok := f.byID[id]
	if !ok {
		f.mu.Unlock()
		return nil, common.ErrorNotFound
	}
	if upd.Content != nil {
		p.Content = *upd.Content
	}
	if upd.Location != nil {
		p.Location = *upd.Location
	}
	if upd.Category != nil {
		p.Category = *upd.Category
	}
	if upd.Price != nil {
		p.Price = *upd.Price
	}
	f.mu.Unlock()
	return f.GetByID(ctx, id)
}

func (f *fakePostsRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.byID, id)
	for i, v := range f.order {
		if v == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakePostsRepo) DeleteByUser(_ context.Context, userID string) ([]models.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteByUserErr != nil {
		return nil, f.deleteByUserErr
	}
	var images []models.Image
	order := f.order[:0]
	for _, id := range f.order {
		p := f.byID[id]
		if p.UserID == userID {
			images = append(images, p.Images...)
			delete(f.byID, id)
			continue
		}
		order = append(order, id)
	}
	f.order = order
	return images, nil
}

// --- repository manager ---

type fakeRepoMgr struct {
	users *fakeUsersRepo
	posts *fakePostsRepo

	mu      sync.Mutex
	handles []dbx.DBTX
}

func newFakeRepoMgr(now func() time.Time) *fakeRepoMgr {
	u := newFakeUsersRepo(now)
	return &fakeRepoMgr{users: u, posts: newFakePostsRepo(u)}
}

func (m *fakeRepoMgr) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *fakeRepoMgr) record(db dbx.DBTX) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handles = append(m.handles, db)
}

func (m *fakeRepoMgr) Users(db dbx.DBTX) users.Repository {
	m.record(db)
	return m.users
}

func (m *fakeRepoMgr) Posts(db dbx.DBTX) posts.Repository {
	m.record(db)
	return m.posts
}

// txHandles counts repositories that were bound to a transaction.
func (m *fakeRepoMgr) txHandles() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, h := range m.handles {
		if _, ok := h.(*sql.Tx); ok {
			n++
		}
	}
	return n
}

// --- media ---

type fakeMedia struct {
	mu        sync.Mutex
	uploaded  []models.Image
	removed   []string
	failAfter int // uploads allowed before failing; -1 never fails
	n         int
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{failAfter: -1}
}

const fakeMediaBase = "http://media.test/postfeed/"

func (m *fakeMedia) Upload(_ context.Context, folder string, file media.Upload) (models.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAfter >= 0 && m.n >= m.failAfter {
		return models.Image{}, errors.New("media host unavailable")
	}
	m.n++
	id := fmt.Sprintf("%s/img-%d", folder, m.n)
	img := models.Image{PublicID: id, URL: fakeMediaBase + id}
	m.uploaded = append(m.uploaded, img)
	return img, nil
}

func (m *fakeMedia) Remove(_ context.Context, publicID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, publicID)
	return nil
}

func (m *fakeMedia) PublicID(url string) string {
	if !strings.HasPrefix(url, fakeMediaBase) {
		return ""
	}
	return strings.TrimPrefix(url, fakeMediaBase)
}

func imageUpload(contentType string) media.Upload {
	return media.Upload{Body: bytes.NewReader([]byte("img")), Size: 3, ContentType: contentType}
}

// --- notification sender ---

type fakeSender struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (s *fakeSender) Send(_ context.Context, msg notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}
