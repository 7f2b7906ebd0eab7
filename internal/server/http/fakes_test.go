package http

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Eyad010/postfeed/internal/common"
	"github.com/Eyad010/postfeed/internal/logging"
	"github.com/Eyad010/postfeed/internal/server/media"
	"github.com/Eyad010/postfeed/internal/server/models"
	"github.com/Eyad010/postfeed/internal/server/observability"
	"github.com/Eyad010/postfeed/internal/server/services"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// ---- auth ----

type fakeAuth struct {
	mu sync.Mutex

	users map[string]*models.User // token -> user
	seen  []string                 // tokens passed to Authenticate

	session   *services.Session
	signupIn  services.SignupInput
	signupErr error
	loginErr  error
	forgotErr error
	verifyErr error
	resetErr  error
	updateErr error
	forgotFor []string
}

func newFakeAuth() *fakeAuth {
	alice := &models.User{ID: "u-1", Name: "Alice", Email: "a@x.com", PasswordHash: "secret-hash"}
	return &fakeAuth{
		users:   map[string]*models.User{"tok-alice": alice, "tok-bob": {ID: "u-2", Name: "Bob", Email: "b@x.com"}},
		session: &services.Session{Token: "tok-new", User: &models.User{ID: "u-1", Name: "Alice", Email: "a@x.com"}},
	}
}

func (f *fakeAuth) Signup(_ context.Context, in services.SignupInput) (*services.Session, error) {
	f.signupIn = in
	if f.signupErr != nil {
		return nil, f.signupErr
	}
	return f.session, nil
}

func (f *fakeAuth) Login(context.Context, string, string) (*services.Session, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.session, nil
}

func (f *fakeAuth) Authenticate(_ context.Context, token string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, token)
	if token == "" {
		return nil, common.NewError(common.ErrorUnauthorized, "You are not logged in! Please log in to get access.")
	}
	u, ok := f.users[token]
	if !ok {
		return nil, common.NewError(common.ErrorUnauthorized, "Invalid token. Please log in again!")
	}
	cp := *u
	return &cp, nil
}

func (f *fakeAuth) UpdatePassword(context.Context, string, services.UpdatePasswordInput) (*services.Session, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return f.session, nil
}

func (f *fakeAuth) ForgotPassword(_ context.Context, email string) error {
	f.forgotFor = append(f.forgotFor, email)
	return f.forgotErr
}

func (f *fakeAuth) VerifyResetCode(context.Context, string, string) error { return f.verifyErr }

func (f *fakeAuth) ResetPassword(context.Context, services.ResetPasswordInput) (*services.Session, error) {
	if f.resetErr != nil {
		return nil, f.resetErr
	}
	return f.session, nil
}

func (f *fakeAuth) TokenValidity() time.Duration { return time.Hour }

// ---- users ----

type fakeUsers struct {
	list    []*models.User
	getErr  error
	updated services.ProfileUpdate
	photo   media.Upload
	deleted string
}

func (f *fakeUsers) List(context.Context) ([]*models.User, error) { return f.list, nil }

func (f *fakeUsers) Get(_ context.Context, id string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &models.User{ID: id, Name: "User " + id, Posts: []*models.Post{{ID: "p-1", Content: "bike"}}}, nil
}

func (f *fakeUsers) UpdateMe(_ context.Context, id string, upd services.ProfileUpdate) (*models.User, error) {
	f.updated = upd
	u := &models.User{ID: id}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	return u, nil
}

func (f *fakeUsers) UpdatePhoto(_ context.Context, user *models.User, file media.Upload) (*models.User, error) {
	f.photo = file
	user.Photo = "http://media.test/users/new"
	return user, nil
}

func (f *fakeUsers) DeleteMe(_ context.Context, user *models.User) error {
	f.deleted = user.ID
	return nil
}

// ---- posts ----

type fakePosts struct {
	posts     map[string]*models.Post
	created   services.PostInput
	uploads   []string // content types
	deleted   []string
	latestErr error
}

func newFakePosts() *fakePosts {
	return &fakePosts{posts: map[string]*models.Post{
		"p-1": {ID: "p-1", UserID: "u-1", Content: "bike", Category: "كتب"},
	}}
}

func (f *fakePosts) Latest(context.Context) ([]*models.Post, error) {
	if f.latestErr != nil {
		return nil, f.latestErr
	}
	return []*models.Post{f.posts["p-1"]}, nil
}

func (f *fakePosts) All(context.Context) ([]*models.Post, error) {
	return []*models.Post{f.posts["p-1"]}, nil
}

func (f *fakePosts) Categories() []string { return models.Categories }

func (f *fakePosts) ByCategory(_ context.Context, c string) ([]*models.Post, error) {
	if !models.ValidCategory(c) {
		return nil, common.NewError(common.ErrorValidation, "Invalid category")
	}
	return []*models.Post{f.posts["p-1"]}, nil
}

func (f *fakePosts) Search(context.Context, string) ([]*models.Post, error) {
	return []*models.Post{}, nil
}

func (f *fakePosts) Get(_ context.Context, id string) (*models.Post, error) {
	p, ok := f.posts[id]
	if !ok {
		return nil, common.NewError(common.ErrorNotFound, "No post found with that ID")
	}
	return p, nil
}

func (f *fakePosts) Create(_ context.Context, userID string, in services.PostInput, files []media.Upload) (*models.Post, error) {
	f.created = in
	for _, file := range files {
		b, _ := io.ReadAll(file.Body)
		f.uploads = append(f.uploads, file.ContentType+":"+string(b))
	}
	return &models.Post{ID: "p-2", UserID: userID, Content: in.Content, Price: in.Price}, nil
}

func (f *fakePosts) owned(userID, postID, action string) (*models.Post, error) {
	p, ok := f.posts[postID]
	if !ok {
		return nil, common.NewError(common.ErrorNotFound, "No post found with that ID")
	}
	if p.UserID != userID {
		return nil, common.Errorf(common.ErrorForbidden, "You do not have permission to %s this post", action)
	}
	return p, nil
}

func (f *fakePosts) Update(_ context.Context, userID, postID string, upd models.PostUpdate) (*models.Post, error) {
	p, err := f.owned(userID, postID, "edit")
	if err != nil {
		return nil, err
	}
	if upd.Price != nil {
		p.Price = *upd.Price
	}
	return p, nil
}

func (f *fakePosts) Delete(_ context.Context, userID, postID string) error {
	if _, err := f.owned(userID, postID, "delete"); err != nil {
		return err
	}
	f.deleted = append(f.deleted, postID)
	return nil
}

// ---- handler ----

type testEnv struct {
	h       *Handler
	auth    *fakeAuth
	users   *fakeUsers
	posts   *fakePosts
	metrics *observability.Metrics
}

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestEnv() *testEnv {
	env := &testEnv{
		auth:    newFakeAuth(),
		users:   &fakeUsers{},
		posts:   newFakePosts(),
		metrics: observability.NewMetrics(prometheus.NewRegistry()),
	}
	env.h = NewHandler(env.auth, env.users, env.posts, discardLogger(), env.metrics, false)
	env.h.now = func() time.Time { return testNow }
	return env
}
