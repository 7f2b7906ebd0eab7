package http

import (
	"context"
	"time"

	"github.com/Eyad010/postfeed/internal/logging"
	"github.com/Eyad010/postfeed/internal/server/media"
	"github.com/Eyad010/postfeed/internal/server/models"
	"github.com/Eyad010/postfeed/internal/server/observability"
	"github.com/Eyad010/postfeed/internal/server/services"
)

type AuthService interface {
	Signup(ctx context.Context, in services.SignupInput) (*services.Session, error)
	Login(ctx context.Context, email, password string) (*services.Session, error)
	Authenticate(ctx context.Context, token string) (*models.User, error)
	UpdatePassword(ctx context.Context, userID string, in services.UpdatePasswordInput) (*services.Session, error)
	ForgotPassword(ctx context.Context, email string) error
	VerifyResetCode(ctx context.Context, email, code string) error
	ResetPassword(ctx context.Context, in services.ResetPasswordInput) (*services.Session, error)
	TokenValidity() time.Duration
}

type UserService interface {
	List(ctx context.Context) ([]*models.User, error)
	Get(ctx context.Context, id string) (*models.User, error)
	UpdateMe(ctx context.Context, id string, upd services.ProfileUpdate) (*models.User, error)
	UpdatePhoto(ctx context.Context, user *models.User, file media.Upload) (*models.User, error)
	DeleteMe(ctx context.Context, user *models.User) error
}

type PostService interface {
	Latest(ctx context.Context) ([]*models.Post, error)
	All(ctx context.Context) ([]*models.Post, error)
	Categories() []string
	ByCategory(ctx context.Context, category string) ([]*models.Post, error)
	Search(ctx context.Context, query string) ([]*models.Post, error)
	Get(ctx context.Context, id string) (*models.Post, error)
	Create(ctx context.Context, userID string, in services.PostInput, files []media.Upload) (*models.Post, error)
	Update(ctx context.Context, userID, postID string, upd models.PostUpdate) (*models.Post, error)
	Delete(ctx context.Context, userID, postID string) error
}

// Handler serves the REST API on top of the services.
type Handler struct {
	auth    AuthService
	users   UserService
	posts   PostService
	log     logging.Logger
	metrics *observability.Metrics

	cookieSecure bool
	now          func() time.Time
}

func NewHandler(a AuthService, u UserService, p PostService, l logging.Logger,
	m *observability.Metrics, cookieSecure bool) *Handler {
	return &Handler{
		auth:         a,
		users:        u,
		posts:        p,
		log:          l.With("module", "http"),
		metrics:      m,
		cookieSecure: cookieSecure,
		now:          time.Now,
	}
}
