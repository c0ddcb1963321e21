package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"alignlab/internal/auth"
	"alignlab/internal/store"
	"alignlab/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/go-playground/form/v4"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

var (
	decoder  = form.NewDecoder()
	validate = validator.New(validator.WithRequiredStructEnabled())
)

// Store interfaces are satisfied by the concrete repositories in
// internal/store; handler tests swap in in-memory fakes.

type UserStore interface {
	User(ctx context.Context, userID string) (*types.User, error)
	UserByEmail(ctx context.Context, email string) (*types.User, error)
	Users(ctx context.Context, params types.UserListParams) ([]*types.User, error)
	CreateUser(ctx context.Context, user *types.User) error
	UpdateUser(ctx context.Context, userID string, user *types.User) error
}

type RequestStore interface {
	Request(ctx context.Context, requestID string) (*types.Request, error)
	Requests(ctx context.Context, filter store.RequestFilter) ([]*types.Request, error)
	RequestsWithOwner(ctx context.Context, filter store.RequestFilter) ([]*types.RequestWithOwner, error)
	CreateRequest(ctx context.Context, request *types.Request) error
	UpdateRequest(ctx context.Context, requestID string, request *types.Request) error
	SetStatus(ctx context.Context, requestID string, status types.RequestStatus) error
	SetFeedback(ctx context.Context, requestID string, status types.RequestStatus, notes string) error
}

type FileStore interface {
	CreateFile(ctx context.Context, file *types.RequestFile) error
	FilesByRequestID(ctx context.Context, requestID string) ([]types.RequestFile, error)
	LatestFinalFile(ctx context.Context, requestID string) (*types.RequestFile, error)
}

type TokenStore interface {
	CreateToken(ctx context.Context, token *types.AuthToken) error
	Token(ctx context.Context, tokenID string) (*types.AuthToken, error)
	TouchToken(ctx context.Context, tokenID string) error
	DeleteToken(ctx context.Context, tokenID string) error
}

type ObjectStorage interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

type Mailer interface {
	SendPasswordReset(ctx context.Context, to, resetURL string) error
	SendUserInvite(ctx context.Context, to, resetURL string) error
}

type Service struct {
	logger *logrus.Logger
	config *types.Config

	tokens   *auth.TokenService
	users    UserStore
	requests RequestStore
	files    FileStore
	sessions TokenStore
	storage  ObjectStorage
	mailer   Mailer

	server *http.Server
}

func New(
	config *types.Config,
	logger *logrus.Logger,
	tokens *auth.TokenService,
	users UserStore,
	requests RequestStore,
	files FileStore,
	sessions TokenStore,
	objectStorage ObjectStorage,
	mailer Mailer,
) *Service {
	mux := flow.New()

	s := &Service{
		logger:   logger,
		config:   config,
		tokens:   tokens,
		users:    users,
		requests: requests,
		files:    files,
		sessions: sessions,
		storage:  objectStorage,
		mailer:   mailer,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.ServerPort),
			Handler:           mux,
			ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
			ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}

	s.buildRouter(mux)

	return s
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the routed mux, used by httptest in handler tests.
func (s *Service) Handler() http.Handler {
	return s.server.Handler
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.Use(s.StripTrailingSlash)
	r.Use(s.LoggingMiddleware)

	r.HandleFunc("/", s.handleIndex, http.MethodGet)

	r.HandleFunc("/auth/login", s.handleLogin, http.MethodPost)
	r.HandleFunc("/auth/register", s.handleRegister, http.MethodPost)
	r.HandleFunc("/auth/forgot-password", s.handleForgotPassword, http.MethodPost)
	r.HandleFunc("/auth/forgot-password-token", s.handleVerifyResetToken, http.MethodPost)
	r.HandleFunc("/auth/reset-password", s.handleResetPassword, http.MethodPost)

	r.Group(func(r *flow.Mux) {
		r.Use(s.RequireAuth)

		r.HandleFunc("/auth/logout", s.handleLogout, http.MethodGet)
		r.HandleFunc("/auth/me", s.handleMe, http.MethodGet)

		r.HandleFunc("/requests", s.handleListRequests, http.MethodGet)
		r.HandleFunc("/requests", s.handleCreateRequest, http.MethodPost)
		r.HandleFunc("/requests/:id", s.handleGetRequest, http.MethodGet)
		r.HandleFunc("/requests/:id", s.handleUpdateRequest, http.MethodPut)
		r.HandleFunc("/requests/:id/files", s.handleUploadFiles, http.MethodPost)
		r.HandleFunc("/requests/:id/feedback", s.handleSubmitFeedback, http.MethodPost)
		r.HandleFunc("/requests/:id/stl", s.handleDownloadSTL, http.MethodGet)

		r.Group(func(r *flow.Mux) {
			r.Use(s.RequireAdmin)

			r.HandleFunc("/requests/:id/status", s.handleUpdateStatus, http.MethodPut)
			r.HandleFunc("/requests/:id/final-stl", s.handleUploadFinalSTL, http.MethodPost)

			r.HandleFunc("/users", s.handleListUsers, http.MethodGet)
			r.HandleFunc("/users", s.handleInviteUser, http.MethodPost)
		})
	})
}

func (s *Service) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"hello": "world"})
}

func (s *Service) actorFromContext(ctx context.Context) (types.Actor, error) {
	actor, ok := ctx.Value(contextKeyActor).(types.Actor)
	if !ok {
		return types.Actor{}, fmt.Errorf("actor not found in context")
	}
	return actor, nil
}
