package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"alignlab/internal/auth"
	"alignlab/internal/store"
	"alignlab/internal/utils"
	"alignlab/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*types.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*types.User)}
}

func (f *fakeUserStore) User(_ context.Context, userID string) (*types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[userID]
	if !ok {
		return nil, types.ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (f *fakeUserStore) UserByEmail(_ context.Context, email string) (*types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, user := range f.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, types.ErrUserNotFound
}

func (f *fakeUserStore) Users(_ context.Context, params types.UserListParams) ([]*types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*types.User
	for _, user := range f.users {
		if params.IsActive != nil && user.IsActive != *params.IsActive {
			continue
		}
		clone := *user
		out = append(out, &clone)
	}
	return out, nil
}

func (f *fakeUserStore) CreateUser(_ context.Context, user *types.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if user.ID == "" {
		user.ID = utils.NanoID()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt

	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserStore) UpdateUser(_ context.Context, userID string, user *types.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.users[userID]; !ok {
		return types.ErrUserNotFound
	}
	clone := *user
	clone.ID = userID
	f.users[userID] = &clone
	return nil
}

type fakeRequestStore struct {
	mu       sync.Mutex
	requests map[string]*types.Request
	owners   *fakeUserStore

	statusCalls []types.RequestStatus
}

func newFakeRequestStore(owners *fakeUserStore) *fakeRequestStore {
	return &fakeRequestStore{requests: make(map[string]*types.Request), owners: owners}
}

func (f *fakeRequestStore) Request(_ context.Context, requestID string) (*types.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	request, ok := f.requests[requestID]
	if !ok {
		return nil, types.ErrRequestNotFound
	}
	clone := *request
	return &clone, nil
}

func (f *fakeRequestStore) Requests(_ context.Context, filter store.RequestFilter) ([]*types.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*types.Request
	for _, request := range f.requests {
		if filter.UserID != "" && request.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && string(request.Status) != filter.Status {
			continue
		}
		clone := *request
		out = append(out, &clone)
	}
	return out, nil
}

func (f *fakeRequestStore) RequestsWithOwner(ctx context.Context, filter store.RequestFilter) ([]*types.RequestWithOwner, error) {
	requests, err := f.Requests(ctx, filter)
	if err != nil {
		return nil, err
	}

	out := make([]*types.RequestWithOwner, 0, len(requests))
	for _, request := range requests {
		row := &types.RequestWithOwner{Request: *request}
		if owner, err := f.owners.User(ctx, request.UserID); err == nil {
			row.UserName = owner.FullName
			row.UserEmail = owner.Email
		}
		out = append(out, row)
	}
	return out, nil
}

func (f *fakeRequestStore) CreateRequest(_ context.Context, request *types.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if request.ID == "" {
		request.ID = utils.NanoID()
	}
	request.CreatedAt = time.Now()
	request.UpdatedAt = request.CreatedAt

	clone := *request
	f.requests[request.ID] = &clone
	return nil
}

func (f *fakeRequestStore) UpdateRequest(_ context.Context, requestID string, request *types.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.requests[requestID]; !ok {
		return types.ErrRequestNotFound
	}
	clone := *request
	clone.ID = requestID
	f.requests[requestID] = &clone
	return nil
}

func (f *fakeRequestStore) SetStatus(_ context.Context, requestID string, status types.RequestStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	request, ok := f.requests[requestID]
	if !ok {
		return types.ErrRequestNotFound
	}
	request.Status = status
	f.statusCalls = append(f.statusCalls, status)
	return nil
}

func (f *fakeRequestStore) SetFeedback(_ context.Context, requestID string, status types.RequestStatus, notes string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	request, ok := f.requests[requestID]
	if !ok {
		return types.ErrRequestNotFound
	}
	request.Status = status
	request.Notes = &notes
	return nil
}

type fakeFileStore struct {
	mu        sync.Mutex
	files     []types.RequestFile
	createErr error
}

func (f *fakeFileStore) CreateFile(_ context.Context, file *types.RequestFile) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return f.createErr
	}
	if file.ID == "" {
		file.ID = utils.NanoID()
	}
	file.CreatedAt = time.Now()
	f.files = append(f.files, *file)
	return nil
}

func (f *fakeFileStore) FilesByRequestID(_ context.Context, requestID string) ([]types.RequestFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []types.RequestFile
	for _, file := range f.files {
		if file.RequestID == requestID {
			out = append(out, file)
		}
	}
	return out, nil
}

func (f *fakeFileStore) LatestFinalFile(_ context.Context, requestID string) (*types.RequestFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := len(f.files) - 1; i >= 0; i-- {
		if f.files[i].RequestID == requestID && f.files[i].FileType == types.FileTypeFinal {
			clone := f.files[i]
			return &clone, nil
		}
	}
	return nil, types.ErrFileNotFound
}

type fakeTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*types.AuthToken
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: make(map[string]*types.AuthToken)}
}

func (f *fakeTokenStore) CreateToken(_ context.Context, token *types.AuthToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	clone := *token
	f.tokens[token.ID] = &clone
	return nil
}

func (f *fakeTokenStore) Token(_ context.Context, tokenID string) (*types.AuthToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	token, ok := f.tokens[tokenID]
	if !ok || token.ExpiresAt.Before(time.Now()) {
		return nil, types.ErrTokenNotFound
	}
	clone := *token
	return &clone, nil
}

func (f *fakeTokenStore) TouchToken(_ context.Context, tokenID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if token, ok := f.tokens[tokenID]; ok {
		now := time.Now()
		token.LastUsedAt = &now
	}
	return nil
}

func (f *fakeTokenStore) DeleteToken(_ context.Context, tokenID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.tokens, tokenID)
	return nil
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (f *fakeStorage) Upload(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.objects[key] = data
	return "https://storage.test/" + key, nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStorage) SignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://storage.test/" + key + "?signed=1", nil
}

type sentMail struct {
	to       string
	resetURL string
	invite   bool
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (f *fakeMailer) SendPasswordReset(_ context.Context, to, resetURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sent = append(f.sent, sentMail{to: to, resetURL: resetURL})
	return nil
}

func (f *fakeMailer) SendUserInvite(_ context.Context, to, resetURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sent = append(f.sent, sentMail{to: to, resetURL: resetURL, invite: true})
	return nil
}

type testEnv struct {
	svc      *Service
	handler  http.Handler
	tokens   *auth.TokenService
	users    *fakeUserStore
	requests *fakeRequestStore
	files    *fakeFileStore
	sessions *fakeTokenStore
	storage  *fakeStorage
	mailer   *fakeMailer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	tokens, err := auth.NewTokenService("not-a-production-secret", "alignlab", time.Hour)
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	config := &types.Config{
		ServerPort:      0,
		ReadTimeoutSec:  5,
		WriteTimeoutSec: 5,
		AppName:         "alignlab",
		FrontURL:        "http://front.test",
	}

	users := newFakeUserStore()
	requests := newFakeRequestStore(users)
	files := &fakeFileStore{}
	sessions := newFakeTokenStore()
	objectStorage := newFakeStorage()
	mailer := &fakeMailer{}

	svc := New(config, logger, tokens, users, requests, files, sessions, objectStorage, mailer)

	return &testEnv{
		svc:      svc,
		handler:  svc.Handler(),
		tokens:   tokens,
		users:    users,
		requests: requests,
		files:    files,
		sessions: sessions,
		storage:  objectStorage,
		mailer:   mailer,
	}
}

func (e *testEnv) createUser(t *testing.T, email string, admin bool) *types.User {
	t.Helper()

	hash, err := auth.HashPassword("correct horse battery")
	require.NoError(t, err)

	user := &types.User{
		Email:        email,
		FullName:     "Test " + email,
		PasswordHash: hash,
		Role:         types.UserRoleDoctor,
		IsAdmin:      admin,
		IsActive:     true,
	}
	if admin {
		user.Role = types.UserRoleLab
	}
	require.NoError(t, e.users.CreateUser(context.Background(), user))
	return user
}

// login mints a real signed token backed by a live session row.
func (e *testEnv) login(t *testing.T, user *types.User) string {
	t.Helper()

	signed, record, err := e.tokens.Mint(user.ID)
	require.NoError(t, err)
	require.NoError(t, e.sessions.CreateToken(context.Background(), record))
	return signed
}

func (e *testEnv) createRequest(t *testing.T, owner *types.User, status types.RequestStatus) *types.Request {
	t.Helper()

	request := &types.Request{
		UserID:        owner.ID,
		PatientName:   "Jane Roe",
		PatientAge:    34,
		PatientGender: types.GenderFemale,
		Status:        status,
		TermsAccepted: true,
	}
	require.NoError(t, e.requests.CreateRequest(context.Background(), request))
	return request
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) doMultipart(t *testing.T, method, path, token string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for field, fileName := range fields {
		part, err := writer.CreateFormFile(field, fileName)
		require.NoError(t, err)
		_, err = fmt.Fprintf(part, "content of %s", fileName)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[types.APIError](t, rec).Code
}
