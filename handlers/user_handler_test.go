package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/storeforge/access-plane/authz"
	"github.com/storeforge/access-plane/middleware"
	"github.com/storeforge/access-plane/models"
	"github.com/storeforge/access-plane/services"
	"github.com/storeforge/access-plane/token"
)

// MockUserAuditor is a mock implementation of UserAuditor
type MockUserAuditor struct {
	mock.Mock
}

func (m *MockUserAuditor) LogUserCreated(user *models.User, creatorID uuid.UUID) error {
	args := m.Called(user, creatorID)
	return args.Error(0)
}

func (m *MockUserAuditor) LogUserUpdated(user *models.User, updaterID uuid.UUID, changes map[string]interface{}) error {
	args := m.Called(user, updaterID, changes)
	return args.Error(0)
}

func userRouter(h *UserHandler) chi.Router {
	r := chi.NewRouter()
	r.Get("/users", h.HandleList)
	r.Post("/users", h.HandleCreate)
	r.Get("/users/{userID}", h.HandleGet)
	r.Put("/users/{userID}", h.HandleUpdate)
	r.Delete("/users/{userID}", h.HandleDelete)
	return r
}

func userContext(req *http.Request, userID, storeID uuid.UUID, role authz.Role) *http.Request {
	claims := &token.ParsedClaims{
		Sub:     userID,
		Email:   "caller@example.com",
		StoreID: storeID,
		Role:    role,
	}
	ctx := middleware.WithClaims(req.Context(), claims)
	ctx = middleware.WithRole(ctx, role)
	return req.WithContext(ctx)
}

func TestUserHandlerList(t *testing.T) {
	logger := zap.NewNop()

	t.Run("lists users of the caller's store", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		h := NewUserHandler(userRepo, nil, logger)

		storeID := uuid.New()
		users := []*models.User{
			{ID: uuid.New(), Email: "a@example.com", StoreID: storeID, Role: authz.RoleStaff},
			{ID: uuid.New(), Email: "b@example.com", StoreID: storeID, Role: authz.RoleAdmin},
		}
		userRepo.On("GetByStoreID", mock.Anything, storeID).Return(users, nil)

		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		req = userContext(req, uuid.New(), storeID, authz.RoleSuperAdmin)

		w := httptest.NewRecorder()
		userRouter(h).ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data []*models.User `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.Data, 2)
	})

	t.Run("unauthenticated returns 401", func(t *testing.T) {
		h := NewUserHandler(new(MockUserRepository), nil, logger)

		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		w := httptest.NewRecorder()
		userRouter(h).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestUserHandlerCreate(t *testing.T) {
	logger := zap.NewNop()

	t.Run("creates user with hashed password", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		auditor := new(MockUserAuditor)
		h := NewUserHandler(userRepo, auditor, logger)

		creatorID := uuid.New()
		storeID := uuid.New()

		userRepo.On("GetByEmail", mock.Anything, "new@example.com").
			Return(nil, services.ErrUserNotFound)
		userRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
			if u.Email != "new@example.com" || u.StoreID != storeID || u.Role != authz.RoleStaff {
				return false
			}
			return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("s3cret-pass")) == nil
		})).Return(nil)
		auditor.On("LogUserCreated", mock.Anything, creatorID).Return(nil)

		body, _ := json.Marshal(CreateUserRequest{
			Email:    "new@example.com",
			Password: "s3cret-pass",
			Role:     "STAFF",
		})
		req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewReader(body))
		req = userContext(req, creatorID, storeID, authz.RoleSuperAdmin)

		w := httptest.NewRecorder()
		userRouter(h).ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		userRepo.AssertExpectations(t)
		auditor.AssertExpectations(t)
	})

	t.Run("duplicate email returns 409", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		h := NewUserHandler(userRepo, nil, logger)

		existing := &models.User{ID: uuid.New(), Email: "new@example.com"}
		userRepo.On("GetByEmail", mock.Anything, "new@example.com").Return(existing, nil)

		body, _ := json.Marshal(CreateUserRequest{
			Email:    "new@example.com",
			Password: "s3cret-pass",
			Role:     "STAFF",
		})
		req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewReader(body))
		req = userContext(req, uuid.New(), uuid.New(), authz.RoleSuperAdmin)

		w := httptest.NewRecorder()
		userRouter(h).ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("unknown role returns 400", func(t *testing.T) {
		h := NewUserHandler(new(MockUserRepository), nil, logger)

		body, _ := json.Marshal(CreateUserRequest{
			Email:    "new@example.com",
			Password: "s3cret-pass",
			Role:     "WIZARD",
		})
		req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewReader(body))
		req = userContext(req, uuid.New(), uuid.New(), authz.RoleSuperAdmin)

		w := httptest.NewRecorder()
		userRouter(h).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("short password fails validation", func(t *testing.T) {
		h := NewUserHandler(new(MockUserRepository), nil, logger)

		body, _ := json.Marshal(CreateUserRequest{
			Email:    "new@example.com",
			Password: "short",
			Role:     "STAFF",
		})
		req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewReader(body))
		req = userContext(req, uuid.New(), uuid.New(), authz.RoleSuperAdmin)

		w := httptest.NewRecorder()
		userRouter(h).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUserHandlerGet(t *testing.T) {
	logger := zap.NewNop()

	t.Run("returns user in same store", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		h := NewUserHandler(userRepo, nil, logger)

		storeID := uuid.New()
		target := &models.User{ID: uuid.New(), Email: "t@example.com", StoreID: storeID, Role: authz.RoleStaff}
		userRepo.On("GetByID", mock.Anything, target.ID).Return(target, nil)

		req := httptest.NewRequest(http.MethodGet, "/users/"+target.ID.String(), nil)
		req = userContext(req, uuid.New(), storeID, authz.RoleAdmin)

		w := httptest.NewRecorder()
		userRouter(h).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("hides user from another store", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		h := NewUserHandler(userRepo, nil, logger)

		target := &models.User{ID: uuid.New(), StoreID: uuid.New(), Role: authz.RoleStaff}
		userRepo.On("GetByID", mock.Anything, target.ID).Return(target, nil)

		req := httptest.NewRequest(http.MethodGet, "/users/"+target.ID.String(), nil)
		req = userContext(req, uuid.New(), uuid.New(), authz.RoleAdmin)

		w := httptest.NewRecorder()
		userRouter(h).ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("super admin sees across stores", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		h := NewUserHandler(userRepo, nil, logger)

		target := &models.User{ID: uuid.New(), StoreID: uuid.New(), Role: authz.RoleStaff}
		userRepo.On("GetByID", mock.Anything, target.ID).Return(target, nil)

		req := httptest.NewRequest(http.MethodGet, "/users/"+target.ID.String(), nil)
		req = userContext(req, uuid.New(), uuid.New(), authz.RoleSuperAdmin)

		w := httptest.NewRecorder()
		userRouter(h).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestUserHandlerUpdate(t *testing.T) {
	logger := zap.NewNop()

	t.Run("updates role and records changes", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		auditor := new(MockUserAuditor)
		h := NewUserHandler(userRepo, auditor, logger)

		updaterID := uuid.New()
		storeID := uuid.New()
		target := &models.User{ID: uuid.New(), Email: "t@example.com", StoreID: storeID, Role: authz.RoleStaff}

		userRepo.On("GetByID", mock.Anything, target.ID).Return(target, nil)
		userRepo.On("Update", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
			return u.Role == authz.RoleAdmin
		})).Return(nil)
		auditor.On("LogUserUpdated", mock.Anything, updaterID, map[string]interface{}{"role": "ADMIN"}).Return(nil)

		body, _ := json.Marshal(UpdateUserRequest{Role: "ADMIN"})
		req := httptest.NewRequest(http.MethodPut, "/users/"+target.ID.String(), bytes.NewReader(body))
		req = userContext(req, updaterID, storeID, authz.RoleSuperAdmin)

		w := httptest.NewRecorder()
		userRouter(h).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		userRepo.AssertExpectations(t)
		auditor.AssertExpectations(t)
	})

	t.Run("missing user returns 404", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		h := NewUserHandler(userRepo, nil, logger)

		targetID := uuid.New()
		userRepo.On("GetByID", mock.Anything, targetID).Return(nil, services.ErrUserNotFound)

		body, _ := json.Marshal(UpdateUserRequest{Role: "ADMIN"})
		req := httptest.NewRequest(http.MethodPut, "/users/"+targetID.String(), bytes.NewReader(body))
		req = userContext(req, uuid.New(), uuid.New(), authz.RoleSuperAdmin)

		w := httptest.NewRecorder()
		userRouter(h).ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestUserHandlerDelete(t *testing.T) {
	logger := zap.NewNop()

	t.Run("deletes user in same store", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		h := NewUserHandler(userRepo, nil, logger)

		storeID := uuid.New()
		target := &models.User{ID: uuid.New(), StoreID: storeID, Role: authz.RoleStaff}
		userRepo.On("GetByID", mock.Anything, target.ID).Return(target, nil)
		userRepo.On("Delete", mock.Anything, target.ID).Return(nil)

		req := httptest.NewRequest(http.MethodDelete, "/users/"+target.ID.String(), nil)
		req = userContext(req, uuid.New(), storeID, authz.RoleAdmin)

		w := httptest.NewRecorder()
		userRouter(h).ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		userRepo.AssertExpectations(t)
	})
}
