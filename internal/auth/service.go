package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/oggyb/vivahvows/internal/app"
	"github.com/oggyb/vivahvows/internal/db"
	"github.com/oggyb/vivahvows/internal/httperr"
	"github.com/oggyb/vivahvows/internal/repository"
)

// Service implements account registration and login. Email
// verification and password-reset delivery are external collaborators
// and not part of this service.
type Service struct {
	appCtx   *app.AppContext
	userRepo *repository.UserRepository
}

// NewService creates the auth service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		userRepo: repository.NewUserRepository(appCtx.DB),
	}
}

type registerRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register creates a user account and its empty profile.
func (s *Service) Register(ctx context.Context, username, email, password string) (*db.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := db.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Active:       true,
		LastLoginAt:  time.Now().UTC(),
	}
	if err := s.userRepo.CreateWithProfile(ctx, &user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, httperr.Validation("username or email already taken")
		}
		return nil, err
	}
	return &user, nil
}

// Login verifies credentials and returns the user on success.
func (s *Service) Login(ctx context.Context, username, password string) (*db.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httperr.Unauthorized("invalid credentials")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, httperr.Unauthorized("invalid credentials")
	}
	if !user.Active {
		return nil, httperr.Permission("account is deactivated")
	}

	_ = s.userRepo.TouchLogin(ctx, user.ID)
	return user, nil
}

// HandleRegister handles POST /auth/register.
func (s *Service) HandleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Render(c, httperr.Validation(err.Error()))
		return
	}

	user, err := s.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		s.appCtx.Logger.Error("register failed", "username", req.Username, "err", err)
		httperr.Render(c, err)
		return
	}

	token, err := IssueToken(s.appCtx.Cfg, user.ID)
	if err != nil {
		httperr.Render(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"token":    token,
	})
}

// HandleLogin handles POST /auth/login.
func (s *Service) HandleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Render(c, httperr.Validation(err.Error()))
		return
	}

	user, err := s.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		httperr.Render(c, err)
		return
	}

	token, err := IssueToken(s.appCtx.Cfg, user.ID)
	if err != nil {
		httperr.Render(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"token":    token,
	})
}

// RegisterRoutes attaches the public auth endpoints.
func (s *Service) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/auth")
	{
		group.POST("/register", s.HandleRegister)
		group.POST("/login", s.HandleLogin)
	}
}
