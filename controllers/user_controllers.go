package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/line-order/middlewares"
	"github.com/yeremiapane/line-order/models"
	"github.com/yeremiapane/line-order/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var errInvalidCredentials = utils.NewAuthError("invalid credentials")

// UserController manages back-office staff accounts.
type UserController struct {
	DB       *gorm.DB
	TokenTTL time.Duration
}

func NewUserController(db *gorm.DB) *UserController {
	return &UserController{DB: db, TokenTTL: 12 * time.Hour}
}

type staffProfile struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (uc *UserController) staffByEmail(c *gin.Context, email string) (*models.User, error) {
	var user models.User
	err := uc.DB.WithContext(c.Request.Context()).Where("email = ?", normalizeEmail(email)).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Register creates a staff account. Only admins reach this handler.
func (uc *UserController) Register(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
		Role     string `json:"role" binding:"required,oneof=admin staff"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	existing, err := uc.staffByEmail(c, req.Email)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	if existing != nil {
		utils.RespondAppError(c, utils.NewBusinessError("email %s is already registered", existing.Email))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	user := models.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    normalizeEmail(req.Email),
		Password: string(hashed),
		Role:     req.Role,
	}
	if err := uc.DB.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		utils.RespondAppError(c, err)
		return
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"user_id":    user.ID,
		"role":       user.Role,
		"created_by": middlewares.CurrentUserID(c),
	}).Info("staff account created")
	utils.RespondJSON(c, http.StatusCreated, "User registered", gin.H{"user_id": user.ID})
}

// Login checks staff credentials and issues a JWT for the back-office desk.
func (uc *UserController) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	user, err := uc.staffByEmail(c, input.Email)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)) != nil {
		utils.InfoLogger.WithField("client_ip", c.ClientIP()).Warn("staff login rejected")
		utils.RespondAppError(c, errInvalidCredentials)
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Role, uc.TokenTTL)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	utils.InfoLogger.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("staff signed in")
	utils.RespondJSON(c, http.StatusOK, "Login successful", gin.H{
		"token":     token,
		"user_role": user.Role,
	})
}

func (uc *UserController) GetProfile(c *gin.Context) {
	var user models.User
	err := uc.DB.WithContext(c.Request.Context()).First(&user, middlewares.CurrentUserID(c)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.RespondAppError(c, utils.NewNotFoundError("staff account no longer exists"))
		return
	}
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Profile", staffProfile{ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role})
}

func (uc *UserController) GetAllUsers(c *gin.Context) {
	var users []models.User
	if err := uc.DB.WithContext(c.Request.Context()).Order("id").Find(&users).Error; err != nil {
		utils.RespondAppError(c, err)
		return
	}
	profiles := make([]staffProfile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, staffProfile{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role})
	}
	utils.RespondJSON(c, http.StatusOK, "Staff accounts", profiles)
}
