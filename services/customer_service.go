package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/line-order/models"
	"github.com/yeremiapane/line-order/utils"
	"gorm.io/gorm"
)

// Registration outcomes returned to the mini app.
const (
	RegisterAlreadyRegistered = "already_registered"
	RegisterLinked            = "linked"
	RegisterRegistered        = "registered"
)

type CustomerService struct {
	db       *gorm.DB
	verifier TokenVerifier
}

func NewCustomerService(db *gorm.DB, verifier TokenVerifier) *CustomerService {
	return &CustomerService{db: db, verifier: verifier}
}

// AuthResult is the authenticate payload.
type AuthResult struct {
	Success      bool    `json:"success"`
	UserID       string  `json:"user_id"`
	DisplayName  string  `json:"display_name"`
	PictureURL   string  `json:"picture_url"`
	IsRegistered bool    `json:"is_registered"`
	CustomerName *string `json:"customer_name"`
	CustomerID   *uint   `json:"customer_id"`
	Phone        *string `json:"phone"`
}

type RegisterResult struct {
	Status       string `json:"status"`
	CustomerID   uint   `json:"customer_id"`
	CustomerName string `json:"customer_name"`
}

// Resolve verifies the token and returns the stored profile, creating it on
// first contact.
func (s *CustomerService) Resolve(ctx context.Context, accessToken string) (*models.LineProfile, *LineUser, error) {
	user, err := s.verifier.VerifyAccessToken(ctx, accessToken)
	if err != nil {
		return nil, nil, err
	}
	profile, err := s.EnsureProfile(ctx, user.UserID, user.DisplayName, user.PictureURL)
	if err != nil {
		return nil, nil, err
	}
	return profile, user, nil
}

// EnsureProfile creates or refreshes the LINE profile for lineUserID.
func (s *CustomerService) EnsureProfile(ctx context.Context, lineUserID, displayName, pictureURL string) (*models.LineProfile, error) {
	var profile models.LineProfile
	err := s.db.WithContext(ctx).Preload("Customer").Where("line_user_id = ?", lineUserID).First(&profile).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		profile = models.LineProfile{
			LineUserID:  lineUserID,
			DisplayName: displayName,
			PictureURL:  pictureURL,
			Followed:    true,
		}
		if err := s.db.WithContext(ctx).Create(&profile).Error; err != nil {
			return nil, fmt.Errorf("create line profile: %w", err)
		}
		utils.InfoLogger.WithField("line_user_id", lineUserID).Info("LINE profile created")
		return &profile, nil
	case err != nil:
		return nil, fmt.Errorf("load line profile: %w", err)
	}

	updates := map[string]interface{}{}
	if displayName != "" && displayName != profile.DisplayName {
		updates["display_name"] = displayName
		profile.DisplayName = displayName
	}
	if pictureURL != "" && pictureURL != profile.PictureURL {
		updates["picture_url"] = pictureURL
		profile.PictureURL = pictureURL
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&profile).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update line profile: %w", err)
		}
	}
	return &profile, nil
}

func (s *CustomerService) Authenticate(ctx context.Context, accessToken string) (*AuthResult, error) {
	profile, user, err := s.Resolve(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return NewAuthResult(profile, user), nil
}

// NewAuthResult builds the authenticate payload for a resolved profile.
func NewAuthResult(profile *models.LineProfile, user *LineUser) *AuthResult {
	result := &AuthResult{
		Success:      true,
		UserID:       user.UserID,
		DisplayName:  user.DisplayName,
		PictureURL:   user.PictureURL,
		IsRegistered: profile.IsRegistered(),
		CustomerID:   profile.CustomerID,
	}
	if profile.Customer != nil {
		result.CustomerName = &profile.Customer.CustomerName
		if profile.Customer.MobileNo != "" {
			result.Phone = &profile.Customer.MobileNo
		}
	}
	return result
}

// Register links the caller to a customer by phone, creating the customer
// when the phone is unknown.
func (s *CustomerService) Register(ctx context.Context, accessToken, phone string) (*RegisterResult, error) {
	phone = strings.TrimSpace(phone)
	if err := utils.ValidatePhone(phone); err != nil {
		return nil, err
	}

	profile, user, err := s.Resolve(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return s.LinkByPhone(ctx, profile, user.DisplayName, phone)
}

// LinkByPhone is shared by the mini app and the chat registration flow.
func (s *CustomerService) LinkByPhone(ctx context.Context, profile *models.LineProfile, name, phone string) (*RegisterResult, error) {
	if err := utils.ValidatePhone(phone); err != nil {
		return nil, err
	}
	if profile.IsRegistered() {
		var customer models.Customer
		if err := s.db.WithContext(ctx).First(&customer, *profile.CustomerID).Error; err != nil {
			return nil, fmt.Errorf("load linked customer: %w", err)
		}
		return &RegisterResult{Status: RegisterAlreadyRegistered, CustomerID: customer.ID, CustomerName: customer.CustomerName}, nil
	}

	var result RegisterResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var customer models.Customer
		err := tx.Where("mobile_no = ?", phone).First(&customer).Error
		switch {
		case err == nil:
			result.Status = RegisterLinked
		case errors.Is(err, gorm.ErrRecordNotFound):
			if strings.TrimSpace(name) == "" {
				name = "LINE " + phone
			}
			customer = models.Customer{CustomerName: strings.TrimSpace(name), MobileNo: phone}
			if err := tx.Create(&customer).Error; err != nil {
				return fmt.Errorf("create customer: %w", err)
			}
			result.Status = RegisterRegistered
		default:
			return err
		}

		if err := tx.Model(profile).Updates(map[string]interface{}{
			"customer_id":        customer.ID,
			"registration_stage": models.StageNone,
			"pending_name":       "",
		}).Error; err != nil {
			return fmt.Errorf("link profile: %w", err)
		}
		profile.CustomerID = &customer.ID
		profile.Customer = &customer
		result.CustomerID = customer.ID
		result.CustomerName = customer.CustomerName
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"line_user_id": profile.LineUserID,
		"customer_id":  result.CustomerID,
		"status":       result.Status,
	}).Info("LINE profile registered")
	return &result, nil
}
