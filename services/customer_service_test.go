package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/line-order/models"
	"github.com/yeremiapane/line-order/utils"
)

func newVerifier() *fakeVerifier {
	return &fakeVerifier{users: map[string]*LineUser{
		"token-somchai": {UserID: "U100", DisplayName: "Somchai", PictureURL: "https://profile.example/u100.png"},
		"token-malee":   {UserID: "U200", DisplayName: "Malee"},
	}}
}

func TestAuthenticateCreatesProfile(t *testing.T) {
	db := setupTestDB(t)
	svc := NewCustomerService(db, newVerifier())
	ctx := context.Background()

	result, err := svc.Authenticate(ctx, "token-somchai")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "U100", result.UserID)
	assert.False(t, result.IsRegistered)
	assert.Nil(t, result.CustomerName)

	var profile models.LineProfile
	require.NoError(t, db.Where("line_user_id = ?", "U100").First(&profile).Error)
	assert.Equal(t, "Somchai", profile.DisplayName)
	assert.True(t, profile.Followed)

	_, err = svc.Authenticate(ctx, "bogus")
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindAuthentication))
}

func TestEnsureProfileRefreshesDisplayName(t *testing.T) {
	db := setupTestDB(t)
	svc := NewCustomerService(db, newVerifier())
	ctx := context.Background()

	_, err := svc.EnsureProfile(ctx, "U100", "Old Name", "")
	require.NoError(t, err)
	profile, err := svc.EnsureProfile(ctx, "U100", "New Name", "https://profile.example/new.png")
	require.NoError(t, err)
	assert.Equal(t, "New Name", profile.DisplayName)

	profile, err = svc.EnsureProfile(ctx, "U100", "", "")
	require.NoError(t, err)
	assert.Equal(t, "New Name", profile.DisplayName)
	assert.Equal(t, "https://profile.example/new.png", profile.PictureURL)

	var count int64
	require.NoError(t, db.Model(&models.LineProfile{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRegisterNewCustomer(t *testing.T) {
	db := setupTestDB(t)
	svc := NewCustomerService(db, newVerifier())
	ctx := context.Background()

	result, err := svc.Register(ctx, "token-somchai", "0812345678")
	require.NoError(t, err)
	assert.Equal(t, RegisterRegistered, result.Status)
	assert.Equal(t, "Somchai", result.CustomerName)

	auth, err := svc.Authenticate(ctx, "token-somchai")
	require.NoError(t, err)
	assert.True(t, auth.IsRegistered)
	require.NotNil(t, auth.Phone)
	assert.Equal(t, "0812345678", *auth.Phone)

	again, err := svc.Register(ctx, "token-somchai", "0812345678")
	require.NoError(t, err)
	assert.Equal(t, RegisterAlreadyRegistered, again.Status)
	assert.Equal(t, result.CustomerID, again.CustomerID)
}

func TestRegisterLinksExistingCustomer(t *testing.T) {
	db := setupTestDB(t)
	existing := seedCustomer(t, db, "Malee Shop Account", "0899999999")
	svc := NewCustomerService(db, newVerifier())

	result, err := svc.Register(context.Background(), "token-malee", "0899999999")
	require.NoError(t, err)
	assert.Equal(t, RegisterLinked, result.Status)
	assert.Equal(t, existing.ID, result.CustomerID)
	assert.Equal(t, "Malee Shop Account", result.CustomerName)

	var count int64
	require.NoError(t, db.Model(&models.Customer{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRegisterRejectsBadPhone(t *testing.T) {
	db := setupTestDB(t)
	svc := NewCustomerService(db, newVerifier())

	for _, phone := range []string{"", "12345", "081-234-567", "08123456789", "abcdefghij"} {
		_, err := svc.Register(context.Background(), "token-somchai", phone)
		require.Error(t, err, phone)
		assert.True(t, utils.IsKind(err, utils.KindValidation), phone)
	}

	var count int64
	require.NoError(t, db.Model(&models.LineProfile{}).Count(&count).Error)
	assert.Zero(t, count)
}
