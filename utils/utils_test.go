package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTHB(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{"0", "฿0.00"},
		{"30", "฿30.00"},
		{"999.999", "฿1,000.00"},
		{"1234.5", "฿1,234.50"},
		{"1234567", "฿1,234,567.00"},
		{"-250.25", "-฿250.25"},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTHB(decimal.RequireFromString(tt.amount)))
		})
	}
}

func TestFormatPoints(t *testing.T) {
	assert.Equal(t, "0", FormatPoints(0))
	assert.Equal(t, "999", FormatPoints(999))
	assert.Equal(t, "1,234", FormatPoints(1234))
	assert.Equal(t, "2,500,000", FormatPoints(2500000))
}

func TestValidatePhone(t *testing.T) {
	assert.NoError(t, ValidatePhone("0812345678"))
	assert.NoError(t, ValidatePhone(" 0812345678 "))

	for _, phone := range []string{"", "081234567", "08123456789", "081-234-5678", "08123456a8", "๐๘๑๒๓๔๕๖๗๘"} {
		err := ValidatePhone(phone)
		assert.True(t, IsKind(err, KindValidation), "phone %q", phone)
	}
}

func TestErrorKinds(t *testing.T) {
	wrapped := fmt.Errorf("settle: %w", NewBusinessError("Sales Order %s is already billed", "SO-2026-00001"))
	assert.Equal(t, KindBusiness, KindOf(wrapped))
	assert.Equal(t, "settle: Sales Order SO-2026-00001 is already billed", wrapped.Error())
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.False(t, IsKind(nil, KindInternal))

	cause := errors.New("dial tcp: connection refused")
	netErr := NewNetworkError(cause)
	assert.ErrorIs(t, netErr, cause)
	assert.Equal(t, "network error, please try again", netErr.Error())
	assert.Equal(t, "dial tcp: connection refused", (&AppError{Kind: KindInternal, Err: cause}).Error())
}

func TestHTTPStatusRoundTrip(t *testing.T) {
	kinds := []ErrorKind{KindAuthentication, KindNetwork, KindValidation, KindBusiness, KindUnregistered, KindNotFound, KindInternal}
	for _, kind := range kinds {
		assert.Equal(t, kind, KindFromStatus(HTTPStatus(kind)), string(kind))
	}
	assert.Equal(t, KindValidation, KindFromStatus(http.StatusBadRequest))
	assert.Equal(t, KindNetwork, KindFromStatus(http.StatusBadGateway))
	assert.Equal(t, KindInternal, KindFromStatus(http.StatusTeapot))
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(7, "staff", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "staff", claims.Role)

	expired, err := GenerateToken(7, "staff", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired)
	assert.Error(t, err)

	_, err = ParseToken(token + "x")
	assert.Error(t, err)
}
