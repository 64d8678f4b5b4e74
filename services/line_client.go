package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yeremiapane/line-order/utils"
)

// LineConfig holds the Messaging API and LIFF channel settings.
type LineConfig struct {
	ChannelAccessToken string
	ChannelSecret      string
	LiffChannelID      string
	BaseURL            string
	Timeout            time.Duration
}

// LineUser is the profile behind a verified LIFF access token.
type LineUser struct {
	UserID        string `json:"userId"`
	DisplayName   string `json:"displayName"`
	PictureURL    string `json:"pictureUrl"`
	StatusMessage string `json:"statusMessage"`
}

// LineMessage is a Messaging API message object.
type LineMessage map[string]string

func TextMessage(text string) LineMessage {
	return LineMessage{"type": "text", "text": text}
}

func ImageMessage(imageURL string) LineMessage {
	return LineMessage{"type": "image", "originalContentUrl": imageURL, "previewImageUrl": imageURL}
}

// TokenVerifier resolves a LIFF access token to a LINE user.
type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, accessToken string) (*LineUser, error)
}

// Messenger sends messages to LINE users.
type Messenger interface {
	PushMessage(ctx context.Context, to string, messages ...LineMessage) error
	ReplyMessage(ctx context.Context, replyToken string, messages ...LineMessage) error
}

// LineClient talks to the LINE platform over HTTPS.
type LineClient struct {
	config     LineConfig
	httpClient *http.Client
}

func NewLineClient(config LineConfig) *LineClient {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.line.me"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	return &LineClient{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// ValidateConfig checks the settings needed for messaging.
func (lc *LineClient) ValidateConfig() error {
	if lc.config.ChannelAccessToken == "" {
		return errors.New("LINE channel access token is not configured")
	}
	if lc.config.ChannelSecret == "" {
		return errors.New("LINE channel secret is not configured")
	}
	return nil
}

func (lc *LineClient) VerifyAccessToken(ctx context.Context, accessToken string) (*LineUser, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, utils.NewAuthError("missing access_token")
	}

	verifyURL := lc.config.BaseURL + "/oauth2/v2.1/verify?access_token=" + url.QueryEscape(accessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, verifyURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	var verify struct {
		ClientID  string `json:"client_id"`
		ExpiresIn int    `json:"expires_in"`
	}
	status, err := lc.do(req, &verify)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, utils.NewAuthError("invalid or expired LIFF access token")
	}
	if verify.ExpiresIn <= 0 {
		return nil, utils.NewAuthError("LIFF access token expired")
	}
	if lc.config.LiffChannelID != "" && verify.ClientID != lc.config.LiffChannelID {
		return nil, utils.NewAuthError("access token was issued for another channel")
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, lc.config.BaseURL+"/v2/profile", nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var user LineUser
	status, err = lc.do(req, &user)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, utils.NewAuthError("failed to fetch LINE profile")
	}
	if user.UserID == "" {
		return nil, utils.NewAuthError("could not determine LINE user ID")
	}
	return &user, nil
}

func (lc *LineClient) PushMessage(ctx context.Context, to string, messages ...LineMessage) error {
	if to == "" {
		return errors.New("push message needs a recipient")
	}
	return lc.send(ctx, "/v2/bot/message/push", map[string]interface{}{
		"to":       to,
		"messages": messages,
	})
}

func (lc *LineClient) ReplyMessage(ctx context.Context, replyToken string, messages ...LineMessage) error {
	if replyToken == "" {
		return errors.New("reply message needs a reply token")
	}
	return lc.send(ctx, "/v2/bot/message/reply", map[string]interface{}{
		"replyToken": replyToken,
		"messages":   messages,
	})
}

// ValidateSignature checks the X-Line-Signature header of a webhook call.
func (lc *LineClient) ValidateSignature(body []byte, signature string) bool {
	return ValidateLineSignature(lc.config.ChannelSecret, body, signature)
}

func ValidateLineSignature(channelSecret string, body []byte, signature string) bool {
	if channelSecret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(channelSecret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (lc *LineClient) send(ctx context.Context, path string, payload interface{}) error {
	if lc.config.ChannelAccessToken == "" {
		return errors.New("LINE channel access token is not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error marshaling message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, lc.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+lc.config.ChannelAccessToken)
	if strings.HasSuffix(path, "/push") {
		req.Header.Set("X-Line-Retry-Key", uuid.NewString())
	}

	var apiErr struct {
		Message string `json:"message"`
	}
	status, err := lc.do(req, &apiErr)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("LINE API error (status %d): %s", status, apiErr.Message)
	}
	return nil
}

// do executes req and decodes a JSON body into out when there is one.
func (lc *LineClient) do(req *http.Request, out interface{}) (int, error) {
	resp, err := lc.httpClient.Do(req)
	if err != nil {
		return 0, utils.NewNetworkError(fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, utils.NewNetworkError(fmt.Errorf("error reading response: %w", err))
	}
	if len(bytes.TrimSpace(raw)) > 0 && out != nil {
		if err := json.Unmarshal(raw, out); err != nil && resp.StatusCode == http.StatusOK {
			return resp.StatusCode, fmt.Errorf("error unmarshaling response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
