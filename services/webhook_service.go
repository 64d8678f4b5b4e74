package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/yeremiapane/line-order/kds"
	"github.com/yeremiapane/line-order/models"
	"github.com/yeremiapane/line-order/utils"
	"gorm.io/gorm"
)

const (
	registerPrompt       = "สวัสดีค่า! เพื่อทำการลงทะเบียน กรุณาส่งชื่อที่ต้องการใช้งานมาให้เราค่ะ"
	askPhonePrompt       = "ขอบคุณค่า! ตอนนี้กรุณาส่งหมายเลขโทรศัพท์ 10 หลักของคุณ (ไม่มีขีดหรือตัวอักษรอื่นๆ) มาให้เราค่ะ"
	invalidPhonePrompt   = "กรุณาส่งหมายเลขโทรศัพท์ 10 หลักของคุณ (ไม่มีขีดหรือตัวอักษรอื่นๆ)."
	alreadyRegisteredMsg = "สวัสดีค่าคุณ %s คุณได้ทำการสมัครสมาชิกไปเรียบร้อยแล้ว"
	followGreeting       = "Thanks for following us!"
)

// WebhookEvent is the subset of a LINE webhook event this service reads.
type WebhookEvent struct {
	Type       string `json:"type"`
	ReplyToken string `json:"replyToken"`
	Source     struct {
		Type   string `json:"type"`
		UserID string `json:"userId"`
	} `json:"source"`
	Message struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"message"`
}

type WebhookPayload struct {
	Destination string         `json:"destination"`
	Events      []WebhookEvent `json:"events"`
}

// WebhookService handles follow state and the chat registration dialogue.
type WebhookService struct {
	db        *gorm.DB
	customers *CustomerService
	messenger Messenger
	events    Broadcaster
}

func NewWebhookService(db *gorm.DB, customers *CustomerService, messenger Messenger, events Broadcaster) *WebhookService {
	return &WebhookService{db: db, customers: customers, messenger: messenger, events: broadcasterOrNoop(events)}
}

// HandlePayload processes every event. A failing event is logged and does
// not stop the others.
func (s *WebhookService) HandlePayload(ctx context.Context, payload WebhookPayload) {
	for _, event := range payload.Events {
		if err := s.HandleEvent(ctx, event); err != nil {
			utils.ErrorLogger.WithError(err).WithField("type", event.Type).Error("LINE webhook event failed")
		}
	}
}

func (s *WebhookService) HandleEvent(ctx context.Context, event WebhookEvent) error {
	userID := event.Source.UserID
	if userID == "" {
		return nil
	}

	profile, err := s.customers.EnsureProfile(ctx, userID, "", "")
	if err != nil {
		return err
	}

	switch event.Type {
	case "unfollow":
		return s.db.WithContext(ctx).Model(profile).Update("followed", false).Error
	case "follow":
		if err := s.db.WithContext(ctx).Model(profile).Update("followed", true).Error; err != nil {
			return err
		}
		return s.reply(ctx, event.ReplyToken, followGreeting)
	case "message":
		if event.Message.Type != "text" {
			return nil
		}
		return s.handleText(ctx, profile, event.ReplyToken, strings.TrimSpace(event.Message.Text))
	}
	return nil
}

func (s *WebhookService) handleText(ctx context.Context, profile *models.LineProfile, replyToken, text string) error {
	db := s.db.WithContext(ctx)

	switch profile.RegistrationStage {
	case models.StageAwaitingName:
		if err := db.Model(profile).Updates(map[string]interface{}{
			"registration_stage": models.StageAwaitingPhone,
			"pending_name":       text,
		}).Error; err != nil {
			return err
		}
		return s.reply(ctx, replyToken, askPhonePrompt)
	case models.StageAwaitingPhone:
		if utils.ValidatePhone(text) != nil {
			return s.reply(ctx, replyToken, invalidPhonePrompt)
		}
		return s.link(ctx, profile, profile.PendingName, text, replyToken)
	}

	if strings.EqualFold(text, "register") || text == "สมัคร" {
		if profile.IsRegistered() {
			return s.reply(ctx, replyToken, alreadyRegisteredReply(profile))
		}
		if err := db.Model(profile).Updates(map[string]interface{}{
			"registration_stage": models.StageAwaitingName,
			"pending_name":       "",
		}).Error; err != nil {
			return err
		}
		return s.reply(ctx, replyToken, registerPrompt)
	}

	if utils.ValidatePhone(text) == nil {
		return s.link(ctx, profile, profile.DisplayName, text, replyToken)
	}
	return nil
}

func alreadyRegisteredReply(profile *models.LineProfile) string {
	name := profile.DisplayName
	if profile.Customer != nil {
		name = profile.Customer.CustomerName
	}
	return fmt.Sprintf(alreadyRegisteredMsg, name)
}

func (s *WebhookService) link(ctx context.Context, profile *models.LineProfile, name, phone, replyToken string) error {
	result, err := s.customers.LinkByPhone(ctx, profile, name, phone)
	if err != nil {
		return err
	}
	s.events.Broadcast(kds.EventCustomerRegistered, result)

	switch result.Status {
	case RegisterAlreadyRegistered:
		return s.reply(ctx, replyToken, fmt.Sprintf(alreadyRegisteredMsg, result.CustomerName))
	case RegisterLinked:
		return s.reply(ctx, replyToken, "Linked to customer "+result.CustomerName+". Thank you!")
	default:
		return s.reply(ctx, replyToken, "ลงทะเบียนเรียบร้อยแล้วค่ะ คุณ "+result.CustomerName)
	}
}

func (s *WebhookService) reply(ctx context.Context, replyToken, text string) error {
	if s.messenger == nil || replyToken == "" {
		return nil
	}
	return s.messenger.ReplyMessage(ctx, replyToken, TextMessage(text))
}
