package routes

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"digiestate-server/models"
	"digiestate-server/services"
	"digiestate-server/storage"
	"digiestate-server/utils"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

type CreateMessageInput struct {
	SenderID    uint     `json:"senderID" validate:"required"`
	ReceiverID  uint     `json:"receiverID" validate:"required"`
	Content     string   `json:"content" validate:"required,max=5000"`
	Attachments []string `json:"attachments" validate:"omitempty,dive,max=2048"`
	PropertyID  *uint    `json:"propertyID"`
}

// CreateMessage persists a direct message. The conversation id is derived
// server-side from the participant pair; an optional property reference is
// resolved into a snapshot at send time.
func CreateMessage(ctx iris.Context) {
	var input CreateMessageInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)
	if input.SenderID != claims.ID {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}

	content := strings.TrimSpace(input.Content)
	if content == "" {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "content must not be empty", ctx)
		return
	}

	var sender models.User
	senderLookup := storage.DB.Where("id = ?", input.SenderID).Limit(1).Find(&sender)
	if senderLookup.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if senderLookup.RowsAffected == 0 {
		utils.CreateError(iris.StatusNotFound, "Not Found", "Sender not found", ctx)
		return
	}

	var receiver models.User
	receiverLookup := storage.DB.Where("id = ?", input.ReceiverID).Limit(1).Find(&receiver)
	if receiverLookup.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if receiverLookup.RowsAffected == 0 {
		utils.CreateError(iris.StatusNotFound, "Not Found", "Receiver not found", ctx)
		return
	}

	attachments := input.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	attachmentsJSON, marshalErr := json.Marshal(attachments)
	if marshalErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	message := models.Message{
		ConversationID: utils.DeriveConversationID(sender.ID, receiver.ID),
		SenderID:       sender.ID,
		ReceiverID:     receiver.ID,
		Content:        content,
		Attachments:    attachmentsJSON,
	}

	// Property context is best-effort: a bad or deleted listing id degrades to
	// a message without a snapshot, it never fails the send.
	propertyTitle := ""
	if input.PropertyID != nil {
		var property models.Property
		if err := storage.DB.First(&property, *input.PropertyID).Error; err != nil {
			log.Printf("message: snapshot lookup for property %d failed: %v", *input.PropertyID, err)
		} else {
			message.PropertyID = &property.ID
			message.PropertyTitle = property.Title
			message.PropertyLocation = property.Location()
			message.PropertyPrice = property.NightlyPrice
			if images := property.ImageURLs(); len(images) > 0 {
				message.PropertyImageURL = images[0]
			}
			propertyTitle = property.Title
		}
	}

	if err := storage.DB.Create(&message).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	message.Sender = sender
	message.Receiver = receiver

	go services.NotificationServiceInstance.NotifyNewMessage(
		receiver.ID, sender.ID, sender.DisplayName(), propertyTitle)

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(&message)
}

// ListMessages: GET /api/messages?conversationID=...
// Rows are scoped to the requester; a user who was never party to the
// conversation gets an empty list, not an authorization error.
func ListMessages(ctx iris.Context) {
	conversationID := ctx.URLParam("conversationID")
	if conversationID == "" {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "conversationID is required", ctx)
		return
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)

	messages := []models.Message{}
	if err := storage.DB.
		Where("conversation_id = ? AND (sender_id = ? OR receiver_id = ?)",
			conversationID, claims.ID, claims.ID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"messages": messages})
}

type conversationCounterpart struct {
	ID          uint   `json:"id"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarURL"`
}

type conversationSummary struct {
	ConversationID string                  `json:"conversationID"`
	Counterpart    conversationCounterpart `json:"counterpart"`
	LastMessage    *models.Message         `json:"lastMessage"`
	UnreadCount    int                     `json:"unreadCount"`
	PropertyID     *uint                   `json:"propertyID,omitempty"`
}

// ListConversations derives the requester's conversation list from the message
// table: one row per conversation with its most recent message and an unread
// count. Counterpart display data is resolved live, unlike property snapshots.
func ListConversations(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)
	userID := claims.ID

	var messages []models.Message
	if err := storage.DB.
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at DESC, id DESC").
		Find(&messages).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	// Messages arrive newest first, so the first row seen per conversation is
	// its last message and the append order is already the response order.
	summaries := []*conversationSummary{}
	byConversation := map[string]*conversationSummary{}
	for i := range messages {
		message := &messages[i]

		summary, seen := byConversation[message.ConversationID]
		if !seen {
			counterpartID := message.SenderID
			if message.SenderID == userID {
				counterpartID = message.ReceiverID
			}
			summary = &conversationSummary{
				ConversationID: message.ConversationID,
				Counterpart:    conversationCounterpart{ID: counterpartID},
				LastMessage:    message,
				PropertyID:     message.PropertyID,
			}
			byConversation[message.ConversationID] = summary
			summaries = append(summaries, summary)
		}

		if message.ReceiverID == userID && !message.IsRead {
			summary.UnreadCount++
		}
	}

	counterpartIDs := make([]uint, 0, len(summaries))
	for _, summary := range summaries {
		counterpartIDs = append(counterpartIDs, summary.Counterpart.ID)
	}

	if len(counterpartIDs) > 0 {
		var counterparts []models.User
		if err := storage.DB.Where("id IN ?", counterpartIDs).Find(&counterparts).Error; err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
		usersByID := make(map[uint]*models.User, len(counterparts))
		for i := range counterparts {
			usersByID[counterparts[i].ID] = &counterparts[i]
		}
		for _, summary := range summaries {
			if user, ok := usersByID[summary.Counterpart.ID]; ok {
				summary.Counterpart.DisplayName = user.DisplayName()
				summary.Counterpart.AvatarURL = user.AvatarURL
			}
		}
	}

	ctx.JSON(iris.Map{"conversations": summaries})
}

// MarkMessageRead: PATCH /api/messages/{id}/read
// Only the receiver may flip the flag. A missing message and someone else's
// message produce the same not-found answer so existence never leaks.
// Idempotent: re-marking an already read message succeeds and still bumps the
// update timestamp.
func MarkMessageRead(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "invalid message id", ctx)
		return
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)

	var message models.Message
	lookup := storage.DB.Where("id = ? AND receiver_id = ?", id, claims.ID).Limit(1).Find(&message)
	if lookup.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if lookup.RowsAffected == 0 {
		utils.CreateError(iris.StatusNotFound, "Not Found", "Message not found", ctx)
		return
	}

	if err := storage.DB.Model(&message).Updates(map[string]interface{}{"is_read": true}).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if err := storage.DB.Preload("Sender").Preload("Receiver").First(&message, message.ID).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(&message)
}

type MarkConversationReadInput struct {
	ConversationID string `json:"conversationID" validate:"required"`
}

// MarkConversationRead: POST /api/conversations/read
// Bulk-marks every unread message addressed to the requester. Zero eligible
// rows is a success with updatedCount 0.
func MarkConversationRead(ctx iris.Context) {
	var input MarkConversationReadInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)

	result := storage.DB.Model(&models.Message{}).
		Where("conversation_id = ? AND receiver_id = ? AND is_read = ?",
			input.ConversationID, claims.ID, false).
		Update("is_read", true)
	if result.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"updatedCount": result.RowsAffected})
}

type TypingInput struct {
	ConversationID string `json:"conversationID" validate:"required"`
}

// Typing sets a short-lived Redis key announcing the requester is typing.
func Typing(ctx iris.Context) {
	var input TypingInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)
	if !utils.ConversationParticipant(input.ConversationID, claims.ID) {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}

	storage.Redis.Set(ctx, typingKey(input.ConversationID, claims.ID), "1", 5*time.Second)
	ctx.JSON(iris.Map{"success": true})
}

// ListTyping reports whether the counterpart currently has a typing key set.
func ListTyping(ctx iris.Context) {
	conversationID := ctx.URLParam("conversationID")
	claims := jwt.Get(ctx).(*utils.AccessToken)

	a, b, err := utils.ParseConversationID(conversationID)
	if err != nil || (claims.ID != a && claims.ID != b) {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}

	counterpartID := a
	if claims.ID == a {
		counterpartID = b
	}

	typing := []iris.Map{}
	if val, err := storage.Redis.Get(ctx, typingKey(conversationID, counterpartID)).Result(); err == nil && val == "1" {
		var counterpart models.User
		if err := storage.DB.First(&counterpart, counterpartID).Error; err == nil {
			typing = append(typing, iris.Map{
				"userID": counterpartID,
				"name":   counterpart.DisplayName(),
			})
		}
	}

	ctx.JSON(iris.Map{"success": true, "typing": typing})
}

func typingKey(conversationID string, userID uint) string {
	return fmt.Sprintf("typing:%s:user:%d", conversationID, userID)
}
