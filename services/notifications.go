package services

import (
	"encoding/json"
	"fmt"
	"log"

	"digiestate-server/models"
	"digiestate-server/storage"
	"digiestate-server/utils"
)

// NotificationService handles all push notification logic. Every send is
// fire-and-forget from the caller's perspective: failures are logged, never
// propagated into the request that triggered them.
type NotificationService struct{}

func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// NotificationData is the data payload attached to a push for deep linking.
type NotificationData struct {
	Type       string `json:"type"`
	ID         string `json:"id,omitempty"`
	PropertyID string `json:"propertyId,omitempty"`
	UserID     string `json:"userId,omitempty"`
	Screen     string `json:"screen"`
	Params     string `json:"params,omitempty"`
}

func (ns *NotificationService) getUserPushTokens(userID uint) ([]string, error) {
	var user models.User
	if err := storage.DB.First(&user, userID).Error; err != nil {
		return nil, fmt.Errorf("user not found: %v", err)
	}

	if user.AllowsNotifications == nil || !*user.AllowsNotifications || user.PushTokens == nil {
		return nil, fmt.Errorf("user %d has notifications disabled or no tokens", userID)
	}

	var tokens []string
	if err := json.Unmarshal(user.PushTokens, &tokens); err != nil {
		return nil, fmt.Errorf("failed to unmarshal push tokens: %v", err)
	}

	return tokens, nil
}

// SendNotificationToUser fans a notification out to every registered token of a user.
func (ns *NotificationService) SendNotificationToUser(userID uint, title, body string, data NotificationData) error {
	tokens, err := ns.getUserPushTokens(userID)
	if err != nil {
		log.Printf("push: no deliverable tokens for user %d: %v", userID, err)
		return err
	}

	dataMap := map[string]string{
		"type":       data.Type,
		"id":         data.ID,
		"propertyId": data.PropertyID,
		"userId":     data.UserID,
		"screen":     data.Screen,
		"params":     data.Params,
	}

	var lastError error
	for _, token := range tokens {
		if err := utils.SendNotification(token, title, body, dataMap); err != nil {
			log.Printf("push: failed to send to token %s: %v", token, err)
			lastError = err
		}
	}

	return lastError
}

// NotifyNewMessage tells the receiver that a message arrived. Invoked after a
// successful send; a delivery failure never fails the send.
func (ns *NotificationService) NotifyNewMessage(receiverID, senderID uint, senderDisplayName, propertyTitle string) error {
	title := "New Message"
	body := fmt.Sprintf("%s sent you a message", senderDisplayName)
	if propertyTitle != "" {
		body = fmt.Sprintf("%s sent you a message about %s", senderDisplayName, propertyTitle)
	}

	params := fmt.Sprintf(`{"senderId": %d}`, senderID)

	data := NotificationData{
		Type:   "message_received",
		UserID: fmt.Sprintf("%d", senderID),
		Screen: "Messages",
		Params: params,
	}

	return ns.SendNotificationToUser(receiverID, title, body, data)
}

// NotifyBookingRequested tells a host that a reservation was made on their listing.
func (ns *NotificationService) NotifyBookingRequested(reservationID, propertyID, hostID, guestID uint, guestName, propertyTitle string) error {
	title := "New Booking Request"
	body := fmt.Sprintf("%s requested to book %s", guestName, propertyTitle)

	params := fmt.Sprintf(`{"reservationId": %d, "propertyId": %d, "guestId": %d}`, reservationID, propertyID, guestID)

	data := NotificationData{
		Type:       "reservation_created",
		ID:         fmt.Sprintf("%d", reservationID),
		PropertyID: fmt.Sprintf("%d", propertyID),
		UserID:     fmt.Sprintf("%d", guestID),
		Screen:     "HostReservations",
		Params:     params,
	}

	return ns.SendNotificationToUser(hostID, title, body, data)
}

// NotifyBookingDecision tells a guest that the host accepted or declined.
func (ns *NotificationService) NotifyBookingDecision(reservationID, propertyID, guestID uint, propertyTitle, status string) error {
	var title, body string
	switch status {
	case "confirmed":
		title = "Booking Confirmed"
		body = fmt.Sprintf("Your booking for %s was confirmed", propertyTitle)
	case "declined":
		title = "Booking Declined"
		body = fmt.Sprintf("Your booking for %s was declined", propertyTitle)
	default:
		title = "Booking Update"
		body = fmt.Sprintf("Your booking for %s is now %s", propertyTitle, status)
	}

	params := fmt.Sprintf(`{"reservationId": %d, "propertyId": %d}`, reservationID, propertyID)

	data := NotificationData{
		Type:       "reservation_" + status,
		ID:         fmt.Sprintf("%d", reservationID),
		PropertyID: fmt.Sprintf("%d", propertyID),
		Screen:     "MyReservations",
		Params:     params,
	}

	return ns.SendNotificationToUser(guestID, title, body, data)
}

// NotifyPropertyStatus tells a host about a moderation decision on their listing.
func (ns *NotificationService) NotifyPropertyStatus(propertyID, hostID uint, propertyTitle, status string) error {
	var title, body string
	switch status {
	case "approved":
		title = "Listing Approved"
		body = fmt.Sprintf("Your listing '%s' was approved and is now visible.", propertyTitle)
	case "rejected":
		title = "Listing Rejected"
		body = fmt.Sprintf("Your listing '%s' was rejected. Review the notes and resubmit.", propertyTitle)
	default:
		title = "Listing Update"
		body = fmt.Sprintf("Your listing '%s' status changed to %s", propertyTitle, status)
	}

	params := fmt.Sprintf(`{"propertyId": %d, "status": "%s"}`, propertyID, status)

	data := NotificationData{
		Type:       "property_status_changed",
		ID:         fmt.Sprintf("%d", propertyID),
		PropertyID: fmt.Sprintf("%d", propertyID),
		Screen:     "MyProperties",
		Params:     params,
	}

	return ns.SendNotificationToUser(hostID, title, body, data)
}

// NotifyComplaintUpdate tells a reporter that their complaint or appeal moved.
func (ns *NotificationService) NotifyComplaintUpdate(complaintID, reporterID uint, status string) error {
	title := "Complaint Update"
	body := fmt.Sprintf("Your complaint #%d is now %s", complaintID, status)

	data := NotificationData{
		Type:   "complaint_" + status,
		ID:     fmt.Sprintf("%d", complaintID),
		Screen: "MyComplaints",
	}

	return ns.SendNotificationToUser(reporterID, title, body, data)
}

// Global notification service instance
var NotificationServiceInstance = NewNotificationService()
