package routes

import (
	"time"

	"digiestate-server/models"
	"digiestate-server/services"
	"digiestate-server/storage"
	"digiestate-server/utils"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

func CreateReservation(ctx iris.Context) {
	var input CreateReservationInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)

	var property models.Property
	propertyExists := storage.DB.Where("id = ?", input.PropertyID).Limit(1).Find(&property)
	if propertyExists.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if propertyExists.RowsAffected == 0 {
		utils.CreateError(iris.StatusNotFound, "Not Found", "Property not found", ctx)
		return
	}

	if property.HostID == claims.ID {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "You cannot book your own listing", ctx)
		return
	}

	if !input.CheckOut.After(input.CheckIn) {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "checkOut must be after checkIn", ctx)
		return
	}

	// Reject overlap with any pending or confirmed stay
	var overlapping int64
	storage.DB.Model(&models.Reservation{}).
		Where("property_id = ? AND status IN ? AND check_in < ? AND check_out > ?",
			property.ID, []string{"pending", "confirmed"}, input.CheckOut, input.CheckIn).
		Count(&overlapping)
	if overlapping > 0 {
		utils.CreateError(iris.StatusConflict, "Conflict", "Those dates are no longer available", ctx)
		return
	}

	nights := int(input.CheckOut.Sub(input.CheckIn).Hours() / 24)
	if nights < 1 {
		nights = 1
	}

	reservation := models.Reservation{
		PropertyID: property.ID,
		GuestID:    claims.ID,
		CheckIn:    input.CheckIn,
		CheckOut:   input.CheckOut,
		Nights:     nights,
		TotalPrice: float32(nights)*property.NightlyPrice + property.CleaningFee,
		Currency:   property.Currency,
		Status:     "pending",
	}

	if err := storage.DB.Create(&reservation).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	var guest models.User
	if err := storage.DB.First(&guest, claims.ID).Error; err == nil {
		go services.NotificationServiceInstance.NotifyBookingRequested(
			reservation.ID, property.ID, property.HostID, guest.ID, guest.DisplayName(), property.Title)
	}

	reservation.Property = property
	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(&reservation)
}

func GetUserReservations(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	reservations := []models.Reservation{}
	if err := storage.DB.Preload("Property").
		Where("guest_id = ?", claims.ID).
		Order("check_in DESC").
		Find(&reservations).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(reservations)
}

func GetHostReservations(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	reservations := []models.Reservation{}
	if err := storage.DB.Preload("Property").Preload("Guest").
		Joins("JOIN properties ON properties.id = reservations.property_id").
		Where("properties.host_id = ?", claims.ID).
		Order("reservations.check_in DESC").
		Find(&reservations).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(reservations)
}

// UpdateReservationStatus lets the host confirm or decline a pending booking.
func UpdateReservationStatus(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "invalid reservation id", ctx)
		return
	}

	var input UpdateReservationStatusInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var reservation models.Reservation
	lookup := storage.DB.Preload("Property").Where("id = ?", id).Limit(1).Find(&reservation)
	if lookup.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if lookup.RowsAffected == 0 {
		utils.CreateError(iris.StatusNotFound, "Not Found", "Reservation not found", ctx)
		return
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)
	if reservation.Property.HostID != claims.ID {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}

	if reservation.Status != "pending" {
		utils.CreateError(iris.StatusConflict, "Conflict", "Only pending reservations can be decided", ctx)
		return
	}

	reservation.Status = input.Status
	if err := storage.DB.Model(&reservation).Update("status", input.Status).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	go services.NotificationServiceInstance.NotifyBookingDecision(
		reservation.ID, reservation.PropertyID, reservation.GuestID,
		reservation.Property.Title, reservation.Status)

	ctx.JSON(&reservation)
}

// CancelReservation lets the guest cancel their own pending or confirmed stay.
func CancelReservation(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "invalid reservation id", ctx)
		return
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)

	var reservation models.Reservation
	lookup := storage.DB.Where("id = ? AND guest_id = ?", id, claims.ID).Limit(1).Find(&reservation)
	if lookup.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if lookup.RowsAffected == 0 {
		utils.CreateError(iris.StatusNotFound, "Not Found", "Reservation not found", ctx)
		return
	}

	if reservation.Status == "cancelled" || reservation.Status == "declined" {
		utils.CreateError(iris.StatusConflict, "Conflict", "Reservation is already closed", ctx)
		return
	}

	if err := storage.DB.Model(&reservation).Update("status", "cancelled").Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	reservation.Status = "cancelled"
	ctx.JSON(&reservation)
}

type CreateReservationInput struct {
	PropertyID uint      `json:"propertyID" validate:"required"`
	CheckIn    time.Time `json:"checkIn" validate:"required"`
	CheckOut   time.Time `json:"checkOut" validate:"required"`
}

type UpdateReservationStatusInput struct {
	Status string `json:"status" validate:"required,oneof=confirmed declined"`
}
