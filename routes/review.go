package routes

import (
	"digiestate-server/models"
	"digiestate-server/storage"
	"digiestate-server/utils"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

// CreatePropertyReview stores a review for a stay the guest completed. One
// review per guest per listing; the listing's rating is recomputed on write.
func CreatePropertyReview(ctx iris.Context) {
	params := ctx.Params()
	id := params.Get("id")

	var input CreateReviewInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var property models.Property
	propertyExists := storage.DB.Where("id = ?", id).Limit(1).Find(&property)
	if propertyExists.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if propertyExists.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)

	var reservation models.Reservation
	reservationExists := storage.DB.
		Where("property_id = ? AND guest_id = ? AND status = ?", property.ID, claims.ID, "confirmed").
		Limit(1).Find(&reservation)
	if reservationExists.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if reservationExists.RowsAffected == 0 {
		utils.CreateError(iris.StatusForbidden, "Forbidden", "Only guests with a confirmed stay can review", ctx)
		return
	}

	var existing int64
	storage.DB.Model(&models.Review{}).
		Where("property_id = ? AND user_id = ?", property.ID, claims.ID).
		Count(&existing)
	if existing > 0 {
		utils.CreateError(iris.StatusConflict, "Conflict", "You already reviewed this listing", ctx)
		return
	}

	review := models.Review{
		PropertyID:    property.ID,
		UserID:        claims.ID,
		ReservationID: reservation.ID,
		Stars:         input.Stars,
		Title:         input.Title,
		Body:          input.Body,
	}

	if err := storage.DB.Create(&review).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	var avg float64
	storage.DB.Model(&models.Review{}).
		Where("property_id = ?", property.ID).
		Select("AVG(stars)").Scan(&avg)
	storage.DB.Model(&property).Update("rating", float32(avg))

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(&review)
}

func ListPropertyReviews(ctx iris.Context) {
	params := ctx.Params()
	id := params.Get("id")

	reviews := []models.Review{}
	if err := storage.DB.Preload("User").
		Where("property_id = ?", id).
		Order("created_at DESC").
		Find(&reviews).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	var avg float64
	if len(reviews) > 0 {
		storage.DB.Model(&models.Review{}).
			Where("property_id = ?", id).
			Select("AVG(stars)").Scan(&avg)
	}

	ctx.JSON(iris.Map{"reviews": reviews, "averageStars": avg})
}

type CreateReviewInput struct {
	Stars int    `json:"stars" validate:"required,min=1,max=5"`
	Title string `json:"title" validate:"max=100"`
	Body  string `json:"body" validate:"max=1000"`
}
