package routes

import (
	"digiestate-server/models"
	"digiestate-server/storage"
	"digiestate-server/utils"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

func CreateComplaint(ctx iris.Context) {
	var input CreateComplaintInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)

	if input.PropertyID != nil {
		var property models.Property
		propertyExists := storage.DB.Where("id = ?", *input.PropertyID).Limit(1).Find(&property)
		if propertyExists.Error != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
		if propertyExists.RowsAffected == 0 {
			utils.CreateError(iris.StatusNotFound, "Not Found", "Property not found", ctx)
			return
		}
	}

	complaint := models.Complaint{
		ReporterID: claims.ID,
		PropertyID: input.PropertyID,
		Subject:    input.Subject,
		Body:       input.Body,
		Status:     "open",
	}

	if err := storage.DB.Create(&complaint).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(&complaint)
}

func ListMyComplaints(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	complaints := []models.Complaint{}
	if err := storage.DB.Preload("Property").
		Where("reporter_id = ?", claims.ID).
		Order("created_at DESC").
		Find(&complaints).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"complaints": complaints})
}

// CreateAppeal contests a closed complaint. Only the original reporter may
// appeal, and only once per complaint.
func CreateAppeal(ctx iris.Context) {
	var input CreateAppealInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)

	var complaint models.Complaint
	complaintExists := storage.DB.
		Where("id = ? AND reporter_id = ?", input.ComplaintID, claims.ID).
		Limit(1).Find(&complaint)
	if complaintExists.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if complaintExists.RowsAffected == 0 {
		utils.CreateError(iris.StatusNotFound, "Not Found", "Complaint not found", ctx)
		return
	}

	if complaint.Status != "resolved" && complaint.Status != "dismissed" {
		utils.CreateError(iris.StatusConflict, "Conflict", "Only a closed complaint can be appealed", ctx)
		return
	}

	var existing int64
	storage.DB.Model(&models.Appeal{}).
		Where("complaint_id = ?", complaint.ID).
		Count(&existing)
	if existing > 0 {
		utils.CreateError(iris.StatusConflict, "Conflict", "This complaint was already appealed", ctx)
		return
	}

	appeal := models.Appeal{
		ComplaintID: complaint.ID,
		AppellantID: claims.ID,
		Body:        input.Body,
		Status:      "pending",
	}

	if err := storage.DB.Create(&appeal).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(&appeal)
}

func ListMyAppeals(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	appeals := []models.Appeal{}
	if err := storage.DB.Preload("Complaint").
		Where("appellant_id = ?", claims.ID).
		Order("created_at DESC").
		Find(&appeals).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"appeals": appeals})
}

type CreateComplaintInput struct {
	PropertyID *uint  `json:"propertyID"`
	Subject    string `json:"subject" validate:"required,max=256"`
	Body       string `json:"body" validate:"required,max=5000"`
}

type CreateAppealInput struct {
	ComplaintID uint   `json:"complaintID" validate:"required"`
	Body        string `json:"body" validate:"required,max=5000"`
}
