package routes

import (
	"digiestate-server/models"
	"digiestate-server/services"
	"digiestate-server/storage"
	"digiestate-server/utils"

	"github.com/kataras/iris/v12"
)

func AdminListUsers(ctx iris.Context) {
	page := ctx.URLParamIntDefault("page", 1)
	perPage := ctx.URLParamIntDefault("perPage", 20)
	role := ctx.URLParamDefault("role", "")
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	query := storage.DB.Model(&models.User{})
	if role != "" {
		query = query.Where("role = ?", role)
	}

	var total int64
	query.Count(&total)

	users := []models.User{}
	if err := query.Order("created_at DESC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&users).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.JSONPage(ctx, users, page, perPage, total)
}

// AdminChangeUserRole is restricted to super admins by routing.
func AdminChangeUserRole(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "invalid user id", ctx)
		return
	}

	var input ChangeUserRoleInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var user models.User
	userExists := storage.DB.Where("id = ?", id).Limit(1).Find(&user)
	if userExists.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if userExists.RowsAffected == 0 {
		utils.CreateError(iris.StatusNotFound, "Not Found", "User not found", ctx)
		return
	}

	before := iris.Map{"role": user.Role}
	if err := storage.DB.Model(&user).Update("role", input.Role).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	user.Role = input.Role

	utils.Audit(ctx, "user.role_changed", "user", user.ID, before, iris.Map{"role": user.Role})

	ctx.JSON(iris.Map{"ID": user.ID, "email": user.Email, "role": user.Role})
}

func AdminListProperties(ctx iris.Context) {
	page := ctx.URLParamIntDefault("page", 1)
	perPage := ctx.URLParamIntDefault("perPage", 20)
	status := ctx.URLParamDefault("status", "")
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	query := storage.DB.Model(&models.Property{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)

	properties := []models.Property{}
	if err := query.Preload("Host").Order("created_at DESC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&properties).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.JSONPage(ctx, properties, page, perPage, total)
}

// AdminUpdatePropertyStatus approves or rejects a listing and notifies the host.
func AdminUpdatePropertyStatus(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "invalid property id", ctx)
		return
	}

	var input UpdatePropertyStatusInput
	if err := ctx.ReadJSON(&input); err != nil {
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

	before := iris.Map{"status": property.Status, "reviewNotes": property.ReviewNotes}

	property.Status = input.Status
	property.ReviewNotes = input.ReviewNotes
	if err := storage.DB.Model(&property).Updates(map[string]interface{}{
		"status":       input.Status,
		"review_notes": input.ReviewNotes,
	}).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.Audit(ctx, "property.status_changed", "property", property.ID, before,
		iris.Map{"status": property.Status, "reviewNotes": property.ReviewNotes})

	go services.NotificationServiceInstance.NotifyPropertyStatus(
		property.ID, property.HostID, property.Title, property.Status)

	ctx.JSON(&property)
}

func AdminListComplaints(ctx iris.Context) {
	page := ctx.URLParamIntDefault("page", 1)
	perPage := ctx.URLParamIntDefault("perPage", 20)
	status := ctx.URLParamDefault("status", "")
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	query := storage.DB.Model(&models.Complaint{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)

	complaints := []models.Complaint{}
	if err := query.Preload("Reporter").Preload("Property").Order("created_at ASC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&complaints).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.JSONPage(ctx, complaints, page, perPage, total)
}

// AdminResolveComplaint closes an open complaint with a resolution note.
func AdminResolveComplaint(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "invalid complaint id", ctx)
		return
	}

	var input ResolveComplaintInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var complaint models.Complaint
	complaintExists := storage.DB.Where("id = ?", id).Limit(1).Find(&complaint)
	if complaintExists.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if complaintExists.RowsAffected == 0 {
		utils.CreateError(iris.StatusNotFound, "Not Found", "Complaint not found", ctx)
		return
	}

	if complaint.Status != "open" {
		utils.CreateError(iris.StatusConflict, "Conflict", "Complaint is already closed", ctx)
		return
	}

	before := iris.Map{"status": complaint.Status}

	complaint.Status = input.Status
	complaint.Resolution = input.Resolution
	if err := storage.DB.Model(&complaint).Updates(map[string]interface{}{
		"status":     input.Status,
		"resolution": input.Resolution,
	}).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.Audit(ctx, "complaint.resolved", "complaint", complaint.ID, before,
		iris.Map{"status": complaint.Status, "resolution": complaint.Resolution})

	go services.NotificationServiceInstance.NotifyComplaintUpdate(
		complaint.ID, complaint.ReporterID, complaint.Status)

	ctx.JSON(&complaint)
}

// AdminResolveAppeal decides a pending appeal. Accepting reopens the parent
// complaint.
func AdminResolveAppeal(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "invalid appeal id", ctx)
		return
	}

	var input ResolveAppealInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var appeal models.Appeal
	appealExists := storage.DB.Preload("Complaint").Where("id = ?", id).Limit(1).Find(&appeal)
	if appealExists.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if appealExists.RowsAffected == 0 {
		utils.CreateError(iris.StatusNotFound, "Not Found", "Appeal not found", ctx)
		return
	}

	if appeal.Status != "pending" {
		utils.CreateError(iris.StatusConflict, "Conflict", "Appeal is already decided", ctx)
		return
	}

	before := iris.Map{"status": appeal.Status}

	appeal.Status = input.Status
	appeal.Decision = input.Decision
	if err := storage.DB.Model(&appeal).Updates(map[string]interface{}{
		"status":   input.Status,
		"decision": input.Decision,
	}).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if appeal.Status == "accepted" {
		storage.DB.Model(&models.Complaint{}).
			Where("id = ?", appeal.ComplaintID).
			Update("status", "open")
	}

	utils.Audit(ctx, "appeal.resolved", "appeal", appeal.ID, before,
		iris.Map{"status": appeal.Status, "decision": appeal.Decision})

	go services.NotificationServiceInstance.NotifyComplaintUpdate(
		appeal.ComplaintID, appeal.AppellantID, "appeal_"+appeal.Status)

	ctx.JSON(&appeal)
}

type ChangeUserRoleInput struct {
	Role string `json:"role" validate:"required,oneof=user admin super_admin"`
}

type UpdatePropertyStatusInput struct {
	Status      string `json:"status" validate:"required,oneof=approved rejected pending"`
	ReviewNotes string `json:"reviewNotes" validate:"max=5000"`
}

type ResolveComplaintInput struct {
	Status     string `json:"status" validate:"required,oneof=resolved dismissed"`
	Resolution string `json:"resolution" validate:"required,max=5000"`
}

type ResolveAppealInput struct {
	Status   string `json:"status" validate:"required,oneof=accepted rejected"`
	Decision string `json:"decision" validate:"required,max=5000"`
}
