package routes

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"digiestate-server/models"
	"digiestate-server/storage"
	"digiestate-server/utils"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

func CreateProperty(ctx iris.Context) {
	var input CreatePropertyInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)

	property := models.Property{
		HostID:       claims.ID,
		Title:        input.Title,
		Description:  input.Description,
		PropertyType: input.PropertyType,
		AddressLine1: input.AddressLine1,
		AddressLine2: input.AddressLine2,
		City:         input.City,
		State:        input.State,
		Zip:          input.Zip,
		Country:      input.Country,
		Lat:          input.Lat,
		Lng:          input.Lng,
		Bedrooms:     input.Bedrooms,
		Bathrooms:    input.Bathrooms,
		NightlyPrice: input.NightlyPrice,
		CleaningFee:  input.CleaningFee,
		Currency:     input.Currency,
		Images:       "[]",
		Status:       "pending",
	}

	if err := storage.DB.Create(&property).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	imageURLs := storeImages(input.Images, property.ID)
	if len(imageURLs) > 0 {
		marshalled, marshalErr := json.Marshal(imageURLs)
		if marshalErr == nil {
			property.Images = string(marshalled)
			storage.DB.Model(&property).Update("images", property.Images)
		}
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(&property)
}

func GetProperty(ctx iris.Context) {
	params := ctx.Params()
	id := params.Get("id")

	var property models.Property
	propertyExists := storage.DB.Preload("Host").Preload("Reviews").Preload("Reviews.User").
		Where("id = ?", id).Limit(1).Find(&property)

	if propertyExists.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if propertyExists.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	ctx.JSON(&property)
}

// SearchProperties lists approved listings, filtered by location and price.
func SearchProperties(ctx iris.Context) {
	city := ctx.URLParamDefault("city", "")
	country := ctx.URLParamDefault("country", "")
	maxPrice := ctx.URLParamFloat64Default("maxPrice", 0)
	page := ctx.URLParamIntDefault("page", 1)
	perPage := ctx.URLParamIntDefault("perPage", 20)
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 50 {
		perPage = 20
	}

	query := storage.DB.Model(&models.Property{}).Where("status = ?", "approved")
	if city != "" {
		query = query.Where("lower(city) = lower(?)", city)
	}
	if country != "" {
		query = query.Where("lower(country) = lower(?)", country)
	}
	if maxPrice > 0 {
		query = query.Where("nightly_price <= ?", maxPrice)
	}

	var total int64
	query.Count(&total)

	properties := []models.Property{}
	if err := query.Order("created_at DESC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&properties).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.JSONPage(ctx, properties, page, perPage, total)
}

func GetPropertiesByUserID(ctx iris.Context) {
	params := ctx.Params()
	id := params.Get("id")

	var properties []models.Property
	propertiesExist := storage.DB.Where("host_id = ?", id).Find(&properties)

	if propertiesExist.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(properties)
}

func UpdateProperty(ctx iris.Context) {
	property := getPropertyForHost(ctx)
	if property == nil {
		return
	}

	var input UpdatePropertyInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	property.Title = input.Title
	property.Description = input.Description
	property.NightlyPrice = input.NightlyPrice
	property.CleaningFee = input.CleaningFee
	property.Bedrooms = input.Bedrooms
	property.Bathrooms = input.Bathrooms
	property.IsActive = input.IsActive

	// Keep already-hosted URLs, upload anything sent as raw data, and delete
	// images dropped from the listing.
	existing := property.ImageURLs()
	kept := make(map[string]bool, len(input.Images))
	newImages := []string{}
	for _, image := range input.Images {
		if strings.Contains(image, "res.cloudinary.com") {
			kept[image] = true
			newImages = append(newImages, image)
			continue
		}
		if uploaded := storeImages([]string{image}, property.ID); len(uploaded) > 0 {
			newImages = append(newImages, uploaded[0])
		}
	}
	for _, image := range existing {
		if !kept[image] {
			storage.DeleteImage(image)
		}
	}

	marshalled, marshalErr := json.Marshal(newImages)
	if marshalErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	property.Images = string(marshalled)

	// Edits to an approved listing go back through moderation
	if property.Status == "approved" {
		property.Status = "pending"
	}

	if err := storage.DB.Save(property).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(property)
}

func DeleteProperty(ctx iris.Context) {
	property := getPropertyForHost(ctx)
	if property == nil {
		return
	}

	for _, image := range property.ImageURLs() {
		storage.DeleteImage(image)
	}

	if err := storage.DB.Delete(property).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.StatusCode(iris.StatusNoContent)
}

// getPropertyForHost loads the property in the id param and verifies the
// requester owns it. Writes the error response and returns nil otherwise.
func getPropertyForHost(ctx iris.Context) *models.Property {
	params := ctx.Params()
	id := params.Get("id")

	var property models.Property
	propertyExists := storage.DB.Where("id = ?", id).Limit(1).Find(&property)

	if propertyExists.Error != nil {
		utils.CreateInternalServerError(ctx)
		return nil
	}

	if propertyExists.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return nil
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)
	if property.HostID != claims.ID {
		ctx.StatusCode(iris.StatusForbidden)
		return nil
	}

	return &property
}

// storeImages uploads base64 image data and returns the hosted URLs. Uploads
// that fail are skipped.
func storeImages(images []string, propertyID uint) []string {
	urls := []string{}
	for i, image := range images {
		if image == "" {
			continue
		}
		if strings.Contains(image, "res.cloudinary.com") {
			urls = append(urls, image)
			continue
		}
		publicID := fmt.Sprintf("properties/%d/%s_%s",
			propertyID, strconv.FormatInt(time.Now().UnixMilli(), 10), strconv.Itoa(i))
		if hosted := storage.UploadBase64Image(image, publicID); hosted != "" {
			urls = append(urls, hosted)
		}
	}
	return urls
}

type CreatePropertyInput struct {
	Title        string   `json:"title" validate:"required,max=256"`
	Description  string   `json:"description" validate:"max=5000"`
	PropertyType string   `json:"propertyType" validate:"required,oneof=entire_place private_room shared_room"`
	AddressLine1 string   `json:"addressLine1" validate:"required,max=512"`
	AddressLine2 string   `json:"addressLine2" validate:"max=512"`
	City         string   `json:"city" validate:"required,max=256"`
	State        string   `json:"state" validate:"max=256"`
	Zip          string   `json:"zip" validate:"max=32"`
	Country      string   `json:"country" validate:"required,max=256"`
	Lat          float32  `json:"lat"`
	Lng          float32  `json:"lng"`
	Bedrooms     int      `json:"bedrooms" validate:"min=0,max=50"`
	Bathrooms    float32  `json:"bathrooms" validate:"min=0,max=50"`
	NightlyPrice float32  `json:"nightlyPrice" validate:"required,gt=0"`
	CleaningFee  float32  `json:"cleaningFee" validate:"min=0"`
	Currency     string   `json:"currency" validate:"required,len=3"`
	Images       []string `json:"images"`
}

type UpdatePropertyInput struct {
	Title        string   `json:"title" validate:"required,max=256"`
	Description  string   `json:"description" validate:"max=5000"`
	NightlyPrice float32  `json:"nightlyPrice" validate:"required,gt=0"`
	CleaningFee  float32  `json:"cleaningFee" validate:"min=0"`
	Bedrooms     int      `json:"bedrooms" validate:"min=0,max=50"`
	Bathrooms    float32  `json:"bathrooms" validate:"min=0,max=50"`
	IsActive     *bool    `json:"isActive"`
	Images       []string `json:"images"`
}
