package routes

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"digiestate-server/models"
	"digiestate-server/storage"
	"digiestate-server/utils"

	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testAccessSecret = "test-access-secret-0123456789abcdef"

func init() {
	os.Setenv("ACCESS_TOKEN_SECRET", testAccessSecret)
	os.Setenv("REFRESH_TOKEN_SECRET", "test-refresh-secret-0123456789abcdef")
}

type testEnv struct {
	app *iris.Application
	db  *gorm.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	return &testEnv{app: newTestApp(t), db: db}
}

// setupTestDB swaps the global DB for an in-memory sqlite instance.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Property{},
		&models.Message{},
		&models.Reservation{},
		&models.Review{},
		&models.Complaint{},
		&models.Appeal{},
		&models.AuditLog{},
	))

	storage.DB = db
	return db
}

// newTestApp builds an app with the same verifier and route layout the server uses.
func newTestApp(t *testing.T) *iris.Application {
	t.Helper()

	app := iris.New()
	app.Validator = validator.New()

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, os.Getenv("ACCESS_TOKEN_SECRET"))
	verify := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	user := app.Party("/api/user")
	{
		user.Post("/register", Register)
		user.Post("/login", Login)
		user.Get("/me", verify, utils.UserIDFromTokenMiddleware, GetUser)
		user.Get("/search", verify, SearchUsers)
		user.Patch("/{id}/profile", verify, UpdateUserProfile)
		user.Get("/{id}/properties/saved", verify, utils.UserIDMiddleware, GetUserSavedProperties)
		user.Patch("/{id}/properties/saved", verify, utils.UserIDMiddleware, AlterUserSavedProperties)
		user.Patch("/{id}/pushtoken", verify, utils.UserIDMiddleware, AlterPushToken)
		user.Patch("/{id}/settings/notifications", verify, utils.UserIDMiddleware, AllowsNotifications)
	}

	property := app.Party("/api/property")
	{
		property.Get("/search", SearchProperties)
		property.Get("/{id}", GetProperty)
		property.Get("/userid/{id}", GetPropertiesByUserID)
		property.Post("/", verify, CreateProperty)
		property.Patch("/update/{id}", verify, UpdateProperty)
		property.Delete("/{id}", verify, DeleteProperty)
		property.Get("/{id}/reviews", ListPropertyReviews)
		property.Post("/{id}/reviews", verify, CreatePropertyReview)
	}

	messages := app.Party("/api/messages")
	{
		messages.Post("/", verify, CreateMessage)
		messages.Get("/", verify, ListMessages)
		messages.Patch("/{id}/read", verify, MarkMessageRead)
	}

	conversations := app.Party("/api/conversations")
	{
		conversations.Get("/", verify, ListConversations)
		conversations.Post("/read", verify, MarkConversationRead)
	}

	reservation := app.Party("/api/reservation")
	{
		reservation.Post("/", verify, CreateReservation)
		reservation.Get("/", verify, GetUserReservations)
		reservation.Get("/host", verify, GetHostReservations)
		reservation.Patch("/{id}/status", verify, UpdateReservationStatus)
		reservation.Post("/{id}/cancel", verify, CancelReservation)
	}

	complaint := app.Party("/api/complaint")
	{
		complaint.Post("/", verify, CreateComplaint)
		complaint.Get("/", verify, ListMyComplaints)
		complaint.Post("/appeal", verify, CreateAppeal)
		complaint.Get("/appeal", verify, ListMyAppeals)
	}

	admin := app.Party("/api/admin")
	{
		admin.Use(verify, utils.AdminOnlyMiddleware)
		admin.Get("/users", AdminListUsers)
		admin.Patch("/users/{id}/role", utils.SuperAdminOnlyMiddleware, AdminChangeUserRole)
		admin.Get("/properties", AdminListProperties)
		admin.Patch("/properties/{id}/status", AdminUpdatePropertyStatus)
		admin.Get("/complaints", AdminListComplaints)
		admin.Patch("/complaints/{id}/resolve", AdminResolveComplaint)
		admin.Patch("/appeals/{id}/resolve", AdminResolveAppeal)
	}

	require.NoError(t, app.Build())
	return app
}

func createTestUser(t *testing.T, db *gorm.DB, firstName, lastName, email string) *models.User {
	t.Helper()

	user := &models.User{
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Password:  "not-a-real-hash",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestProperty(t *testing.T, db *gorm.DB, hostID uint, title string) *models.Property {
	t.Helper()

	property := &models.Property{
		HostID:       hostID,
		Title:        title,
		City:         "Lisbon",
		Country:      "Portugal",
		NightlyPrice: 120,
		CleaningFee:  30,
		Currency:     "EUR",
		Images:       `["https://res.cloudinary.com/demo/image/upload/prop.jpg"]`,
		Status:       "approved",
	}
	require.NoError(t, db.Create(property).Error)
	return property
}

// accessTokenFor signs a token directly, bypassing the login flow.
func accessTokenFor(t *testing.T, user *models.User) string {
	t.Helper()

	role := user.Role
	if role == "" {
		role = "user"
	}
	signer := jwt.NewSigner(jwt.HS256, testAccessSecret, time.Hour)
	token, err := signer.Sign(utils.AccessToken{ID: user.ID, Role: role})
	require.NoError(t, err)
	return string(token)
}

func doJSON(t *testing.T, app *iris.Application, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), "body: %s", rec.Body.String())
}

func uitoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
