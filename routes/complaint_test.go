package routes

import (
	"testing"

	"digiestate-server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createAdmin(t *testing.T, env *testEnv, email string) *models.User {
	t.Helper()
	admin := createTestUser(t, env.db, "Ada", "Admin", email)
	require.NoError(t, env.db.Model(admin).Update("role", "admin").Error)
	admin.Role = "admin"
	return admin
}

func TestComplaintLifecycle(t *testing.T) {
	env := newTestEnv(t)
	alice := createTestUser(t, env.db, "Alice", "Ames", "alice@example.com")
	bob := createTestUser(t, env.db, "Bob", "Burke", "bob@example.com")
	admin := createAdmin(t, env, "ada@example.com")
	property := createTestProperty(t, env.db, bob.ID, "Sunny Loft")

	rec := doJSON(t, env.app, "POST", "/api/complaint", accessTokenFor(t, alice), map[string]interface{}{
		"propertyID": property.ID,
		"subject":    "Misleading photos",
		"body":       "The listing photos do not match the place.",
	})
	require.Equal(t, 201, rec.Code, rec.Body.String())

	var complaint struct {
		ID     uint   `json:"ID"`
		Status string `json:"status"`
	}
	decodeBody(t, rec, &complaint)
	assert.Equal(t, "open", complaint.Status)

	// Appeal before the complaint is closed is rejected
	rec = doJSON(t, env.app, "POST", "/api/complaint/appeal", accessTokenFor(t, alice), map[string]interface{}{
		"complaintID": complaint.ID,
		"body":        "Please look again.",
	})
	assert.Equal(t, 409, rec.Code)

	rec = doJSON(t, env.app, "PATCH", "/api/admin/complaints/"+uitoa(complaint.ID)+"/resolve",
		accessTokenFor(t, admin), map[string]interface{}{
			"status":     "dismissed",
			"resolution": "Photos match at time of review.",
		})
	require.Equal(t, 200, rec.Code, rec.Body.String())

	rec = doJSON(t, env.app, "POST", "/api/complaint/appeal", accessTokenFor(t, alice), map[string]interface{}{
		"complaintID": complaint.ID,
		"body":        "Please look again.",
	})
	require.Equal(t, 201, rec.Code, rec.Body.String())

	var appeal struct {
		ID          uint   `json:"ID"`
		ComplaintID uint   `json:"complaintID"`
		Status      string `json:"status"`
	}
	decodeBody(t, rec, &appeal)
	assert.Equal(t, complaint.ID, appeal.ComplaintID)
	assert.Equal(t, "pending", appeal.Status)

	// Second appeal on the same complaint is rejected
	rec = doJSON(t, env.app, "POST", "/api/complaint/appeal", accessTokenFor(t, alice), map[string]interface{}{
		"complaintID": complaint.ID,
		"body":        "Once more.",
	})
	assert.Equal(t, 409, rec.Code)

	// Accepting the appeal reopens the complaint
	rec = doJSON(t, env.app, "PATCH", "/api/admin/appeals/"+uitoa(appeal.ID)+"/resolve",
		accessTokenFor(t, admin), map[string]interface{}{
			"status":   "accepted",
			"decision": "Re-reviewing with newer photos.",
		})
	require.Equal(t, 200, rec.Code, rec.Body.String())

	var reopened models.Complaint
	require.NoError(t, env.db.First(&reopened, complaint.ID).Error)
	assert.Equal(t, "open", reopened.Status)

	// Audit trail recorded both admin decisions
	var audits int64
	env.db.Model(&models.AuditLog{}).Count(&audits)
	assert.EqualValues(t, 2, audits)
}

func TestAppealOnlyByReporter(t *testing.T) {
	env := newTestEnv(t)
	alice := createTestUser(t, env.db, "Alice", "Ames", "alice@example.com")
	mallory := createTestUser(t, env.db, "Mallory", "Moss", "mallory@example.com")

	complaint := models.Complaint{ReporterID: alice.ID, Subject: "Noise", Body: "Too loud.", Status: "resolved"}
	require.NoError(t, env.db.Create(&complaint).Error)

	rec := doJSON(t, env.app, "POST", "/api/complaint/appeal", accessTokenFor(t, mallory), map[string]interface{}{
		"complaintID": complaint.ID,
		"body":        "I object.",
	})
	assert.Equal(t, 404, rec.Code)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	env := newTestEnv(t)
	alice := createTestUser(t, env.db, "Alice", "Ames", "alice@example.com")

	rec := doJSON(t, env.app, "GET", "/api/admin/complaints", accessTokenFor(t, alice), nil)
	assert.Equal(t, 403, rec.Code)
}

func TestRoleChangeRequiresSuperAdmin(t *testing.T) {
	env := newTestEnv(t)
	alice := createTestUser(t, env.db, "Alice", "Ames", "alice@example.com")
	admin := createAdmin(t, env, "ada@example.com")

	rec := doJSON(t, env.app, "PATCH", "/api/admin/users/"+uitoa(alice.ID)+"/role",
		accessTokenFor(t, admin), map[string]interface{}{"role": "admin"})
	assert.Equal(t, 403, rec.Code)

	super := createTestUser(t, env.db, "Sam", "Super", "sam@example.com")
	require.NoError(t, env.db.Model(super).Update("role", "super_admin").Error)
	super.Role = "super_admin"

	rec = doJSON(t, env.app, "PATCH", "/api/admin/users/"+uitoa(alice.ID)+"/role",
		accessTokenFor(t, super), map[string]interface{}{"role": "admin"})
	require.Equal(t, 200, rec.Code, rec.Body.String())

	var updated models.User
	require.NoError(t, env.db.First(&updated, alice.ID).Error)
	assert.Equal(t, "admin", updated.Role)
}
