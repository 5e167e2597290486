package routes

import (
	"testing"

	"digiestate-server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.app, "POST", "/api/user/register", "", map[string]interface{}{
		"firstName": "Alice",
		"lastName":  "Ames",
		"email":     "Alice@Example.com",
		"password":  "correct-horse",
	})
	require.Equal(t, 200, rec.Code, rec.Body.String())

	var registered struct {
		ID           uint   `json:"ID"`
		Email        string `json:"email"`
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	decodeBody(t, rec, &registered)
	assert.Equal(t, "alice@example.com", registered.Email)
	assert.NotEmpty(t, registered.AccessToken)
	assert.NotEmpty(t, registered.RefreshToken)

	// Password is stored hashed, never plaintext
	var stored models.User
	require.NoError(t, env.db.First(&stored, registered.ID).Error)
	assert.NotEqual(t, "correct-horse", stored.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("correct-horse")))

	rec = doJSON(t, env.app, "POST", "/api/user/login", "", map[string]interface{}{
		"email":    "alice@example.com",
		"password": "correct-horse",
	})
	assert.Equal(t, 200, rec.Code)

	rec = doJSON(t, env.app, "POST", "/api/user/login", "", map[string]interface{}{
		"email":    "alice@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, 401, rec.Code)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	createTestUser(t, env.db, "Alice", "Ames", "alice@example.com")

	rec := doJSON(t, env.app, "POST", "/api/user/register", "", map[string]interface{}{
		"firstName": "Other",
		"lastName":  "Alice",
		"email":     "alice@example.com",
		"password":  "some-password",
	})
	assert.Equal(t, 409, rec.Code)
}

func TestGetUserMe(t *testing.T) {
	env := newTestEnv(t)
	alice := createTestUser(t, env.db, "Alice", "Ames", "alice@example.com")

	rec := doJSON(t, env.app, "GET", "/api/user/me", accessTokenFor(t, alice), nil)
	require.Equal(t, 200, rec.Code)

	var body struct {
		ID          uint   `json:"ID"`
		DisplayName string `json:"displayName"`
		Email       string `json:"email"`
	}
	decodeBody(t, rec, &body)
	assert.Equal(t, alice.ID, body.ID)
	assert.Equal(t, "Alice Ames", body.DisplayName)

	rec = doJSON(t, env.app, "GET", "/api/user/me", "", nil)
	assert.Equal(t, 401, rec.Code)
}

func TestAlterSavedProperties(t *testing.T) {
	env := newTestEnv(t)
	alice := createTestUser(t, env.db, "Alice", "Ames", "alice@example.com")
	bob := createTestUser(t, env.db, "Bob", "Burke", "bob@example.com")
	property := createTestProperty(t, env.db, bob.ID, "Sunny Loft")

	path := "/api/user/" + uitoa(alice.ID) + "/properties/saved"
	token := accessTokenFor(t, alice)

	rec := doJSON(t, env.app, "PATCH", path, token, map[string]interface{}{
		"propertyID": property.ID,
		"op":         "add",
	})
	require.Equal(t, 204, rec.Code, rec.Body.String())

	rec = doJSON(t, env.app, "GET", path, token, nil)
	require.Equal(t, 200, rec.Code)
	var saved []struct {
		ID    uint   `json:"ID"`
		Title string `json:"title"`
	}
	decodeBody(t, rec, &saved)
	require.Len(t, saved, 1)
	assert.Equal(t, "Sunny Loft", saved[0].Title)

	// Adding again does not duplicate
	rec = doJSON(t, env.app, "PATCH", path, token, map[string]interface{}{
		"propertyID": property.ID,
		"op":         "add",
	})
	require.Equal(t, 204, rec.Code)
	rec = doJSON(t, env.app, "GET", path, token, nil)
	decodeBody(t, rec, &saved)
	assert.Len(t, saved, 1)

	rec = doJSON(t, env.app, "PATCH", path, token, map[string]interface{}{
		"propertyID": property.ID,
		"op":         "remove",
	})
	require.Equal(t, 204, rec.Code)
	rec = doJSON(t, env.app, "GET", path, token, nil)
	decodeBody(t, rec, &saved)
	assert.Empty(t, saved)
}

func TestSavedPropertiesScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	alice := createTestUser(t, env.db, "Alice", "Ames", "alice@example.com")
	mallory := createTestUser(t, env.db, "Mallory", "Moss", "mallory@example.com")

	rec := doJSON(t, env.app, "GET", "/api/user/"+uitoa(alice.ID)+"/properties/saved",
		accessTokenFor(t, mallory), nil)
	assert.Equal(t, 403, rec.Code)
}
