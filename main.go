package main

import (
	"log"
	"os"

	"digiestate-server/routes"
	"digiestate-server/storage"
	"digiestate-server/utils"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

func main() {
	godotenvErr := godotenv.Load()
	if godotenvErr != nil && os.Getenv("RENDER") == "" {
		log.Println("main: no .env file found, relying on environment")
	}

	storage.InitializeDB()
	storage.InitializeRedis()
	storage.InitializeMedia()

	app := iris.Default()
	app.Validator = validator.New()

	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", "*")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Access-Control-Allow-Origin,Content-Type,Authorization")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, os.Getenv("ACCESS_TOKEN_SECRET"))
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	refreshTokenVerifier := jwt.NewVerifier(jwt.HS256, os.Getenv("REFRESH_TOKEN_SECRET"))
	refreshTokenVerifierMiddleware := refreshTokenVerifier.Verify(func() interface{} {
		return new(jwt.Claims)
	})
	refreshTokenVerifier.Extractors = append(refreshTokenVerifier.Extractors, func(ctx iris.Context) string {
		var input utils.RefreshTokenInput
		err := ctx.ReadJSON(&input)
		if err != nil {
			return ""
		}

		return input.RefreshToken
	})

	app.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"status": "ok"})
	})

	user := app.Party("/api/user")
	{
		user.Post("/register", routes.Register)
		user.Post("/login", routes.Login)
		user.Post("/google", routes.GoogleLoginOrSignUp)
		user.Post("/apple", routes.AppleLoginOrSignUp)
		user.Get("/me", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.GetUser)
		user.Get("/search", accessTokenVerifierMiddleware, routes.SearchUsers)
		user.Patch("/{id}/profile", accessTokenVerifierMiddleware, routes.UpdateUserProfile)
		user.Get("/{id}/properties/saved", accessTokenVerifierMiddleware, utils.UserIDMiddleware, routes.GetUserSavedProperties)
		user.Patch("/{id}/properties/saved", accessTokenVerifierMiddleware, utils.UserIDMiddleware, routes.AlterUserSavedProperties)
		user.Patch("/{id}/pushtoken", accessTokenVerifierMiddleware, utils.UserIDMiddleware, routes.AlterPushToken)
		user.Patch("/{id}/settings/notifications", accessTokenVerifierMiddleware, utils.UserIDMiddleware, routes.AllowsNotifications)
	}

	property := app.Party("/api/property")
	{
		property.Get("/search", routes.SearchProperties)
		property.Get("/{id}", routes.GetProperty)
		property.Get("/userid/{id}", routes.GetPropertiesByUserID)
		property.Post("/", accessTokenVerifierMiddleware, routes.CreateProperty)
		property.Patch("/update/{id}", accessTokenVerifierMiddleware, routes.UpdateProperty)
		property.Delete("/{id}", accessTokenVerifierMiddleware, routes.DeleteProperty)
		property.Get("/{id}/reviews", routes.ListPropertyReviews)
		property.Post("/{id}/reviews", accessTokenVerifierMiddleware, routes.CreatePropertyReview)
	}

	messages := app.Party("/api/messages")
	{
		messages.Post("/", accessTokenVerifierMiddleware, routes.CreateMessage)
		messages.Get("/", accessTokenVerifierMiddleware, routes.ListMessages)
		messages.Patch("/{id}/read", accessTokenVerifierMiddleware, routes.MarkMessageRead)
	}

	conversations := app.Party("/api/conversations")
	{
		conversations.Get("/", accessTokenVerifierMiddleware, routes.ListConversations)
		conversations.Post("/read", accessTokenVerifierMiddleware, routes.MarkConversationRead)
		conversations.Post("/typing", accessTokenVerifierMiddleware, routes.Typing)
		conversations.Get("/typing", accessTokenVerifierMiddleware, routes.ListTyping)
	}

	reservation := app.Party("/api/reservation")
	{
		reservation.Post("/", accessTokenVerifierMiddleware, routes.CreateReservation)
		reservation.Get("/", accessTokenVerifierMiddleware, routes.GetUserReservations)
		reservation.Get("/host", accessTokenVerifierMiddleware, routes.GetHostReservations)
		reservation.Patch("/{id}/status", accessTokenVerifierMiddleware, routes.UpdateReservationStatus)
		reservation.Post("/{id}/cancel", accessTokenVerifierMiddleware, routes.CancelReservation)
	}

	complaint := app.Party("/api/complaint")
	{
		complaint.Post("/", accessTokenVerifierMiddleware, routes.CreateComplaint)
		complaint.Get("/", accessTokenVerifierMiddleware, routes.ListMyComplaints)
		complaint.Post("/appeal", accessTokenVerifierMiddleware, routes.CreateAppeal)
		complaint.Get("/appeal", accessTokenVerifierMiddleware, routes.ListMyAppeals)
	}

	admin := app.Party("/api/admin")
	{
		admin.Use(accessTokenVerifierMiddleware, utils.AdminOnlyMiddleware)
		admin.Get("/users", routes.AdminListUsers)
		admin.Patch("/users/{id}/role", utils.SuperAdminOnlyMiddleware, routes.AdminChangeUserRole)
		admin.Get("/properties", routes.AdminListProperties)
		admin.Patch("/properties/{id}/status", routes.AdminUpdatePropertyStatus)
		admin.Get("/complaints", routes.AdminListComplaints)
		admin.Patch("/complaints/{id}/resolve", routes.AdminResolveComplaint)
		admin.Patch("/appeals/{id}/resolve", routes.AdminResolveAppeal)
	}

	app.Post("/api/refresh", refreshTokenVerifierMiddleware, utils.RefreshToken)

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}

	app.Listen(":" + port)
}
