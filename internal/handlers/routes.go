package handlers

import (
	"waitwith/internal/config"
	"waitwith/internal/container"

	"github.com/gin-gonic/gin"
)

// Register wires every route onto the engine behind the auth middleware.
func Register(r *gin.Engine, app *container.Container) {
	settings := config.Get()

	dday := NewDDayHandler(app.DDay, app.Logger)
	chat := NewChatHandler(app.Chat, app.Logger)

	api := r.Group("", AuthRequired(settings.JWTSecret, app.Logger))
	api.POST("/dday", dday.Register)
	api.GET("/dday", dday.List)
	api.GET("/dday/longest", dday.Longest)
	api.POST("/dday/confirm", dday.Confirm)
	api.POST("/chat/stream", chat.Stream)
}
