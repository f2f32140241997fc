package topic_sdk

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vicinato/topic-sdk/middleware"
	"github.com/vicinato/topic-sdk/response"
	"github.com/vicinato/topic-sdk/service"
)

/*
	HTTP处理 更建议自己写HTTP的处理，然后调用对应的service，而不是获得这里的闭包来调用
	这样更灵活，也更符合实际业务需求
*/

// callerFrom 从 gin.Context 取当前调用者（鉴权中间件写入的 user_id）。
// 取不到时直接写 401 响应并返回 false。
func callerFrom(ctx *gin.Context) (service.Caller, bool) {
	uid, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		ctx.JSON(http.StatusUnauthorized, response.Error(response.CodeTokenInvalid, "user_id not found"))
		return service.Caller{}, false
	}
	id, ok := uid.(uint64)
	if !ok || id == 0 {
		ctx.JSON(http.StatusUnauthorized, response.Error(response.CodeTokenInvalid, "user_id not found"))
		return service.Caller{}, false
	}
	return service.Caller{UserID: id}, true
}

// writeServiceError 把服务层错误映射成统一响应（HTTP 一律 200，业务码区分）。
func writeServiceError(ctx *gin.Context, err error) {
	switch {
	case err == service.ErrUnauthenticated:
		ctx.JSON(http.StatusUnauthorized, response.Error(response.CodeTokenInvalid, err.Error()))
	case err == service.ErrNotFound:
		ctx.JSON(http.StatusOK, response.Error(response.CodeNotFound, err.Error()))
	case err == service.ErrPermissionDenied:
		ctx.JSON(http.StatusOK, response.Error(response.CodePermissionDeny, err.Error()))
	case service.IsValidationError(err):
		ctx.JSON(http.StatusOK, response.Error(response.CodeParamError, err.Error()))
	default:
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
	}
}

// RegisterGinRoutes 把全部内置接口挂到一个 gin 路由组上。
// 登录/注册不需要鉴权，其余接口要求调用方先挂 GinAuthMiddleware。
//
// 使用示例:
//
//	r := gin.Default()
//	pub := r.Group("/api")
//	engine.RegisterPublicRoutes(pub)
//	api := r.Group("/api", engine.GinAuthMiddleware(nil))
//	engine.RegisterGinRoutes(api)
func (c *TopicEngine) RegisterGinRoutes(g *gin.RouterGroup) {
	g.GET("/topic/:topic_id/messages", c.GinHandleGetTopicMessages)
	g.POST("/topic/:topic_id/messages", c.GinHandleSendMessage)
	g.POST("/message/:message_id/edit", c.GinHandleEditMessage)
	g.POST("/message/:message_id/delete", c.GinHandleDeleteMessage)
	g.POST("/message/:message_id/reaction", c.GinHandleToggleReaction)

	g.POST("/topic/:topic_id/read", c.GinHandleMarkTopicRead)
	g.GET("/topics/unread", c.GinHandleUnreadSnapshot)

	g.GET("/topic/:topic_id/members", c.GinHandleListMembers)
	g.POST("/topic/:topic_id/members", c.GinHandleAddMember)
	g.POST("/topic/:topic_id/members/remove", c.GinHandleRemoveMember)
	g.POST("/topic/:topic_id/members/role", c.GinHandleUpdateMemberRole)
	g.POST("/topic/:topic_id/join", c.GinHandleJoinTopic)
	g.POST("/topic/:topic_id/mute", c.GinHandleSetTopicMute)

	g.POST("/topic/:topic_id/upload/image", c.GinHandleUploadTopicImage)
	g.POST("/topic/:topic_id/upload/voice", c.GinHandleUploadTopicVoice)
	g.POST("/topic/:topic_id/voice", c.GinHandleSendVoiceMessage)

	g.GET("/link-preview", c.GinHandleLinkPreview)

	g.GET("/notifications", c.GinHandleListNotifications)
	g.POST("/notifications/read", c.GinHandleMarkNotificationsRead)

	g.GET("/user/info", c.GinHandleGetUserInfo)
	g.GET("/user/search", c.GinHandleSearchUsers)
	g.POST("/user/password", c.GinHandleUpdateUserPassword)
	g.POST("/user/logout", c.GinHandleUserLogout)
}

// RegisterPublicRoutes 注册不需要鉴权的接口（注册/登录）。
func (c *TopicEngine) RegisterPublicRoutes(g *gin.RouterGroup) {
	g.POST("/user/register", c.GinHandleUserRegister)
	g.POST("/user/login", c.GinHandleUserLogin)
}
