package topic_sdk

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/vicinato/topic-sdk/response"
)

// -------------------- 通知（Notification）相关接口 --------------------

// GinHandleListNotifications 拉取通知（默认近 7 天）
// @Summary 拉取通知
// @Tags 通知
// @Accept json
// @Produce json
// @Param days query int false "近 N 天(默认7)"
// @Param cursor query uint64 false "游标(上一页最小id)"
// @Param limit query int false "条数(默认50,最大200)"
// @Param topic_id query uint64 false "按话题过滤"
// @Param unread_only query bool false "只看未读"
// @Success 200 {object} response.Response{data=map[string]interface{}} "data.items + data.next_cursor"
// @Security BearerAuth
// @Router /notifications [get]
func (c *TopicEngine) GinHandleListNotifications(ctx *gin.Context) {
	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}

	days, _ := strconv.Atoi(ctx.DefaultQuery("days", "7"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "50"))
	cursor, _ := strconv.ParseUint(ctx.DefaultQuery("cursor", "0"), 10, 64)
	unreadOnly := ctx.DefaultQuery("unread_only", "false") == "true"

	var topicID *uint64
	if tidStr := ctx.Query("topic_id"); tidStr != "" {
		tid, err := strconv.ParseUint(tidStr, 10, 64)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, "invalid topic_id"))
			return
		}
		topicID = &tid
	}

	items, nextCursor, err := c.NotifyService.ListUserNotifications(caller.UserID, days, cursor, limit, topicID, unreadOnly)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}

	ctx.JSON(http.StatusOK, response.Success(map[string]any{
		"items":       items,
		"next_cursor": nextCursor,
	}))
}

type MarkNotificationsReadReq struct {
	IDs []uint64 `json:"ids" binding:"required"`
}

// GinHandleMarkNotificationsRead 标记通知已读
// @Summary 标记通知已读
// @Tags 通知
// @Accept json
// @Produce json
// @Param req body MarkNotificationsReadReq true "请求参数"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /notifications/read [post]
func (c *TopicEngine) GinHandleMarkNotificationsRead(ctx *gin.Context) {
	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}

	var req MarkNotificationsReadReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}

	if err := c.NotifyService.MarkReadByIDs(caller.UserID, req.IDs); err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(map[string]any{"message": "ok"}))
}
