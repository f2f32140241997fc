package topic_sdk

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/vicinato/topic-sdk/response"
	"github.com/vicinato/topic-sdk/service"
)

// -------------------- 消息（Message）相关接口 --------------------

// GinHandleGetTopicMessages 获取话题消息
// @Summary 获取话题消息
// @Description 游标分页获取话题消息（时间正序返回；before/after 传消息ID）
// @Tags 消息
// @Accept json
// @Produce json
// @Param topic_id path uint64 true "话题ID"
// @Param limit query int false "每页数量（默认50，最大100）"
// @Param before query uint64 false "取该消息之前的更早消息"
// @Param after query uint64 false "取该消息之后的更新消息"
// @Success 200 {object} response.Response{data=service.MessagePage} "消息一页"
// @Failure 400 {object} response.Response "参数错误"
// @Failure 500 {object} response.Response "服务器错误"
// @Security BearerAuth
// @Router /topic/{topic_id}/messages [get]
func (c *TopicEngine) GinHandleGetTopicMessages(ctx *gin.Context) {
	topicID, err := strconv.ParseUint(ctx.Param("topic_id"), 10, 64)
	if err != nil || topicID == 0 {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, "invalid topic_id"))
		return
	}

	limit, _ := strconv.Atoi(ctx.Query("limit"))
	before, _ := strconv.ParseUint(ctx.Query("before"), 10, 64)
	after, _ := strconv.ParseUint(ctx.Query("after"), 10, 64)

	page, err := c.MsgService.GetTopicMessages(topicID, service.Page{Limit: limit, Before: before, After: after})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(page))
}

// GinHandleSendMessage 发消息
// @Summary 发消息
// @Description 向话题发一条消息，可带回复目标、@提及、附件元数据
// @Tags 消息
// @Accept json
// @Produce json
// @Param topic_id path uint64 true "话题ID"
// @Param req body service.SendMessageReq true "消息内容"
// @Success 200 {object} response.Response{data=service.MessageItemDTO} "发出的消息"
// @Failure 400 {object} response.Response "参数错误"
// @Failure 500 {object} response.Response "服务器错误"
// @Security BearerAuth
// @Router /topic/{topic_id}/messages [post]
func (c *TopicEngine) GinHandleSendMessage(ctx *gin.Context) {
	topicID, err := strconv.ParseUint(ctx.Param("topic_id"), 10, 64)
	if err != nil || topicID == 0 {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, "invalid topic_id"))
		return
	}

	var req service.SendMessageReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}

	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}

	msg, err := c.MsgService.SendMessage(caller, topicID, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(msg))
}

type EditMessageReqBody struct {
	Content string `json:"content" binding:"required"`
}

// GinHandleEditMessage 编辑消息
// @Summary 编辑消息
// @Description 编辑自己发的消息（不限时间窗口）
// @Tags 消息
// @Accept json
// @Produce json
// @Param message_id path uint64 true "消息ID"
// @Param req body EditMessageReqBody true "新内容"
// @Success 200 {object} response.Response{data=service.MessageItemDTO} "编辑后的消息"
// @Failure 400 {object} response.Response "参数错误"
// @Failure 500 {object} response.Response "服务器错误"
// @Security BearerAuth
// @Router /message/{message_id}/edit [post]
func (c *TopicEngine) GinHandleEditMessage(ctx *gin.Context) {
	messageID, err := strconv.ParseUint(ctx.Param("message_id"), 10, 64)
	if err != nil || messageID == 0 {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, "invalid message_id"))
		return
	}

	var req EditMessageReqBody
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}

	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}

	msg, err := c.MsgService.EditMessage(caller, messageID, req.Content)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(msg))
}

// GinHandleDeleteMessage 删除消息
// @Summary 删除消息
// @Description 软删除消息（作者本人、话题管理、平台管理员）
// @Tags 消息
// @Accept json
// @Produce json
// @Param message_id path uint64 true "消息ID"
// @Success 200 {object} response.Response "成功响应"
// @Failure 400 {object} response.Response "参数错误"
// @Failure 500 {object} response.Response "服务器错误"
// @Security BearerAuth
// @Router /message/{message_id}/delete [post]
func (c *TopicEngine) GinHandleDeleteMessage(ctx *gin.Context) {
	messageID, err := strconv.ParseUint(ctx.Param("message_id"), 10, 64)
	if err != nil || messageID == 0 {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, "invalid message_id"))
		return
	}

	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}

	if err := c.MsgService.DeleteMessage(caller, messageID); err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(map[string]any{"message": "消息已删除"}))
}

type ToggleReactionReqBody struct {
	Emoji string `json:"emoji" binding:"required" example:"👍"`
}

// GinHandleToggleReaction 切换表态
// @Summary 切换表态
// @Description 对消息表态：没有则加，同 emoji 再点取消，不同 emoji 原地换
// @Tags 消息
// @Accept json
// @Produce json
// @Param message_id path uint64 true "消息ID"
// @Param req body ToggleReactionReqBody true "表态"
// @Success 200 {object} response.Response{data=service.ToggleReactionResult} "表态结果（added/removed/changed）"
// @Failure 400 {object} response.Response "参数错误"
// @Failure 500 {object} response.Response "服务器错误"
// @Security BearerAuth
// @Router /message/{message_id}/reaction [post]
func (c *TopicEngine) GinHandleToggleReaction(ctx *gin.Context) {
	messageID, err := strconv.ParseUint(ctx.Param("message_id"), 10, 64)
	if err != nil || messageID == 0 {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, "invalid message_id"))
		return
	}

	var req ToggleReactionReqBody
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}

	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}

	res, err := c.ReactionService.ToggleReaction(caller, messageID, req.Emoji)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(res))
}

// GinHandleMarkTopicRead 标记话题已读
// @Summary 标记话题已读
// @Description 未读清零，已读游标推到最新一条；没有成员行时自动入座
// @Tags 消息
// @Accept json
// @Produce json
// @Param topic_id path uint64 true "话题ID"
// @Success 200 {object} response.Response "成功响应"
// @Failure 400 {object} response.Response "参数错误"
// @Failure 500 {object} response.Response "服务器错误"
// @Security BearerAuth
// @Router /topic/{topic_id}/read [post]
func (c *TopicEngine) GinHandleMarkTopicRead(ctx *gin.Context) {
	topicID, err := strconv.ParseUint(ctx.Param("topic_id"), 10, 64)
	if err != nil || topicID == 0 {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, "invalid topic_id"))
		return
	}

	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}

	if err := c.ReadStateService.MarkTopicRead(caller, topicID); err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(map[string]any{"message": "ok"}))
}

// GinHandleUnreadSnapshot 未读快照
// @Summary 获取未读快照
// @Description 当前用户全部已加入话题的未读数（topic_id -> unread_count）
// @Tags 消息
// @Accept json
// @Produce json
// @Success 200 {object} response.Response{data=map[string]int64} "未读快照"
// @Failure 500 {object} response.Response "服务器错误"
// @Security BearerAuth
// @Router /topics/unread [get]
func (c *TopicEngine) GinHandleUnreadSnapshot(ctx *gin.Context) {
	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}

	snap, err := c.ReadStateService.UnreadSnapshot(caller)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(snap))
}
