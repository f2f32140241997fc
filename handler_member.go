package topic_sdk

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/vicinato/topic-sdk/response"
	"github.com/vicinato/topic-sdk/service"
)

var _ = service.MemberDTO{}

// -------------------- 成员（Member）相关接口 --------------------

// GinHandleListMembers 获取话题成员列表
// @Summary 获取话题成员
// @Description 话题成员列表（带用户摘要，按加入顺序）
// @Tags 成员
// @Accept json
// @Produce json
// @Param topic_id path uint64 true "话题ID"
// @Success 200 {object} response.Response{data=[]service.MemberDTO} "成员列表"
// @Failure 400 {object} response.Response "参数错误"
// @Failure 500 {object} response.Response "服务器错误"
// @Security BearerAuth
// @Router /topic/{topic_id}/members [get]
func (c *TopicEngine) GinHandleListMembers(ctx *gin.Context) {
	topicID, err := strconv.ParseUint(ctx.Param("topic_id"), 10, 64)
	if err != nil || topicID == 0 {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, "invalid topic_id"))
		return
	}

	members, err := c.MemberService.ListMembers(topicID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(members))
}

type AddMemberReqBody struct {
	UserID uint64 `json:"user_id" binding:"required"`
	Role   string `json:"role"`
}

// GinHandleAddMember 添加话题成员
// @Summary 添加话题成员
// @Description 把用户加进话题（需要话题 admin 或平台管理员）
// @Tags 成员
// @Accept json
// @Produce json
// @Param topic_id path uint64 true "话题ID"
// @Param req body AddMemberReqBody true "成员信息"
// @Success 200 {object} response.Response "成功响应"
// @Failure 400 {object} response.Response "参数错误"
// @Failure 500 {object} response.Response "服务器错误"
// @Security BearerAuth
// @Router /topic/{topic_id}/members [post]
func (c *TopicEngine) GinHandleAddMember(ctx *gin.Context) {
	topicID, err := strconv.ParseUint(ctx.Param("topic_id"), 10, 64)
	if err != nil || topicID == 0 {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, "invalid topic_id"))
		return
	}

	var req AddMemberReqBody
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}

	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}

	if err := c.MemberService.AddMember(caller, topicID, req.UserID, req.Role); err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(map[string]any{"message": "成员已添加"}))
}

type RemoveMemberReqBody struct {
	UserID uint64 `json:"user_id" binding:"required"`
}

// GinHandleRemoveMember 移除话题成员
// @Summary 移除话题成员
// @Description 把用户移出话题（自己退出不需要管理权）
// @Tags 成员
// @Accept json
// @Produce json
// @Param topic_id path uint64 true "话题ID"
// @Param req body RemoveMemberReqBody true "成员信息"
// @Success 200 {object} response.Response "成功响应"
// @Failure 400 {object} response.Response "参数错误"
// @Failure 500 {object} response.Response "服务器错误"
// @Security BearerAuth
// @Router /topic/{topic_id}/members/remove [post]
func (c *TopicEngine) GinHandleRemoveMember(ctx *gin.Context) {
	topicID, err := strconv.ParseUint(ctx.Param("topic_id"), 10, 64)
	if err != nil || topicID == 0 {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, "invalid topic_id"))
		return
	}

	var req RemoveMemberReqBody
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}

	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}

	if err := c.MemberService.RemoveMember(caller, topicID, req.UserID); err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(map[string]any{"message": "成员已移除"}))
}

type UpdateMemberRoleReqBody struct {
	UserID uint64 `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"required"`
}

// GinHandleUpdateMemberRole 调整成员角色
// @Summary 调整成员角色
// @Description 调整成员在话题内的角色（viewer/writer/moderator/admin）
// @Tags 成员
// @Accept json
// @Produce json
// @Param topic_id path uint64 true "话题ID"
// @Param req body UpdateMemberRoleReqBody true "角色信息"
// @Success 200 {object} response.Response "成功响应"
// @Failure 400 {object} response.Response "参数错误"
// @Failure 500 {object} response.Response "服务器错误"
// @Security BearerAuth
// @Router /topic/{topic_id}/members/role [post]
func (c *TopicEngine) GinHandleUpdateMemberRole(ctx *gin.Context) {
	topicID, err := strconv.ParseUint(ctx.Param("topic_id"), 10, 64)
	if err != nil || topicID == 0 {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, "invalid topic_id"))
		return
	}

	var req UpdateMemberRoleReqBody
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}

	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}

	if err := c.MemberService.UpdateMemberRole(caller, topicID, req.UserID, req.Role); err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(map[string]any{"message": "角色已更新"}))
}

// GinHandleJoinTopic 加入话题
// @Summary 加入话题
// @Description 自助加入一个可见的话题；members_only 话题不能自助加入
// @Tags 成员
// @Accept json
// @Produce json
// @Param topic_id path uint64 true "话题ID"
// @Success 200 {object} response.Response "成功响应"
// @Failure 400 {object} response.Response "参数错误"
// @Failure 500 {object} response.Response "服务器错误"
// @Security BearerAuth
// @Router /topic/{topic_id}/join [post]
func (c *TopicEngine) GinHandleJoinTopic(ctx *gin.Context) {
	topicID, err := strconv.ParseUint(ctx.Param("topic_id"), 10, 64)
	if err != nil || topicID == 0 {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, "invalid topic_id"))
		return
	}

	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}

	if err := c.MemberService.JoinTopic(caller, topicID); err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(map[string]any{"message": "已加入话题"}))
}

type MuteTopicReqBody struct {
	// Muted 用指针区分 false 和未传
	Muted *bool `json:"muted" binding:"required"`
}

// GinHandleSetTopicMute 设置话题免打扰
// @Summary 设置话题免打扰
// @Description 开关自己在该话题的免打扰标记
// @Tags 成员
// @Accept json
// @Produce json
// @Param topic_id path uint64 true "话题ID"
// @Param req body MuteTopicReqBody true "免打扰开关"
// @Success 200 {object} response.Response "成功响应"
// @Failure 400 {object} response.Response "参数错误"
// @Failure 500 {object} response.Response "服务器错误"
// @Security BearerAuth
// @Router /topic/{topic_id}/mute [post]
func (c *TopicEngine) GinHandleSetTopicMute(ctx *gin.Context) {
	topicID, err := strconv.ParseUint(ctx.Param("topic_id"), 10, 64)
	if err != nil || topicID == 0 {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, "invalid topic_id"))
		return
	}

	var req MuteTopicReqBody
	if err := ctx.ShouldBindJSON(&req); err != nil || req.Muted == nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, "muted is required"))
		return
	}

	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}

	if err := c.MemberService.SetTopicMute(caller, topicID, *req.Muted); err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(map[string]any{"message": "ok"}))
}
