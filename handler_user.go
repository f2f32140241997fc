package topic_sdk

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vicinato/topic-sdk/response"
	"github.com/vicinato/topic-sdk/service"
)

// -------------------- 用户（User）相关接口 --------------------

// GinHandleGetUserInfo 获取用户信息
// @Summary 获取用户信息
// @Description 根据 user_id 查询用户详情，如果不传 user_id 则查询当前登录用户
// @Tags 用户
// @Accept json
// @Produce json
// @Param user_id query uint64 false "用户ID (不传则查自己)"
// @Success 200 {object} response.Response{data=service.UserDTO} "查询成功"
// @Failure 400 {object} response.Response "参数错误"
// @Failure 401 {object} response.Response "未登录"
// @Security BearerAuth
// @Router /user/info [get]
func (c *TopicEngine) GinHandleGetUserInfo(ctx *gin.Context) {
	var targetUserID uint64

	if userIDStr := ctx.Query("user_id"); userIDStr != "" {
		id, err := strconv.ParseUint(userIDStr, 10, 64)
		if err != nil || id == 0 {
			ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, "invalid user_id"))
			return
		}
		targetUserID = id
	} else {
		caller, ok := callerFrom(ctx)
		if !ok {
			return
		}
		targetUserID = caller.UserID
	}

	u, err := c.UserService.GetUser(targetUserID)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeUserNotFound, err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(u))
}

// GinHandleUserRegister 用户注册
// @Summary 用户注册
// @Description 创建新用户账号，注册后自动加入公开/登录可见的常驻话题
// @Tags 用户
// @Accept json
// @Produce json
// @Param req body service.RegisterReq true "注册信息"
// @Success 200 {object} response.Response "注册成功"
// @Failure 400 {object} response.Response "请求错误"
// @Router /user/register [post]
func (c *TopicEngine) GinHandleUserRegister(ctx *gin.Context) {
	var req service.RegisterReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}

	if err := c.UserService.Register(ctx.Request.Context(), req); err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(nil))
}

// GinHandleUserLogin 用户登录
// @Summary 用户登录
// @Description 用户登录并返回 token
// @Tags 用户
// @Accept json
// @Produce json
// @Param req body service.LoginReq true "登录信息"
// @Success 200 {object} response.Response{data=service.LoginResp} "登录响应（token + 用户信息）"
// @Failure 401 {object} response.Response "认证失败"
// @Router /user/login [post]
func (c *TopicEngine) GinHandleUserLogin(ctx *gin.Context) {
	var req service.LoginReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}

	resp, err := c.UserService.LoginWithToken(ctx.Request.Context(), req)
	if err != nil {
		// 登录失败返回 HTTP 401 + 统一 response 格式
		ctx.JSON(http.StatusUnauthorized, response.Error(response.CodePasswordError, err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(resp))
}

// GinHandleUserLogout 用户登出
// @Summary 用户登出
// @Description 注销当前 token
// @Tags 用户
// @Accept json
// @Produce json
// @Success 200 {object} response.Response "成功响应"
// @Security BearerAuth
// @Router /user/logout [post]
func (c *TopicEngine) GinHandleUserLogout(ctx *gin.Context) {
	tokenAny, exists := ctx.Get("token")
	if !exists {
		ctx.JSON(http.StatusUnauthorized, response.Error(response.CodeTokenInvalid, "token not found"))
		return
	}
	token, _ := tokenAny.(string)

	if err := c.AuthService.RevokeToken(ctx.Request.Context(), token); err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(map[string]any{"message": "已退出登录"}))
}

// GinHandleUpdateUserPassword 修改密码
// @Summary 修改用户密码
// @Description 修改当前登录用户的密码
// @Tags 用户
// @Accept json
// @Produce json
// @Param req body service.UpdatePasswordReq true "新密码"
// @Success 200 {object} response.Response "成功响应"
// @Failure 400 {object} response.Response "请求错误"
// @Security BearerAuth
// @Router /user/password [post]
func (c *TopicEngine) GinHandleUpdateUserPassword(ctx *gin.Context) {
	var req service.UpdatePasswordReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}
	if strings.TrimSpace(req.NewPassword) == "" {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, "new_password is required"))
		return
	}

	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}

	if err := c.UserService.UpdatePassword(caller.UserID, req.NewPassword); err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(map[string]any{"message": "密码已更新"}))
}

// GinHandleSearchUsers 搜索用户
// @Summary 搜索用户
// @Description 按关键字搜索用户（username/nickname/uid），自动排除自己
// @Tags 用户
// @Accept json
// @Produce json
// @Param keyword query string false "搜索关键字"
// @Param limit query int false "返回条数"
// @Param offset query int false "偏移量"
// @Success 200 {object} response.Response{data=[]service.UserDTO} "用户列表"
// @Failure 500 {object} response.Response "服务器错误"
// @Security BearerAuth
// @Router /user/search [get]
func (c *TopicEngine) GinHandleSearchUsers(ctx *gin.Context) {
	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}

	keyword := ctx.Query("keyword")
	limit, _ := strconv.Atoi(ctx.Query("limit"))
	offset, _ := strconv.Atoi(ctx.Query("offset"))

	users, err := c.UserService.SearchUsers(keyword, caller.UserID, limit, offset)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(users))
}
