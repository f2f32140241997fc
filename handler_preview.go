package topic_sdk

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vicinato/topic-sdk/response"
	"github.com/vicinato/topic-sdk/service"
)

var _ = service.LinkPreview{}

// GinHandleLinkPreview 链接预览
// @Summary 链接预览
// @Description 抓取链接的 OG 元信息生成预览卡片（结果缓存 1 小时）
// @Tags 媒体
// @Accept json
// @Produce json
// @Param url query string true "目标链接（http/https）"
// @Success 200 {object} response.Response{data=service.LinkPreview} "预览卡片"
// @Failure 400 {object} response.Response "参数错误"
// @Security BearerAuth
// @Router /link-preview [get]
func (c *TopicEngine) GinHandleLinkPreview(ctx *gin.Context) {
	rawURL := ctx.Query("url")
	if rawURL == "" {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, "url is required"))
		return
	}

	p, err := c.LinkPreviewService.Fetch(ctx.Request.Context(), rawURL)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(p))
}
