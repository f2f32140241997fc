package topic_sdk

import (
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vicinato/topic-sdk/response"
	"github.com/vicinato/topic-sdk/service"
)

// -------------------- 媒体（Media）相关接口 --------------------

// formUpload 从 multipart 表单取出上传文件（字段名 file）
func formUpload(ctx *gin.Context) (*service.Upload, func(), bool) {
	fh, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, "file is required"))
		return nil, nil, false
	}

	f, err := fh.Open()
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return nil, nil, false
	}

	// 浏览器偶尔不带分片的 Content-Type，按文件名后缀兜底
	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = mime.TypeByExtension("." + service.ExtFromFilename(fh.Filename))
	}
	up := &service.Upload{
		Filename:    fh.Filename,
		Size:        fh.Size,
		ContentType: ct,
		Reader:      f,
	}
	return up, func() { _ = f.Close() }, true
}

// GinHandleUploadTopicImage 上传话题图片
// @Summary 上传话题图片
// @Description 上传图片附件（≤5MB，JPEG/PNG/GIF/WebP），返回可访问 URL
// @Tags 媒体
// @Accept multipart/form-data
// @Produce json
// @Param topic_id path uint64 true "话题ID"
// @Param file formData file true "图片文件"
// @Success 200 {object} response.Response{data=service.UploadResult} "上传结果"
// @Failure 400 {object} response.Response "参数错误"
// @Failure 500 {object} response.Response "服务器错误"
// @Security BearerAuth
// @Router /topic/{topic_id}/upload/image [post]
func (c *TopicEngine) GinHandleUploadTopicImage(ctx *gin.Context) {
	topicID, err := strconv.ParseUint(ctx.Param("topic_id"), 10, 64)
	if err != nil || topicID == 0 {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, "invalid topic_id"))
		return
	}

	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}

	up, closeFn, ok := formUpload(ctx)
	if !ok {
		return
	}
	defer closeFn()

	res, err := c.AttachmentService.UploadTopicImage(ctx.Request.Context(), caller, topicID, *up)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(res))
}

// GinHandleUploadTopicVoice 上传话题语音
// @Summary 上传话题语音
// @Description 上传语音附件（≤10MB，WebM/MP4/MPEG/OGG/WAV），返回可访问 URL
// @Tags 媒体
// @Accept multipart/form-data
// @Produce json
// @Param topic_id path uint64 true "话题ID"
// @Param file formData file true "音频文件"
// @Success 200 {object} response.Response{data=service.UploadResult} "上传结果"
// @Failure 400 {object} response.Response "参数错误"
// @Failure 500 {object} response.Response "服务器错误"
// @Security BearerAuth
// @Router /topic/{topic_id}/upload/voice [post]
func (c *TopicEngine) GinHandleUploadTopicVoice(ctx *gin.Context) {
	topicID, err := strconv.ParseUint(ctx.Param("topic_id"), 10, 64)
	if err != nil || topicID == 0 {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, "invalid topic_id"))
		return
	}

	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}

	up, closeFn, ok := formUpload(ctx)
	if !ok {
		return
	}
	defer closeFn()

	res, err := c.AttachmentService.UploadTopicVoice(ctx.Request.Context(), caller, topicID, *up)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(res))
}

// GinHandleSendVoiceMessage 发语音消息
// @Summary 发语音消息
// @Description 上传语音并直接发出一条 voice 类型消息；表单字段：file + duration(秒) + waveform(逗号分隔的 0-100 采样)
// @Tags 媒体
// @Accept multipart/form-data
// @Produce json
// @Param topic_id path uint64 true "话题ID"
// @Param file formData file true "音频文件"
// @Param duration formData number true "语音时长（秒）"
// @Param waveform formData string false "波形采样，逗号分隔"
// @Success 200 {object} response.Response{data=service.MessageItemDTO} "发出的消息"
// @Failure 400 {object} response.Response "参数错误"
// @Failure 500 {object} response.Response "服务器错误"
// @Security BearerAuth
// @Router /topic/{topic_id}/voice [post]
func (c *TopicEngine) GinHandleSendVoiceMessage(ctx *gin.Context) {
	topicID, err := strconv.ParseUint(ctx.Param("topic_id"), 10, 64)
	if err != nil || topicID == 0 {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, "invalid topic_id"))
		return
	}

	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}

	duration, err := strconv.ParseFloat(ctx.PostForm("duration"), 64)
	if err != nil || duration <= 0 {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, "invalid duration"))
		return
	}

	var waveform []int
	if wf := ctx.PostForm("waveform"); wf != "" {
		for _, part := range strings.Split(wf, ",") {
			v, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				continue
			}
			waveform = append(waveform, v)
		}
	}

	up, closeFn, ok := formUpload(ctx)
	if !ok {
		return
	}
	defer closeFn()

	msg, err := c.AttachmentService.SendVoiceMessage(ctx.Request.Context(), caller, topicID, service.SendVoiceReq{
		Upload:   *up,
		Duration: duration,
		Waveform: waveform,
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(msg))
}
