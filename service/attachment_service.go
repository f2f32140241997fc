package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/vicinato/topic-sdk/message"
)

// 附件大小上限
const (
	MaxImageSize = 5 * 1024 * 1024  // 5MB
	MaxVoiceSize = 10 * 1024 * 1024 // 10MB
)

// 允许的附件 MIME 类型 -> 存储后缀
var (
	imageMimeExt = map[string]string{
		"image/jpeg": "jpg",
		"image/png":  "png",
		"image/gif":  "gif",
		"image/webp": "webp",
	}
	voiceMimeExt = map[string]string{
		"audio/webm": "webm",
		"audio/mp4":  "m4a",
		"audio/mpeg": "mp3",
		"audio/ogg":  "ogg",
		"audio/wav":  "wav",
	}
)

// ObjectStorage 对象存储协作方。引擎只做校验和 key 规划，
// 字节怎么落（本地盘、S3、OSS）由宿主注入的实现决定。
// 返回值是外部可访问的 URL。
type ObjectStorage interface {
	Put(ctx context.Context, key, contentType string, r io.Reader, size int64) (string, error)
}

// Upload 一次上传的输入
type Upload struct {
	Filename    string
	Size        int64
	ContentType string
	Reader      io.Reader
}

// UploadResult 上传结果
type UploadResult struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

type AttachmentService struct {
	*Service
	msgService *MessageService
}

func NewAttachmentService(s *Service, msgService *MessageService) *AttachmentService {
	return &AttachmentService{Service: s, msgService: msgService}
}

// storageKey 形如 <topicID>/<userID>/<毫秒时间戳>.<ext>
func storageKey(topicID, userID uint64, ext string) string {
	return fmt.Sprintf("%d/%d/%d.%s", topicID, userID, time.Now().UnixMilli(), ext)
}

// UploadTopicImage 上传话题图片。大小和类型在任何存储调用之前校验：
// 超限/类型不对的文件一个字节都不会发给存储层。
func (s *AttachmentService) UploadTopicImage(ctx context.Context, caller Caller, topicID uint64, up Upload) (*UploadResult, error) {
	if !caller.Valid() {
		return nil, ErrUnauthenticated
	}
	if s.Storage == nil {
		return nil, internalErr("UploadTopicImage", fmt.Errorf("no object storage configured"))
	}
	if up.Size <= 0 {
		return nil, validationErr("文件为空")
	}
	if up.Size > MaxImageSize {
		return nil, validationErr("图片不能超过 5MB")
	}
	ext, ok := imageMimeExt[normalizeMime(up.ContentType)]
	if !ok {
		return nil, validationErr("仅支持 JPEG/PNG/GIF/WebP 图片")
	}

	key := storageKey(topicID, caller.UserID, ext)
	url, err := s.Storage.Put(ctx, key, up.ContentType, up.Reader, up.Size)
	if err != nil {
		return nil, internalErr("UploadTopicImage", err)
	}
	return &UploadResult{URL: url, Key: key, Size: up.Size, ContentType: up.ContentType}, nil
}

// UploadTopicVoice 上传语音。校验先于存储调用，同图片。
func (s *AttachmentService) UploadTopicVoice(ctx context.Context, caller Caller, topicID uint64, up Upload) (*UploadResult, error) {
	if !caller.Valid() {
		return nil, ErrUnauthenticated
	}
	if s.Storage == nil {
		return nil, internalErr("UploadTopicVoice", fmt.Errorf("no object storage configured"))
	}
	if up.Size <= 0 {
		return nil, validationErr("文件为空")
	}
	if up.Size > MaxVoiceSize {
		return nil, validationErr("语音不能超过 10MB")
	}
	ext, ok := voiceMimeExt[normalizeMime(up.ContentType)]
	if !ok {
		return nil, validationErr("不支持的音频格式")
	}

	key := storageKey(topicID, caller.UserID, ext)
	url, err := s.Storage.Put(ctx, key, up.ContentType, up.Reader, up.Size)
	if err != nil {
		return nil, internalErr("UploadTopicVoice", err)
	}
	return &UploadResult{URL: url, Key: key, Size: up.Size, ContentType: up.ContentType}, nil
}

// SendVoiceReq 发语音消息入参
type SendVoiceReq struct {
	Upload   Upload
	Duration float64 // 秒
	Waveform []int   // 0-100 的采样，最多 64 个点
}

// SendVoiceMessage 上传语音并发出一条 voice 类型消息。
// 波形超过 64 个点时均匀抽稀，消息文本是"语音消息 (Ns)"占位。
func (s *AttachmentService) SendVoiceMessage(ctx context.Context, caller Caller, topicID uint64, req SendVoiceReq) (*MessageItemDTO, error) {
	if req.Duration <= 0 {
		return nil, validationErr("语音时长不正确")
	}

	res, err := s.UploadTopicVoice(ctx, caller, topicID, req.Upload)
	if err != nil {
		return nil, err
	}

	md := &message.Metadata{
		URL: res.URL,
		Voice: &message.VoiceInfo{
			Duration: req.Duration,
			Size:     res.Size,
			MimeType: res.ContentType,
			Waveform: downsampleWaveform(req.Waveform, 64),
		},
	}
	content := fmt.Sprintf("语音消息 (%ds)", int(req.Duration+0.5))
	return s.msgService.SendMessage(caller, topicID, SendMessageReq{Content: content, Metadata: md})
}

// downsampleWaveform 均匀抽稀到最多 n 个点
func downsampleWaveform(samples []int, n int) []int {
	if len(samples) <= n {
		return samples
	}
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = samples[i*len(samples)/n]
	}
	return out
}

// normalizeMime 去掉参数部分（"image/jpeg; charset=..." -> "image/jpeg"）
func normalizeMime(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// ExtFromFilename 从文件名取后缀（不含点，小写）。上传 key 以 MIME 推断为准，
// 这里只给 handler 在分片缺 Content-Type 时做兜底。
func ExtFromFilename(name string) string {
	ext := strings.TrimPrefix(path.Ext(name), ".")
	return strings.ToLower(ext)
}
