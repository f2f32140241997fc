package message

import "encoding/json"

// Metadata 消息结构化元数据。
// 原则：一个 JSON 列承载所有可选扩展，但 Go 侧是强类型结构而不是 map；
// @提及列表固定放在 mentions 键下，和图片/语音等其它扩展共用这一个字段。
type Metadata struct {
	// Images 多图消息
	Images []ImageAttachment `json:"images,omitempty"`

	// 单图（兼容早期单图消息）
	URL    string `json:"url,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Alt    string `json:"alt,omitempty"`

	// Mentions 被@的用户 ID 列表
	Mentions []uint64 `json:"mentions,omitempty"`

	// Voice 语音消息
	Voice *VoiceInfo `json:"voice,omitempty"`

	// Source 自动转贴来源（活动/市集等模块发进话题的卡片）
	Source *AutoPostSource `json:"source,omitempty"`
}

// ImageAttachment 图片附件
type ImageAttachment struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// VoiceInfo 语音消息信息
type VoiceInfo struct {
	Duration float64 `json:"duration"`  // 时长（秒）
	Size     int64   `json:"size"`      // 文件大小（字节）
	MimeType string  `json:"mime_type"` // audio/webm、audio/mp4 等
	Waveform []int   `json:"waveform"`  // 最多 64 个采样点，0-100，用于波形展示
}

// AutoPostSource 自动转贴来源
type AutoPostSource struct {
	Type  string `json:"type"`  // events/marketplace/proposals
	ID    uint64 `json:"id"`    // 来源记录 ID
	Title string `json:"title"` // 卡片标题
}

// IsZero 元数据是否为空（为空时消息不落 metadata 列）
func (m *Metadata) IsZero() bool {
	if m == nil {
		return true
	}
	return len(m.Images) == 0 && m.URL == "" && len(m.Mentions) == 0 &&
		m.Voice == nil && m.Source == nil
}

// Marshal 序列化为 JSON 字节；空元数据返回 nil。
func (m *Metadata) Marshal() ([]byte, error) {
	if m.IsZero() {
		return nil, nil
	}
	return json.Marshal(m)
}

// Unmarshal 从 JSON 列解析元数据；空列返回 nil。
func Unmarshal(raw []byte) (*Metadata, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var m Metadata
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
