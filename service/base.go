package service

import (
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Service 基础服务，包含数据库和配置
type Service struct {
	DB          *gorm.DB
	RDB         *redis.Client
	TablePrefix string

	// Debug 开启后部分接口会返回额外调试信息
	Debug bool

	// Storage 对象存储协作方（图片/语音上传）。
	// 引擎只做校验和元数据拼装，字节落盘交给它。
	Storage ObjectStorage

	// Notify 通知服务（@提及、管理删除等事件落库 + HTTP 拉取）
	Notify *NotifyService
}

// Table 获取带前缀的表名
func (s *Service) Table(name string) *gorm.DB {
	return s.DB.Table(name)
}
