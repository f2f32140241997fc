package topic_sdk

import (
	"github.com/go-redis/redis/v8"
	"github.com/vicinato/topic-sdk/service"
	"gorm.io/gorm"
)

type ServiceConfig struct {
	Debug bool
}

type Config struct {
	DB          *gorm.DB
	RDB         *redis.Client
	TablePrefix string
	Service     ServiceConfig

	// Storage 对象存储实现（图片/语音上传落地）。
	// 不注入时上传类接口不可用，其余功能不受影响。
	Storage service.ObjectStorage
}

type Option func(*Config)

func WithDB(db *gorm.DB) Option {
	return func(c *Config) {
		c.DB = db
	}
}

func WithTablePrefix(prefix string) Option {
	return func(c *Config) {
		c.TablePrefix = prefix
	}
}

func WithRDB(RDB *redis.Client) Option {
	return func(c *Config) {
		c.RDB = RDB
	}
}

func WithServiceDebug(debug bool) Option {
	return func(c *Config) {
		c.Service.Debug = debug
	}
}

// WithStorage 注入对象存储实现。
func WithStorage(storage service.ObjectStorage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}
