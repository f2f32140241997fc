package topic_sdk

import (
	"log"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/vicinato/topic-sdk/middleware"
	model "github.com/vicinato/topic-sdk/models"
	"github.com/vicinato/topic-sdk/service"
)

type TopicEngine struct {
	config *Config

	UserService        *service.UserService
	MsgService         *service.MessageService
	ReactionService    *service.ReactionService
	ReadStateService   *service.ReadStateService
	MemberService      *service.MemberService
	AttachmentService  *service.AttachmentService
	LinkPreviewService *service.LinkPreviewService
	NotifyService      *service.NotifyService
	AuthService        *service.AuthService // 鉴权服务
}

var (
	Instance *TopicEngine
	once     sync.Once
)

// NewEngine 创建实例
// 使用选项模式传入配置，Option回调
func NewEngine(opts ...Option) *TopicEngine {
	once.Do(func() {
		c := &Config{
			TablePrefix: "tp_", // Default
		}
		for _, opt := range opts {
			opt(c)
		}

		Instance = &TopicEngine{config: c}

		baseService := &service.Service{
			DB:          c.DB,
			RDB:         c.RDB,
			TablePrefix: c.TablePrefix,
			Debug:       c.Service.Debug,
			Storage:     c.Storage,
		}

		// 通知服务先建好，其他服务通过 baseService 引用它
		baseService.Notify = service.NewNotifyService(baseService)
		Instance.NotifyService = baseService.Notify

		Instance.MsgService = service.NewMessageService(baseService)
		Instance.ReactionService = service.NewReactionService(baseService)
		Instance.ReadStateService = service.NewReadStateService(baseService)
		Instance.MemberService = service.NewMemberService(baseService)
		Instance.UserService = service.NewUserService(baseService, Instance.MemberService)
		Instance.AttachmentService = service.NewAttachmentService(baseService, Instance.MsgService)
		Instance.LinkPreviewService = service.NewLinkPreviewService(baseService)
		Instance.AuthService = service.NewAuthService(c.RDB) // 初始化鉴权服务

		// 迁移表
		if err := Instance.AutoMigrate(); err != nil {
			log.Printf("AutoMigrate failed: %v", err)
		}
	})

	return Instance
}

func (c *TopicEngine) AutoMigrate() error {
	db := c.config.DB
	log.Println("AutoMigrate...")
	if err := db.AutoMigrate(
		&model.User{},
		&model.Topic{},
		&model.TopicMessage{},
		&model.MessageReaction{},
		&model.TopicMember{},
		&model.TopicNotification{},
		&model.TopicNotificationDelivery{},
	); err != nil {
		return err
	}
	return c.EnsureUniqueIndexes()
}

/*
*	提供的HTTP接口在此处，也可以直接自己写controller然后调用service
*	推荐自己写controller，因为这样更灵活
 */

// GinAuthMiddleware 返回配置好的 Gin 鉴权中间件
// 使用 TopicEngine 内部的 AuthService 和 Redis 配置
//
// 使用示例:
//
//	engine := topic_sdk.NewEngine(...)
//	r := gin.Default()
//	r.Use(engine.GinAuthMiddleware(nil)) // 使用默认配置
//	// 或自定义配置
//	r.Use(engine.GinAuthMiddleware(&middleware.AuthOptions{
//	    HeaderKey: "X-Token",
//	    QueryKey: "access_token",
//	}))
func (c *TopicEngine) GinAuthMiddleware(opt *middleware.AuthOptions) gin.HandlerFunc {
	return middleware.GinAuthMiddleware(c.AuthService, opt)
}
