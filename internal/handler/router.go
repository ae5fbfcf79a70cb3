package handler

import (
	"mlmsystem/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// SetupRouter 配置路由
func SetupRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *gin.Engine {
	// 设置 gin 为发布模式（减少日志输出）
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// 注册中间件
	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	// 创建处理器
	h := NewHandler(db, rdb, cfg)

	// API 路由组
	api := r.Group("/api/v1")
	{
		// 会员相关
		member := api.Group("/member")
		{
			member.POST("/root", h.CreateRoot)
			member.POST("/register", h.Register)
			member.GET("/detail", h.GetMember)
			member.GET("/tree", h.GetTree)
			member.GET("/list", h.ListMembers)
		}

		// 钱包相关
		wallet := api.Group("/wallet")
		{
			wallet.GET("/balance", h.GetBalance)
			wallet.POST("/recharge", h.Recharge)
			wallet.GET("/transactions", h.ListTransactions)
		}

		// 消费相关
		purchase := api.Group("/purchase")
		{
			purchase.POST("/execute", h.Purchase)
			purchase.GET("/detail", h.GetOrder)
			purchase.GET("/list", h.ListOrders)
		}

		// 奖金相关
		bonus := api.Group("/bonus")
		{
			bonus.GET("/payouts", h.ListPayouts)
			bonus.GET("/bv-summary", h.GetBVSummary)
		}

		// 职级相关
		rank := api.Group("/rank")
		{
			rank.GET("/history", h.ListRankHistory)
		}

		// 提现相关
		withdraw := api.Group("/withdraw")
		{
			withdraw.POST("/apply", h.ApplyWithdraw)
			withdraw.GET("/list", h.ListWithdraws)
		}

		// 管理端
		admin := api.Group("/admin")
		{
			admin.GET("/withdraw/list", h.ListWithdrawsByStatus)
			admin.POST("/withdraw/approve", h.ApproveWithdraw)
			admin.POST("/withdraw/reject", h.RejectWithdraw)
			admin.POST("/withdraw/pay", h.PayWithdraw)
			admin.GET("/rank/pending", h.ListPendingRankRewards)
			admin.POST("/rank/acknowledge", h.AcknowledgeRankReward)
			admin.POST("/member/block", h.BlockMember)
			admin.GET("/reconcile", h.ReconcileMember)
			admin.POST("/settle", h.TriggerSettle)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
