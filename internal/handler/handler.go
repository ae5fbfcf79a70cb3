package handler

import (
	"errors"
	"strconv"

	"mlmsystem/internal/config"
	"mlmsystem/internal/repository"
	"mlmsystem/internal/service"
	"mlmsystem/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	memberService   *service.MemberService
	walletService   *service.WalletService
	purchaseService *service.PurchaseService
	bonusService    *service.BonusService
	rankService     *service.RankService
	withdrawService *service.WithdrawService
	reportService   *service.ReportService
}

// NewHandler 创建处理器实例
func NewHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *Handler {
	return &Handler{
		memberService:   service.NewMemberService(db, cfg),
		walletService:   service.NewWalletService(db),
		purchaseService: service.NewPurchaseService(db, rdb, cfg),
		bonusService:    service.NewBonusService(db, rdb, cfg),
		rankService:     service.NewRankService(db, cfg),
		withdrawService: service.NewWithdrawService(db, rdb, cfg),
		reportService:   service.NewReportService(db, cfg),
	}
}

func parseIDQuery(c *gin.Context, key string) (int64, bool) {
	id, err := strconv.ParseInt(c.Query(key), 10, 64)
	if err != nil || id <= 0 {
		response.ParamError(c, key+" 参数错误")
		return 0, false
	}
	return id, true
}

func parsePage(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	return page, pageSize
}

// ============================================================
// 会员相关接口
// ============================================================

// CreateRootRequest 创建根节点请求
type CreateRootRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
}

// CreateRoot 创建安置树根节点（系统初始化用）
// POST /api/v1/member/root
func (h *Handler) CreateRoot(c *gin.Context) {
	var req CreateRootRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	member, err := h.memberService.CreateRoot(c.Request.Context(), req.Username, req.Email)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, member)
}

// Register 会员注册并入树
// POST /api/v1/member/register
//
// 【关键点】推荐人和安置父节点是两个独立身份：
// 直推奖发给推荐人，计数上行沿安置父链走
func (h *Handler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	member, err := h.memberService.Register(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrMemberNotFound):
			response.BusinessError(c, response.CodeMemberNotFound, err.Error())
		case errors.Is(err, repository.ErrSlotOccupied):
			response.BusinessError(c, response.CodeSlotOccupied, err.Error())
		case errors.Is(err, service.ErrMemberBlocked):
			response.BusinessError(c, response.CodeMemberBlocked, err.Error())
		default:
			response.ServerError(c, err.Error())
		}
		return
	}

	response.Success(c, gin.H{
		"member_id": member.ID,
		"member_no": member.MemberNo,
		"parent_id": member.ParentID,
		"position":  member.Position,
	})
}

// GetMember 查询会员详情
// GET /api/v1/member/detail?member_id=xxx
func (h *Handler) GetMember(c *gin.Context) {
	memberID, ok := parseIDQuery(c, "member_id")
	if !ok {
		return
	}

	member, err := h.memberService.GetMember(c.Request.Context(), memberID)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			response.BusinessError(c, response.CodeMemberNotFound, err.Error())
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, member)
}

// GetTree 查询安置子树
// GET /api/v1/member/tree?member_id=xxx&depth=3
func (h *Handler) GetTree(c *gin.Context) {
	memberID, ok := parseIDQuery(c, "member_id")
	if !ok {
		return
	}
	depth, _ := strconv.Atoi(c.DefaultQuery("depth", "3"))

	tree, err := h.memberService.GetTree(c.Request.Context(), memberID, depth)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			response.BusinessError(c, response.CodeMemberNotFound, err.Error())
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, tree)
}

// ListMembers 会员列表
// GET /api/v1/member/list?page=1&page_size=10
func (h *Handler) ListMembers(c *gin.Context) {
	page, pageSize := parsePage(c)

	members, total, err := h.memberService.ListMembers(c.Request.Context(), page, pageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"list":      members,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// 钱包相关接口
// ============================================================

// GetBalance 查询钱包余额
// GET /api/v1/wallet/balance?member_id=xxx
func (h *Handler) GetBalance(c *gin.Context) {
	memberID, ok := parseIDQuery(c, "member_id")
	if !ok {
		return
	}

	balance, err := h.walletService.GetBalance(c.Request.Context(), memberID)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"member_id": memberID,
		"balance":   balance,
	})
}

// RechargeRequest 充值请求
type RechargeRequest struct {
	MemberID int64 `json:"member_id" binding:"required"`
	Amount   int64 `json:"amount" binding:"required,gt=0"`
}

// Recharge 充值（简化版，实际应该走支付渠道）
// POST /api/v1/wallet/recharge
func (h *Handler) Recharge(c *gin.Context) {
	var req RechargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.walletService.Recharge(c.Request.Context(), req.MemberID, req.Amount); err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"message": "充值成功",
	})
}

// ListTransactions 查询钱包流水
// GET /api/v1/wallet/transactions?member_id=xxx&page=1&page_size=10
func (h *Handler) ListTransactions(c *gin.Context) {
	memberID, ok := parseIDQuery(c, "member_id")
	if !ok {
		return
	}
	page, pageSize := parsePage(c)

	txns, total, err := h.walletService.ListTransactions(c.Request.Context(), memberID, page, pageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"list":      txns,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// 消费相关接口
// ============================================================

// Purchase 执行消费
// POST /api/v1/purchase/execute
//
// 【关键点】消费是业绩入树的唯一入口，一个事务内完成：
// 1. 幂等性：相同的 request_id 只会执行一次
// 2. 扣款、订单落库、直推奖、祖先计数上行同时成功或同时失败
// 3. 碰对结算只投递任务，由 worker 异步执行
func (h *Handler) Purchase(c *gin.Context) {
	var req service.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.purchaseService.Purchase(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBalanceNotEnough):
			response.BusinessError(c, response.CodeBalanceNotEnough, err.Error())
		case errors.Is(err, repository.ErrMemberNotFound):
			response.BusinessError(c, response.CodeMemberNotFound, err.Error())
		case errors.Is(err, service.ErrMemberBlocked):
			response.BusinessError(c, response.CodeMemberBlocked, err.Error())
		default:
			response.BusinessError(c, response.CodePurchaseFailed, err.Error())
		}
		return
	}

	response.Success(c, result)
}

// GetOrder 查询订单详情
// GET /api/v1/purchase/detail?order_no=xxx
func (h *Handler) GetOrder(c *gin.Context) {
	orderNo := c.Query("order_no")
	if orderNo == "" {
		response.ParamError(c, "order_no 参数不能为空")
		return
	}

	order, err := h.purchaseService.GetOrder(c.Request.Context(), orderNo)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, order)
}

// ListOrders 查询会员订单列表
// GET /api/v1/purchase/list?member_id=xxx&page=1&page_size=10
func (h *Handler) ListOrders(c *gin.Context) {
	memberID, ok := parseIDQuery(c, "member_id")
	if !ok {
		return
	}
	page, pageSize := parsePage(c)

	orders, total, err := h.purchaseService.ListOrders(c.Request.Context(), memberID, page, pageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"list":      orders,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// 奖金相关接口
// ============================================================

// ListPayouts 查询碰对发放记录
// GET /api/v1/bonus/payouts?member_id=xxx&page=1&page_size=10
func (h *Handler) ListPayouts(c *gin.Context) {
	memberID, ok := parseIDQuery(c, "member_id")
	if !ok {
		return
	}
	page, pageSize := parsePage(c)

	payouts, total, err := h.bonusService.ListPayouts(c.Request.Context(), memberID, page, pageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"list":      payouts,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetBVSummary 查询左右区业绩汇总
// GET /api/v1/bonus/bv-summary?member_id=xxx
func (h *Handler) GetBVSummary(c *gin.Context) {
	memberID, ok := parseIDQuery(c, "member_id")
	if !ok {
		return
	}

	summary, err := h.reportService.GetBVSummary(c.Request.Context(), memberID)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			response.BusinessError(c, response.CodeMemberNotFound, err.Error())
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, summary)
}

// ListRankHistory 查询职级变更历史
// GET /api/v1/rank/history?member_id=xxx
func (h *Handler) ListRankHistory(c *gin.Context) {
	memberID, ok := parseIDQuery(c, "member_id")
	if !ok {
		return
	}

	changes, err := h.rankService.ListRankHistory(c.Request.Context(), memberID)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"list": changes,
	})
}

// ============================================================
// 提现相关接口
// ============================================================

// ApplyWithdraw 申请提现
// POST /api/v1/withdraw/apply
func (h *Handler) ApplyWithdraw(c *gin.Context) {
	var req service.WithdrawApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	wd, err := h.withdrawService.Apply(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBalanceNotEnough):
			response.BusinessError(c, response.CodeBalanceNotEnough, err.Error())
		default:
			response.BusinessError(c, response.CodeWithdrawFailed, err.Error())
		}
		return
	}

	response.Success(c, gin.H{
		"withdraw_no": wd.WithdrawNo,
		"status":      wd.Status,
		"amount":      wd.Amount,
	})
}

// ListWithdraws 查询会员提现记录
// GET /api/v1/withdraw/list?member_id=xxx&page=1&page_size=10
func (h *Handler) ListWithdraws(c *gin.Context) {
	memberID, ok := parseIDQuery(c, "member_id")
	if !ok {
		return
	}
	page, pageSize := parsePage(c)

	list, total, err := h.withdrawService.ListByMember(c.Request.Context(), memberID, page, pageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"list":      list,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// 管理端接口
// ============================================================

// WithdrawReviewRequest 提现审核请求
type WithdrawReviewRequest struct {
	WithdrawNo string `json:"withdraw_no" binding:"required"`
	Reason     string `json:"reason"`
}

// ApproveWithdraw 审核通过提现
// POST /api/v1/admin/withdraw/approve
func (h *Handler) ApproveWithdraw(c *gin.Context) {
	var req WithdrawReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.withdrawService.Approve(c.Request.Context(), req.WithdrawNo); err != nil {
		response.BusinessError(c, response.CodeWithdrawStatusInvalid, err.Error())
		return
	}

	response.Success(c, gin.H{"message": "审核通过"})
}

// RejectWithdraw 驳回提现并退款
// POST /api/v1/admin/withdraw/reject
func (h *Handler) RejectWithdraw(c *gin.Context) {
	var req WithdrawReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.withdrawService.Reject(c.Request.Context(), req.WithdrawNo, req.Reason); err != nil {
		response.BusinessError(c, response.CodeWithdrawStatusInvalid, err.Error())
		return
	}

	response.Success(c, gin.H{"message": "已驳回，金额已退回钱包"})
}

// PayWithdraw 标记提现已打款
// POST /api/v1/admin/withdraw/pay
func (h *Handler) PayWithdraw(c *gin.Context) {
	var req WithdrawReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.withdrawService.MarkPaid(c.Request.Context(), req.WithdrawNo); err != nil {
		response.BusinessError(c, response.CodeWithdrawStatusInvalid, err.Error())
		return
	}

	response.Success(c, gin.H{"message": "已打款"})
}

// ListWithdrawsByStatus 按状态查询提现申请（审核工作台用）
// GET /api/v1/admin/withdraw/list?status=PENDING&page=1&page_size=10
func (h *Handler) ListWithdrawsByStatus(c *gin.Context) {
	status := c.DefaultQuery("status", "PENDING")
	page, pageSize := parsePage(c)

	list, total, err := h.withdrawService.ListByStatus(c.Request.Context(), status, page, pageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"list":      list,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ListPendingRankRewards 查询待发放的晋级奖励
// GET /api/v1/admin/rank/pending?limit=50
func (h *Handler) ListPendingRankRewards(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	changes, err := h.rankService.ListUnrewarded(c.Request.Context(), limit)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"list": changes,
	})
}

// AcknowledgeRankRewardRequest 发放晋级奖励请求
type AcknowledgeRankRewardRequest struct {
	ChangeID int64 `json:"change_id" binding:"required"`
}

// AcknowledgeRankReward 发放晋级奖励
// POST /api/v1/admin/rank/acknowledge
func (h *Handler) AcknowledgeRankReward(c *gin.Context) {
	var req AcknowledgeRankRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.rankService.AcknowledgeReward(c.Request.Context(), req.ChangeID); err != nil {
		response.BusinessError(c, response.CodeRankChangeNotFound, err.Error())
		return
	}

	response.Success(c, gin.H{"message": "晋级奖励已发放"})
}

// BlockMemberRequest 封禁/解封请求
type BlockMemberRequest struct {
	MemberID int64 `json:"member_id" binding:"required"`
	Blocked  *bool `json:"blocked" binding:"required"`
}

// BlockMember 封禁/解封会员
// POST /api/v1/admin/member/block
//
// 被封禁会员不再参与结算和直推奖，但保留树上位置，计数照常上行
func (h *Handler) BlockMember(c *gin.Context) {
	var req BlockMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.memberService.SetBlocked(c.Request.Context(), req.MemberID, *req.Blocked); err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{"message": "操作成功"})
}

// ReconcileMember 单会员对账
// GET /api/v1/admin/reconcile?member_id=xxx
func (h *Handler) ReconcileMember(c *gin.Context) {
	memberID, ok := parseIDQuery(c, "member_id")
	if !ok {
		return
	}

	report, err := h.reportService.ReconcileMember(c.Request.Context(), memberID)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, report)
}

// TriggerSettle 手动触发一次碰对结算（运维兜底入口）
// POST /api/v1/admin/settle
func (h *Handler) TriggerSettle(c *gin.Context) {
	var req struct {
		MemberID int64 `json:"member_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.bonusService.SettleMatching(c.Request.Context(), req.MemberID)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	if result == nil {
		response.Success(c, gin.H{"message": "当前无可结算的碰对"})
		return
	}
	response.Success(c, result)
}
