package job

import (
	"context"
	"log"
	"time"

	"mlmsystem/internal/config"
	"mlmsystem/internal/model"
	"mlmsystem/internal/repository"
	"mlmsystem/internal/service"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// MatchingWorker 碰对结算 worker
//
// 消费支付事务投递的 matching_task，把奖金计算从支付链路上剥离。
// 语义是 at-least-once：任务处理失败会重试，结算本身幂等，
// 重复执行同一任务不会重复发奖（计数器已消耗，重算得 0 对）
type MatchingWorker struct {
	db           *gorm.DB
	taskRepo     *repository.TaskRepository
	bonusService *service.BonusService
	cfg          *config.Config
	stopCh       chan struct{}
	interval     time.Duration
	batchSize    int
}

func NewMatchingWorker(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *MatchingWorker {
	return &MatchingWorker{
		db:           db,
		taskRepo:     repository.NewTaskRepository(db),
		bonusService: service.NewBonusService(db, redisClient, cfg),
		cfg:          cfg,
		stopCh:       make(chan struct{}),
		interval:     500 * time.Millisecond,
		batchSize:    100,
	}
}

func (w *MatchingWorker) Start(ctx context.Context) {
	log.Println("[MatchingWorker] 碰对结算任务启动")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[MatchingWorker] 收到停止信号，任务退出")
			return
		case <-w.stopCh:
			log.Println("[MatchingWorker] 任务停止")
			return
		case <-ticker.C:
			w.processPendingTasks(ctx)
		}
	}
}

func (w *MatchingWorker) Stop() {
	close(w.stopCh)
}

func (w *MatchingWorker) processPendingTasks(ctx context.Context) {
	tasks, err := w.taskRepo.GetPendingTasks(ctx, w.batchSize)
	if err != nil {
		log.Printf("[MatchingWorker] 查询任务失败: %v", err)
		return
	}

	if len(tasks) == 0 {
		return
	}

	// 同一会员在一批内可能有多条任务（多个下级同时激活），
	// 第一条结算会把后面几条变成无事可做的幂等空跑，去重省掉这些空跑
	settled := map[int64]bool{}

	for _, task := range tasks {
		w.processTask(ctx, task, settled)
	}
}

func (w *MatchingWorker) processTask(ctx context.Context, task *model.MatchingTask, settled map[int64]bool) {
	if settled[task.MemberID] {
		if err := w.taskRepo.MarkDone(ctx, task.ID); err != nil {
			log.Printf("[MatchingWorker] 更新任务状态失败: id=%d, err=%v", task.ID, err)
		}
		return
	}

	result, err := w.bonusService.SettleMatching(ctx, task.MemberID)
	if err != nil {
		log.Printf("[MatchingWorker] 结算失败: taskID=%d, memberID=%d, err=%v",
			task.ID, task.MemberID, err)

		if err := w.taskRepo.IncrementRetryCount(ctx, task.ID); err != nil {
			log.Printf("[MatchingWorker] 增加重试次数失败: id=%d, err=%v", task.ID, err)
		}
		if task.RetryCount+1 >= w.cfg.Business.MaxRetryCount {
			if err := w.taskRepo.MarkFailed(ctx, task.ID); err != nil {
				log.Printf("[MatchingWorker] 标记任务失败状态失败: id=%d, err=%v", task.ID, err)
			} else {
				log.Printf("[MatchingWorker] 任务超过最大重试次数，标记为失败: id=%d", task.ID)
			}
		}
		return
	}

	settled[task.MemberID] = true
	if err := w.taskRepo.MarkDone(ctx, task.ID); err != nil {
		log.Printf("[MatchingWorker] 更新任务状态失败: id=%d, err=%v", task.ID, err)
		return
	}

	if result != nil {
		log.Printf("[MatchingWorker] 结算完成: taskID=%d, memberID=%d, pairs=%d",
			task.ID, task.MemberID, result.Payout.Pairs)
	}
}
