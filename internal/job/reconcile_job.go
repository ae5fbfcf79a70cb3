package job

import (
	"context"
	"log"
	"time"

	"mlmsystem/internal/config"
	"mlmsystem/internal/repository"
	"mlmsystem/internal/service"

	"gorm.io/gorm"
)

// ReconcileJob 对账巡检任务
//
// 周期性全量扫描会员，校验三条守恒式：
//  1. 左右两侧：累计放置人数 == 已消耗 + 滚存 + 未结算
//  2. 钱包余额 == 流水累加
//  3. 会员总碰对数 == 发放记录累加
//
// 对账只读不修，发现差异只大声报警，修数走人工
type ReconcileJob struct {
	db            *gorm.DB
	memberRepo    *repository.MemberRepository
	reportService *service.ReportService
	cfg           *config.Config
	stopCh        chan struct{}
	interval      time.Duration
	pageSize      int
}

func NewReconcileJob(db *gorm.DB, cfg *config.Config) *ReconcileJob {
	return &ReconcileJob{
		db:            db,
		memberRepo:    repository.NewMemberRepository(db),
		reportService: service.NewReportService(db, cfg),
		cfg:           cfg,
		stopCh:        make(chan struct{}),
		interval:      10 * time.Minute,
		pageSize:      200,
	}
}

func (j *ReconcileJob) Start(ctx context.Context) {
	log.Println("[ReconcileJob] 对账巡检任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[ReconcileJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[ReconcileJob] 任务停止")
			return
		case <-ticker.C:
			j.runSweep(ctx)
		}
	}
}

func (j *ReconcileJob) Stop() {
	close(j.stopCh)
}

func (j *ReconcileJob) runSweep(ctx context.Context) {
	start := time.Now()
	checked, broken := 0, 0

	for page := 1; ; page++ {
		members, _, err := j.memberRepo.List(ctx, page, j.pageSize)
		if err != nil {
			log.Printf("[ReconcileJob] 查询会员失败: page=%d, err=%v", page, err)
			return
		}
		if len(members) == 0 {
			break
		}

		for _, m := range members {
			report, err := j.reportService.ReconcileMember(ctx, m.ID)
			if err != nil {
				log.Printf("[ReconcileJob] 对账失败: memberID=%d, err=%v", m.ID, err)
				continue
			}
			checked++
			if !report.OK() {
				broken++
				log.Printf("[ReconcileJob] 发现账务差异: memberID=%d, report=%+v", m.ID, report)
			}
		}
	}

	if broken > 0 {
		log.Printf("[ReconcileJob] 巡检完成: checked=%d, broken=%d, cost=%v", checked, broken, time.Since(start))
	} else {
		log.Printf("[ReconcileJob] 巡检完成，账务一致: checked=%d, cost=%v", checked, time.Since(start))
	}
}
