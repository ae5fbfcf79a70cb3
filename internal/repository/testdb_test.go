package repository

import (
	"testing"

	"mlmsystem/internal/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB 用内存 sqlite 建一套完整表结构
// 连接数限制为 1，避免内存库在多连接下各见各的数据
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("获取底层连接失败: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&model.Member{},
		&model.Wallet{},
		&model.WalletTransaction{},
		&model.PurchaseOrder{},
		&model.PairPayoutRecord{},
		&model.RankChange{},
		&model.WithdrawRequest{},
		&model.DailyPairCounter{},
		&model.DailyLeadershipCounter{},
		&model.MatchingTask{},
		&model.OutboxMessage{},
	)
	if err != nil {
		t.Fatalf("建表失败: %v", err)
	}

	t.Cleanup(func() {
		sqlDB.Close()
	})
	return db
}
