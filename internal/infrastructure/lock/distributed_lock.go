package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ============================================================================
// 分布式锁实现
// ============================================================================
//
// 【为什么需要分布式锁？】
//
// 场景1：同一会员的两笔消费并发到达（网络抖动导致重复提交）
//   没有锁时两个 goroutine 都读到相同余额，会超扣。
//
// 场景2：同一上级节点的两次碰对结算并发执行
//   结算是"读计数器 -> 计算 -> 写计数器和结算单"的非原子序列，
//   两次并发结算读到相同的旧计数器会导致重复发奖或漏发 ——
//   这是整个奖金引擎唯一依赖串行化保证正确性的地方。
//
// 【Redis 分布式锁原理】
//
// 加锁：SET key value NX EX timeout
//   - NX: 只有 key 不存在时才设置（保证互斥）
//   - EX: 设置过期时间（防止死锁）
//   - value: 锁持有者标识（释放时验证，防止误删别人的锁）
//
// 释放锁：使用 Lua 脚本保证原子性
//   - 先检查 value 是否是自己的
//   - 再删除 key
//
// ============================================================================

var (
	ErrLockFailed  = errors.New("获取分布式锁失败")
	ErrLockExpired = errors.New("锁已过期")
)

// DistributedLock 分布式锁
type DistributedLock struct {
	client     *redis.Client
	key        string        // 锁的 key
	value      string        // 锁的 value（用于验证锁的持有者）
	expiration time.Duration // 锁的过期时间
}

// NewDistributedLock 创建分布式锁
func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock 尝试获取锁（非阻塞）
//
// 【关键点】使用 SetNX 命令，只有当 key 不存在时才能设置成功
// 这保证了同一时刻只有一个客户端能获取到锁
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	success, err := l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
	if err != nil {
		return false, err
	}
	return success, nil
}

// Lock 阻塞式获取锁（带重试）
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		// 等待一段时间后重试
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
			// 继续重试
		}
	}
	return ErrLockFailed
}

// Unlock 释放锁
//
// 【关键点】使用 Lua 脚本保证"检查+删除"操作的原子性
//
// 为什么要检查 value？
//
//	场景：A 获取锁 -> A 处理超时，锁自动过期 -> B 获取锁 -> A 执行完毕，调用 Unlock
//	如果不检查 value，A 会把 B 的锁删掉！
func (l *DistributedLock) Unlock(ctx context.Context) error {
	script := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`
	_, err := l.client.Eval(ctx, script, []string{l.key}, l.value).Result()
	return err
}

// ============================================================================
// 便捷函数：按会员维度的业务锁
// ============================================================================

// NewPurchaseLock 创建消费锁（按会员维度）
// 不同会员可以并发消费，同一会员串行 —— 防止重复扣款
func NewPurchaseLock(client *redis.Client, memberID int64, requestID string) *DistributedLock {
	key := fmt.Sprintf("purchase:lock:member:%d", memberID)
	// value 使用 requestID，便于追踪是哪个请求持有锁
	return NewDistributedLock(client, key, requestID, 30*time.Second)
}

// NewMatchLock 创建碰对结算锁（按会员维度）
// 结算的读-算-写序列必须按会员串行，锁粒度选会员而不是全局，
// 不同上级节点的结算互不阻塞
func NewMatchLock(client *redis.Client, memberID int64, holder string) *DistributedLock {
	key := fmt.Sprintf("match:lock:member:%d", memberID)
	return NewDistributedLock(client, key, holder, 30*time.Second)
}

// NewWithdrawLock 创建提现锁（按会员维度）
func NewWithdrawLock(client *redis.Client, memberID int64, requestID string) *DistributedLock {
	key := fmt.Sprintf("withdraw:lock:member:%d", memberID)
	return NewDistributedLock(client, key, requestID, 30*time.Second)
}
