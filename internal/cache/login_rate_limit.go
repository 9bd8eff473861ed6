package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// RegisterLoginFailure 记录一次登录失败，返回窗口内累计失败次数。
// Redis 未启用时返回 0，表示不做限流。
func RegisterLoginFailure(ctx context.Context, identity string, window time.Duration) (int64, error) {
	if !Enabled() {
		return 0, nil
	}
	key := buildKey(loginFailureKey(identity))
	count, err := redisClient.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 && window > 0 {
		if err := redisClient.Expire(ctx, key, window).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}

// ClearLoginFailures 登录成功后清除失败计数
func ClearLoginFailures(ctx context.Context, identity string) error {
	if !Enabled() {
		return nil
	}
	return redisClient.Del(ctx, buildKey(loginFailureKey(identity))).Err()
}

// BlockLogin 将身份标记为封禁
func BlockLogin(ctx context.Context, identity string, duration time.Duration) error {
	if !Enabled() || duration <= 0 {
		return nil
	}
	return redisClient.Set(ctx, buildKey(loginBlockKey(identity)), "1", duration).Err()
}

// IsLoginBlocked 判断身份是否处于封禁期
func IsLoginBlocked(ctx context.Context, identity string) (bool, error) {
	if !Enabled() {
		return false, nil
	}
	exists, err := redisClient.Exists(ctx, buildKey(loginBlockKey(identity))).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

func loginFailureKey(identity string) string {
	return fmt.Sprintf("auth:login_fail:%s", strings.ToLower(strings.TrimSpace(identity)))
}

func loginBlockKey(identity string) string {
	return fmt.Sprintf("auth:login_block:%s", strings.ToLower(strings.TrimSpace(identity)))
}
