// Copyright 2025 Arcade Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-arcade/helpdesk/pkg/log"
)

// LoadFunc 缓存未命中时的回源函数
type LoadFunc[T any] func(ctx context.Context) (T, error)

// GetOrLoad cache-aside：先查缓存，未命中回源并写回。
// 缓存故障只记录日志，不影响回源结果；c 为 nil 时直接回源
func GetOrLoad[T any](ctx context.Context, c ICache, key string, ttl time.Duration, load LoadFunc[T]) (T, error) {
	var zero T

	if c != nil {
		data, err := c.Get(ctx, key).Result()
		switch {
		case err == nil && data != "":
			var v T
			if err := sonic.UnmarshalString(data, &v); err == nil {
				return v, nil
			}
			log.Warnw("failed to unmarshal cached data", "key", key, "error", err)
		case err != nil && !errors.Is(err, ErrCacheMiss):
			log.Warnw("cache get error", "key", key, "error", err)
		}
	}

	v, err := load(ctx)
	if err != nil {
		return zero, fmt.Errorf("load %s: %w", key, err)
	}

	if c != nil {
		data, err := sonic.MarshalString(v)
		if err != nil {
			log.Warnw("failed to marshal result for caching", "key", key, "error", err)
			return v, nil
		}
		if err := c.Set(ctx, key, data, ttl).Err(); err != nil {
			log.Warnw("failed to cache result", "key", key, "error", err)
		}
	}
	return v, nil
}

// Invalidate 删除缓存，失败仅记录日志
func Invalidate(ctx context.Context, c ICache, keys ...string) {
	if c == nil || len(keys) == 0 {
		return
	}
	if err := c.Del(ctx, keys...).Err(); err != nil {
		log.Warnw("failed to invalidate cache", "keys", keys, "error", err)
	}
}
