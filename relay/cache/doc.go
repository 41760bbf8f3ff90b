// Copyright (c) relaycore Authors.
// Licensed under the MIT License.

/*
包 cache 提供两级缓存：进程内 Local 层与可选的共享 Shared 层（Redis）。

# 概述

TieredCache 位于每一次 RPC 调用的热路径上，因此所有操作都只降级不失败：
Shared 层出错时记录 Warn 日志并计数，随后在同一次调用内透明地改用 Local 层。
层级选择在每次调用时重新判断，一次瞬时故障不会把后续调用固定在 Local 层。

两个层级的值都以 JSON 字节保存，计数器保存为十进制字符串，列表保存为字符串切片，
因此回退前后读到的值完全一致。

# 核心类型

  - Store：单个存储层的统一接口，LocalStore 与 internal/cache.Manager 各实现一次。
  - LocalStore：基于 ttlcache 的有界 LRU，支持逐项 TTL。
  - TieredCache：组合 Local 与可空的 Shared 引用。
  - FallbackObserver：Shared 层回退事件的观察者（指标采集器实现）。

# 使用方式

	local := cache.NewLocalStore(cache.LocalConfig{Capacity: 1000, DefaultTTL: time.Minute})
	tiered := cache.NewTieredCache(local, shared, cache.DefaultConfig(), logger)

	if err := cache.SetJSON(ctx, tiered, "block:0x1", block, 0, "eth_getBlockByHash"); err != nil {
	    ...
	}
	block, ok := cache.GetJSON[Block](ctx, tiered, "block:0x1", "eth_getBlockByHash")
*/
package cache
