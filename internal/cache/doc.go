// Copyright (c) relaycore Authors.
// Licensed under the MIT License.

/*
包 cache 提供基于 Redis 的 Shared 缓存层，实现 relay/cache.Store。

# 概述

Manager 封装 go-redis 客户端，负责连接生命周期：构造时 Ping、
后台健康检查、优雅关闭。所有键统一加上 KeyPrefix，
Keys 与 Clear 通过 SCAN 只作用于本实例的前缀。

本包只返回错误，不做降级；降级由 relay/cache.TieredCache 负责。

# 主要能力

  - 键值读写：Get/Set，值为 JSON 字节。
  - 批量写入：MultiSet 使用 MSET（原子，无 TTL），PipelineSet 使用 pipeline SET PX。
  - 计数器与列表：IncrBy、RPush、LRange。
  - 健康检查：后台定时 Ping，状态变化时记录日志，Healthy 供 /health 使用。
  - 错误语义：关闭后所有操作返回 ErrClosed。
*/
package cache
