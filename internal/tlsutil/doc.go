// Copyright (c) relaycore Authors.
// Licensed under the MIT License.

// Package tlsutil 为 Mirror REST 客户端与 Shared 缓存的 Redis 连接
// 提供统一的 TLS 配置（TLS 1.2+，仅 AEAD 密码套件）。
package tlsutil
