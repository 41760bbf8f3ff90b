// Copyright (c) relaycore Authors.
// Licensed under the MIT License.

// Package config 提供 relaycore 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → RELAY_* 环境变量 的顺序合并，
// 并由 Validate 做整体校验。Reloader 轮询配置文件，变更后重新加载
// 并通知订阅方（日志级别、Shared 缓存开关等可热更新的字段）。
package config
