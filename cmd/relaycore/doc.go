// Copyright (c) relaycore Authors.
// Licensed under the MIT License.

/*
Package main 提供 relaycore 的可执行入口。

# 子命令

  - serve：加载配置，装配预算限流、两级缓存、客户端生命周期管理与 Gateway，
    在运维端口暴露 /metrics 与 /health，并按需轮询配置文件热更新日志级别
    与 Shared 缓存开关。
  - health：请求运行中实例的 /health。
  - version：输出构建信息（Version、BuildTime、GitCommit 由 ldflags 注入）。
*/
package main
