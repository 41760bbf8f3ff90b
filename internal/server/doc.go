// Copyright (c) relaycore Authors.
// Licensed under the MIT License.

/*
包 server 提供运维 HTTP 服务：服务器生命周期管理与 /metrics、/health 路由。

# 核心类型

  - Manager：封装 net/http.Server，非阻塞启动、优雅关闭、信号监听。
  - Check：健康检查项，非关键项失败时整体状态为 degraded。
  - NewOpsHandler：基于 promhttp 暴露指标，并以 JSON 输出健康状态。
*/
package server
