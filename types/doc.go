// Copyright (c) relaycore Authors.
// Licensed under the MIT License.

/*
Package types 提供 relaycore 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 relay/budget、relay/cache、
relay/lifecycle、relay/retry 等上层模块提供统一的错误与上下文契约。

# 核心类型

  - Error / ErrorCode: 结构化错误体系，含 HTTP 状态码、Retryable 与调用方法标记
  - Context 辅助     : WithRequestID / WithIdentity / WithMethod

# 错误码

  - RATE_LIMITED    : 预算耗尽，调用在发起网络请求前被拒绝
  - IMMATURE_RECORD : 轮询耗尽后记录仍不完整
  - INSUFFICIENT_FEE: 下游因报价过低拒绝付费查询
  - CONFIG_REJECTED : 构造期配置非法（如无法识别的密钥格式）
*/
package types
