// Copyright (c) relaycore Authors.
// Licensed under the MIT License.

/*
包 lifecycle 管理下游网络客户端句柄的生命周期。

# 概述

Manager 在三个相互独立的触发条件任一满足时重建客户端：

  - 交易次数：每次 Checkout 递减，归零时标记待重建；
  - 时长：窗口到期时标记待重建（时长为 0 时该检查完全跳过）；
  - 错误码：ReportErrorCode 收到配置中的错误码时标记待重建。

重建是惰性的，只在下一次 Checkout 时发生，进行中的调用永远不会被打断。
三个触发条件都为空时进入非托管模式，Checkout 始终返回同一个句柄。

同一次重建周期内并发的多个 Checkout 只会触发一次重建：
重建通过 singleflight 按周期号去重，工厂调用在锁外执行，
只有周期号仍然有效时才在锁内替换句柄与计数器。
工厂失败时保留旧句柄并保持待重建标记，下一次 Checkout 再试。

# 核心类型

  - Manager：客户端生命周期管理器。
  - Config：三个触发条件的配置。
  - State：Fresh、InUse、PendingReset、Unmanaged。
  - Observer：重建事件的观察者（指标采集器实现）。
*/
package lifecycle
