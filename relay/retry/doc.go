// Copyright (c) relaycore Authors.
// Licensed under the MIT License.

/*
包 retry 提供三种有界重试循环，每一种都有明确的退出约定。

# 概述

  - PollUntilMature：读取记录直到其结构完整（成熟），用尽次数后返回
    IMMATURE_RECORD 错误，绝不返回不完整的数据。
  - ExecuteWithEscalatingFee：付费查询因费用过低被拒时按固定倍率提高费用重试，
    用尽次数后原样返回下游最后一次拒绝。
  - Repeat：把“暂时不存在”当作重试条件，用尽次数后返回空结果而不是错误。

三者默认都不在两次尝试之间等待；调用方的截止时间通过 context 传入
accessor/query 闭包。可选的 WithInterval 会在两次尝试之间等待并响应取消。

# 核心类型

  - Result[T]：Found / NotFound / Failed 三态结果，区分“没找到”与真正的错误。
  - FeeEscalator：持有费用倍率的重试器。
  - Option：间隔、日志与观察者配置。
  - Observer：每次重试尝试的观察者（指标采集器实现）。
*/
package retry
