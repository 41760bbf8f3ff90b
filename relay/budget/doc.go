// Copyright (c) relaycore Authors.
// Licensed under the MIT License.

/*
包 budget 提供按时间窗口的支出预算准入控制，保证对下游网络的付费调用
在一个窗口内不会超出配置的总预算。

# 概述

Limiter 维护一个滚动窗口：窗口内剩余预算随每次 AddExpense 递减，
窗口过期后在下一次访问时惰性重置为总预算，不需要后台 goroutine。
允许透支：一次已经在下游完成的支出可以把剩余预算扣成负数，
由下一次 ShouldLimit 检查阻止后续调用。

# 核心类型

  - Limiter：预算限流器，所有调用方共享同一实例。
  - Config：总预算、窗口时长与白名单身份。
  - Observer：限流触发、支出与窗口重置事件的观察者（指标采集器实现）。
  - Status：当前窗口快照。

# 使用方式

	limiter := budget.NewLimiter(budget.Config{
	    Total:    100_000_000,
	    Duration: time.Minute,
	}, time.Now(), logger)

	if limiter.ShouldLimit(time.Now(), caller, "eth_sendRawTransaction") {
	    // 拒绝请求
	}
	limiter.AddExpense(cost, time.Now(), "eth_sendRawTransaction")
*/
package budget
