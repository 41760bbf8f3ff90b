// Copyright (c) relaycore Authors.
// Licensed under the MIT License.

/*
包 metrics 提供基于 Prometheus 的指标采集，覆盖 HTTP、预算、缓存与下游调用。

# 概述

Collector 的所有指标注册到调用方传入的 Registerer，不使用全局默认注册表，
因此同一进程（以及同一测试）中可以存在多个互不干扰的实例。

Collector 同时实现 budget.Observer、cache.FallbackObserver、
lifecycle.Observer 与 retry.Observer，组件通过 Option 注入即可上报事件。

# 主要能力

  - HTTP 指标：请求总数与耗时，状态码归类为 2xx/3xx/4xx/5xx。
  - 预算指标：限流次数、支出总额、剩余预算 Gauge、窗口重置次数。
  - 缓存指标：命中/未命中，以及按 operation/method 分组的 Shared 层回退次数。
  - 下游指标：请求总数与耗时、客户端重建次数（按原因与结果）、重试次数。
*/
package metrics
