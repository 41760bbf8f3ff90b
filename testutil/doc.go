// Copyright (c) relaycore Authors.
// Licensed under the MIT License.

/*
Package testutil 提供 relaycore 测试的共享工具和辅助函数。

# 概述

testutil 包为各包的单元测试提供统一的辅助能力，
避免各包重复实现相似的测试基础设施。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 日志辅助: TestLogger 把 zap 日志写入 t.Log
  - 时间辅助: WaitFor 轮询等待条件，Clock 可手动推进的时钟
  - 数据工具: MustJSON

# 子包

  - testutil/mocks: MockClient 与 MockFactory（下游网络客户端），
    MockStore（可注入错误的缓存层），均支持 Builder 模式
  - testutil/fixtures: 测试凭据、成熟/未成熟记录与常见拒绝响应

# 使用示例

	factory := mocks.NewMockFactory(nil)
	manager, err := lifecycle.NewManager(lifecycle.DefaultConfig(),
	    fixtures.NetworkConfig(), fixtures.Credentials(), factory.Factory(), testutil.TestLogger(t))
*/
package testutil
