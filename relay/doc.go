// Copyright (c) relaycore Authors.
// Licensed under the MIT License.

/*
包 relay 将预算限流、两级缓存、客户端生命周期与重试组件串联为
RPC 处理器使用的 Gateway。

# 控制流

付费调用：

	ShouldLimit → ShouldPreemptivelyLimit → Checkout → 费用递增重试 → AddExpense

只读调用：

	TieredCache 命中直接返回；未命中则 Checkout → 成熟度轮询 → 写回缓存

“暂不存在”的查询通过 LookupWithRepeat 重复查询，不存在的结果不写入缓存。

每次 Gateway 调用生成一个 relay.<op> span，并带有 rpc.method 属性。
*/
package relay
