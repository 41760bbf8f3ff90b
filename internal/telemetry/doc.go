// Copyright (c) relaycore Authors.
// Licensed under the MIT License.

// Package telemetry 封装 OpenTelemetry SDK 初始化逻辑，
// 为 relaycore 提供 TracerProvider 与 MeterProvider。
// 禁用时返回 noop 实现，不连接任何外部服务。
package telemetry
