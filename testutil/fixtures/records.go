// =============================================================================
// 📦 测试数据工厂 - 下游网络数据
// =============================================================================
// 提供预定义的凭据、记录与拒绝响应，用于测试
// =============================================================================
package fixtures

import (
	"github.com/relaycore/relaycore/relay/network"
)

// =============================================================================
// 🔑 凭据
// =============================================================================

// OperatorKeyHex 测试用 secp256k1 私钥
const OperatorKeyHex = "289c2857d4598e37fb9647507e47a309d6133539bf21a8b9cb6df88fd5232032"

// OperatorEVMAddress OperatorKeyHex 对应的 EVM 地址
const OperatorEVMAddress = "0x970e8128ab834e8eac17ab8e3812f010678cf791"

// Credentials 返回可通过校验的运营账户凭据
func Credentials() network.Credentials {
	return network.Credentials{
		AccountID:  "0.0.1002",
		PrivateKey: OperatorKeyHex,
		KeyFormat:  string(network.KeyFormatHexECDSA),
	}
}

// NetworkConfig 返回本地网络配置
func NetworkConfig() network.Config {
	return network.Config{
		Network:   "local",
		Nodes:     map[string]string{"127.0.0.1:50211": "0.0.3"},
		MirrorURL: "http://127.0.0.1:5551",
	}
}

// =============================================================================
// 📄 记录
// =============================================================================

// ImmatureRecord 尚未写入账本位置字段的记录
func ImmatureRecord(id string) *network.Record {
	return &network.Record{ID: id, Result: "SUCCESS"}
}

// MatureRecord 完整记录
func MatureRecord(id string, block int64) *network.Record {
	idx := int64(0)
	return &network.Record{
		ID:                 id,
		ConsensusTimestamp: "1700000000.000000001",
		BlockNumber:        &block,
		BlockHash:          "0x4a3c9f3e2f0f7a6d5c4b3a29180716f5e4d3c2b1a09f8e7d6c5b4a3928171605",
		TransactionIndex:   &idx,
		Result:             "SUCCESS",
	}
}

// =============================================================================
// ⛔ 拒绝
// =============================================================================

// InsufficientFee 费用过低拒绝
func InsufficientFee(cost int64) *network.Rejection {
	return &network.Rejection{Status: network.StatusInsufficientTxFee, Message: "fee below network minimum", Cost: cost}
}

// PlatformNotActive 节点不可用拒绝，默认配置下会触发客户端重建
func PlatformNotActive() *network.Rejection {
	return &network.Rejection{Status: network.StatusPlatformNotActive}
}
