package network

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/relaycore/relaycore/types"
)

// KeyFormat selects how an operator private key string is decoded.
type KeyFormat string

// Supported key formats.
const (
	KeyFormatDER        KeyFormat = "DER"
	KeyFormatHexED25519 KeyFormat = "HEX_ED25519"
	KeyFormatHexECDSA   KeyFormat = "HEX_ECDSA"
)

// DER prefixes of PKCS#8 encoded keys as emitted by the network tooling.
const (
	derPrefixED25519   = "302e020100300506032b657004220420"
	derPrefixSecp256k1 = "3030020100300706052b8104000a04220420"
)

// Credentials is the operator configuration as read from config.
type Credentials struct {
	AccountID  string `yaml:"account_id" json:"account_id" env:"ACCOUNT_ID"`
	PrivateKey string `yaml:"private_key" json:"-" env:"PRIVATE_KEY"`
	KeyFormat  string `yaml:"key_format" json:"key_format" env:"KEY_FORMAT"`
}

// AccountID is a shard.realm.num account identifier.
type AccountID struct {
	Shard int64
	Realm int64
	Num   int64
}

func (a AccountID) String() string {
	return fmt.Sprintf("%d.%d.%d", a.Shard, a.Realm, a.Num)
}

// ParseAccountID parses "shard.realm.num".
func ParseAccountID(s string) (AccountID, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 {
		return AccountID{}, fmt.Errorf("account id %q: expected shard.realm.num", s)
	}
	var nums [3]int64
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 0 {
			return AccountID{}, fmt.Errorf("account id %q: invalid component %q", s, p)
		}
		nums[i] = n
	}
	return AccountID{Shard: nums[0], Realm: nums[1], Num: nums[2]}, nil
}

// Operator is a validated account + signing key pair.
type Operator struct {
	AccountID AccountID
	Format    KeyFormat
	// PublicKey is the raw public key (32 bytes ed25519, 33 bytes compressed secp256k1).
	PublicKey []byte
	// EVMAddress is set for secp256k1 keys only.
	EVMAddress string

	privateKey any
}

// PrivateKey returns the decoded key (ed25519.PrivateKey or *ecdsa.PrivateKey).
func (o *Operator) PrivateKey() any {
	return o.privateKey
}

// ParseOperator validates credentials. Any failure is a configuration
// rejection: the caller is expected to abort construction.
func ParseOperator(c Credentials) (*Operator, error) {
	account, err := ParseAccountID(c.AccountID)
	if err != nil {
		return nil, rejectConfig("invalid operator account", err)
	}

	op := &Operator{AccountID: account}
	key := strings.TrimPrefix(strings.TrimSpace(c.PrivateKey), "0x")
	if key == "" {
		return nil, rejectConfig("operator private key is empty", nil)
	}

	switch format := KeyFormat(strings.ToUpper(strings.TrimSpace(c.KeyFormat))); format {
	case KeyFormatDER, "":
		err = op.parseDER(key)
	case KeyFormatHexED25519:
		err = op.parseHexED25519(key)
	case KeyFormatHexECDSA:
		err = op.parseHexECDSA(key)
	default:
		return nil, rejectConfig(fmt.Sprintf("unrecognized key format %q", c.KeyFormat), nil)
	}
	if err != nil {
		return nil, rejectConfig("invalid operator private key", err)
	}

	return op, nil
}

func (o *Operator) parseDER(key string) error {
	lower := strings.ToLower(key)
	if strings.HasPrefix(lower, derPrefixSecp256k1) {
		return o.parseHexECDSA(lower[len(derPrefixSecp256k1):])
	}

	der, err := hex.DecodeString(lower)
	if err != nil {
		return fmt.Errorf("decode DER hex: %w", err)
	}
	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return fmt.Errorf("parse PKCS#8: %w", err)
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return fmt.Errorf("unsupported DER key type %T", parsed)
	}
	o.setED25519(edKey, KeyFormatDER)
	return nil
}

func (o *Operator) parseHexED25519(key string) error {
	seed, err := hexutil.Decode("0x" + key)
	if err != nil {
		return fmt.Errorf("decode ed25519 hex: %w", err)
	}
	switch len(seed) {
	case ed25519.SeedSize:
		o.setED25519(ed25519.NewKeyFromSeed(seed), KeyFormatHexED25519)
	case ed25519.PrivateKeySize:
		o.setED25519(ed25519.PrivateKey(seed), KeyFormatHexED25519)
	default:
		return fmt.Errorf("ed25519 key must be %d or %d bytes, got %d", ed25519.SeedSize, ed25519.PrivateKeySize, len(seed))
	}
	return nil
}

func (o *Operator) parseHexECDSA(key string) error {
	priv, err := crypto.HexToECDSA(key)
	if err != nil {
		return fmt.Errorf("decode secp256k1 key: %w", err)
	}
	if o.Format == "" {
		o.Format = KeyFormatHexECDSA
	}
	o.privateKey = priv
	o.PublicKey = crypto.CompressPubkey(&priv.PublicKey)
	o.EVMAddress = strings.ToLower(crypto.PubkeyToAddress(priv.PublicKey).Hex())
	return nil
}

func (o *Operator) setED25519(key ed25519.PrivateKey, format KeyFormat) {
	o.Format = format
	o.privateKey = key
	o.PublicKey = []byte(key.Public().(ed25519.PublicKey))
}

func rejectConfig(msg string, cause error) error {
	err := types.NewError(types.ErrConfigRejected, msg)
	if cause != nil {
		err = err.WithCause(cause)
	}
	return err
}
