// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"errors"
	"math"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// These variables are the chain proof-of-work limit parameters for each
// default network.
var (
	// bigOne is 1 represented as a big.Int.  It is defined here to avoid
	// the overhead of creating it multiple times.
	bigOne = big.NewInt(1)

	// mainPowLimit is the highest proof of work value a block can have
	// for the main network.  It is the value 2^224 - 1.
	mainPowLimit = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 224), bigOne)

	// regressionPowLimit is the highest proof of work value a block can
	// have for the regression test network.  It is the value 2^255 - 1.
	regressionPowLimit = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 255), bigOne)
)

// Sentinel start-time values for a ConsensusDeployment, matching
// Consensus::BIP9Deployment::ALWAYS_ACTIVE / NEVER_ACTIVE.
const (
	// AlwaysActive marks a deployment Active at every height.
	AlwaysActive int64 = -1

	// NeverActive marks a deployment Failed at every height.
	NeverActive int64 = -2

	// NoTimeout means the deployment never auto-fails while Started.
	NoTimeout int64 = math.MaxInt64
)

// Checkpoint identifies a known good point in the block chain.
type Checkpoint struct {
	Height int32
	Hash   *chainhash.Hash
}

// DNSSeed identifies a DNS seed.
type DNSSeed struct {
	Host         string
	HasFiltering bool
}

// String returns the hostname of the DNS seed in human-readable form.
func (d DNSSeed) String() string {
	return d.Host
}

// ConsensusDeployment defines details related to a specific BIP9-style
// consensus rule change that is voted in. Unlike the closure-based starter
// abstractions used elsewhere in the btcd family, this uses the classic
// int64 start-time/timeout model (with the ALWAYS_ACTIVE/NEVER_ACTIVE
// sentinels above) so that activation is a pure function of a parent block's
// median time past, matching the original BIP9Deployment design.
type ConsensusDeployment struct {
	// BitNumber is the signalling bit within the block's version field.
	BitNumber uint8

	// StartTime is the median-time-past threshold after which the
	// deployment may transition from Defined to Started. AlwaysActive and
	// NeverActive are recognized sentinels.
	StartTime int64

	// Timeout is the median-time-past threshold after which a Started (but
	// not locked-in) deployment transitions to Failed.
	Timeout int64

	// MinActivationHeight optionally delays the LockedIn -> Active
	// transition until the block height is at least this value.
	MinActivationHeight uint32

	// CustomActivationThreshold overrides RuleChangeActivationThreshold
	// for this deployment when non-zero.
	CustomActivationThreshold uint32
}

// Constants that define the deployment offset in the Deployments field of
// Params. DefinedDeployments must come last.
const (
	// DeploymentTestDummy is reserved for testing.
	DeploymentTestDummy = iota

	// DeploymentAdaptiveBlocksize signals miner readiness for the BTCBT
	// post-fork adaptive block-weight schedule ahead of the hard fork
	// height, mirroring how Bitcoin used versionbits to gauge readiness
	// before a flag-day activation.
	DeploymentAdaptiveBlocksize

	// DefinedDeployments is the number of currently defined deployments.
	DefinedDeployments
)

// BuriedDeployment identifies a soft-fork rule whose activation height has
// been hardcoded into the client long after the rule activated (BIP90).
type BuriedDeployment int16

const (
	DeploymentHeightIncB BuriedDeployment = iota
	DeploymentCLTV
	DeploymentDERSIG
	DeploymentCSV
	DeploymentSegwit
)

// ValidDeployment reports whether dep identifies a known buried deployment.
func ValidDeployment(dep BuriedDeployment) bool {
	return dep >= DeploymentHeightIncB && dep <= DeploymentSegwit
}

// Params defines a network by its consensus parameters.
type Params struct {
	// Name is a human-readable identifier for the network.
	Name string

	// Net defines the magic bytes used to identify the network.
	Net wire.BitcoinNet

	DefaultPort string
	DNSSeeds    []DNSSeed

	GenesisBlock *wire.MsgBlock
	GenesisHash  *chainhash.Hash

	// IsRegTest marks the regression-test network, which forces several
	// knobs (difficulty, adaptive block weight) to fixed values regardless
	// of configuration or fork height.
	IsRegTest bool

	// MineBlocksOnDemand allows a configured -blockversion override to
	// take effect (regtest-style chains only).
	MineBlocksOnDemand bool

	// PowLimit is the highest allowed proof-of-work target for a block.
	PowLimit *big.Int

	// PowLimitBits is PowLimit encoded in compact form.
	PowLimitBits uint32

	// PoWNoRetargeting disables difficulty retargeting entirely (regtest).
	PoWNoRetargeting bool

	// AllowMinDifficultyBlocks permits the legacy retarget's "long idle
	// period" minimum-difficulty escape hatch (testnet-style chains).
	AllowMinDifficultyBlocks bool

	// TargetTimespan is the retarget window length, in seconds.
	TargetTimespan int64

	// TargetSpacing is the desired spacing between blocks, in seconds.
	TargetSpacing int64

	// Buried deployment activation heights.
	BIP0034Height int32
	BIP0065Height int32
	BIP0066Height int32
	CSVHeight     int32
	SegwitHeight  int32

	// MinBIP9WarningHeight is the height below which the unknown-rule
	// warning detector is not consulted, avoiding spurious warnings during
	// early chain bootstrap.
	MinBIP9WarningHeight int32

	// SubsidyHalvingInterval is the pre-fork halving interval in blocks.
	SubsidyHalvingInterval int32

	// CoinbaseMaturity is the number of confirmations before a coinbase
	// output may be spent.
	CoinbaseMaturity uint16

	// BIP9 voting parameters.
	RuleChangeActivationThreshold uint32
	MinerConfirmationWindow       uint32
	Deployments                   [DefinedDeployments]ConsensusDeployment

	// --- BTCBT hard-fork parameters ---

	// ForkBlockHeight is the height at which BTCBT rules take effect.
	// Zero or negative means the fork never activates and legacy rules
	// apply forever.
	ForkBlockHeight int32

	// ForkBlockHash pins the expected hash of the fork-activation block.
	ForkBlockHash chainhash.Hash

	// BlockInterval overrides TargetSpacing as the ASERT retarget's ideal
	// block interval when positive; otherwise TargetSpacing is used.
	BlockInterval int64

	// HalvingInterval is the post-fork subsidy halving interval in blocks.
	HalvingInterval int32

	// MaxBlockSize is the serialized-size ceiling used, at every height, to
	// derive the adaptive weight cap's hard_cap (see
	// mining.AdaptiveMaxBlockWeight).
	MaxBlockSize int32

	// MaxBlockSigOpsCost is the post-fork sigops-cost ceiling (200,000);
	// pre-fork blocks remain bound by MAX_BLOCK_SIGOPS_COST (80,000).
	MaxBlockSigOpsCost int64

	// BaseSubsidy is the pre-fork block reward at height 0, in satoshis,
	// halved every SubsidyHalvingInterval blocks.
	BaseSubsidy int64

	// ForkActivationSubsidy is the one-off reward paid by the first
	// block at ForkBlockHeight, replacing the halving schedule for that
	// single block.
	ForkActivationSubsidy int64

	// PostForkBaseSubsidy is the reward paid by the block immediately
	// after ForkBlockHeight, halved every HalvingInterval blocks
	// thereafter.
	PostForkBaseSubsidy int64

	// --- ASERT anchor ---

	// AsertAnchorHeight is the anchor block's height. A negative value
	// means ASERT is not configured and the PoW engine falls back to the
	// legacy retarget post-fork.
	AsertAnchorHeight int32

	// AsertAnchorHash is the anchor block's hash; the walk-back in the
	// ASERT retarget verifies it before trusting AsertAnchorBits.
	AsertAnchorHash chainhash.Hash

	// AsertAnchorBits is the anchor block's compact target.
	AsertAnchorBits uint32

	// --- Signet ---

	SignetBlocks    bool
	SignetChallenge []byte

	Checkpoints []Checkpoint

	Bech32HRPSegwit string

	PubKeyHashAddrID byte
	ScriptHashAddrID byte
	PrivateKeyID     byte

	HDPrivateKeyID [4]byte
	HDPublicKeyID  [4]byte
	HDCoinType     uint32
}

// DeploymentHeight returns the configured activation height for a buried
// deployment. Unknown deployments map to "infinity" (never active).
func (p *Params) DeploymentHeight(dep BuriedDeployment) int32 {
	switch dep {
	case DeploymentHeightIncB:
		return p.BIP0034Height
	case DeploymentCLTV:
		return p.BIP0065Height
	case DeploymentDERSIG:
		return p.BIP0066Height
	case DeploymentCSV:
		return p.CSVHeight
	case DeploymentSegwit:
		return p.SegwitHeight
	}
	return math.MaxInt32
}

// DifficultyAdjustmentInterval returns the number of blocks between legacy
// retarget recalculations.
func (p *Params) DifficultyAdjustmentInterval() int64 {
	return p.TargetTimespan / p.TargetSpacing
}

// mainGenesisHash is the hash of genesisBlock, computed once at init time.
var mainGenesisHash chainhash.Hash

// MainNetParams defines the network parameters for the main network.
var MainNetParams = Params{
	Name:        "mainnet",
	Net:         wire.MainNet,
	DefaultPort: "8333",
	DNSSeeds:    []DNSSeed{},

	GenesisBlock: &genesisBlock,
	GenesisHash:  &mainGenesisHash,

	PowLimit:                 mainPowLimit,
	PowLimitBits:             0x1d00ffff,
	PoWNoRetargeting:         false,
	AllowMinDifficultyBlocks: false,
	TargetTimespan:           14 * 24 * 60 * 60, // two weeks
	TargetSpacing:            10 * 60,           // ten minutes

	BIP0034Height: 0,
	BIP0065Height: 0,
	BIP0066Height: 0,
	CSVHeight:     0,
	SegwitHeight:  0,

	MinBIP9WarningHeight: 2016,

	SubsidyHalvingInterval: 210000,
	CoinbaseMaturity:       100,

	RuleChangeActivationThreshold: 1815, // 90% of MinerConfirmationWindow
	MinerConfirmationWindow:       2016,
	Deployments: [DefinedDeployments]ConsensusDeployment{
		DeploymentTestDummy: {
			BitNumber: 28,
			StartTime: NeverActive,
			Timeout:   NeverActive,
		},
		DeploymentAdaptiveBlocksize: {
			BitNumber:           1,
			StartTime:           NeverActive,
			Timeout:             NeverActive,
			MinActivationHeight: 0,
		},
	},

	ForkBlockHeight:    840000,
	BlockInterval:      0, // use TargetSpacing
	HalvingInterval:    105000,
	MaxBlockSize:       32000000,
	MaxBlockSigOpsCost: 200000,

	BaseSubsidy:           50 * 1e8,
	ForkActivationSubsidy: 625 * 1e8,
	PostForkBaseSubsidy:   25 * 1e8,

	AsertAnchorHeight: 840000,
	AsertAnchorBits:   0x1d00ffff,

	Checkpoints: []Checkpoint{},

	Bech32HRPSegwit: "bc",

	PubKeyHashAddrID: 0x00,
	ScriptHashAddrID: 0x05,
	PrivateKeyID:     0x80,

	HDPrivateKeyID: [4]byte{0x04, 0x88, 0xad, 0xe4},
	HDPublicKeyID:  [4]byte{0x04, 0x88, 0xb2, 0x1e},
	HDCoinType:     0,
}

// regressionGenesisHash is the hash of regTestGenesisBlock, computed once at
// init time.
var regressionGenesisHash chainhash.Hash

// RegressionNetParams defines the network parameters for the regression
// test network. Fork rules, adaptive block weight, and versionbits all
// carry regtest-specific carve-outs.
var RegressionNetParams = Params{
	Name:        "regtest",
	Net:         wire.TestNet,
	DefaultPort: "18444",

	GenesisBlock: &regTestGenesisBlock,
	GenesisHash:  &regressionGenesisHash,

	IsRegTest:          true,
	MineBlocksOnDemand: true,

	PowLimit:                 regressionPowLimit,
	PowLimitBits:             0x207fffff,
	PoWNoRetargeting:         true,
	AllowMinDifficultyBlocks: true,
	TargetTimespan:           14 * 24 * 60 * 60,
	TargetSpacing:            10 * 60,

	MinBIP9WarningHeight: 0,

	SubsidyHalvingInterval: 150,
	CoinbaseMaturity:       100,

	RuleChangeActivationThreshold: 108, // 75% of MinerConfirmationWindow
	MinerConfirmationWindow:       144,
	Deployments: [DefinedDeployments]ConsensusDeployment{
		DeploymentTestDummy: {
			BitNumber: 28,
			StartTime: AlwaysActive,
			Timeout:   NoTimeout,
		},
		DeploymentAdaptiveBlocksize: {
			BitNumber: 1,
			StartTime: AlwaysActive,
			Timeout:   NoTimeout,
		},
	},

	ForkBlockHeight:    100,
	HalvingInterval:    150,
	MaxBlockSize:       32000000,
	MaxBlockSigOpsCost: 200000,

	BaseSubsidy:           50 * 1e8,
	ForkActivationSubsidy: 625 * 1e8,
	PostForkBaseSubsidy:   25 * 1e8,

	AsertAnchorHeight: 100,
	AsertAnchorBits:   0x207fffff,

	Bech32HRPSegwit: "bcrt",

	PubKeyHashAddrID: 0x6f,
	ScriptHashAddrID: 0xc4,
	PrivateKeyID:     0xef,

	HDPrivateKeyID: [4]byte{0x04, 0x35, 0x83, 0x94},
	HDPublicKeyID:  [4]byte{0x04, 0x35, 0x87, 0xcf},
}

var (
	// ErrDuplicateNet describes an error where the parameters for a
	// network could not be set due to the network already being
	// registered into this package.
	ErrDuplicateNet = errors.New("duplicate network")

	// ErrUnknownHDKeyID describes an error where the provided id which is
	// intended to identify the network for a hierarchical deterministic
	// private extended key is not registered.
	ErrUnknownHDKeyID = errors.New("unknown hd private extended key bytes")

	// ErrInvalidHDKeyID describes an error where the provided hierarchical
	// deterministic version bytes, or hd key id, is malformed.
	ErrInvalidHDKeyID = errors.New("invalid hd extended key version bytes")
)

var (
	registeredNets       = make(map[wire.BitcoinNet]struct{})
	pubKeyHashAddrIDs    = make(map[byte]struct{})
	scriptHashAddrIDs    = make(map[byte]struct{})
	bech32SegwitPrefixes = make(map[string]struct{})
	hdPrivToPubKeyIDs    = make(map[[4]byte][]byte)
)

// Register registers the network parameters for a network. This may error
// with ErrDuplicateNet if the network is already registered (either due to a
// previous Register call, or the network being one of the default
// networks).
//
// Network parameters should be registered into this package by a main
// package as early as possible. Then, library packages may lookup networks
// or network parameters based on inputs and work regardless of the network
// being standard or not.
func Register(params *Params) error {
	if _, ok := registeredNets[params.Net]; ok {
		return ErrDuplicateNet
	}
	registeredNets[params.Net] = struct{}{}
	pubKeyHashAddrIDs[params.PubKeyHashAddrID] = struct{}{}
	scriptHashAddrIDs[params.ScriptHashAddrID] = struct{}{}

	if err := RegisterHDKeyID(params.HDPublicKeyID[:], params.HDPrivateKeyID[:]); err != nil {
		return err
	}

	// A valid Bech32 encoded segwit address always has as prefix the
	// human-readable part for the given net followed by '1'.
	bech32SegwitPrefixes[params.Bech32HRPSegwit+"1"] = struct{}{}
	return nil
}

// mustRegister performs the same function as Register except it panics if
// there is an error. This should only be called from package init functions.
func mustRegister(params *Params) {
	if err := Register(params); err != nil {
		panic("failed to register network: " + err.Error())
	}
}

// IsPubKeyHashAddrID returns whether the id is an identifier known to prefix
// a pay-to-pubkey-hash address on any default or registered network.
func IsPubKeyHashAddrID(id byte) bool {
	_, ok := pubKeyHashAddrIDs[id]
	return ok
}

// IsScriptHashAddrID returns whether the id is an identifier known to prefix
// a pay-to-script-hash address on any default or registered network.
func IsScriptHashAddrID(id byte) bool {
	_, ok := scriptHashAddrIDs[id]
	return ok
}

// IsBech32SegwitPrefix returns whether the prefix is a known prefix for
// segwit addresses on any default or registered network.
func IsBech32SegwitPrefix(prefix string) bool {
	prefix = strings.ToLower(prefix)
	_, ok := bech32SegwitPrefixes[prefix]
	return ok
}

// RegisterHDKeyID registers a public and private hierarchical deterministic
// extended key ID pair.
func RegisterHDKeyID(hdPublicKeyID []byte, hdPrivateKeyID []byte) error {
	if len(hdPublicKeyID) != 4 || len(hdPrivateKeyID) != 4 {
		return ErrInvalidHDKeyID
	}

	var keyID [4]byte
	copy(keyID[:], hdPrivateKeyID)
	hdPrivToPubKeyIDs[keyID] = hdPublicKeyID

	return nil
}

// HDPrivateKeyToPublicKeyID accepts a private hierarchical deterministic
// extended key id and returns the associated public key id.
func HDPrivateKeyToPublicKeyID(id []byte) ([]byte, error) {
	if len(id) != 4 {
		return nil, ErrUnknownHDKeyID
	}

	var key [4]byte
	copy(key[:], id)
	pubBytes, ok := hdPrivToPubKeyIDs[key]
	if !ok {
		return nil, ErrUnknownHDKeyID
	}

	return pubBytes, nil
}

func init() {
	mainGenesisHash = genesisBlock.BlockHash()
	regressionGenesisHash = regTestGenesisBlock.BlockHash()

	mustRegister(&MainNetParams)
	mustRegister(&RegressionNetParams)
}
