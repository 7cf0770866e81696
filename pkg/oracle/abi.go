package oracle

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Algebra (Swapr v3) pool. globalState carries the current sqrt price as
// a Q64.96 fixed point in its first word; tick structures are exposed for
// completeness but pricing never touches them.
const algebraPoolABIJSON = `[
  {"inputs":[],"name":"globalState","outputs":[
    {"internalType":"uint160","name":"price","type":"uint160"},
    {"internalType":"int24","name":"tick","type":"int24"},
    {"internalType":"uint16","name":"fee","type":"uint16"},
    {"internalType":"uint16","name":"timepointIndex","type":"uint16"},
    {"internalType":"uint8","name":"communityFeeToken0","type":"uint8"},
    {"internalType":"uint8","name":"communityFeeToken1","type":"uint8"},
    {"internalType":"bool","name":"unlocked","type":"bool"}],
   "stateMutability":"view","type":"function"},
  {"inputs":[],"name":"token0","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"},
  {"inputs":[],"name":"token1","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"},
  {"inputs":[],"name":"tickSpacing","outputs":[{"internalType":"int24","name":"","type":"int24"}],"stateMutability":"view","type":"function"},
  {"inputs":[{"internalType":"int24","name":"","type":"int24"}],"name":"ticks","outputs":[
    {"internalType":"uint128","name":"liquidityTotal","type":"uint128"},
    {"internalType":"int128","name":"liquidityDelta","type":"int128"},
    {"internalType":"uint256","name":"outerFeeGrowth0Token","type":"uint256"},
    {"internalType":"uint256","name":"outerFeeGrowth1Token","type":"uint256"},
    {"internalType":"int56","name":"outerTickCumulative","type":"int56"},
    {"internalType":"uint160","name":"outerSecondsPerLiquidity","type":"uint160"},
    {"internalType":"uint32","name":"outerSecondsSpent","type":"uint32"},
    {"internalType":"bool","name":"initialized","type":"bool"}],
   "stateMutability":"view","type":"function"},
  {"inputs":[{"internalType":"int16","name":"","type":"int16"}],"name":"tickTable","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

// Balancer V3 vault: token list plus raw and live balances per pool.
const balancerVaultABIJSON = `[
  {"inputs":[{"internalType":"address","name":"pool","type":"address"}],"name":"getPoolTokenInfo","outputs":[
    {"internalType":"address[]","name":"tokens","type":"address[]"},
    {"components":[
      {"internalType":"uint8","name":"tokenType","type":"uint8"},
      {"internalType":"address","name":"rateProvider","type":"address"},
      {"internalType":"bool","name":"paysYieldFees","type":"bool"}],
     "internalType":"struct TokenInfo[]","name":"tokenInfo","type":"tuple[]"},
    {"internalType":"uint256[]","name":"balancesRaw","type":"uint256[]"},
    {"internalType":"uint256[]","name":"lastBalancesLiveScaled18","type":"uint256[]"}],
   "stateMutability":"view","type":"function"}
]`

// Uniswap-V2-style pair, used by the PNK multi-hop spot feed.
const pairV2ABIJSON = `[
  {"inputs":[],"name":"getReserves","outputs":[
    {"internalType":"uint112","name":"reserve0","type":"uint112"},
    {"internalType":"uint112","name":"reserve1","type":"uint112"},
    {"internalType":"uint32","name":"blockTimestampLast","type":"uint32"}],
   "stateMutability":"view","type":"function"},
  {"inputs":[],"name":"token0","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"},
  {"inputs":[],"name":"token1","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"}
]`

// sDAI yield vault: conversion rate from shares to underlying.
const sdaiABIJSON = `[
  {"inputs":[{"internalType":"uint256","name":"shares","type":"uint256"}],"name":"convertToAssets","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

var (
	algebraPoolABI   = mustABI(algebraPoolABIJSON)
	balancerVaultABI = mustABI(balancerVaultABIJSON)
	pairV2ABI        = mustABI(pairV2ABIJSON)
	sdaiABI          = mustABI(sdaiABIJSON)
)

func mustABI(src string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(src))
	if err != nil {
		panic(fmt.Errorf("parse abi: %w", err))
	}
	return parsed
}
