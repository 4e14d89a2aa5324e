// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package config parses the command-line options recognized by the
// block-template assembler, following the jessevdk/go-flags convention used
// throughout the btcsuite ecosystem for daemon configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	flags "github.com/jessevdk/go-flags"

	"github.com/btcbt-project/btcbtd/mining"
)

// Options holds the assembler-facing subset of a node's configuration.
type Options struct {
	BlockMaxWeight int64 `long:"blockmaxweight" description:"Maximum weight for a generated block; 0 selects the adaptive cap"`

	BlockMinTxFee float64 `long:"blockmintxfee" default:"0.00001" description:"Minimum fee rate, in BTC/kvB, a package must clear to be selected for a generated block"`

	BlockVersion int32 `long:"blockversion" description:"Block version to use on mine-blocks-on-demand networks (ignored elsewhere)"`

	PrintPriority bool `long:"printpriority" description:"Log each selected package's computed priority"`
}

// Parse parses args (typically os.Args[1:]) into an Options value using
// go-flags' default parser, which also handles -h/--help. Long options are
// accepted with a single dash (-blockmaxweight) as well as a double dash.
func Parse(args []string) (*Options, error) {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)

	normalized := make([]string, len(args))
	for i, arg := range args {
		normalized[i] = arg
		if strings.HasPrefix(arg, "-") && !strings.HasPrefix(arg, "--") {
			name := strings.SplitN(arg[1:], "=", 2)[0]
			if parser.FindOptionByLongName(name) != nil {
				normalized[i] = "-" + arg
			}
		}
	}

	if _, err := parser.ParseArgs(normalized); err != nil {
		return nil, err
	}
	return &opts, nil
}

// Policy converts the parsed options into a mining.Policy, translating
// -blockmintxfee from BTC/kvB into the satoshis-per-1000-weight-unit scale
// collab.MempoolEntry.FeeRate uses: a kvB is 1000 virtual bytes, and one
// virtual byte is WitnessScaleFactor weight units, so the rate is divided
// by WitnessScaleFactor at the unit boundary.
func (o *Options) Policy() (mining.Policy, error) {
	amt, err := btcutil.NewAmount(o.BlockMinTxFee)
	if err != nil {
		return mining.Policy{}, fmt.Errorf("config: invalid -blockmintxfee %v: %w", o.BlockMinTxFee, err)
	}

	return mining.Policy{
		BlockMaxWeight:  o.BlockMaxWeight,
		BlockMinFeeRate: int64(amt) / mining.WitnessScaleFactor,
		PrintPriority:   o.PrintPriority,
	}, nil
}
