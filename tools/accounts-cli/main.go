// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"fmt"
	"os"
	"runtime/pprof"
	"strings"

	"github.com/Fantom-foundation/accountsdb/accountsdb"
	"github.com/ledgerwatch/log/v3"
	"github.com/urfave/cli/v2"
)

// Run using
//  go run ./tools/accounts-cli <command> <flags>

var (
	verbosityFlag = cli.StringFlag{
		Name:  "verbosity",
		Usage: "log level of the store, one of crit, error, warn, info, debug, trace",
		Value: "info",
	}
	cpuProfileFlag = cli.StringFlag{
		Name:  "cpuprofile",
		Usage: "sets the target file for storing CPU profiles to, disabled if empty",
		Value: "",
	}
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "accounts-cli",
		Usage:     "account store toolbox",
		Copyright: "(c) 2024 Fantom Foundation",
		Flags: []cli.Flag{
			&verbosityFlag,
			&cpuProfileFlag,
		},
		Before: setupLogging,
		Commands: []*cli.Command{
			&Info,
			&Verify,
			&Lookup,
		},
	}
}

func setupLogging(context *cli.Context) error {
	level, err := log.LvlFromString(strings.ToLower(context.String(verbosityFlag.Name)))
	if err != nil {
		return err
	}
	log.Root().SetHandler(log.LvlFilterHandler(level, log.StderrHandler))
	return nil
}

// openStore opens the store in the directory given as the first argument
// using the layout recorded in the directory.
func openStore(context *cli.Context) (*accountsdb.Store, error) {
	if context.Args().Len() < 1 {
		return nil, fmt.Errorf("missing directory storing accounts")
	}
	config, err := accountsdb.ConfigOf(context.Args().Get(0))
	if err != nil {
		return nil, err
	}
	config.Logger = log.New("module", "accountsdb")
	return accountsdb.Open(config)
}

func withProfiling(action cli.ActionFunc) cli.ActionFunc {
	return func(context *cli.Context) error {
		filename := context.String(cpuProfileFlag.Name)
		if strings.TrimSpace(filename) == "" {
			return action(context)
		}
		f, err := os.Create(filename)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
		return action(context)
	}
}
