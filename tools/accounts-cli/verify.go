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
	"errors"
	"fmt"
	"time"

	"github.com/Fantom-foundation/accountsdb/common/interrupt"
	"github.com/urfave/cli/v2"
)

var Verify = cli.Command{
	Action:    withProfiling(verify),
	Name:      "verify",
	Usage:     "verifies the state of the latest root against its recorded hash",
	ArgsUsage: "<directory>",
}

func verify(context *cli.Context) (err error) {
	ctx, stop := interrupt.Register(context.Context)
	defer stop()
	start := time.Now()

	store, err := openStore(context)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, store.Close())
	}()
	printProgress(start, "Segments replayed")

	info := store.Info()
	if !info.HasRoot {
		printProgress(start, "Store contains no roots, nothing to verify")
		return nil
	}
	root := info.LatestRoot

	hash, capitalization, found, err := store.GetFullHash(root)
	if err != nil {
		return err
	}
	if !found {
		printProgress(start, fmt.Sprintf("No hash recorded for root %d, computing it ...", root))
		hash, capitalization, err = store.CalculateFullHash(ctx, root)
		if err != nil {
			return err
		}
		printProgress(start, fmt.Sprintf("Root %d: hash %v, capitalization %v", root, hash, capitalization))
		return nil
	}

	printProgress(start, fmt.Sprintf("Verifying root %d against recorded hash %v ...", root, hash))
	ok, err := store.VerifyHashAndCapitalization(ctx, root, hash, capitalization)
	if interrupt.IsCancelled(ctx) {
		return interrupt.ErrCanceled
	}
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("state of root %d does not match its recorded hash", root)
	}
	printProgress(start, "Verification successful!")
	return nil
}

func printProgress(start time.Time, msg string) {
	now := time.Now()
	t := uint64(now.Sub(start).Seconds())
	fmt.Printf("%s [t=%4d:%02d] - %s\n", now.Format("15:04:05"), t/60, t%60, msg)
}
