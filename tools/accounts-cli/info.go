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

	"github.com/c2h5oh/datasize"
	"github.com/urfave/cli/v2"
)

var Info = cli.Command{
	Action:    withProfiling(info),
	Name:      "info",
	Usage:     "lists statistics of an account store",
	ArgsUsage: "<directory>",
	Flags: []cli.Flag{
		&segmentsFlag,
		&memoryFlag,
	},
}

var (
	segmentsFlag = cli.BoolFlag{
		Name:  "segments",
		Usage: "print the statistics of every segment",
	}
	memoryFlag = cli.BoolFlag{
		Name:  "memory",
		Usage: "print a breakdown of the memory footprint",
	}
)

func info(context *cli.Context) (err error) {
	store, err := openStore(context)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, store.Close())
	}()

	info := store.Info()
	used, dead, sealed := uint64(0), uint64(0), 0
	for _, segment := range info.Segments {
		used += segment.Used
		dead += segment.Dead
		if segment.Sealed {
			sealed++
		}
	}

	fmt.Printf("Directory contains an account store with the following properties:\n")
	fmt.Printf("\tKeys:        %d\n", info.Keys)
	fmt.Printf("\tVersions:    %d\n", info.Entries)
	fmt.Printf("\tRoots:       %d\n", info.Roots)
	if info.HasRoot {
		fmt.Printf("\tLatest root: %d\n", info.LatestRoot)
	} else {
		fmt.Printf("\tLatest root: -\n")
	}
	fmt.Printf("\tSegments:    %d (%d sealed)\n", len(info.Segments), sealed)
	fmt.Printf("\tStored:      %v (%v dead)\n", datasize.ByteSize(used).HR(), datasize.ByteSize(dead).HR())

	if context.Bool(segmentsFlag.Name) {
		fmt.Printf("\nSegments:\n")
		for _, segment := range info.Segments {
			fmt.Printf("\t%6d: capacity %v, used %v, live %v, sealed %t\n",
				segment.Id,
				datasize.ByteSize(segment.Capacity).HR(),
				datasize.ByteSize(segment.Used).HR(),
				datasize.ByteSize(segment.Live()).HR(),
				segment.Sealed,
			)
		}
	}
	if context.Bool(memoryFlag.Name) {
		fmt.Printf("\nMemory footprint:\n%v", store.GetMemoryFootprint())
	}
	return nil
}
