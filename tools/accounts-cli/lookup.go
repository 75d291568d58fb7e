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

	"github.com/Fantom-foundation/accountsdb/accountsdb"
	"github.com/Fantom-foundation/accountsdb/common"
	"github.com/urfave/cli/v2"
)

var Lookup = cli.Command{
	Action:    withProfiling(lookup),
	Name:      "lookup",
	Usage:     "lists all stored versions of an account",
	ArgsUsage: "<directory> <key>",
}

func lookup(context *cli.Context) (err error) {
	if context.Args().Len() != 2 {
		return fmt.Errorf("expected directory and account key")
	}
	key, err := common.ParseKey(context.Args().Get(1))
	if err != nil {
		return err
	}
	store, err := openStore(context)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, store.Close())
	}()

	versions, err := store.FindStoredVersions(key)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		fmt.Printf("No versions of %v stored\n", key)
		return nil
	}
	fmt.Printf("Stored versions of %v:\n", key)
	for _, version := range versions {
		state := "superseded"
		if version.Indexed {
			state = "indexed"
		}
		fmt.Printf("\tslot %d, write version %d at %v (%s): %v\n",
			version.Slot, version.WriteVersion, version.Location, state, version.Account)
	}

	account, slot, found, err := store.LoadWithSlot(key, accountsdb.NewAncestors())
	if err != nil {
		return err
	}
	if found {
		fmt.Printf("Visible at latest root: slot %d, %v\n", slot, account)
	} else {
		fmt.Printf("Not visible at latest root\n")
	}
	return nil
}
