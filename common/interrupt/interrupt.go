// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package interrupt

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Fantom-foundation/accountsdb/common"
	"github.com/ledgerwatch/log/v3"
)

// ErrCanceled is reported by operations stopped by an interrupt.
const ErrCanceled = common.ConstError("interrupted")

// IsCancelled returns true if the given context is done.
func IsCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// Register returns a context canceled on SIGINT or SIGTERM, so long running
// scans and verifications stop at a consistent point. The returned stop
// function releases the signal handler and cancels the context; it must be
// called once the context is no longer needed.
func Register(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer signal.Stop(signals)
		select {
		case sig := <-signals:
			log.Warn("Interrupt received, stopping at the next consistent point", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		cancel()
		<-done
	}
}
