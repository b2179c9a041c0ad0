// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"os/signal"
	"syscall"
)

// shutdownRequestChannel is used to initiate shutdown from one of the
// subsystems using the same code paths as when an interrupt signal is
// received.
var shutdownRequestChannel = make(chan struct{})

// interruptSignals defines the default signals to catch in order to do a
// proper shutdown.
var interruptSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// interruptListener returns a channel that will be closed when an
// interrupt signal is received, or a shutdown is requested through the
// shutdown request channel. It also logs and ignores repeated signals.
func interruptListener() <-chan struct{} {
	c := make(chan struct{})
	spawn(func() {
		interruptChannel := make(chan os.Signal, 1)
		signal.Notify(interruptChannel, interruptSignals...)

		select {
		case sig := <-interruptChannel:
			log.Infof("Received signal (%s). Shutting down...", sig)
		case <-shutdownRequestChannel:
			log.Info("Shutdown requested. Shutting down...")
		}
		close(c)

		// Keep draining so later signals don't kill the process before
		// the graceful shutdown completes.
		for {
			select {
			case sig := <-interruptChannel:
				log.Infof("Received signal (%s). Already shutting "+
					"down...", sig)
			case <-shutdownRequestChannel:
				log.Info("Shutdown requested. Already shutting down...")
			}
		}
	})
	return c
}

// interruptRequested returns true when the channel returned by
// interruptListener was closed.
func interruptRequested(interrupted <-chan struct{}) bool {
	select {
	case <-interrupted:
		return true
	default:
	}
	return false
}
