// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
visiond is a full node implementation of the Vision network written in Go.

It downloads, validates, and serves blocks using rules hardened against
hostile peers: every block's VisionX proof of work is recomputed before
the block is admitted anywhere, the heaviest cumulative work chain wins
subject to reorganization depth and checkpoint guards, and block
production waits for agreement with a quorum of peers.

Usage:

	visiond [OPTIONS]

Use visiond -h to show the available command line options.
*/
package main
