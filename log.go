// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2017 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"github.com/oneepicnight/vision-node/logger"
	"github.com/oneepicnight/vision-node/util/panics"
)

var log, _ = logger.Get(logger.SubsystemTags.VSND)
var spawn = panics.GoroutineWrapperFunc(log)
