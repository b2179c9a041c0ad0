package server

import (
	"github.com/oneepicnight/vision-node/logger"
	"github.com/oneepicnight/vision-node/util/panics"
)

var log, _ = logger.Get(logger.SubsystemTags.SRVR)
var spawn = panics.GoroutineWrapperFunc(log)
