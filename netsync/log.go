package netsync

import (
	"github.com/oneepicnight/vision-node/logger"
	"github.com/oneepicnight/vision-node/util/panics"
)

var log, _ = logger.Get(logger.SubsystemTags.SYNC)
var spawn = panics.GoroutineWrapperFunc(log)
