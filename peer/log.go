package peer

import (
	"github.com/oneepicnight/vision-node/logger"
	"github.com/oneepicnight/vision-node/util/panics"
)

var log, _ = logger.Get(logger.SubsystemTags.PEER)
var spawn = panics.GoroutineWrapperFunc(log)
