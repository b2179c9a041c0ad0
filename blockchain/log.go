package blockchain

import "github.com/oneepicnight/vision-node/logger"

var log, _ = logger.Get(logger.SubsystemTags.CHAN)
