package job

import (
	"github.com/authgate/authgate/database"
	"github.com/authgate/authgate/logger"
	"github.com/authgate/authgate/util/common"
)

// CheckpointJob flushes the SQLite write-ahead log into the database file.
type CheckpointJob struct{}

func NewCheckpointJob() *CheckpointJob {
	return new(CheckpointJob)
}

func (j *CheckpointJob) Run() {
	defer common.Recover("checkpoint job")

	if err := database.Checkpoint(); err != nil {
		logger.Warning("checkpoint job err:", err)
	}
}
