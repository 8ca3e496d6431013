package job

import (
	"context"
	"time"

	"github.com/authgate/authgate/logger"
	"github.com/authgate/authgate/util/common"
)

// SessionCleaner removes expired sessions from a session store.
type SessionCleaner interface {
	Cleanup(ctx context.Context) (int64, error)
}

// CleanSessionsJob sweeps expired sessions from stores that do not expire them on
// their own (the database backend).
type CleanSessionsJob struct {
	store   SessionCleaner
	timeout time.Duration
}

func NewCleanSessionsJob(store SessionCleaner) *CleanSessionsJob {
	return &CleanSessionsJob{store: store, timeout: 30 * time.Second}
}

func (j *CleanSessionsJob) Run() {
	defer common.Recover("clean sessions job")

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	n, err := j.store.Cleanup(ctx)
	if err != nil {
		logger.Warning("clean sessions job err:", err)
		return
	}
	if n > 0 {
		logger.Infof("clean sessions job: removed %d expired sessions", n)
	}
}
