package queue

import "errors"

// ErrQueueSealed is returned on insertion into a queue that has been marked
// complete. It is always a caller contract violation, never retried.
var ErrQueueSealed = errors.New("insert into sealed queue")

// ErrNotStarted is returned when an executor is consumed before its producers
// have been started.
var ErrNotStarted = errors.New("executor not started")

// ErrShutdown is the failure installed on the queue when the executor is
// forcibly shut down while producers are still running.
var ErrShutdown = errors.New("executor shut down")
