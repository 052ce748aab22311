package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waari-travel/waari-erp/jobs"
)

type stubEnqueuer struct {
	tasks  []*asynq.Task
	closed bool
}

func (s *stubEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	s.tasks = append(s.tasks, task)
	return &asynq.TaskInfo{ID: "t1", Queue: jobs.QueueDefault, Type: task.Type()}, nil
}

func (s *stubEnqueuer) Close() error {
	s.closed = true
	return nil
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return s.info, s.err }

func (s stubInspector) ListScheduledTasks(string, ...asynq.ListOption) ([]*asynq.TaskInfo, error) {
	return nil, s.err
}

func (s stubInspector) Close() error { return nil }

func TestTriggerOrphanSweep(t *testing.T) {
	enq := &stubEnqueuer{}
	c := NewJobsCLIWith(enq, stubInspector{})

	info, err := c.Trigger(context.Background(), jobs.TaskOrphanSweep)
	require.NoError(t, err)
	assert.Equal(t, jobs.TaskOrphanSweep, info.Type)
	require.Len(t, enq.tasks, 1)

	_, err = c.Trigger(context.Background(), "nope")
	require.Error(t, err)

	require.NoError(t, c.Close())
	assert.True(t, enq.closed)
}

func TestInspectQueue(t *testing.T) {
	c := NewJobsCLIWith(&stubEnqueuer{}, stubInspector{info: &asynq.QueueInfo{Queue: jobs.QueueDefault, Pending: 2, Retry: 1}})
	stats, err := c.InspectQueue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Pending)
	assert.Equal(t, 1, stats.Retry)

	var buf bytes.Buffer
	require.NoError(t, WriteStats(&buf, stats))
	assert.Contains(t, buf.String(), "PENDING")
	assert.Contains(t, buf.String(), jobs.QueueDefault)

	c = NewJobsCLIWith(&stubEnqueuer{}, stubInspector{err: errors.New("redis down")})
	_, err = c.InspectQueue(context.Background())
	require.Error(t, err)
}
