package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockMetricsService struct {
	refreshed   []int64
	refreshAlls int
	err         error
}

func (m *mockMetricsService) Refresh(ctx context.Context, ownerID int64) error {
	if m.err != nil {
		return m.err
	}
	m.refreshed = append(m.refreshed, ownerID)
	return nil
}

func (m *mockMetricsService) RefreshAll(ctx context.Context) error {
	if m.err != nil {
		return m.err
	}
	m.refreshAlls++
	return nil
}

func TestMetricsRefreshTask_DefaultsToAll(t *testing.T) {
	task, err := NewMetricsRefreshTask("")
	require.NoError(t, err)
	assert.Equal(t, TaskMetricsRefresh, task.Type())
	assert.JSONEq(t, `{"owner":"all"}`, string(task.Payload()))
}

func TestHandle_AllOwners(t *testing.T) {
	svc := &mockMetricsService{}
	job := NewMetricsRefreshJob(svc, nil)

	task, err := NewMetricsRefreshTask("all")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 1, svc.refreshAlls)
	assert.Empty(t, svc.refreshed)
}

func TestHandle_SingleOwner(t *testing.T) {
	svc := &mockMetricsService{}
	job := NewMetricsRefreshJob(svc, nil)

	task, err := NewMetricsRefreshTask("42")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, []int64{42}, svc.refreshed)
}

func TestHandle_BadPayloadSkipsRetry(t *testing.T) {
	svc := &mockMetricsService{}
	job := NewMetricsRefreshJob(svc, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskMetricsRefresh, []byte("{not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = job.Handle(context.Background(), asynq.NewTask(TaskMetricsRefresh, []byte(`{"owner":"minus-one"}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandle_ServiceErrorPropagates(t *testing.T) {
	svc := &mockMetricsService{err: errors.New("db down")}
	job := NewMetricsRefreshJob(svc, nil)

	task, err := NewMetricsRefreshTask("all")
	require.NoError(t, err)
	assert.Error(t, job.Handle(context.Background(), task))
}
