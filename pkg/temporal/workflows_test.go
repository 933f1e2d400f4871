package temporal

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/leowmjw/go-walk-sync/pkg/config"
)

func newTestEnv(t *testing.T) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()
	Register(env, NewActivities(nil, config.NewDefaultConfig()))
	return env
}

func TestSyncSessionWorkflow(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		env := newTestEnv(t)
		req := SyncRequest{Subject: "1", Walk: "3"}
		env.OnActivity(SyncSessionActivityName, mock.Anything, req).
			Return(&SyncResult{Subject: "1", Walk: "3", Intervals: 4}, nil).Once()

		env.ExecuteWorkflow(SyncSessionWorkflow, req)

		require.True(t, env.IsWorkflowCompleted())
		require.NoError(t, env.GetWorkflowError())
		var result *SyncResult
		require.NoError(t, env.GetWorkflowResult(&result))
		assert.Equal(t, 4, result.Intervals)
		env.AssertExpectations(t)
	})

	t.Run("Activity failure is not retried", func(t *testing.T) {
		env := newTestEnv(t)
		calls := 0
		env.OnActivity(SyncSessionActivityName, mock.Anything, mock.Anything).
			Return(func(context.Context, SyncRequest) (*SyncResult, error) {
				calls++
				return nil, errors.New("event log unreadable")
			})

		env.ExecuteWorkflow(SyncSessionWorkflow, SyncRequest{Subject: "1", Walk: "3"})

		require.True(t, env.IsWorkflowCompleted())
		err := env.GetWorkflowError()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "RW1-Walk3")
		assert.Equal(t, 1, calls)
	})
}

func TestSyncBatchWorkflow(t *testing.T) {
	t.Run("Sequential sessions skip failures", func(t *testing.T) {
		env := newTestEnv(t)
		var order []string
		env.OnActivity(SyncSessionActivityName, mock.Anything, mock.Anything).
			Return(func(_ context.Context, req SyncRequest) (*SyncResult, error) {
				order = append(order, req.Session().String())
				if req.Walk == "4" {
					return nil, errors.New("no event log")
				}
				return &SyncResult{Subject: req.Subject, Walk: req.Walk, DryRun: req.DryRun}, nil
			})

		env.ExecuteWorkflow(SyncBatchWorkflow, BatchRequest{
			BatchID:  "b1",
			Sessions: SessionGrid([]string{"1", "2"}, []string{"3", "4"}),
			DryRun:   true,
		})

		require.True(t, env.IsWorkflowCompleted())
		require.NoError(t, env.GetWorkflowError())
		var results []*SyncResult
		require.NoError(t, env.GetWorkflowResult(&results))

		assert.Equal(t, []string{"RW1-Walk3", "RW1-Walk4", "RW2-Walk3", "RW2-Walk4"}, order)
		require.Len(t, results, 2)
		assert.Equal(t, "1", results[0].Subject)
		assert.Equal(t, "2", results[1].Subject)
		assert.True(t, results[0].DryRun)
	})

	t.Run("Empty batch", func(t *testing.T) {
		env := newTestEnv(t)
		env.ExecuteWorkflow(SyncBatchWorkflow, BatchRequest{})

		require.True(t, env.IsWorkflowCompleted())
		require.NoError(t, env.GetWorkflowError())
		var results []*SyncResult
		require.NoError(t, env.GetWorkflowResult(&results))
		assert.Empty(t, results)
	})
}

func TestGenerateWorkflowIDs(t *testing.T) {
	req := SyncRequest{Subject: "1", Walk: "3"}
	assert.Equal(t, "walk-sync-RW1-Walk3", GenerateSyncWorkflowID("", req))
	assert.Equal(t, "walk-sync-abc-RW1-Walk3", GenerateSyncWorkflowID("abc", req))

	workflowID, batchID := GenerateBatchWorkflowID()
	assert.True(t, strings.HasPrefix(workflowID, BatchWorkflowIDPrefix))
	assert.True(t, strings.HasSuffix(workflowID, batchID))
	assert.Len(t, batchID, 36)
}

func TestBatchRequestValidate(t *testing.T) {
	assert.Error(t, BatchRequest{}.Validate())
	assert.Error(t, BatchRequest{Sessions: []SyncRequest{{Subject: "1"}}}.Validate())
	assert.NoError(t, BatchRequest{Sessions: SessionGrid([]string{"1"}, []string{"3"})}.Validate())
	assert.Empty(t, SessionGrid(nil, []string{"3"}))
}
