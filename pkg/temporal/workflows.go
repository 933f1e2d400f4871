package temporal

import (
	"fmt"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// SyncSessionWorkflow synchronizes one session in a single long-running
// activity. A failed session is not retried; its partial output is
// overwritten by the next run.
func SyncSessionWorkflow(ctx workflow.Context, req SyncRequest) (*SyncResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting sync workflow", "subject", req.Subject, "walk", req.Walk)

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: DefaultSessionTimeout,
		HeartbeatTimeout:    DefaultHeartbeatTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var result *SyncResult
	if err := workflow.ExecuteActivity(ctx, SyncSessionActivityName, req).Get(ctx, &result); err != nil {
		return nil, fmt.Errorf("failed to synchronize %s: %w", req.Session(), err)
	}

	logger.Info("Sync completed", "subject", req.Subject, "walk", req.Walk, "intervals", result.Intervals)
	return result, nil
}

// SyncBatchWorkflow runs one child workflow per session, one after another.
// Sessions that fail are logged and left out of the results.
func SyncBatchWorkflow(ctx workflow.Context, req BatchRequest) ([]*SyncResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting batch workflow", "batchID", req.BatchID, "sessions", len(req.Sessions))

	results := make([]*SyncResult, 0, len(req.Sessions))
	for _, s := range req.Sessions {
		s.DryRun = s.DryRun || req.DryRun

		childOptions := workflow.ChildWorkflowOptions{
			WorkflowID: GenerateSyncWorkflowID(req.BatchID, s),
		}
		childCtx := workflow.WithChildOptions(ctx, childOptions)

		var result *SyncResult
		if err := workflow.ExecuteChildWorkflow(childCtx, SyncSessionWorkflow, s).Get(ctx, &result); err != nil {
			logger.Error("Child workflow failed", "subject", s.Subject, "walk", s.Walk, "error", err)
			continue
		}
		results = append(results, result)
	}

	logger.Info("Completed batch workflow", "sessions", len(req.Sessions), "resultsCount", len(results))
	return results, nil
}
