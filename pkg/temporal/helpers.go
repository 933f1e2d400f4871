package temporal

import (
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
)

// GenerateSyncWorkflowID creates the workflow ID of one session. Sessions
// started directly use the bare session name so a second start of the same
// session is rejected while the first is running.
func GenerateSyncWorkflowID(batchID string, req SyncRequest) string {
	if batchID == "" {
		return fmt.Sprintf("%s%s", SyncWorkflowIDPrefix, req.Session())
	}
	return fmt.Sprintf("%s%s-%s", SyncWorkflowIDPrefix, batchID, req.Session())
}

// GenerateBatchWorkflowID creates a workflow ID for a batch and returns the
// batch id embedded in it.
func GenerateBatchWorkflowID() (workflowID, batchID string) {
	batchID = uuid.NewString()
	return BatchWorkflowIDPrefix + batchID, batchID
}

// Registry is the part of a worker that workflows and activities are
// registered on. worker.Worker and the SDK test environments satisfy it.
type Registry interface {
	RegisterWorkflow(w interface{})
	RegisterActivityWithOptions(a interface{}, options activity.RegisterOptions)
}

// Register registers both workflows and the session activity.
func Register(r Registry, a *Activities) {
	r.RegisterWorkflow(SyncSessionWorkflow)
	r.RegisterWorkflow(SyncBatchWorkflow)
	r.RegisterActivityWithOptions(a.SyncSessionActivity, activity.RegisterOptions{Name: SyncSessionActivityName})
}
