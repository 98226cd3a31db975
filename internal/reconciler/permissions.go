package reconciler

import (
	"context"

	"github.com/kestrelhq/driveconnect/internal/logging"
	"github.com/kestrelhq/driveconnect/internal/types"
	"github.com/kestrelhq/driveconnect/internal/utils"
)

// ApplyPermissionChanges grants or revokes folder selections. Validation is
// all-or-nothing: any value other than "read"/"none" rejects the whole batch
// before a single mutation. Application is then best-effort per item. If at
// least one change was applied, a full resync is handed to the orchestrator
// without waiting for it; trigger failures are logged, never returned.
func (r *Reconciler) ApplyPermissionChanges(ctx context.Context, connectorID string, changes map[string]types.Permission) error {
	connector, err := r.requireConnector(ctx, connectorID)
	if err != nil {
		return err
	}

	for nodeID, permission := range changes {
		if !permission.Valid() {
			return utils.NewAppError(utils.NewServiceError(utils.ErrCodeInvalidPermission,
				"permission must be \"read\" or \"none\"").
				WithContext("nodeId", nodeID).
				WithContext("permission", string(permission)).
				Build())
		}
	}

	applied := 0
	revoked := 0
	var failed []string
	for nodeID, permission := range changes {
		var changed bool
		var applyErr error
		switch permission {
		case types.PermissionRead:
			changed, applyErr = r.db.UpsertFolder(ctx, connectorID, nodeID)
		case types.PermissionNone:
			changed, applyErr = r.db.DeleteFolder(ctx, connectorID, nodeID)
			if changed {
				revoked++
			}
		}
		if applyErr != nil {
			r.logger.Error("Permission change failed",
				logging.F("connectorId", connectorID),
				logging.F("nodeId", nodeID),
				logging.F("permission", permission),
				logging.F("error", applyErr.Error()),
			)
			failed = append(failed, nodeID)
			continue
		}
		if changed {
			applied++
		}
	}

	// Revoked subtrees leave mirror rows no selected folder can reach.
	// Collect them now; sweep failures are cleanup debt, not a caller error.
	if revoked > 0 {
		removed, gcErr := r.db.GarbageCollect(ctx, connectorID)
		if gcErr != nil {
			r.logger.Error("Mirror garbage collection failed",
				logging.F("connectorId", connectorID),
				logging.F("error", gcErr.Error()),
			)
		} else if removed > 0 {
			r.logger.Info("Mirror garbage collected",
				logging.F("connectorId", connectorID),
				logging.F("removed", removed),
			)
		}
	}

	if applied > 0 {
		r.scheduleFullSync(ctx, connector.ID, connector.SyncCursor)
	}

	if len(failed) > 0 {
		return utils.NewAppError(utils.NewServiceError(utils.ErrCodeInternalError,
			"some permission changes could not be applied").
			WithContext("connectorId", connectorID).
			WithContext("failedNodeIds", failed).
			Build())
	}
	return nil
}

// scheduleFullSync is a one-way handoff: the caller returns before the
// triggered sync runs, and must not assume ordering between the trigger
// and its effects.
func (r *Reconciler) scheduleFullSync(ctx context.Context, connectorID, cursor string) {
	triggerCtx := context.WithoutCancel(ctx)
	go func() {
		if err := r.launcher.TriggerFullSync(triggerCtx, connectorID, cursor); err != nil {
			r.logger.Error("Full sync trigger failed",
				logging.F("connectorId", connectorID),
				logging.F("error", err.Error()),
			)
			return
		}
		r.logger.Info("Full sync triggered",
			logging.F("connectorId", connectorID),
		)
	}()
}
