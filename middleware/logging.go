package middleware

import (
	"context"

	"github.com/agentstation/difyflow"
)

// Logging logs every node visit and the end of every run to logger.
func Logging(logger difyflow.Logger) difyflow.Observer {
	return Funcs{
		OnNodeStarted: func(ctx context.Context, ev difyflow.NodeEvent) {
			logger.Debug(ctx, "node starting",
				"run_id", ev.RunID,
				"node", ev.NodeID,
				"type", ev.NodeType,
				"step", ev.Step)
		},
		OnNodeFinished: func(ctx context.Context, ev difyflow.NodeEvent) {
			if ev.Err != nil {
				logger.Error(ctx, "node failed",
					"run_id", ev.RunID,
					"node", ev.NodeID,
					"type", ev.NodeType,
					"duration", ev.Duration,
					"error", ev.Err)
				return
			}
			logger.Info(ctx, "node completed",
				"run_id", ev.RunID,
				"node", ev.NodeID,
				"type", ev.NodeType,
				"gateway", ev.Gateway,
				"duration", ev.Duration)
		},
		OnRunFinished: func(ctx context.Context, ev difyflow.RunEvent) {
			if ev.Err != nil {
				logger.Error(ctx, "workflow failed",
					"run_id", ev.RunID,
					"workflow", ev.Workflow,
					"steps", ev.Steps,
					"error", ev.Err)
				return
			}
			logger.Info(ctx, "workflow completed",
				"run_id", ev.RunID,
				"workflow", ev.Workflow,
				"steps", ev.Steps,
				"completed", ev.Completed,
				"duration", ev.Duration)
		},
	}
}
