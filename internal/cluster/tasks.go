package cluster

import (
	"cmp"
	"context"
	"fmt"
	"net/url"
	"slices"
	"strconv"

	"github.com/giantswarm/mcp-proxmox/internal/fanout"
	"github.com/giantswarm/mcp-proxmox/internal/instrumentation"
	"github.com/giantswarm/mcp-proxmox/internal/proxmox"
)

// DefaultTaskLimit is used when RecentTasks is called without a positive limit.
const DefaultTaskLimit = 20

// TaskRecord is one entry of the task log.
type TaskRecord struct {
	UPID      string `json:"upid"`
	Node      string `json:"node"`
	PID       int64  `json:"pid"`
	PStart    int64  `json:"pstart"`
	Type      string `json:"type"`
	ID        string `json:"id"`
	Status    string `json:"status"`
	User      string `json:"user"`
	StartTime int64  `json:"starttime"`
	EndTime   int64  `json:"endtime"`
}

// TaskList is the result of RecentTasks, newest first.
type TaskList struct {
	Tasks           []TaskRecord     `json:"tasks"`
	Count           int              `json:"count"`
	PartialFailures []fanout.Failure `json:"partial_failures,omitempty"`
}

// RecentTasks returns at most limit tasks sorted by start time, newest first.
//
// With a node, only that node is queried and its failure is returned as an
// error. Without one, every node is asked for an even share of limit (at
// least one each) and the merged list is sorted before truncation.
func (a *Aggregator) RecentTasks(ctx context.Context, node string, limit int) (*TaskList, error) {
	const operation = "recent_tasks"
	if limit <= 0 {
		limit = DefaultTaskLimit
	}

	ctx, span := instrumentation.StartFanoutSpan(ctx, operation)

	list := &TaskList{Tasks: []TaskRecord{}}
	nodesChecked := 1

	if node != "" {
		tasks, err := a.nodeTasks(ctx, node, limit)
		if err != nil {
			instrumentation.SetSpanError(span, err)
			span.End()
			return nil, err
		}
		list.Tasks = tasks
	} else {
		nodes, err := a.NodeNames(ctx)
		if err != nil {
			instrumentation.SetSpanError(span, err)
			span.End()
			return nil, err
		}
		nodesChecked = len(nodes)

		perNode := 1
		if len(nodes) > 0 {
			perNode = max(1, limit/len(nodes))
		}

		results := fanout.Run(ctx, a.concurrency, nodes, func(ctx context.Context, n string) ([]TaskRecord, error) {
			return a.nodeTasks(ctx, n, perNode)
		})
		for i, res := range results {
			if res.Err != nil {
				list.PartialFailures = append(list.PartialFailures,
					a.ReportFailure(ctx, operation, fanout.Failure{Node: nodes[i]}, res.Err))
				continue
			}
			list.Tasks = append(list.Tasks, res.Value...)
		}
	}

	slices.SortStableFunc(list.Tasks, func(x, y TaskRecord) int {
		return cmp.Compare(y.StartTime, x.StartTime)
	})
	if len(list.Tasks) > limit {
		list.Tasks = list.Tasks[:limit]
	}
	list.Count = len(list.Tasks)

	endFanoutSpan(span, nodesChecked, len(list.PartialFailures))
	return list, nil
}

func (a *Aggregator) nodeTasks(ctx context.Context, node string, limit int) ([]TaskRecord, error) {
	tasks, err := proxmox.GetInto[[]proxmox.Task](ctx, a.client,
		proxmox.Path("nodes", node, "tasks"), url.Values{"limit": {strconv.Itoa(limit)}})
	if err != nil {
		return nil, fmt.Errorf("listing tasks on node %s: %w", node, err)
	}

	out := make([]TaskRecord, 0, len(tasks))
	for _, t := range tasks {
		rec := TaskRecord{
			UPID:      t.UPID,
			Node:      t.Node,
			PID:       t.PID.Int64(),
			PStart:    t.PStart.Int64(),
			Type:      t.Type,
			ID:        t.ID,
			Status:    t.Status,
			User:      t.User,
			StartTime: t.StartTime.Int64(),
			EndTime:   t.EndTime.Int64(),
		}
		if rec.Status == "" {
			rec.Status = "running"
		}
		if rec.Node == "" {
			rec.Node = node
		}
		out = append(out, rec)
	}
	return out, nil
}
