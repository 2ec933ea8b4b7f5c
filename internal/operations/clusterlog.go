package operations

import (
	"context"
	"net/url"
	"strconv"

	"github.com/giantswarm/mcp-proxmox/internal/proxmox"
)

// DefaultLogLines is used when ClusterLog is called without a positive maximum.
const DefaultLogLines = 50

// LogLine is one cluster log entry.
type LogLine struct {
	Time     int64  `json:"time"`
	Node     string `json:"node"`
	User     string `json:"user"`
	Message  string `json:"message"`
	Priority int64  `json:"priority"`
	Tag      string `json:"tag"`
}

// LogList is the result of ClusterLog.
type LogList struct {
	Logs  []LogLine `json:"logs"`
	Count int       `json:"count"`
}

// ClusterLog returns up to maxLines recent cluster log entries.
func (o *Operations) ClusterLog(ctx context.Context, maxLines int) (*LogList, error) {
	if maxLines <= 0 {
		maxLines = DefaultLogLines
	}
	entries, err := proxmox.GetInto[[]proxmox.LogEntry](ctx, o.client, "/cluster/log",
		url.Values{"max": {strconv.Itoa(maxLines)}})
	if err != nil {
		return nil, err
	}

	list := &LogList{Logs: make([]LogLine, 0, len(entries))}
	for _, e := range entries {
		line := LogLine{
			Time:     e.Time.Int64(),
			Node:     orDefault(e.Node, "cluster"),
			User:     orDefault(e.User, "system"),
			Message:  e.Msg,
			Priority: 6,
			Tag:      orDefault(e.Tag, "system"),
		}
		if e.Pri != nil {
			line.Priority = e.Pri.Int64()
		}
		list.Logs = append(list.Logs, line)
	}
	list.Count = len(list.Logs)
	return list, nil
}
