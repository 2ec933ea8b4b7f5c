package operations

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/giantswarm/mcp-proxmox/internal/fanout"
	"github.com/giantswarm/mcp-proxmox/internal/instrumentation"
	"github.com/giantswarm/mcp-proxmox/internal/logging"
	"github.com/giantswarm/mcp-proxmox/internal/proxmox"
)

const notAvailable = "N/A"

// StorageList is the result of Storage.
type StorageList struct {
	Storage []proxmox.StorageConfig `json:"storage"`
}

// Storage lists the cluster-wide storage definitions.
func (o *Operations) Storage(ctx context.Context) (*StorageList, error) {
	storages, err := proxmox.GetInto[[]proxmox.StorageConfig](ctx, o.client, "/storage", nil)
	if err != nil {
		return nil, err
	}
	if storages == nil {
		storages = []proxmox.StorageConfig{}
	}
	return &StorageList{Storage: storages}, nil
}

// StorageDetails is the merged configuration and live usage of one storage.
type StorageDetails struct {
	Storage string        `json:"storage"`
	Type    string        `json:"type"`
	Enabled int64         `json:"enabled"`
	Shared  int64         `json:"shared"`
	Content []string      `json:"content"`
	Nodes   string        `json:"nodes"`
	NFS     *NFSDetails   `json:"nfs,omitempty"`
	Path    string        `json:"path,omitempty"`
	Status  *StorageUsage `json:"status,omitempty"`
}

// NFSDetails are the export settings of an NFS storage.
type NFSDetails struct {
	Server  string `json:"server"`
	Export  string `json:"export"`
	Path    string `json:"path"`
	Options string `json:"options"`
}

// StorageUsage is live capacity as seen from one node.
type StorageUsage struct {
	Total     int64 `json:"total"`
	Used      int64 `json:"used"`
	Available int64 `json:"available"`
	Active    int64 `json:"active"`
}

// storageDefinition is the body of GET /storage/{storage}.
type storageDefinition struct {
	proxmox.StorageConfig
	Options string `json:"options,omitempty"`
}

var pathBackedStorage = []string{"dir", "lvm", "lvmthin", "zfs", "zfspool"}

// StorageDetails describes storage. Usage comes from an online node; if no
// node is online or the lookup fails the configuration is returned on its own.
func (o *Operations) StorageDetails(ctx context.Context, storage string) (*StorageDetails, error) {
	raw, err := o.client.Get(ctx, proxmox.Path("storage", storage), nil)
	if err != nil {
		return nil, err
	}
	def, found, err := decodeStorageDefinition(raw)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("Storage %s not found", storage) //nolint:staticcheck // ST1005: caller-facing text
	}

	d := &StorageDetails{
		Storage: storage,
		Type:    def.Type,
		Enabled: 1,
		Shared:  def.Shared.Int64(),
		Content: proxmox.SplitList(def.Content),
		Nodes:   def.Nodes,
	}
	if d.Type == "" {
		d.Type = "unknown"
	}
	if def.Disable != 0 {
		d.Enabled = 0
	}
	if d.Nodes == "" {
		d.Nodes = "all"
	}

	switch t := strings.ToLower(def.Type); {
	case t == "nfs":
		d.NFS = &NFSDetails{
			Server:  orDefault(def.Server, notAvailable),
			Export:  orDefault(def.Export, notAvailable),
			Path:    orDefault(def.Path, notAvailable),
			Options: orDefault(def.Options, notAvailable),
		}
	case slices.Contains(pathBackedStorage, t):
		d.Path = orDefault(def.Path, notAvailable)
	}

	d.Status = o.storageUsage(ctx, storage)
	return d, nil
}

// storageUsage reads live usage from the first online node. Without one the
// details carry configuration only.
func (o *Operations) storageUsage(ctx context.Context, storage string) *StorageUsage {
	nodes, err := proxmox.GetInto[[]proxmox.Node](ctx, o.client, "/nodes", nil)
	if err != nil {
		o.logger.Debug("storage usage unavailable", logging.Storage(storage), logging.SanitizedErr(err))
		return nil
	}
	i := slices.IndexFunc(nodes, func(n proxmox.Node) bool { return n.Status == "online" })
	if i < 0 {
		o.logger.Debug("storage usage unavailable: no online node", logging.Storage(storage))
		return nil
	}
	node := nodes[i].Node

	raw, err := o.client.Get(ctx, proxmox.Path("nodes", node, "storage", storage, "status"), nil)
	if err != nil {
		o.logger.Debug("storage usage unavailable", logging.Storage(storage), logging.Node(node), logging.SanitizedErr(err))
		return nil
	}
	if proxmox.IsNull(raw) {
		return nil
	}
	status, err := proxmox.Decode[proxmox.StorageStatus](raw)
	if err != nil {
		return nil
	}
	return &StorageUsage{
		Total:     status.Total.Int64(),
		Used:      status.Used.Int64(),
		Available: status.Avail.Int64(),
		Active:    status.Active.Int64(),
	}
}

// decodeStorageDefinition accepts both the object and the single-item list
// shapes returned by different API versions.
func decodeStorageDefinition(raw json.RawMessage) (storageDefinition, bool, error) {
	if proxmox.IsNull(raw) {
		return storageDefinition{}, false, nil
	}
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		defs, err := proxmox.Decode[[]storageDefinition](raw)
		if err != nil || len(defs) == 0 {
			return storageDefinition{}, false, err
		}
		return defs[0], true, nil
	}
	def, err := proxmox.Decode[map[string]json.RawMessage](raw)
	if err != nil || len(def) == 0 {
		return storageDefinition{}, false, err
	}
	out, err := proxmox.Decode[storageDefinition](raw)
	return out, err == nil, err
}

// Backup is a backup volume found on a storage.
type Backup struct {
	VolID   string `json:"volid"`
	VMID    *int64 `json:"vmid"`
	Node    string `json:"node"`
	Storage string `json:"storage"`
	Size    int64  `json:"size"`
	Format  string `json:"format"`
	CTime   int64  `json:"ctime"`
	Notes   string `json:"notes"`
}

// BackupList is the result of Backups.
type BackupList struct {
	Backups         []Backup         `json:"backups"`
	Count           int              `json:"count"`
	PartialFailures []fanout.Failure `json:"partial_failures,omitempty"`
}

type nodeStorage struct {
	node    string
	storage string
}

// Backups lists backup volumes. With both filters exactly one node/storage
// pair is queried and its failure is an error. Otherwise every node is
// paired with every storage that holds backups (or with the given storage),
// and failing pairs are skipped and reported.
func (o *Operations) Backups(ctx context.Context, storage, node string) (*BackupList, error) {
	if storage != "" && node != "" {
		backups, err := o.storageBackups(ctx, nodeStorage{node, storage})
		if err != nil {
			return nil, err
		}
		return &BackupList{Backups: backups, Count: len(backups)}, nil
	}

	const operation = "list_backups"
	ctx, span := instrumentation.StartFanoutSpan(ctx, operation)
	defer span.End()

	pairs, nodesChecked, err := o.backupPairs(ctx, storage, node)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}

	results := fanout.Run(ctx, o.aggregator.Concurrency(), pairs, o.storageBackups)

	list := &BackupList{Backups: []Backup{}}
	for i, res := range results {
		if res.Err != nil {
			list.PartialFailures = append(list.PartialFailures,
				o.aggregator.ReportFailure(ctx, operation, fanout.Failure{Node: pairs[i].node, Storage: pairs[i].storage}, res.Err))
			continue
		}
		list.Backups = append(list.Backups, res.Value...)
	}
	list.Count = len(list.Backups)

	span.SetAttributes(
		attribute.Int(instrumentation.SpanAttrNodesChecked, nodesChecked),
		attribute.Int(instrumentation.SpanAttrPartialFailures, len(list.PartialFailures)),
	)
	return list, nil
}

// backupPairs builds the node/storage cross product to query. Storages
// restricted to a node list are only paired with those nodes.
func (o *Operations) backupPairs(ctx context.Context, storage, node string) ([]nodeStorage, int, error) {
	nodes := []string{node}
	if node == "" {
		var err error
		if nodes, err = o.aggregator.NodeNames(ctx); err != nil {
			return nil, 0, err
		}
	}

	if storage != "" {
		pairs := make([]nodeStorage, 0, len(nodes))
		for _, n := range nodes {
			pairs = append(pairs, nodeStorage{n, storage})
		}
		return pairs, len(nodes), nil
	}

	storages, err := proxmox.GetInto[[]proxmox.StorageConfig](ctx, o.client, "/storage", nil)
	if err != nil {
		return nil, 0, fmt.Errorf("listing storage: %w", err)
	}

	var pairs []nodeStorage
	for _, n := range nodes {
		for _, s := range storages {
			if !slices.Contains(proxmox.SplitList(s.Content), "backup") {
				continue
			}
			if restricted := proxmox.SplitList(s.Nodes); len(restricted) > 0 && !slices.Contains(restricted, n) {
				continue
			}
			pairs = append(pairs, nodeStorage{n, s.Storage})
		}
	}
	return pairs, len(nodes), nil
}

func (o *Operations) storageBackups(ctx context.Context, p nodeStorage) ([]Backup, error) {
	items, err := proxmox.GetInto[[]storageItem](ctx, o.client,
		proxmox.Path("nodes", p.node, "storage", p.storage, "content"), nil)
	if err != nil {
		return nil, err
	}

	out := []Backup{}
	for _, item := range items {
		if item.Content != "backup" {
			continue
		}
		b := Backup{
			VolID:   item.VolID,
			Node:    p.node,
			Storage: p.storage,
			Size:    item.Size.Int64(),
			Format:  item.Format,
			CTime:   item.CTime.Int64(),
			Notes:   item.Notes,
		}
		if item.VMID != nil {
			v := item.VMID.Int64()
			b.VMID = &v
		}
		out = append(out, b)
	}
	return out, nil
}

// storageItem is proxmox.StorageContent with the guest id kept nullable.
type storageItem struct {
	proxmox.StorageContent
	VMID *proxmox.Int `json:"vmid"`
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
