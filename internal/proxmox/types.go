package proxmox

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Int is an integer that decodes from JSON numbers, numeric strings, booleans
// and null. Proxmox emits flags such as "template" and "enable" in all of these
// shapes depending on the endpoint and version.
type Int int64

// UnmarshalJSON implements json.Unmarshaler.
func (i *Int) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0, bytes.Equal(b, []byte("null")):
		*i = 0
		return nil
	case bytes.Equal(b, []byte("true")):
		*i = 1
		return nil
	case bytes.Equal(b, []byte("false")):
		*i = 0
		return nil
	}

	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*i = 0
			return nil
		}
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*i = Int(n)
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("cannot decode %s as integer", string(b))
	}
	*i = Int(f)
	return nil
}

// Int64 returns i as an int64.
func (i Int) Int64() int64 { return int64(i) }

// StringList decodes from either a JSON array of strings or a single
// comma-separated string.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*l = nil
		return nil
	}
	if b[0] == '[' {
		var items []string
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*l = SplitList(s)
	return nil
}

// SplitList splits a comma-separated Proxmox list, dropping empty items.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Kind distinguishes the two guest flavours.
type Kind string

const (
	KindVM        Kind = "qemu"
	KindContainer Kind = "lxc"
)

var titleCaser = cases.Title(language.English)

// ParseKind accepts "qemu", "vm", "lxc" and "container".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "qemu", "vm":
		return KindVM, nil
	case "lxc", "container", "ct":
		return KindContainer, nil
	}
	return "", fmt.Errorf("unknown guest kind %q", s)
}

// Noun is the lower-case word used in messages: "VM" or "container".
func (k Kind) Noun() string {
	if k == KindVM {
		return "VM"
	}
	return "container"
}

// Label is the sentence-initial form: "VM" or "Container".
func (k Kind) Label() string {
	if k == KindVM {
		return "VM"
	}
	return titleCaser.String(k.Noun())
}

// Plural is the key used for guest collections: "vms" or "containers".
func (k Kind) Plural() string {
	if k == KindVM {
		return "vms"
	}
	return "containers"
}

// Node is an entry of GET /nodes.
type Node struct {
	Node    string  `json:"node"`
	Status  string  `json:"status"`
	CPU     float64 `json:"cpu"`
	MaxCPU  Int     `json:"maxcpu"`
	Mem     Int     `json:"mem"`
	MaxMem  Int     `json:"maxmem"`
	Disk    Int     `json:"disk"`
	MaxDisk Int     `json:"maxdisk"`
	Uptime  Int     `json:"uptime"`
	Level   string  `json:"level,omitempty"`
	ID      string  `json:"id,omitempty"`
	Type    string  `json:"type,omitempty"`
}

// ComputeUnit is an entry of GET /nodes/{node}/qemu or /nodes/{node}/lxc.
type ComputeUnit struct {
	VMID     Int     `json:"vmid"`
	Name     string  `json:"name"`
	Status   string  `json:"status"`
	CPU      float64 `json:"cpu"`
	CPUs     Int     `json:"cpus"`
	Mem      Int     `json:"mem"`
	MaxMem   Int     `json:"maxmem"`
	Disk     Int     `json:"disk"`
	MaxDisk  Int     `json:"maxdisk"`
	Uptime   Int     `json:"uptime"`
	Template Int     `json:"template"`
	Tags     string  `json:"tags,omitempty"`
	Lock     string  `json:"lock,omitempty"`
	PID      Int     `json:"pid,omitempty"`
	NetIn    Int     `json:"netin,omitempty"`
	NetOut   Int     `json:"netout,omitempty"`
}

// IsTemplate reports whether the guest is a template.
func (c ComputeUnit) IsTemplate() bool {
	return c.Template != 0
}

// Resource is an entry of GET /cluster/resources.
type Resource struct {
	ID       string  `json:"id"`
	Type     string  `json:"type"`
	Node     string  `json:"node,omitempty"`
	VMID     Int     `json:"vmid,omitempty"`
	Name     string  `json:"name,omitempty"`
	Status   string  `json:"status,omitempty"`
	Storage  string  `json:"storage,omitempty"`
	Pool     string  `json:"pool,omitempty"`
	CPU      float64 `json:"cpu,omitempty"`
	MaxCPU   Int     `json:"maxcpu,omitempty"`
	Mem      Int     `json:"mem,omitempty"`
	MaxMem   Int     `json:"maxmem,omitempty"`
	Disk     Int     `json:"disk,omitempty"`
	MaxDisk  Int     `json:"maxdisk,omitempty"`
	Uptime   Int     `json:"uptime,omitempty"`
	Template Int     `json:"template,omitempty"`
}

// ClusterStatusEntry is an entry of GET /cluster/status. The list mixes one
// "cluster" entry with one "node" entry per member.
type ClusterStatusEntry struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
	Version *Int   `json:"version,omitempty"`
	Nodes   Int    `json:"nodes,omitempty"`
	Quorate *Int   `json:"quorate,omitempty"`
	Online  Int    `json:"online,omitempty"`
	IP      string `json:"ip,omitempty"`
	Local   Int    `json:"local,omitempty"`
	NodeID  Int    `json:"nodeid,omitempty"`
	Level   string `json:"level,omitempty"`
}

// Task is an entry of GET /nodes/{node}/tasks.
type Task struct {
	UPID      string `json:"upid"`
	Node      string `json:"node"`
	Type      string `json:"type"`
	ID        string `json:"id"`
	User      string `json:"user"`
	Status    string `json:"status,omitempty"`
	StartTime Int    `json:"starttime"`
	EndTime   Int    `json:"endtime,omitempty"`
	PID       Int    `json:"pid,omitempty"`
	PStart    Int    `json:"pstart,omitempty"`
}

// Snapshot is an entry of GET /nodes/{node}/{kind}/{vmid}/snapshot.
type Snapshot struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	SnapTime    Int    `json:"snaptime,omitempty"`
	VMState     Int    `json:"vmstate,omitempty"`
	Parent      string `json:"parent,omitempty"`
}

// StorageConfig is an entry of GET /storage.
type StorageConfig struct {
	Storage string `json:"storage"`
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Nodes   string `json:"nodes,omitempty"`
	Disable Int    `json:"disable,omitempty"`
	Shared  Int    `json:"shared,omitempty"`
	Path    string `json:"path,omitempty"`
	Server  string `json:"server,omitempty"`
	Export  string `json:"export,omitempty"`
	Pool    string `json:"pool,omitempty"`
	VGName  string `json:"vgname,omitempty"`
}

// StorageStatus is the body of GET /nodes/{node}/storage/{storage}/status.
type StorageStatus struct {
	Total   Int    `json:"total"`
	Used    Int    `json:"used"`
	Avail   Int    `json:"avail"`
	Active  Int    `json:"active"`
	Enabled Int    `json:"enabled,omitempty"`
	Type    string `json:"type,omitempty"`
	Content string `json:"content,omitempty"`
}

// StorageContent is an entry of GET /nodes/{node}/storage/{storage}/content.
type StorageContent struct {
	VolID   string `json:"volid"`
	Content string `json:"content"`
	Format  string `json:"format,omitempty"`
	Size    Int    `json:"size"`
	CTime   Int    `json:"ctime,omitempty"`
	VMID    Int    `json:"vmid,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

// User is an entry of GET /access/users.
type User struct {
	UserID    string     `json:"userid"`
	Enable    *Int       `json:"enable,omitempty"`
	Expire    Int        `json:"expire,omitempty"`
	FirstName string     `json:"firstname,omitempty"`
	LastName  string     `json:"lastname,omitempty"`
	Email     string     `json:"email,omitempty"`
	Comment   string     `json:"comment,omitempty"`
	Groups    StringList `json:"groups,omitempty"`

	// Tokens is only populated when the listing is requested with full=1.
	Tokens json.RawMessage `json:"tokens,omitempty"`
}

// Group is an entry of GET /access/groups.
type Group struct {
	GroupID string     `json:"groupid"`
	Comment string     `json:"comment,omitempty"`
	Users   StringList `json:"users,omitempty"`
}

// Role is an entry of GET /access/roles.
type Role struct {
	RoleID  string     `json:"roleid"`
	Privs   StringList `json:"privs,omitempty"`
	Special Int        `json:"special,omitempty"`
}

// LogEntry is an entry of GET /cluster/log.
type LogEntry struct {
	Time Int    `json:"time"`
	Node string `json:"node"`
	Tag  string `json:"tag,omitempty"`
	User string `json:"user,omitempty"`
	Msg  string `json:"msg"`
	Pri  *Int   `json:"pri,omitempty"`
	UID  string `json:"uid,omitempty"`
}

// FirewallOptions is the body of GET .../firewall/options.
type FirewallOptions struct {
	Enable      *Int   `json:"enable,omitempty"`
	PolicyIn    string `json:"policy_in,omitempty"`
	PolicyOut   string `json:"policy_out,omitempty"`
	LogLevelIn  string `json:"log_level_in,omitempty"`
	LogLevelOut string `json:"log_level_out,omitempty"`
}

// FirewallRule is an entry of GET .../firewall/rules.
type FirewallRule struct {
	Pos     Int    `json:"pos"`
	Type    string `json:"type"`
	Action  string `json:"action"`
	Source  string `json:"source,omitempty"`
	Dest    string `json:"dest,omitempty"`
	Proto   string `json:"proto,omitempty"`
	DPort   string `json:"dport,omitempty"`
	SPort   string `json:"sport,omitempty"`
	Enable  *Int   `json:"enable,omitempty"`
	Comment string `json:"comment,omitempty"`
	Macro   string `json:"macro,omitempty"`
	Iface   string `json:"iface,omitempty"`
}
