package instrumentation

import "testing"

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"", "/"},
		{"/", "/"},
		{"/nodes", "/nodes"},
		{"/cluster/resources", "/cluster/resources"},
		{"/cluster/status", "/cluster/status"},
		{"/nodes/pve1/qemu", "/nodes/{node}/qemu"},
		{"/nodes/pve1/qemu/100/status/start", "/nodes/{node}/qemu/{vmid}/status/start"},
		{"/nodes/pve2/lxc/200/status/shutdown", "/nodes/{node}/lxc/{vmid}/status/shutdown"},
		{"/nodes/pve1/qemu/100/snapshot", "/nodes/{node}/qemu/{vmid}/snapshot"},
		{"/nodes/pve1/qemu/100/snapshot/pre-upgrade", "/nodes/{node}/qemu/{vmid}/snapshot/{snapshot}"},
		{"/nodes/pve1/storage/local/content", "/nodes/{node}/storage/{storage}/content"},
		{"/storage/local", "/storage/{storage}"},
		{"/nodes/pve1/tasks/UPID:pve1:0001:task/status", "/nodes/{node}/tasks/{upid}/status"},
		{"/nodes/pve1/firewall/rules", "/nodes/{node}/firewall/rules"},
		{"/access/users", "/access/users"},
		{"/nodes/pve1/qemu/100/config?current=1", "/nodes/{node}/qemu/{vmid}/config"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := NormalizeEndpoint(tt.path); got != tt.want {
				t.Errorf("NormalizeEndpoint(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestEndpointNode(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/nodes/pve1/qemu", "pve1"},
		{"/nodes/pve2", "pve2"},
		{"/nodes", ""},
		{"/cluster/resources", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := EndpointNode(tt.path); got != tt.want {
			t.Errorf("EndpointNode(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestExtractRealm(t *testing.T) {
	tests := []struct {
		userID string
		want   string
	}{
		{"root@pam", "pam"},
		{"automation@pve", "pve"},
		{"jane@ldap-corp", "ldap-corp"},
		{"invalid", "unknown"},
		{"", "unknown"},
		{"user@", "unknown"},
		{"a@b@c", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.userID, func(t *testing.T) {
			if got := ExtractRealm(tt.userID); got != tt.want {
				t.Errorf("ExtractRealm(%q) = %q, want %q", tt.userID, got, tt.want)
			}
		})
	}
}
