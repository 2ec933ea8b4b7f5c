package operations

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/giantswarm/mcp-proxmox/internal/proxmox"
)

// UserInfo is one cluster user.
type UserInfo struct {
	UserID    string          `json:"userid"`
	Enable    int64           `json:"enable"`
	Expire    int64           `json:"expire"`
	FirstName string          `json:"firstname"`
	LastName  string          `json:"lastname"`
	Email     string          `json:"email"`
	Comment   string          `json:"comment"`
	Groups    []string        `json:"groups"`
	Tokens    json.RawMessage `json:"tokens"`
}

// UserList is the result of Users.
type UserList struct {
	Users []UserInfo `json:"users"`
	Count int        `json:"count"`
}

// Users lists cluster users with their API tokens.
func (o *Operations) Users(ctx context.Context) (*UserList, error) {
	users, err := proxmox.GetInto[[]proxmox.User](ctx, o.client, "/access/users", url.Values{"full": {"1"}})
	if err != nil {
		return nil, err
	}

	list := &UserList{Users: make([]UserInfo, 0, len(users))}
	for _, u := range users {
		info := UserInfo{
			UserID:    u.UserID,
			Enable:    1,
			Expire:    u.Expire.Int64(),
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Email:     u.Email,
			Comment:   u.Comment,
			Groups:    nonNil(u.Groups),
			Tokens:    u.Tokens,
		}
		if u.Enable != nil {
			info.Enable = u.Enable.Int64()
		}
		if proxmox.IsNull(info.Tokens) {
			info.Tokens = json.RawMessage("[]")
		}
		list.Users = append(list.Users, info)
	}
	list.Count = len(list.Users)
	return list, nil
}

// GroupInfo is one cluster group.
type GroupInfo struct {
	GroupID string   `json:"groupid"`
	Comment string   `json:"comment"`
	Users   []string `json:"users"`
}

// GroupList is the result of Groups.
type GroupList struct {
	Groups []GroupInfo `json:"groups"`
	Count  int         `json:"count"`
}

// Groups lists cluster groups and their members.
func (o *Operations) Groups(ctx context.Context) (*GroupList, error) {
	groups, err := proxmox.GetInto[[]proxmox.Group](ctx, o.client, "/access/groups", nil)
	if err != nil {
		return nil, err
	}

	list := &GroupList{Groups: make([]GroupInfo, 0, len(groups))}
	for _, g := range groups {
		list.Groups = append(list.Groups, GroupInfo{
			GroupID: g.GroupID,
			Comment: g.Comment,
			Users:   nonNil(g.Users),
		})
	}
	list.Count = len(list.Groups)
	return list, nil
}

// RoleInfo is one role and its privileges.
type RoleInfo struct {
	RoleID  string   `json:"roleid"`
	Privs   []string `json:"privs"`
	Special int64    `json:"special"`
}

// RoleList is the result of Roles.
type RoleList struct {
	Roles []RoleInfo `json:"roles"`
	Count int        `json:"count"`
}

// Roles lists built-in and custom roles.
func (o *Operations) Roles(ctx context.Context) (*RoleList, error) {
	roles, err := proxmox.GetInto[[]proxmox.Role](ctx, o.client, "/access/roles", nil)
	if err != nil {
		return nil, err
	}

	list := &RoleList{Roles: make([]RoleInfo, 0, len(roles))}
	for _, r := range roles {
		list.Roles = append(list.Roles, RoleInfo{
			RoleID:  r.RoleID,
			Privs:   nonNil(r.Privs),
			Special: r.Special.Int64(),
		})
	}
	list.Count = len(list.Roles)
	return list, nil
}

func nonNil(l proxmox.StringList) []string {
	if l == nil {
		return []string{}
	}
	return l
}
