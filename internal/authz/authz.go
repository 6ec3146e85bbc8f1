// Package authz implements the Discord-side authorization gate (C14): a
// message or voice-state actor is allowed iff they own the guild, hold
// administrator or manage-server permission, or belong to the managed role,
// grounded on the pack's policy-check idiom of short-circuiting checks where
// the first one that passes allows, before any work happens.
package authz

import "strings"

// Member is the minimal view of a guild member this gate needs. Callers
// adapt discordgo.Member/discordgo.Guild into this shape so the package
// stays free of a discordgo dependency.
type Member struct {
	IsBot           bool
	UserID          string
	GuildOwnerID    string
	IsAdministrator bool
	IsManageServer  bool
	RoleNames       []string
}

// DefaultManagedRoleName is the role name §4.14 names when no override is
// configured.
const DefaultManagedRoleName = "remote-vibe"

// Allowed reports whether m may trigger bridge behavior. managedRole is
// compared case-insensitively against m.RoleNames; callers pass
// config.Config.ManagedRole (falling back to DefaultManagedRoleName when
// empty).
func Allowed(m Member, managedRole string) bool {
	if m.IsBot {
		return false
	}
	if m.UserID != "" && m.UserID == m.GuildOwnerID {
		return true
	}
	if m.IsAdministrator || m.IsManageServer {
		return true
	}
	if managedRole == "" {
		managedRole = DefaultManagedRoleName
	}
	for _, name := range m.RoleNames {
		if strings.EqualFold(name, managedRole) {
			return true
		}
	}
	return false
}
