package authz

import "testing"

func TestAllowed_BotAlwaysRejected(t *testing.T) {
	m := Member{IsBot: true, UserID: "u1", GuildOwnerID: "u1"}
	if Allowed(m, "") {
		t.Fatalf("expected bot rejected regardless of other fields")
	}
}

func TestAllowed_Owner(t *testing.T) {
	m := Member{UserID: "owner-1", GuildOwnerID: "owner-1"}
	if !Allowed(m, "") {
		t.Fatalf("expected owner allowed")
	}
}

func TestAllowed_AdministratorOrManageServer(t *testing.T) {
	if !Allowed(Member{IsAdministrator: true}, "") {
		t.Fatalf("expected administrator allowed")
	}
	if !Allowed(Member{IsManageServer: true}, "") {
		t.Fatalf("expected manage-server allowed")
	}
}

func TestAllowed_ManagedRoleCaseInsensitive(t *testing.T) {
	m := Member{RoleNames: []string{"Everyone", "Remote-Vibe"}}
	if !Allowed(m, "") {
		t.Fatalf("expected default managed role match to be case-insensitive")
	}
}

func TestAllowed_CustomManagedRole(t *testing.T) {
	m := Member{RoleNames: []string{"coders"}}
	if !Allowed(m, "coders") {
		t.Fatalf("expected custom managed role to authorize")
	}
	if Allowed(m, "remote-vibe") {
		t.Fatalf("expected default role name not to match when overridden")
	}
}

func TestAllowed_NoMatchIsDenied(t *testing.T) {
	m := Member{UserID: "u2", GuildOwnerID: "owner-1", RoleNames: []string{"member"}}
	if Allowed(m, "") {
		t.Fatalf("expected plain member denied")
	}
}
