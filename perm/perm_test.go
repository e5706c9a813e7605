package perm_test

import (
	"testing"

	"github.com/forbearing/admincore/perm"
	"github.com/stretchr/testify/require"
)

func TestIsGrantedWildcard(t *testing.T) {
	sub, err := perm.New("")
	require.NoError(t, err)

	require.NoError(t, sub.RBAC().GrantPermission("editor", "entity:books:read", "allow"))
	require.NoError(t, sub.RBAC().GrantPermission("editor", "entity:books:read", "x"))
	require.NoError(t, sub.RBAC().GrantPermission("editor", "entity:*:list", "x"))
	require.NoError(t, sub.RBAC().AssignRole("alice", "editor"))

	require.True(t, sub.IsGranted("alice", "entity:books:read"))
	require.True(t, sub.IsGranted("alice", "entity:authors:list"))
	require.False(t, sub.IsGranted("alice", "entity:books:delete"))
}

func TestIsGrantedCatchAll(t *testing.T) {
	sub, err := perm.New("")
	require.NoError(t, err)

	require.NoError(t, sub.RBAC().GrantPermission("root", "*", "x"))
	require.NoError(t, sub.RBAC().AssignRole("bob", "root"))

	require.True(t, sub.IsGranted("bob", "entity:books:delete"))
	require.True(t, sub.IsGranted("bob", "auth:impersonate"))
}

func TestAnonymousRole(t *testing.T) {
	sub, err := perm.New("", perm.WithAnonymousRole("anonymous"))
	require.NoError(t, err)
	require.NoError(t, sub.RBAC().GrantPermission("anonymous", "entity:books:read", "x"))

	require.True(t, sub.IsGranted("", "entity:books:read"))
	require.False(t, sub.IsGranted("", "entity:books:delete"))
}
