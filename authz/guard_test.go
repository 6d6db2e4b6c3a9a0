package authz_test

import (
	"testing"

	"github.com/AbiWebAngel/StoryBridgeBlog-sub001/authz"
	"github.com/AbiWebAngel/StoryBridgeBlog-sub001/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const superID = "000000000000000000000001"

func principal(id, role string) authz.Principal {
	return authz.Principal{ID: id, Email: id + "@example.com", Role: role}
}

func TestGuard_CanChangeRole(t *testing.T) {
	g := authz.Guard{SuperAdminID: superID}

	t.Run("SelfDeniedRegardlessOfRole", func(t *testing.T) {
		for _, role := range models.ValidRoles {
			err := g.CanChangeRole(principal("abc", role), "abc")
			require.Error(t, err, "role %s should not change own role", role)
			assert.Equal(t, "You cannot change your own role.", err.Error())
		}
	})

	t.Run("SuperAdminTargetDeniedRegardlessOfRole", func(t *testing.T) {
		for _, role := range models.ValidRoles {
			err := g.CanChangeRole(principal("abc", role), superID)
			assert.ErrorIs(t, err, authz.ErrSuperAdmin, "role %s", role)
		}
	})

	t.Run("NonAdminDenied", func(t *testing.T) {
		for _, role := range []string{models.RoleReader, models.RoleAuthor} {
			err := g.CanChangeRole(principal("abc", role), "def")
			assert.ErrorIs(t, err, authz.ErrForbidden, "role %s", role)
		}
	})

	t.Run("AdminAllowed", func(t *testing.T) {
		assert.NoError(t, g.CanChangeRole(principal("abc", models.RoleAdmin), "def"))
	})

	t.Run("UnauthenticatedDenied", func(t *testing.T) {
		err := g.CanChangeRole(authz.Principal{}, "def")
		assert.ErrorIs(t, err, authz.ErrUnauthenticated)
	})

	t.Run("DisabledPrincipalDenied", func(t *testing.T) {
		p := principal("abc", models.RoleAdmin)
		p.Disabled = true
		assert.ErrorIs(t, g.CanChangeRole(p, "def"), authz.ErrForbidden)
	})
}

func TestGuard_CanSetDisabled(t *testing.T) {
	g := authz.Guard{SuperAdminID: superID}

	t.Run("SelfDenied", func(t *testing.T) {
		err := g.CanSetDisabled(principal("abc", models.RoleAdmin), "abc")
		require.Error(t, err)
		assert.Equal(t, "You cannot disable your own account.", err.Error())
		assert.True(t, authz.SelfProtection(err))
	})

	t.Run("NonAdminDenied", func(t *testing.T) {
		err := g.CanSetDisabled(principal("abc", models.RoleAuthor), "def")
		assert.ErrorIs(t, err, authz.ErrForbidden)
	})

	t.Run("AdminAllowed", func(t *testing.T) {
		assert.NoError(t, g.CanSetDisabled(principal("abc", models.RoleAdmin), "def"))
	})
}

func TestGuard_AdminOnlyActionsDenyNonAdmins(t *testing.T) {
	g := authz.Guard{SuperAdminID: superID}
	for _, role := range []string{models.RoleReader, models.RoleAuthor} {
		p := principal("abc", role)
		assert.ErrorIs(t, g.CanAdminister(p), authz.ErrForbidden, "administer as %s", role)
		assert.ErrorIs(t, g.CanChangeRole(p, "def"), authz.ErrForbidden, "change role as %s", role)
		assert.ErrorIs(t, g.CanSetDisabled(p, "def"), authz.ErrForbidden, "set disabled as %s", role)
	}
	assert.NoError(t, g.CanAdminister(principal("abc", models.RoleAdmin)))
}

func TestGuard_CanMutateContent(t *testing.T) {
	g := authz.Guard{SuperAdminID: superID}

	t.Run("AuthorOfDocumentAllowed", func(t *testing.T) {
		assert.NoError(t, g.CanMutateContent(principal("abc", models.RoleAuthor), "abc"))
	})

	t.Run("AdminAllowed", func(t *testing.T) {
		assert.NoError(t, g.CanMutateContent(principal("abc", models.RoleAdmin), "def"))
	})

	t.Run("OtherAuthorDenied", func(t *testing.T) {
		assert.ErrorIs(t, g.CanMutateContent(principal("abc", models.RoleAuthor), "def"), authz.ErrForbidden)
	})

	t.Run("ReaderDenied", func(t *testing.T) {
		assert.ErrorIs(t, g.CanMutateContent(principal("abc", models.RoleReader), "def"), authz.ErrForbidden)
	})
}

func TestGuard_CanCreateContent(t *testing.T) {
	g := authz.Guard{}
	assert.NoError(t, g.CanCreateContent(principal("abc", models.RoleAuthor)))
	assert.NoError(t, g.CanCreateContent(principal("abc", models.RoleAdmin)))
	assert.ErrorIs(t, g.CanCreateContent(principal("abc", models.RoleReader)), authz.ErrForbidden)
	assert.ErrorIs(t, g.CanCreateContent(authz.Principal{}), authz.ErrUnauthenticated)
}
