package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homeopshq/homeops-api/internal/apperr"
	"github.com/homeopshq/homeops-api/internal/domain"
	"github.com/homeopshq/homeops-api/internal/policy"
)

// seedRecipientWorld builds two tenant silos:
//
//	account X: agent (id returned), homeowner hank, contact carla
//	account Y: homeowner helen, contact chris
func seedRecipientWorld(t *testing.T, store *fakeStore) (agentID int64, outsideContactID int64) {
	t.Helper()
	ctx := context.Background()

	mkUser := func(name, email string, role domain.Role) *domain.User {
		u := &domain.User{Email: email, DisplayName: name, Role: role, IsActive: true}
		require.NoError(t, store.users.Create(ctx, u))
		return u
	}

	agent := mkUser("Agent", "agent@x.io", domain.RoleAgent)
	hank := mkUser("Hank", "hank@x.io", domain.RoleHomeowner)
	helen := mkUser("Helen", "helen@x.io", domain.RoleHomeowner)

	accountX := &domain.Account{Name: "X", URL: "x", OwnerUserID: hank.ID}
	require.NoError(t, store.accounts.Create(ctx, accountX))
	require.NoError(t, store.accounts.AddMember(ctx, accountX.ID, hank.ID, domain.AccountRoleOwner))
	require.NoError(t, store.accounts.AddMember(ctx, accountX.ID, agent.ID, domain.AccountRoleMember))

	accountY := &domain.Account{Name: "Y", URL: "y", OwnerUserID: helen.ID}
	require.NoError(t, store.accounts.Create(ctx, accountY))
	require.NoError(t, store.accounts.AddMember(ctx, accountY.ID, helen.ID, domain.AccountRoleOwner))

	carla := &domain.Contact{AccountID: accountX.ID, Name: "Carla", Email: "carla@x.io"}
	require.NoError(t, store.contacts.Create(ctx, carla))
	chris := &domain.Contact{AccountID: accountY.ID, Name: "Chris", Email: "chris@x.io"}
	require.NoError(t, store.contacts.Create(ctx, chris))

	return agent.ID, chris.ID
}

func adminPrincipal() *policy.Principal {
	return &policy.Principal{ID: 999, Email: "admin@x.io", Role: domain.RoleSuperAdmin}
}

func agentPrincipal(id int64) *policy.Principal {
	return &policy.Principal{ID: id, Email: "agent@x.io", Role: domain.RoleAgent}
}

func TestResolve_AdminGlobalModes(t *testing.T) {
	store := newFakeStore()
	agentID, _ := seedRecipientWorld(t, store)
	resolver := NewRecipientResolver(store.repos())
	ctx := context.Background()

	set, err := resolver.Resolve(ctx, adminPrincipal(), ModeAllContacts, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, set.Count)

	set, err = resolver.Resolve(ctx, adminPrincipal(), ModeAllHomeowners, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, set.Count)

	set, err = resolver.Resolve(ctx, adminPrincipal(), ModeAllAgents, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, set.Count)

	set, err = resolver.Resolve(ctx, adminPrincipal(), ModeSpecificUsers, []int64{agentID})
	require.NoError(t, err)
	assert.Equal(t, 1, set.Count)
}

func TestResolve_AgentScoping(t *testing.T) {
	store := newFakeStore()
	agentID, outsideContactID := seedRecipientWorld(t, store)
	resolver := NewRecipientResolver(store.repos())
	ctx := context.Background()

	// all_contacts: only contacts on the agent's accounts
	set, err := resolver.Resolve(ctx, agentPrincipal(agentID), ModeAllContacts, nil)
	require.NoError(t, err)
	require.Equal(t, 1, set.Count)
	assert.Equal(t, "carla@x.io", set.Emails[0])

	// listing an out-of-scope contact explicitly must not include it either
	set, err = resolver.Resolve(ctx, agentPrincipal(agentID), ModeSpecificContacts, []int64{outsideContactID})
	require.NoError(t, err)
	assert.Equal(t, 0, set.Count)

	// all_homeowners: only active homeowners sharing an account with the agent
	set, err = resolver.Resolve(ctx, agentPrincipal(agentID), ModeAllHomeowners, nil)
	require.NoError(t, err)
	require.Equal(t, 1, set.Count)
	assert.Equal(t, "hank@x.io", set.Emails[0])

	// restricted modes are empty for agents
	for _, mode := range []RecipientMode{ModeAllUsers, ModeAllAgents, ModeSpecificUsers} {
		set, err = resolver.Resolve(ctx, agentPrincipal(agentID), mode, []int64{agentID})
		require.NoError(t, err)
		assert.Equal(t, 0, set.Count, "mode %s", mode)
	}
}

func TestResolve_HomeownerGetsNothing(t *testing.T) {
	store := newFakeStore()
	seedRecipientWorld(t, store)
	resolver := NewRecipientResolver(store.repos())
	ctx := context.Background()

	homeowner := &policy.Principal{ID: 2, Email: "hank@x.io", Role: domain.RoleHomeowner}
	for _, mode := range []RecipientMode{ModeAllContacts, ModeAllHomeowners, ModeAllUsers} {
		set, err := resolver.Resolve(ctx, homeowner, mode, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, set.Count, "mode %s", mode)
	}
}

func TestResolve_DeduplicatesByEmail(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()

	u := &domain.User{Email: "dual@x.io", DisplayName: "Dual", Role: domain.RoleHomeowner, IsActive: true}
	require.NoError(t, store.users.Create(ctx, u))
	account := &domain.Account{Name: "A", URL: "a", OwnerUserID: u.ID}
	require.NoError(t, store.accounts.Create(ctx, account))
	require.NoError(t, store.accounts.AddMember(ctx, account.ID, u.ID, domain.AccountRoleOwner))
	// contact with the same email but different casing
	require.NoError(t, store.contacts.Create(ctx, &domain.Contact{AccountID: account.ID, Name: "Dual", Email: "DUAL@x.io"}))

	resolver := NewRecipientResolver(store.repos())

	contacts, err := resolver.Resolve(ctx, adminPrincipal(), ModeAllContacts, nil)
	require.NoError(t, err)
	homeowners, err := resolver.Resolve(ctx, adminPrincipal(), ModeAllHomeowners, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, contacts.Count)
	assert.Equal(t, 1, homeowners.Count)
}

func TestResolve_UnknownMode(t *testing.T) {
	resolver := NewRecipientResolver(newFakeStore().repos())

	_, err := resolver.Resolve(context.Background(), adminPrincipal(), "carrier_pigeon", nil)
	assert.Equal(t, apperr.KindInputInvalid, apperr.KindOf(err))
}

func TestEstimate(t *testing.T) {
	store := newFakeStore()
	agentID, _ := seedRecipientWorld(t, store)
	resolver := NewRecipientResolver(store.repos())
	ctx := context.Background()

	count, err := resolver.Estimate(ctx, adminPrincipal(), ModeAllHomeowners, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = resolver.Estimate(ctx, agentPrincipal(agentID), ModeAllHomeowners, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = resolver.Estimate(ctx, agentPrincipal(agentID), ModeAllUsers, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
