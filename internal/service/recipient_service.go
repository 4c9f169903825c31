package service

import (
	"context"

	"github.com/homeopshq/homeops-api/internal/apperr"
	"github.com/homeopshq/homeops-api/internal/domain"
	"github.com/homeopshq/homeops-api/internal/policy"
	"github.com/homeopshq/homeops-api/internal/repository"
	"github.com/homeopshq/homeops-api/internal/utils"
)

// RecipientMode selects how a broadcast audience is built
type RecipientMode string

const (
	ModeAllContacts      RecipientMode = "all_contacts"
	ModeSpecificContacts RecipientMode = "specific_contacts"
	ModeAllHomeowners    RecipientMode = "all_homeowners"
	ModeAllUsers         RecipientMode = "all_users"
	ModeAllAgents        RecipientMode = "all_agents"
	ModeSpecificUsers    RecipientMode = "specific_users"
)

// Valid reports whether the mode is known
func (m RecipientMode) Valid() bool {
	switch m {
	case ModeAllContacts, ModeSpecificContacts, ModeAllHomeowners,
		ModeAllUsers, ModeAllAgents, ModeSpecificUsers:
		return true
	}
	return false
}

// RecipientSet is a resolved, deduplicated broadcast audience
type RecipientSet struct {
	Contacts []*domain.Contact
	Users    []*domain.User
	Emails   []string
	Count    int
}

// RecipientResolver maps a recipient mode plus ids to the set of recipients
// the principal is allowed to reach. Scoping follows the tenant rules: agents
// only ever see their own accounts, and never other users.
type RecipientResolver struct {
	users    repository.UserRepository
	contacts repository.ContactRepository
	accounts repository.AccountRepository
}

// NewRecipientResolver creates the resolver
func NewRecipientResolver(repos *repository.Repositories) *RecipientResolver {
	return &RecipientResolver{
		users:    repos.User,
		contacts: repos.Contact,
		accounts: repos.Account,
	}
}

// Resolve builds the audience for the principal. Unauthorized modes yield an
// empty set, never an error.
func (r *RecipientResolver) Resolve(ctx context.Context, principal *policy.Principal, mode RecipientMode, ids []int64) (*RecipientSet, error) {
	if !mode.Valid() {
		return nil, apperr.Newf(apperr.KindInputInvalid, "unknown recipient mode %q", mode)
	}

	switch {
	case principal.IsPlatformAdmin():
		return r.resolveGlobal(ctx, mode, ids)
	case principal.Role == domain.RoleAgent:
		return r.resolveAgent(ctx, principal.ID, mode, ids)
	default:
		return emptySet(), nil
	}
}

// Estimate returns only the audience size
func (r *RecipientResolver) Estimate(ctx context.Context, principal *policy.Principal, mode RecipientMode, ids []int64) (int, error) {
	set, err := r.Resolve(ctx, principal, mode, ids)
	if err != nil {
		return 0, err
	}
	return set.Count, nil
}

func (r *RecipientResolver) resolveGlobal(ctx context.Context, mode RecipientMode, ids []int64) (*RecipientSet, error) {
	switch mode {
	case ModeAllContacts:
		contacts, err := r.contacts.ListAll(ctx)
		if err != nil {
			return nil, wrapResolve(err)
		}
		return buildSet(contacts, nil), nil

	case ModeSpecificContacts:
		contacts, err := r.contacts.ListByIDs(ctx, ids)
		if err != nil {
			return nil, wrapResolve(err)
		}
		return buildSet(contacts, nil), nil

	case ModeAllHomeowners:
		users, err := r.users.ListByRole(ctx, domain.RoleHomeowner, true)
		if err != nil {
			return nil, wrapResolve(err)
		}
		return buildSet(nil, users), nil

	case ModeAllAgents:
		users, err := r.users.ListByRole(ctx, domain.RoleAgent, true)
		if err != nil {
			return nil, wrapResolve(err)
		}
		return buildSet(nil, users), nil

	case ModeAllUsers:
		var all []*domain.User
		for _, role := range []domain.Role{domain.RoleSuperAdmin, domain.RoleAdmin, domain.RoleAgent, domain.RoleHomeowner} {
			users, err := r.users.ListByRole(ctx, role, true)
			if err != nil {
				return nil, wrapResolve(err)
			}
			all = append(all, users...)
		}
		return buildSet(nil, all), nil

	case ModeSpecificUsers:
		users, err := r.users.GetByIDs(ctx, ids)
		if err != nil {
			return nil, wrapResolve(err)
		}
		return buildSet(nil, users), nil
	}

	return emptySet(), nil
}

func (r *RecipientResolver) resolveAgent(ctx context.Context, agentID int64, mode RecipientMode, ids []int64) (*RecipientSet, error) {
	switch mode {
	case ModeAllContacts, ModeSpecificContacts, ModeAllHomeowners:
	default:
		// agents cannot address other users at all
		return emptySet(), nil
	}

	accountIDs, err := r.accounts.AccountIDsForUser(ctx, agentID)
	if err != nil {
		return nil, wrapResolve(err)
	}
	if len(accountIDs) == 0 {
		return emptySet(), nil
	}
	inScope := make(map[int64]bool, len(accountIDs))
	for _, id := range accountIDs {
		inScope[id] = true
	}

	switch mode {
	case ModeAllContacts:
		contacts, err := r.contacts.ListByAccountIDs(ctx, accountIDs)
		if err != nil {
			return nil, wrapResolve(err)
		}
		return buildSet(contacts, nil), nil

	case ModeSpecificContacts:
		contacts, err := r.contacts.ListByIDs(ctx, ids)
		if err != nil {
			return nil, wrapResolve(err)
		}
		scoped := contacts[:0]
		for _, c := range contacts {
			if inScope[c.AccountID] {
				scoped = append(scoped, c)
			}
		}
		return buildSet(scoped, nil), nil

	case ModeAllHomeowners:
		users, err := r.homeownersOnAccounts(ctx, accountIDs)
		if err != nil {
			return nil, err
		}
		return buildSet(nil, users), nil
	}

	return emptySet(), nil
}

// homeownersOnAccounts collects the active homeowners who are members of the
// given accounts
func (r *RecipientResolver) homeownersOnAccounts(ctx context.Context, accountIDs []int64) ([]*domain.User, error) {
	seen := make(map[int64]bool)
	var userIDs []int64
	for _, accountID := range accountIDs {
		members, err := r.accounts.Members(ctx, accountID)
		if err != nil {
			return nil, wrapResolve(err)
		}
		for _, m := range members {
			if !seen[m.UserID] {
				seen[m.UserID] = true
				userIDs = append(userIDs, m.UserID)
			}
		}
	}
	if len(userIDs) == 0 {
		return nil, nil
	}

	users, err := r.users.GetByIDs(ctx, userIDs)
	if err != nil {
		return nil, wrapResolve(err)
	}

	homeowners := users[:0]
	for _, u := range users {
		if u.Role == domain.RoleHomeowner && u.IsActive {
			homeowners = append(homeowners, u)
		}
	}
	return homeowners, nil
}

func wrapResolve(err error) error {
	return apperr.Wrap(apperr.KindInternal, "recipient resolution failed", err)
}

func emptySet() *RecipientSet {
	return &RecipientSet{Emails: []string{}}
}

// buildSet deduplicates recipients by (lowercased) email
func buildSet(contacts []*domain.Contact, users []*domain.User) *RecipientSet {
	set := &RecipientSet{Emails: []string{}}
	seen := make(map[string]bool)

	for _, c := range contacts {
		email := utils.SanitizeEmail(c.Email)
		if email == "" || seen[email] {
			continue
		}
		seen[email] = true
		set.Contacts = append(set.Contacts, c)
		set.Emails = append(set.Emails, email)
	}
	for _, u := range users {
		email := utils.SanitizeEmail(u.Email)
		if email == "" || seen[email] {
			continue
		}
		seen[email] = true
		set.Users = append(set.Users, u)
		set.Emails = append(set.Emails, email)
	}

	set.Count = len(set.Emails)
	return set
}
