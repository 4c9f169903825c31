package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/homeopshq/homeops-api/internal/domain"
	"github.com/homeopshq/homeops-api/internal/repository"
)

// fakeStore is an in-memory repository set shared by service unit tests
type fakeStore struct {
	users  *fakeUserRepo
	tokens *fakeTokenRepo
	mfa    *fakeMfaRepo

	accounts   *fakeAccountRepo
	properties *fakePropertyRepo

	invitations *fakeInvitationRepo
	usage       *fakeUsageRepo
	subs        *fakeSubscriptionRepo
	contacts    *fakeContactRepo
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:       &fakeUserRepo{byID: map[int64]*domain.User{}},
		tokens:      &fakeTokenRepo{byHash: map[string]*domain.RefreshToken{}},
		mfa:         &fakeMfaRepo{enrollments: map[int64]*domain.MfaEnrollment{}, codes: map[int64]map[string]bool{}},
		accounts:    &fakeAccountRepo{byID: map[int64]*domain.Account{}, members: map[int64]map[int64]domain.AccountRole{}},
		properties:  &fakePropertyRepo{byID: map[int64]*domain.Property{}, members: map[int64]map[int64]domain.PropertyRole{}},
		invitations: &fakeInvitationRepo{byID: map[uuid.UUID]*domain.Invitation{}},
		usage:       &fakeUsageRepo{},
		subs:        &fakeSubscriptionRepo{products: map[string]*domain.SubscriptionProduct{}},
		contacts:    &fakeContactRepo{},
	}
}

func (s *fakeStore) repos() *repository.Repositories {
	return &repository.Repositories{
		User:         s.users,
		Token:        s.tokens,
		Mfa:          s.mfa,
		Account:      s.accounts,
		Property:     s.properties,
		Invitation:   s.invitations,
		Usage:        s.usage,
		Subscription: s.subs,
		Contact:      s.contacts,
	}
}

// fakeTx runs the function against the same store; it cannot roll back, so
// atomicity itself is covered by the acceptance suite
type fakeTx struct{ store *fakeStore }

func (t *fakeTx) WithinTx(_ context.Context, fn func(tx *repository.Repositories) error) error {
	return fn(t.store.repos())
}

// --- users ---

type fakeUserRepo struct {
	byID   map[int64]*domain.User
	nextID int64
}

func (f *fakeUserRepo) Create(_ context.Context, u *domain.User) error {
	for _, existing := range f.byID {
		if strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrDuplicateEmail
		}
	}
	f.nextID++
	u.ID = f.nextID
	u.CreatedAt = time.Now()
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) GetByIDs(_ context.Context, ids []int64) ([]*domain.User, error) {
	var out []*domain.User
	for _, id := range ids {
		if u, ok := f.byID[id]; ok {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) ListByRole(_ context.Context, role domain.Role, onlyActive bool) ([]*domain.User, error) {
	var out []*domain.User
	for _, u := range f.byID {
		if u.Role == role && (!onlyActive || u.IsActive) {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) UpdateProfile(_ context.Context, id int64, displayName, image *string) error {
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	if displayName != nil {
		u.DisplayName = *displayName
	}
	if image != nil {
		u.Image = image
	}
	return nil
}

func (f *fakeUserRepo) UpdateLastLogin(_ context.Context, id int64) error {
	if u, ok := f.byID[id]; ok {
		now := time.Now()
		u.LastLoginAt = &now
	}
	return nil
}

func (f *fakeUserRepo) SetPassword(_ context.Context, id int64, hash string) error {
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (f *fakeUserRepo) Activate(_ context.Context, id int64, hash string) error {
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	u.IsActive = true
	return nil
}

func (f *fakeUserRepo) SetMfa(_ context.Context, id int64, enabled bool, secretEnc *string) error {
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.MfaEnabled = enabled
	u.MfaSecretEnc = secretEnc
	return nil
}

func (f *fakeUserRepo) SetContactID(_ context.Context, id, contactID int64) error {
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.ContactID = &contactID
	return nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

// --- refresh tokens ---

type fakeTokenRepo struct {
	byHash map[string]*domain.RefreshToken
	nextID int64
}

func (f *fakeTokenRepo) Create(_ context.Context, t *domain.RefreshToken) error {
	f.nextID++
	t.ID = f.nextID
	cp := *t
	f.byHash[t.TokenHash] = &cp
	return nil
}

func (f *fakeTokenRepo) FindValid(_ context.Context, hash string) (*domain.RefreshToken, error) {
	t, ok := f.byHash[hash]
	if !ok || time.Now().After(t.ExpiresAt) {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTokenRepo) DeleteByTokenHash(_ context.Context, hash string) error {
	if _, ok := f.byHash[hash]; !ok {
		return repository.ErrNotFound
	}
	delete(f.byHash, hash)
	return nil
}

func (f *fakeTokenRepo) DeleteAllForUser(_ context.Context, userID int64) error {
	for hash, t := range f.byHash {
		if t.UserID == userID {
			delete(f.byHash, hash)
		}
	}
	return nil
}

func (f *fakeTokenRepo) DeleteExpired(_ context.Context) (int64, error) {
	var n int64
	for hash, t := range f.byHash {
		if time.Now().After(t.ExpiresAt) {
			delete(f.byHash, hash)
			n++
		}
	}
	return n, nil
}

// --- mfa ---

type fakeMfaRepo struct {
	enrollments map[int64]*domain.MfaEnrollment
	codes       map[int64]map[string]bool // hash -> used
}

func (f *fakeMfaRepo) UpsertEnrollment(_ context.Context, userID int64, secretEnc string, expiresAt time.Time) error {
	f.enrollments[userID] = &domain.MfaEnrollment{UserID: userID, SecretEnc: secretEnc, ExpiresAt: expiresAt}
	return nil
}

func (f *fakeMfaRepo) GetEnrollment(_ context.Context, userID int64) (*domain.MfaEnrollment, error) {
	e, ok := f.enrollments[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeMfaRepo) DeleteEnrollment(_ context.Context, userID int64) error {
	delete(f.enrollments, userID)
	return nil
}

func (f *fakeMfaRepo) DeleteExpiredEnrollments(_ context.Context) (int64, error) {
	var n int64
	for id, e := range f.enrollments {
		if time.Now().After(e.ExpiresAt) {
			delete(f.enrollments, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeMfaRepo) InsertBackupCodes(_ context.Context, userID int64, hashes []string) error {
	if f.codes[userID] == nil {
		f.codes[userID] = map[string]bool{}
	}
	for _, h := range hashes {
		f.codes[userID][h] = false
	}
	return nil
}

func (f *fakeMfaRepo) DeleteBackupCodes(_ context.Context, userID int64) error {
	delete(f.codes, userID)
	return nil
}

func (f *fakeMfaRepo) ConsumeBackupCode(_ context.Context, userID int64, hash string) (bool, error) {
	used, ok := f.codes[userID][hash]
	if !ok || used {
		return false, nil
	}
	f.codes[userID][hash] = true
	return true, nil
}

func (f *fakeMfaRepo) CountRemainingBackupCodes(_ context.Context, userID int64) (int, error) {
	n := 0
	for _, used := range f.codes[userID] {
		if !used {
			n++
		}
	}
	return n, nil
}

// --- accounts ---

type fakeAccountRepo struct {
	byID    map[int64]*domain.Account
	members map[int64]map[int64]domain.AccountRole
	nextID  int64
}

func (f *fakeAccountRepo) Create(_ context.Context, a *domain.Account) error {
	for _, existing := range f.byID {
		if existing.URL == a.URL {
			return repository.ErrDuplicateAccountURL
		}
	}
	f.nextID++
	a.ID = f.nextID
	cp := *a
	f.byID[a.ID] = &cp
	return nil
}

func (f *fakeAccountRepo) GetByID(_ context.Context, id int64) (*domain.Account, error) {
	a, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAccountRepo) Delete(_ context.Context, id int64) error {
	delete(f.byID, id)
	delete(f.members, id)
	return nil
}

func (f *fakeAccountRepo) IsMember(_ context.Context, userID, accountID int64) (bool, error) {
	_, ok := f.members[accountID][userID]
	return ok, nil
}

func (f *fakeAccountRepo) AddMember(_ context.Context, accountID, userID int64, role domain.AccountRole) error {
	if f.members[accountID] == nil {
		f.members[accountID] = map[int64]domain.AccountRole{}
	}
	if _, exists := f.members[accountID][userID]; exists {
		return repository.ErrDuplicateMember
	}
	if len(f.members[accountID]) == 0 {
		role = domain.AccountRoleOwner
	}
	f.members[accountID][userID] = role
	return nil
}

func (f *fakeAccountRepo) RemoveMember(_ context.Context, accountID, userID int64) error {
	role, ok := f.members[accountID][userID]
	if !ok {
		return repository.ErrNotFound
	}
	if role == domain.AccountRoleOwner {
		owners := 0
		for _, r := range f.members[accountID] {
			if r == domain.AccountRoleOwner {
				owners++
			}
		}
		if owners == 1 {
			return repository.ErrLastOwner
		}
	}
	delete(f.members[accountID], userID)
	return nil
}

func (f *fakeAccountRepo) Members(_ context.Context, accountID int64) ([]*domain.AccountMember, error) {
	var out []*domain.AccountMember
	for userID, role := range f.members[accountID] {
		out = append(out, &domain.AccountMember{AccountID: accountID, UserID: userID, Role: role})
	}
	return out, nil
}

func (f *fakeAccountRepo) AccountsForUser(_ context.Context, userID int64) ([]*domain.Account, error) {
	var out []*domain.Account
	for accountID, members := range f.members {
		if _, ok := members[userID]; ok {
			if a, found := f.byID[accountID]; found {
				cp := *a
				out = append(out, &cp)
			}
		}
	}
	return out, nil
}

func (f *fakeAccountRepo) AccountIDsForUser(_ context.Context, userID int64) ([]int64, error) {
	var out []int64
	for accountID, members := range f.members {
		if _, ok := members[userID]; ok {
			out = append(out, accountID)
		}
	}
	return out, nil
}

func (f *fakeAccountRepo) OwnsAnyAccount(_ context.Context, userID int64) (bool, error) {
	for _, members := range f.members {
		if members[userID] == domain.AccountRoleOwner {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAccountRepo) ShareAccount(_ context.Context, userA, userB int64) (bool, error) {
	for _, members := range f.members {
		_, hasA := members[userA]
		_, hasB := members[userB]
		if hasA && hasB {
			return true, nil
		}
	}
	return false, nil
}

// --- properties ---

type fakePropertyRepo struct {
	byID    map[int64]*domain.Property
	members map[int64]map[int64]domain.PropertyRole
	nextID  int64
}

func (f *fakePropertyRepo) Create(_ context.Context, p *domain.Property) error {
	f.nextID++
	p.ID = f.nextID
	cp := *p
	f.byID[p.ID] = &cp
	return nil
}

func (f *fakePropertyRepo) GetByID(_ context.Context, id int64) (*domain.Property, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePropertyRepo) IDForUID(_ context.Context, uid string) (int64, error) {
	for _, p := range f.byID {
		if strings.EqualFold(p.PropertyUID, uid) {
			return p.ID, nil
		}
	}
	return 0, repository.ErrNotFound
}

func (f *fakePropertyRepo) IsMember(_ context.Context, userID, propertyID int64) (bool, error) {
	_, ok := f.members[propertyID][userID]
	return ok, nil
}

func (f *fakePropertyRepo) MemberRole(_ context.Context, userID, propertyID int64) (domain.PropertyRole, error) {
	role, ok := f.members[propertyID][userID]
	if !ok {
		return "", repository.ErrNotFound
	}
	return role, nil
}

func (f *fakePropertyRepo) AddMember(_ context.Context, propertyID, userID int64, role domain.PropertyRole) error {
	if f.members[propertyID] == nil {
		f.members[propertyID] = map[int64]domain.PropertyRole{}
	}
	f.members[propertyID][userID] = role
	return nil
}

func (f *fakePropertyRepo) Systems(_ context.Context, propertyID int64) ([]*domain.PropertySystem, error) {
	return nil, nil
}

// --- invitations ---

type fakeInvitationRepo struct {
	byID map[uuid.UUID]*domain.Invitation
}

func (f *fakeInvitationRepo) Create(_ context.Context, inv *domain.Invitation) error {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	inv.CreatedAt = time.Now()
	for _, existing := range f.byID {
		if existing.TokenHash == inv.TokenHash {
			return repository.ErrDuplicateToken
		}
	}
	cp := *inv
	f.byID[inv.ID] = &cp
	return nil
}

func (f *fakeInvitationRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Invitation, error) {
	inv, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (f *fakeInvitationRepo) GetByTokenHash(_ context.Context, hash string) (*domain.Invitation, error) {
	for _, inv := range f.byID {
		if inv.TokenHash == hash {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeInvitationRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to domain.InvitationStatus) error {
	inv, ok := f.byID[id]
	if !ok || inv.Status != from {
		return repository.ErrNotFound
	}
	inv.Status = to
	return nil
}

func (f *fakeInvitationRepo) MarkAccepted(_ context.Context, id uuid.UUID, userID int64, at time.Time) error {
	inv, ok := f.byID[id]
	if !ok || inv.Status != domain.InvitationStatusPending {
		return repository.ErrNotFound
	}
	inv.Status = domain.InvitationStatusAccepted
	inv.AcceptedAt = &at
	inv.AcceptedByUserID = &userID
	return nil
}

func (f *fakeInvitationRepo) ExpirePending(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, inv := range f.byID {
		if inv.Status == domain.InvitationStatusPending && !inv.ExpiresAt.After(now) {
			inv.Status = domain.InvitationStatusExpired
			n++
		}
	}
	return n, nil
}

// --- usage ---

type fakeUsageRepo struct {
	events []*domain.UsageEvent
}

func (f *fakeUsageRepo) Insert(_ context.Context, e *domain.UsageEvent) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	cp := *e
	f.events = append(f.events, &cp)
	return nil
}

func (f *fakeUsageRepo) MonthlySpend(_ context.Context, accountID int64) (decimal.Decimal, error) {
	monthStart := time.Now().Truncate(24 * time.Hour).AddDate(0, 0, 1-time.Now().Day())
	total := decimal.Zero
	for _, e := range f.events {
		if e.AccountID == accountID && !e.CreatedAt.Before(monthStart) {
			total = total.Add(e.TotalCost)
		}
	}
	return total, nil
}

// --- subscriptions ---

type fakeSubscriptionRepo struct {
	products    map[string]*domain.SubscriptionProduct
	accountSubs []*domain.AccountSubscription
	nextID      int64
}

func (f *fakeSubscriptionRepo) UpsertProduct(_ context.Context, p *domain.SubscriptionProduct) error {
	if existing, ok := f.products[p.Name]; ok {
		p.ID = existing.ID
	} else {
		f.nextID++
		p.ID = f.nextID
	}
	cp := *p
	f.products[p.Name] = &cp
	return nil
}

func (f *fakeSubscriptionRepo) GetProductByName(_ context.Context, name string) (*domain.SubscriptionProduct, error) {
	p, ok := f.products[name]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeSubscriptionRepo) CreateAccountSubscription(_ context.Context, sub *domain.AccountSubscription) error {
	f.nextID++
	sub.ID = f.nextID
	cp := *sub
	f.accountSubs = append(f.accountSubs, &cp)
	return nil
}

// --- contacts ---

type fakeContactRepo struct {
	contacts []*domain.Contact
	nextID   int64
}

func (f *fakeContactRepo) Create(_ context.Context, c *domain.Contact) error {
	f.nextID++
	c.ID = f.nextID
	c.CreatedAt = time.Now()
	cp := *c
	f.contacts = append(f.contacts, &cp)
	return nil
}

func (f *fakeContactRepo) GetByAccountAndEmail(_ context.Context, accountID int64, email string) (*domain.Contact, error) {
	for _, c := range f.contacts {
		if c.AccountID == accountID && strings.EqualFold(c.Email, email) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeContactRepo) ListByIDs(_ context.Context, ids []int64) ([]*domain.Contact, error) {
	var out []*domain.Contact
	for _, c := range f.contacts {
		for _, id := range ids {
			if c.ID == id {
				cp := *c
				out = append(out, &cp)
			}
		}
	}
	return out, nil
}

func (f *fakeContactRepo) ListByAccountIDs(_ context.Context, accountIDs []int64) ([]*domain.Contact, error) {
	var out []*domain.Contact
	for _, c := range f.contacts {
		for _, id := range accountIDs {
			if c.AccountID == id {
				cp := *c
				out = append(out, &cp)
			}
		}
	}
	return out, nil
}

func (f *fakeContactRepo) ListAll(_ context.Context) ([]*domain.Contact, error) {
	out := make([]*domain.Contact, 0, len(f.contacts))
	for _, c := range f.contacts {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}
