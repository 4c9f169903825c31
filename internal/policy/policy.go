// Package policy implements request-scoped authorization. Every protected
// route names a Guard; the engine evaluates it against the request principal
// and the tenant membership tables. Guards never mutate state; a passing
// resource guard returns the resolved internal id so handlers do not
// re-resolve.
package policy

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/homeopshq/homeops-api/internal/apperr"
	"github.com/homeopshq/homeops-api/internal/domain"
	"github.com/homeopshq/homeops-api/internal/repository"
)

// Principal is the authenticated identity attached to a request
type Principal struct {
	ID    int64
	Email string
	Role  domain.Role
}

// IsPlatformAdmin reports whether the principal bypasses tenant guards
func (p *Principal) IsPlatformAdmin() bool {
	return p != nil && p.Role.IsPlatformAdmin()
}

// TenantReader is the slice of the tenant store the engine consults
type TenantReader interface {
	IsUserInAccount(ctx context.Context, userID, accountID int64) (bool, error)
	IsUserOnProperty(ctx context.Context, userID, propertyID int64) (bool, error)
	PropertyIDForUID(ctx context.Context, uid string) (int64, error)
	PropertyMemberRole(ctx context.Context, userID, propertyID int64) (domain.PropertyRole, error)
	UsersShareAccount(ctx context.Context, userA, userB int64) (bool, error)
}

// GuardKind tags the variants of the guard catalog
type GuardKind string

const (
	GuardAuthenticated  GuardKind = "authenticated"
	GuardRole           GuardKind = "role"
	GuardAnyRole        GuardKind = "any_role"
	GuardPlatformAdmin  GuardKind = "platform_admin"
	GuardSelfByEmail    GuardKind = "self_by_email"
	GuardSelfByID       GuardKind = "self_by_id"
	GuardAccountMember  GuardKind = "account_member"
	GuardPropertyAccess GuardKind = "property_access"
	GuardPropertyOwner  GuardKind = "property_owner"
	GuardSharedAccount  GuardKind = "shared_account_with_user"
)

// Guard is one entry of the guard catalog. Variants carry their parameters
// as plain data so routes can declare authorization declaratively.
type Guard struct {
	Kind  GuardKind
	Roles []domain.Role
	Param string
}

// Constructors for the guard catalog.

func RequireAuthenticated() Guard { return Guard{Kind: GuardAuthenticated} }

func RequireRole(role domain.Role) Guard {
	return Guard{Kind: GuardRole, Roles: []domain.Role{role}}
}

func RequireAnyRole(roles ...domain.Role) Guard {
	return Guard{Kind: GuardAnyRole, Roles: roles}
}

func RequirePlatformAdmin() Guard { return Guard{Kind: GuardPlatformAdmin} }

func RequireSelfByEmail(param string) Guard {
	return Guard{Kind: GuardSelfByEmail, Param: param}
}

func RequireSelfByID(param string) Guard {
	return Guard{Kind: GuardSelfByID, Param: param}
}

func RequireAccountMembership(param string) Guard {
	return Guard{Kind: GuardAccountMember, Param: param}
}

func RequirePropertyAccess(param string) Guard {
	return Guard{Kind: GuardPropertyAccess, Param: param}
}

func RequirePropertyOwner(param string) Guard {
	return Guard{Kind: GuardPropertyOwner, Param: param}
}

func RequireSharedAccountToViewUser(param string) Guard {
	return Guard{Kind: GuardSharedAccount, Param: param}
}

// Decision is the result of a passing guard. ResolvedPropertyID is set when
// the guard resolved a property identifier; handlers reuse it instead of
// resolving again.
type Decision struct {
	ResolvedPropertyID int64
}

// Engine evaluates guards against the tenant store
type Engine struct {
	tenants TenantReader
}

// NewEngine creates a policy engine
func NewEngine(tenants TenantReader) *Engine {
	return &Engine{tenants: tenants}
}

// propertyUIDPattern matches the public 26-char lexicographic property id
var propertyUIDPattern = regexp.MustCompile(`^[0-9A-Za-z]{26}$`)

var (
	errUnauthorized = apperr.New(apperr.KindUnauthorized, "authentication required")
	errForbidden    = apperr.New(apperr.KindForbidden, "access denied")

	// errPropertyForbidden deliberately does not distinguish a missing
	// property from an inaccessible one
	errPropertyForbidden = apperr.New(apperr.KindForbidden, "property not found or not accessible")
)

// Check evaluates a guard. params maps guard parameter names to raw request
// values (path, query or body, wired by the transport adapter).
func (e *Engine) Check(ctx context.Context, p *Principal, g Guard, params map[string]string) (*Decision, error) {
	if p == nil || p.Email == "" {
		return nil, errUnauthorized
	}

	switch g.Kind {
	case GuardAuthenticated:
		return &Decision{}, nil

	case GuardRole, GuardAnyRole:
		for _, role := range g.Roles {
			if p.Role == role {
				return &Decision{}, nil
			}
		}
		return nil, errForbidden

	case GuardPlatformAdmin:
		if p.IsPlatformAdmin() {
			return &Decision{}, nil
		}
		return nil, errForbidden

	case GuardSelfByEmail:
		if p.IsPlatformAdmin() || strings.EqualFold(p.Email, params[g.Param]) {
			return &Decision{}, nil
		}
		return nil, errForbidden

	case GuardSelfByID:
		if p.IsPlatformAdmin() {
			return &Decision{}, nil
		}
		id, err := strconv.ParseInt(params[g.Param], 10, 64)
		if err == nil && id == p.ID {
			return &Decision{}, nil
		}
		return nil, errForbidden

	case GuardAccountMember:
		if p.IsPlatformAdmin() {
			return &Decision{}, nil
		}
		accountID, err := strconv.ParseInt(params[g.Param], 10, 64)
		if err != nil {
			return nil, errForbidden
		}
		member, err := e.tenants.IsUserInAccount(ctx, p.ID, accountID)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "membership check failed", err)
		}
		if !member {
			return nil, errForbidden
		}
		return &Decision{}, nil

	case GuardPropertyAccess:
		propertyID, err := e.resolveProperty(ctx, params[g.Param])
		if err != nil {
			return nil, err
		}
		if p.IsPlatformAdmin() {
			return &Decision{ResolvedPropertyID: propertyID}, nil
		}
		member, err := e.tenants.IsUserOnProperty(ctx, p.ID, propertyID)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "membership check failed", err)
		}
		if !member {
			return nil, errPropertyForbidden
		}
		return &Decision{ResolvedPropertyID: propertyID}, nil

	case GuardPropertyOwner:
		propertyID, err := e.resolveProperty(ctx, params[g.Param])
		if err != nil {
			return nil, err
		}
		if p.Role == domain.RoleSuperAdmin {
			return &Decision{ResolvedPropertyID: propertyID}, nil
		}
		role, err := e.tenants.PropertyMemberRole(ctx, p.ID, propertyID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, errPropertyForbidden
			}
			return nil, apperr.Wrap(apperr.KindInternal, "membership check failed", err)
		}
		if role != domain.PropertyRoleOwner {
			return nil, errPropertyForbidden
		}
		return &Decision{ResolvedPropertyID: propertyID}, nil

	case GuardSharedAccount:
		if p.IsPlatformAdmin() {
			return &Decision{}, nil
		}
		targetID, err := strconv.ParseInt(params[g.Param], 10, 64)
		if err != nil {
			return nil, errForbidden
		}
		if targetID == p.ID {
			return &Decision{}, nil
		}
		shared, err := e.tenants.UsersShareAccount(ctx, p.ID, targetID)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "membership check failed", err)
		}
		if !shared {
			return nil, errForbidden
		}
		return &Decision{}, nil
	}

	return nil, errForbidden
}

// resolveProperty resolves a path value that is either the public 26-char id
// or the internal integer id. Missing and unresolvable values fail with
// Forbidden, never NotFound, so existence does not leak.
func (e *Engine) resolveProperty(ctx context.Context, value string) (int64, error) {
	if value == "" {
		return 0, errPropertyForbidden
	}

	if propertyUIDPattern.MatchString(value) {
		id, err := e.tenants.PropertyIDForUID(ctx, value)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return 0, errPropertyForbidden
			}
			return 0, apperr.Wrap(apperr.KindInternal, "property lookup failed", err)
		}
		return id, nil
	}

	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, errPropertyForbidden
	}
	return id, nil
}
