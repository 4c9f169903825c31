package repository

import "errors"

// Common repository errors
var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail is returned when trying to create a user with an existing email
	ErrDuplicateEmail = errors.New("user with this email already exists")

	// ErrDuplicateToken is returned when trying to create a token with an existing hash
	ErrDuplicateToken = errors.New("token with this hash already exists")

	// ErrDuplicateMember is returned when a membership row already exists
	ErrDuplicateMember = errors.New("membership already exists")

	// ErrDuplicateAccountURL is returned when an account url slug is already taken
	ErrDuplicateAccountURL = errors.New("account url already exists")

	// ErrDuplicateOAuthIdentity is returned when trying to link an already linked provider subject
	ErrDuplicateOAuthIdentity = errors.New("oauth identity already linked")

	// ErrLastOwner is returned when removing a member would leave an account without an owner
	ErrLastOwner = errors.New("account must keep at least one owner")
)
