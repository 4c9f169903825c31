package acceptance

import (
	"fmt"
	"net/http"

	"github.com/homeopshq/homeops-api/internal/dto"
)

// accountIDOf returns the id of the account the user owns
func (s *Suite) accountIDOf(userID int64) int64 {
	var id int64
	row := s.Postgres.DB.QueryRow(`SELECT id FROM accounts WHERE owner_user_id = $1`, userID)
	s.Require().NoError(row.Scan(&id))
	return id
}

// seedProperty inserts a property with a fixed id and uid and makes the given
// user its owner
func (s *Suite) seedProperty(id int64, uid string, accountID, ownerUserID int64) {
	_, err := s.Postgres.DB.Exec(`
		INSERT INTO properties (id, property_uid, account_id, address, city, state, postal_code)
		VALUES ($1, $2, $3, '12 Oak Lane', 'Springfield', 'IL', '62704')`,
		id, uid, accountID)
	s.Require().NoError(err)

	_, err = s.Postgres.DB.Exec(`
		INSERT INTO property_members (property_id, user_id, role) VALUES ($1, $2, 'owner')`,
		id, ownerUserID)
	s.Require().NoError(err)
}

func (s *Suite) TestPropertyInvitation_AcceptCreatesTenantScaffold() {
	ada := s.register("Ada", "ada@x.io")
	s.seedProperty(42, "01HZZZZZZZZZZZZZZZZZZZZZZB", s.accountIDOf(ada.User.ID), ada.User.ID)

	create := s.doJSON("POST", "/api/v1/invitations/property", ada.Tokens.AccessToken, dto.PropertyInvitationRequest{
		InviteeEmail: "bob@x.io",
		Role:         "editor",
		PropertyID:   42,
	})
	s.Require().Equal(http.StatusCreated, create.StatusCode)

	var created dto.InvitationResponse
	s.decode(create, &created)
	s.Require().NotEmpty(created.Token)
	s.Equal("pending", string(created.Invitation.Status))

	// only the hash of the raw token is stored
	var rawStored int
	row := s.Postgres.DB.QueryRow(`SELECT count(*) FROM invitations WHERE token_hash = $1`, created.Token)
	s.Require().NoError(row.Scan(&rawStored))
	s.Zero(rawStored)

	accept := s.doJSON("POST", "/api/v1/invitations/accept", "", dto.InvitationAcceptRequest{
		Token:    created.Token,
		Password: testPassword,
		Name:     "Bob",
	})
	s.Require().Equal(http.StatusOK, accept.StatusCode)

	var accepted struct {
		User dto.UserResponse `json:"user"`
	}
	s.decode(accept, &accepted)
	s.Equal("bob@x.io", accepted.User.Email)
	s.Equal("Bob", accepted.User.DisplayName)
	s.True(accepted.User.IsActive)

	// Bob got his own account with himself as the sole owner-member
	bobAccount := s.accountIDOf(accepted.User.ID)
	var owners int
	row = s.Postgres.DB.QueryRow(`SELECT count(*) FROM account_members WHERE account_id = $1`, bobAccount)
	s.Require().NoError(row.Scan(&owners))
	s.Equal(1, owners)

	var propertyRole string
	row = s.Postgres.DB.QueryRow(`SELECT role FROM property_members WHERE property_id = 42 AND user_id = $1`, accepted.User.ID)
	s.Require().NoError(row.Scan(&propertyRole))
	s.Equal("editor", propertyRole)

	var subs int
	row = s.Postgres.DB.QueryRow(`
		SELECT count(*) FROM account_subscriptions sub
		JOIN subscription_products p ON p.id = sub.product_id
		WHERE sub.account_id = $1 AND p.name = 'basic'`, bobAccount)
	s.Require().NoError(row.Scan(&subs))
	s.Equal(1, subs, "default basic subscription should be linked")

	var status string
	row = s.Postgres.DB.QueryRow(`SELECT status FROM invitations WHERE id = $1`, created.Invitation.ID)
	s.Require().NoError(row.Scan(&status))
	s.Equal("accepted", status)
}

func (s *Suite) TestAccountInvitation_AcceptJoinsAccount() {
	ada := s.register("Ada", "ada@x.io")
	adaAccount := s.accountIDOf(ada.User.ID)

	create := s.doJSON("POST", "/api/v1/invitations/account", ada.Tokens.AccessToken, dto.AccountInvitationRequest{
		InviteeEmail: "carol@x.io",
		Role:         "member",
		AccountID:    adaAccount,
	})
	s.Require().Equal(http.StatusCreated, create.StatusCode)

	var created dto.InvitationResponse
	s.decode(create, &created)

	accept := s.doJSON("POST", "/api/v1/invitations/accept", "", dto.InvitationAcceptRequest{
		Token:    created.Token,
		Password: testPassword,
		Name:     "Carol",
	})
	s.Require().Equal(http.StatusOK, accept.StatusCode)

	var accepted struct {
		User dto.UserResponse `json:"user"`
	}
	s.decode(accept, &accepted)

	var role string
	row := s.Postgres.DB.QueryRow(`SELECT role FROM account_members WHERE account_id = $1 AND user_id = $2`,
		adaAccount, accepted.User.ID)
	s.Require().NoError(row.Scan(&role))
	s.Equal("member", role)

	var contacts int
	row = s.Postgres.DB.QueryRow(`SELECT count(*) FROM contacts WHERE account_id = $1 AND lower(email) = 'carol@x.io'`, adaAccount)
	s.Require().NoError(row.Scan(&contacts))
	s.Equal(1, contacts, "joining an account should leave a contact record")
}

func (s *Suite) TestAccountInvitation_NonMemberCannotInvite() {
	ada := s.register("Ada", "ada@x.io")
	mallory := s.register("Mallory", "mallory@x.io")

	resp := s.doJSON("POST", "/api/v1/invitations/account", mallory.Tokens.AccessToken, dto.AccountInvitationRequest{
		InviteeEmail: "carol@x.io",
		Role:         "member",
		AccountID:    s.accountIDOf(ada.User.ID),
	})
	s.Equal(http.StatusForbidden, resp.StatusCode)

	env := s.decodeError(resp)
	s.Equal("FORBIDDEN", env.Error.Code)
}

func (s *Suite) TestInvitation_Validate() {
	ada := s.register("Ada", "ada@x.io")

	create := s.doJSON("POST", "/api/v1/invitations/account", ada.Tokens.AccessToken, dto.AccountInvitationRequest{
		InviteeEmail: "bob@x.io",
		Role:         "member",
		AccountID:    s.accountIDOf(ada.User.ID),
	})
	s.Require().Equal(http.StatusCreated, create.StatusCode)

	var created dto.InvitationResponse
	s.decode(create, &created)

	valid := s.doJSON("GET", "/api/v1/invitations/validate?token="+created.Token, "", nil)
	s.Equal(http.StatusOK, valid.StatusCode)

	var body struct {
		Invitation struct {
			InviteeEmail string `json:"inviteeEmail"`
			Status       string `json:"status"`
		} `json:"invitation"`
	}
	s.decode(valid, &body)
	s.Equal("bob@x.io", body.Invitation.InviteeEmail)
	s.Equal("pending", body.Invitation.Status)

	bogus := s.doJSON("GET", "/api/v1/invitations/validate?token=bogus", "", nil)
	s.Equal(http.StatusBadRequest, bogus.StatusCode)
	env := s.decodeError(bogus)
	s.Equal("INVALID_INVITATION", env.Error.Code)
}

// A failed accept must leave nothing behind: no user, invitation untouched
func (s *Suite) TestInvitation_ExpiredAcceptHasNoSideEffects() {
	ada := s.register("Ada", "ada@x.io")

	create := s.doJSON("POST", "/api/v1/invitations/account", ada.Tokens.AccessToken, dto.AccountInvitationRequest{
		InviteeEmail: "bob@x.io",
		Role:         "member",
		AccountID:    s.accountIDOf(ada.User.ID),
	})
	s.Require().Equal(http.StatusCreated, create.StatusCode)

	var created dto.InvitationResponse
	s.decode(create, &created)

	_, err := s.Postgres.DB.Exec(`UPDATE invitations SET expires_at = now() - interval '1 hour' WHERE id = $1`,
		created.Invitation.ID)
	s.Require().NoError(err)

	accept := s.doJSON("POST", "/api/v1/invitations/accept", "", dto.InvitationAcceptRequest{
		Token:    created.Token,
		Password: testPassword,
		Name:     "Bob",
	})
	s.Equal(http.StatusBadRequest, accept.StatusCode)
	env := s.decodeError(accept)
	s.Equal("INVALID_INVITATION", env.Error.Code)

	var users int
	row := s.Postgres.DB.QueryRow(`SELECT count(*) FROM users WHERE lower(email) = 'bob@x.io'`)
	s.Require().NoError(row.Scan(&users))
	s.Zero(users, "no user may be created by a failed accept")
}

func (s *Suite) TestInvitation_RevokedTokenCannotBeAccepted() {
	ada := s.register("Ada", "ada@x.io")

	create := s.doJSON("POST", "/api/v1/invitations/account", ada.Tokens.AccessToken, dto.AccountInvitationRequest{
		InviteeEmail: "bob@x.io",
		Role:         "member",
		AccountID:    s.accountIDOf(ada.User.ID),
	})
	s.Require().Equal(http.StatusCreated, create.StatusCode)

	var created dto.InvitationResponse
	s.decode(create, &created)

	revoke := s.doJSON("POST", fmt.Sprintf("/api/v1/invitations/%s/revoke", created.Invitation.ID),
		ada.Tokens.AccessToken, nil)
	s.Equal(http.StatusOK, revoke.StatusCode)

	var ok dto.OkResponse
	s.decode(revoke, &ok)
	s.True(ok.OK)

	accept := s.doJSON("POST", "/api/v1/invitations/accept", "", dto.InvitationAcceptRequest{
		Token:    created.Token,
		Password: testPassword,
		Name:     "Bob",
	})
	defer accept.Body.Close()
	s.Equal(http.StatusBadRequest, accept.StatusCode)
}

func (s *Suite) TestInvitation_InviteeCanDecline() {
	ada := s.register("Ada", "ada@x.io")
	bob := s.register("Bob", "bob@x.io")

	create := s.doJSON("POST", "/api/v1/invitations/account", ada.Tokens.AccessToken, dto.AccountInvitationRequest{
		InviteeEmail: "bob@x.io",
		Role:         "member",
		AccountID:    s.accountIDOf(ada.User.ID),
	})
	s.Require().Equal(http.StatusCreated, create.StatusCode)

	var created dto.InvitationResponse
	s.decode(create, &created)

	// an unrelated user cannot decline someone else's invitation
	mallory := s.register("Mallory", "mallory@x.io")
	denied := s.doJSON("POST", fmt.Sprintf("/api/v1/invitations/%s/decline", created.Invitation.ID),
		mallory.Tokens.AccessToken, nil)
	denied.Body.Close()
	s.Equal(http.StatusForbidden, denied.StatusCode)

	decline := s.doJSON("POST", fmt.Sprintf("/api/v1/invitations/%s/decline", created.Invitation.ID),
		bob.Tokens.AccessToken, nil)
	decline.Body.Close()
	s.Equal(http.StatusOK, decline.StatusCode)

	var status string
	row := s.Postgres.DB.QueryRow(`SELECT status FROM invitations WHERE id = $1`, created.Invitation.ID)
	s.Require().NoError(row.Scan(&status))
	s.Equal("declined", status)
}
