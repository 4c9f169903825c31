package acceptance

import (
	"net/http"

	"github.com/homeopshq/homeops-api/internal/dto"
)

func (s *Suite) estimate(token, mode string, ids []int64) int {
	resp := s.doJSON("POST", "/api/v1/broadcasts/estimate", token, dto.BroadcastRecipientsRequest{
		Mode: mode,
		IDs:  ids,
	})
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var est dto.EstimateResponse
	s.decode(resp, &est)
	return est.Count
}

func (s *Suite) TestBroadcast_AdminSeesGlobalAudience() {
	s.register("Ada", "ada@x.io")
	s.register("Bob", "bob@x.io")
	s.register("Root", "root@x.io")
	admin := s.promote("root@x.io", "super_admin")

	// ada and bob are homeowners; root is not anymore
	s.Equal(2, s.estimate(admin.Tokens.AccessToken, "all_homeowners", nil))
	s.Equal(3, s.estimate(admin.Tokens.AccessToken, "all_users", nil))
}

func (s *Suite) TestBroadcast_AgentIsScopedToOwnAccounts() {
	ada := s.register("Ada", "ada@x.io")
	s.register("Alex", "alex@x.io")
	agent := s.promote("alex@x.io", "agent")

	// ada joins the agent's account; her own account stays out of scope
	_, err := s.Postgres.DB.Exec(`INSERT INTO account_members (account_id, user_id, role) VALUES ($1, $2, 'member')`,
		s.accountIDOf(agent.User.ID), ada.User.ID)
	s.Require().NoError(err)

	s.Equal(1, s.estimate(agent.Tokens.AccessToken, "all_homeowners", nil),
		"only homeowners on the agent's account count")
	s.Equal(0, s.estimate(agent.Tokens.AccessToken, "all_users", nil),
		"agents can never address arbitrary users")
}

// A contact on a foreign account is invisible to an agent in every mode,
// including when addressed directly by id
func (s *Suite) TestBroadcast_ForeignContactNeverResolves() {
	ada := s.register("Ada", "ada@x.io")
	s.register("Alex", "alex@x.io")
	agent := s.promote("alex@x.io", "agent")

	var adaContactID int64
	row := s.Postgres.DB.QueryRow(`SELECT id FROM contacts WHERE account_id = $1`, s.accountIDOf(ada.User.ID))
	s.Require().NoError(row.Scan(&adaContactID))

	resp := s.doJSON("POST", "/api/v1/broadcasts/recipients", agent.Tokens.AccessToken, dto.BroadcastRecipientsRequest{
		Mode: "all_contacts",
	})
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var all dto.RecipientsResponse
	s.decode(resp, &all)
	s.NotContains(all.Emails, "ada@x.io")

	s.Equal(0, s.estimate(agent.Tokens.AccessToken, "specific_contacts", []int64{adaContactID}))
}

func (s *Suite) TestBroadcast_HomeownerGetsEmptyAudience() {
	ada := s.register("Ada", "ada@x.io")

	resp := s.doJSON("POST", "/api/v1/broadcasts/recipients", ada.Tokens.AccessToken, dto.BroadcastRecipientsRequest{
		Mode: "all_contacts",
	})
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var set dto.RecipientsResponse
	s.decode(resp, &set)
	s.Zero(set.Count)
	s.Empty(set.Emails)
}

func (s *Suite) TestBroadcast_UnknownModeIsRejected() {
	ada := s.register("Ada", "ada@x.io")

	resp := s.doJSON("POST", "/api/v1/broadcasts/estimate", ada.Tokens.AccessToken, dto.BroadcastRecipientsRequest{
		Mode: "everyone",
	})
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	env := s.decodeError(resp)
	s.Equal("INPUT_INVALID", env.Error.Code)
}
