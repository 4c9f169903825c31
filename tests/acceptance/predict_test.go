package acceptance

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/homeopshq/homeops-api/internal/dto"
)

// seedSpend logs a usage event of the given cost against the account
func (s *Suite) seedSpend(accountID, userID int64, cost string) {
	_, err := s.Postgres.DB.Exec(`
		INSERT INTO usage_events (id, account_id, user_id, category, model, prompt_tokens, completion_tokens, total_cost)
		VALUES ($1, $2, $3, 'predict.property_details', 'gpt-4o', 1000, 1000, $4)`,
		uuid.NewString(), accountID, userID, cost)
	s.Require().NoError(err)
}

func (s *Suite) usage(token string) dto.UsageResponse {
	resp := s.doJSON("GET", "/api/v1/predict/usage", token, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var u dto.UsageResponse
	s.decode(resp, &u)
	return u
}

// Walks the cap boundary: $4.98 spent of a $5.00 cap admits one more $0.10
// call, after which everything is rejected
func (s *Suite) TestPredict_BudgetWalk() {
	ada := s.register("Ada", "ada@x.io")
	account := s.accountIDOf(ada.User.ID)
	s.seedSpend(account, ada.User.ID, "2.50")
	s.seedSpend(account, ada.User.ID, "2.48")

	u := s.usage(ada.Tokens.AccessToken)
	s.True(u.Allowed)
	s.InDelta(4.98, u.Spent, 1e-9)
	s.InDelta(0.02, u.Remaining, 1e-9)
	s.InDelta(5.00, u.Cap, 1e-9)

	// remaining is positive, so the $0.10 call is admitted (at most one over)
	predict := s.doJSON("POST", "/api/v1/predict/property-details", ada.Tokens.AccessToken,
		dto.PredictPropertyDetailsRequest{Address: "12 Oak Lane, Springfield IL"})
	s.Require().Equal(http.StatusOK, predict.StatusCode)

	var result dto.PredictResponse
	s.decode(predict, &result)
	s.NotEmpty(result.Result)
	s.Equal("gpt-4o", result.Usage.Model)
	s.Equal("0.100000", result.Usage.Cost)

	u = s.usage(ada.Tokens.AccessToken)
	s.False(u.Allowed)
	s.InDelta(5.08, u.Spent, 1e-9)
	s.Zero(u.Remaining)

	rejected := s.doJSON("POST", "/api/v1/predict/property-details", ada.Tokens.AccessToken,
		dto.PredictPropertyDetailsRequest{Address: "12 Oak Lane, Springfield IL"})
	s.Equal(http.StatusTooManyRequests, rejected.StatusCode)

	env := s.decodeError(rejected)
	s.Equal("BUDGET_EXCEEDED", env.Error.Code)
	s.InDelta(5.08, env.Error.Spent, 1e-9)
	s.InDelta(5.00, env.Error.Cap, 1e-9)

	// the rejected call logged nothing
	var events int
	row := s.Postgres.DB.QueryRow(`SELECT count(*) FROM usage_events WHERE account_id = $1`, account)
	s.Require().NoError(row.Scan(&events))
	s.Equal(3, events)
}

func (s *Suite) TestPredict_CallIsLogged() {
	ada := s.register("Ada", "ada@x.io")
	account := s.accountIDOf(ada.User.ID)

	predict := s.doJSON("POST", "/api/v1/predict/property-details", ada.Tokens.AccessToken,
		dto.PredictPropertyDetailsRequest{Address: "12 Oak Lane, Springfield IL"})
	defer predict.Body.Close()
	s.Require().Equal(http.StatusOK, predict.StatusCode)

	var category, model string
	var promptTokens, completionTokens int64
	row := s.Postgres.DB.QueryRow(`
		SELECT category, model, prompt_tokens, completion_tokens
		FROM usage_events WHERE account_id = $1`, account)
	s.Require().NoError(row.Scan(&category, &model, &promptTokens, &completionTokens))

	s.Equal("predict.property_details", category)
	s.Equal("gpt-4o", model)
	s.EqualValues(8000, promptTokens)
	s.EqualValues(8000, completionTokens)
}

func (s *Suite) TestPredict_RequiresAddress() {
	ada := s.register("Ada", "ada@x.io")

	resp := s.doJSON("POST", "/api/v1/predict/property-details", ada.Tokens.AccessToken,
		dto.PredictPropertyDetailsRequest{})
	defer resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestPredict_RequiresAuthentication() {
	resp := s.doJSON("GET", "/api/v1/predict/usage", "", nil)
	defer resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}
