package acceptance

import (
	"io"
	"net/http"
)

func (s *Suite) TestHealth() {
	resp, err := http.Get(s.BaseURL + "/health")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var body struct {
		Status string `json:"status"`
	}
	s.decode(resp, &body)
	s.Equal("pass", body.Status)
}

func (s *Suite) TestMetricsExposed() {
	resp, err := http.Get(s.BaseURL + "/metrics")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.NotEmpty(body)
}
