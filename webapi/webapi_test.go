package webapi_test

import (
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/barncase/barn/pkg/domain/ledger"
	"github.com/barncase/barn/pkg/domain/user"
	"github.com/barncase/barn/pkg/money"
	productsvc "github.com/barncase/barn/pkg/service/product"
	pkgtestutils "github.com/barncase/barn/pkg/testutils"
	"github.com/barncase/barn/webapi/testutils"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/suite"
)

type WebAPITestSuite struct {
	testutils.WebTestSuite
}

func TestWebAPITestSuite(t *testing.T) {
	suite.Run(t, new(WebAPITestSuite))
}

func (s *WebAPITestSuite) TestHealth() {
	resp := s.Do(fiber.MethodGet, "/", "", "")
	defer resp.Body.Close() //nolint:errcheck
	s.Equal(fiber.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.Contains(string(body), "running")
}

func (s *WebAPITestSuite) TestUnknownRouteIsProblem() {
	resp := s.Do(fiber.MethodGet, "/nope", "", "")
	s.Equal(fiber.StatusNotFound, resp.StatusCode)
	s.Equal("application/problem+json", resp.Header.Get(fiber.HeaderContentType))
	pd := testutils.Decode[testutils.ProblemDetails](s.T(), resp)
	s.Equal(fiber.StatusNotFound, pd.Status)
}

// Buy a cow, let it produce one batch of milk and sell it.
func (s *WebAPITestSuite) TestCowScenario() {
	clock := pkgtestutils.NewClock(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))
	s.App.AnimalService.WithClock(clock.Now)
	s.App.ProductService.WithClock(clock.Now)
	s.App.Engine.WithClock(clock.Now)

	farmer, token := s.SeedUser("farmer", "1000")

	resp := s.Do(fiber.MethodPost, "/api/farms", `{"name":"Green Acres"}`, token)
	s.Require().Equal(fiber.StatusCreated, resp.StatusCode)
	created := testutils.Decode[testutils.Response[struct {
		ID string `json:"id"`
	}]](s.T(), resp)

	resp = s.Do(fiber.MethodPost, "/api/animals/buy",
		fmt.Sprintf(`{"farmId":%q,"species":"Cow"}`, created.Data.ID), token)
	s.Require().Equal(fiber.StatusCreated, resp.StatusCode)
	bought := testutils.Decode[testutils.Response[struct {
		PurchasePrice money.Money `json:"purchasePrice"`
	}]](s.T(), resp)
	s.Equal(money.MustParse("500"), bought.Data.PurchasePrice)

	clock.Advance(2 * time.Minute)
	resp = s.Do(fiber.MethodPost, "/api/farms/"+created.Data.ID+"/tick", "", s.AdminTk)
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	ticked := testutils.Decode[testutils.Response[struct {
		Created int `json:"created"`
	}]](s.T(), resp)
	s.Equal(1, ticked.Data.Created)

	resp = s.Do(fiber.MethodPost, "/api/products/sell", `{"type":"Milk","quantity":5}`, token)
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	sale := testutils.Decode[testutils.Response[productsvc.Sale]](s.T(), resp)
	s.Equal(money.MustParse("12.50"), sale.Data.Total)
	s.Equal(5, sale.Data.Units)

	resp = s.Do(fiber.MethodGet, "/api/users/"+farmer.ID.String(), "", token)
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	me := testutils.Decode[testutils.Response[user.User]](s.T(), resp)
	s.Equal(money.MustParse("512.50"), me.Data.Balance)

	resp = s.Do(fiber.MethodGet, "/api/users/"+farmer.ID.String()+"/ledger", "", token)
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	entries := testutils.Decode[testutils.Response[[]ledger.Entry]](s.T(), resp)
	s.Require().Len(entries.Data, 3)
	amounts := make(map[ledger.Type]money.Money)
	for _, e := range entries.Data {
		amounts[e.Type] = e.Amount
	}
	s.Equal(money.MustParse("1000"), amounts[ledger.Deposit])
	s.Equal(money.MustParse("500"), amounts[ledger.PurchaseAnimal])
	s.Equal(money.MustParse("12.50"), amounts[ledger.SellProduct])

	snapshot := s.App.Activity.Snapshot()
	s.Equal(1, snapshot["Animal.Purchased"])
	s.Equal(1, snapshot["Products.Sold"])
}

type RateLimitTestSuite struct {
	testutils.WebTestSuite
}

func TestRateLimitTestSuite(t *testing.T) {
	suite.Run(t, new(RateLimitTestSuite))
}

func (s *RateLimitTestSuite) SetupTest() {
	s.Cfg = testutils.TestConfig()
	s.Cfg.RateLimit.MaxRequests = 2
	s.Cfg.RateLimit.Window = time.Minute
	s.WebTestSuite.SetupTest()
}

func (s *RateLimitTestSuite) get(forwardedFor string) *http.Response {
	req, err := http.NewRequest(fiber.MethodGet, "/", nil)
	s.Require().NoError(err)
	req.Header.Set("X-Forwarded-For", forwardedFor)
	resp, err := s.Fiber.Test(req, -1)
	s.Require().NoError(err)
	return resp
}

func (s *RateLimitTestSuite) TestBlocksAfterMax() {
	s.Equal(fiber.StatusOK, s.get("10.0.0.1").StatusCode)
	s.Equal(fiber.StatusOK, s.get("10.0.0.1").StatusCode)

	resp := s.get("10.0.0.1, 192.168.0.1")
	s.Equal(fiber.StatusTooManyRequests, resp.StatusCode)
	pd := testutils.Decode[testutils.ProblemDetails](s.T(), resp)
	s.Equal("Too Many Requests", pd.Title)
}

func (s *RateLimitTestSuite) TestKeysByClient() {
	s.Equal(fiber.StatusOK, s.get("10.0.0.1").StatusCode)
	s.Equal(fiber.StatusOK, s.get("10.0.0.1").StatusCode)
	s.Equal(fiber.StatusOK, s.get("10.0.0.2").StatusCode)
}
