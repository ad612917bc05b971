package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"spending-guard/internal/dto"
	"spending-guard/internal/errors"
	"spending-guard/internal/models"
	"spending-guard/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type PatternHandlerTestSuite struct {
	suite.Suite
	session *services.Session
	echo    *echo.Echo
}

func TestPatternHandlerSuite(t *testing.T) {
	suite.Run(t, new(PatternHandlerTestSuite))
}

func (s *PatternHandlerTestSuite) SetupTest() {
	s.session = newTestSession()
	handler := NewPatternHandler(s.session.Patterns)
	s.echo = newTestEcho()
	s.echo.GET("/patterns", handler.ListPatterns)
	s.echo.GET("/patterns/:merchant", handler.GetPattern)
}

func (s *PatternHandlerTestSuite) record(merchant string, amount int64) {
	err := s.session.RecordTransaction(context.Background(), &models.Transaction{
		Amount:    decimal.NewFromInt(amount),
		Merchant:  merchant,
		Category:  models.CategoryShopping,
		Timestamp: time.Now().UTC().Add(-time.Hour),
	})
	s.Require().NoError(err)
}

func (s *PatternHandlerTestSuite) TestListPatterns() {
	s.Run("empty", func() {
		rec := doRequest(s.echo, http.MethodGet, "/patterns", nil)
		s.Require().Equal(http.StatusOK, rec.Code)

		var resp dto.ListPatternsResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.Equal(0, resp.Count)
		s.NotNil(resp.Patterns)
	})

	s.record("Corner Shop", 30)
	s.record("corner shop", 10)
	s.record("Book Nook", 12)

	s.Run("aggregated by normalized merchant", func() {
		rec := doRequest(s.echo, http.MethodGet, "/patterns", nil)
		s.Require().Equal(http.StatusOK, rec.Code)

		var resp dto.ListPatternsResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.Equal(2, resp.Count)
	})
}

func (s *PatternHandlerTestSuite) TestGetPattern() {
	s.record("Corner Shop", 30)
	s.record("Corner Shop", 10)

	s.Run("case-insensitive lookup", func() {
		rec := doRequest(s.echo, http.MethodGet, "/patterns/CORNER%20SHOP", nil)
		s.Require().Equal(http.StatusOK, rec.Code)

		var resp dto.PatternResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.Equal(2, resp.VisitCount)
		s.Equal("40.00", resp.TotalSpent)
		s.Equal("20.00", resp.AverageAmount)
	})

	s.Run("unknown merchant", func() {
		rec := doRequest(s.echo, http.MethodGet, "/patterns/Nowhere", nil)

		s.Equal(http.StatusNotFound, rec.Code)
		s.Equal(string(errors.PatternNotFound), decodeError(rec).Error.Code)
	})
}
