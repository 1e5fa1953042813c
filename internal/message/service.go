// Package message is the one-sentence pipeline behind the chat bot:
// each inbound text either routes to a report command or becomes a
// parsed, priced and committed trade.
package message

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/twledger/stock-ledger-backend/internal/apperrors"
	"github.com/twledger/stock-ledger-backend/internal/ledger"
	"github.com/twledger/stock-ledger-backend/internal/model"
	"github.com/twledger/stock-ledger-backend/internal/parser"
	"github.com/twledger/stock-ledger-backend/internal/report"
	"github.com/twledger/stock-ledger-backend/internal/repository"
)

// taipei is the exchange's local time zone; trade dates follow it, not
// the server clock's zone.
var taipei = time.FixedZone("Asia/Taipei", 8*60*60)

// Kind tags the outcome of one handled message.
type Kind string

const (
	KindTrade     Kind = "trade"
	KindRejected  Kind = "rejected"
	KindPortfolio Kind = "portfolio"
	KindRealized  Kind = "realized"
	KindRanking   Kind = "ranking"
	KindHelp      Kind = "help"
)

// Rejection reasons beyond the parser's own.
const (
	ReasonInsufficientHoldings = "insufficient_holdings"
	ReasonUnknownInvestor      = "unknown_investor"
)

// Outcome is the presentation-neutral result of one message. Exactly
// the fields relevant to Kind are set; renderers turn it into chat text
// and the REST handler returns it as JSON.
type Outcome struct {
	Kind     Kind                    `json:"kind"`
	Reason   string                  `json:"reason,omitempty"`
	Intent   *model.TradeIntent      `json:"intent,omitempty"`
	Commit   *ledger.CommitResult    `json:"commit,omitempty"`
	Report   *model.PositionReport   `json:"report,omitempty"`
	Realized []model.RealizedSummary `json:"realized,omitempty"`
	Ranking  []model.RankingEntry    `json:"ranking,omitempty"`
}

// Service wires the parser, ledger engine and report aggregator behind
// a single Handle entry point shared by the REST API and the LINE
// webhook.
type Service struct {
	userRepo     *repository.UserRepository
	investorRepo *repository.InvestorRepository
	parser       *parser.Parser
	engine       *ledger.Engine
	aggregator   *report.Aggregator
}

// NewService creates a message Service.
func NewService(userRepo *repository.UserRepository, investorRepo *repository.InvestorRepository, p *parser.Parser, engine *ledger.Engine, aggregator *report.Aggregator) *Service {
	return &Service{
		userRepo:     userRepo,
		investorRepo: investorRepo,
		parser:       p,
		engine:       engine,
		aggregator:   aggregator,
	}
}

// Register creates (or finds) the user and their self investor for a
// chat identity. Used by the webhook follow event.
func (s *Service) Register(ctx context.Context, lineUserID, displayName string) (model.User, error) {
	return s.userRepo.GetOrCreate(ctx, lineUserID, displayName)
}

// Handle processes one inbound message for a chat user, creating the
// user and any mentioned investor on first sight. Command words route
// to reports; anything else is treated as a trade sentence.
func (s *Service) Handle(ctx context.Context, lineUserID, displayName, text string) (Outcome, error) {
	user, err := s.userRepo.GetOrCreate(ctx, lineUserID, displayName)
	if err != nil {
		return Outcome{}, err
	}

	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return Outcome{Kind: KindRejected, Reason: string(parser.ReasonNoSide)}, nil
	}

	switch fields[0] {
	case "持股", "portfolio":
		return s.portfolio(ctx, user, argOr(fields, model.SelfInvestorName))
	case "損益", "pnl":
		return s.realized(ctx, user, argOr(fields, model.SelfInvestorName))
	case "排行", "ranking":
		return s.ranking(ctx, user)
	case "說明", "help":
		return Outcome{Kind: KindHelp}, nil
	}

	return s.trade(ctx, user, text)
}

func argOr(fields []string, fallback string) string {
	if len(fields) > 1 {
		return fields[1]
	}
	return fallback
}

func (s *Service) trade(ctx context.Context, user model.User, text string) (Outcome, error) {
	result, err := s.parser.Parse(ctx, text)
	if err != nil {
		return Outcome{}, err
	}
	if !result.Parsed() {
		return Outcome{Kind: KindRejected, Reason: string(result.Reason)}, nil
	}
	intent := result.Intent

	investor, err := s.investorRepo.GetOrCreate(ctx, user.ID, intent.InvestorName)
	if err != nil {
		return Outcome{}, err
	}

	tradeDate := time.Now().In(taipei)
	tradeDate = time.Date(tradeDate.Year(), tradeDate.Month(), tradeDate.Day(), 0, 0, 0, 0, time.UTC)

	commit, err := s.engine.Record(ctx, investor.ID, intent.SecurityID,
		intent.Side, intent.Quantity, intent.Price, tradeDate, text)
	switch {
	case errors.Is(err, apperrors.ErrInsufficientHoldings):
		return Outcome{Kind: KindRejected, Reason: ReasonInsufficientHoldings}, nil
	case errors.Is(err, apperrors.ErrInvalidAmount):
		return Outcome{Kind: KindRejected, Reason: string(parser.ReasonInvalidAmount)}, nil
	case err != nil:
		return Outcome{}, err
	}

	return Outcome{Kind: KindTrade, Intent: intent, Commit: &commit}, nil
}

func (s *Service) portfolio(ctx context.Context, user model.User, investorName string) (Outcome, error) {
	investor, err := s.investorRepo.GetByName(ctx, user.ID, investorName)
	if errors.Is(err, apperrors.ErrInvestorNotFound) {
		return Outcome{Kind: KindRejected, Reason: ReasonUnknownInvestor}, nil
	}
	if err != nil {
		return Outcome{}, err
	}

	rpt, err := s.aggregator.Summary(ctx, investor)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: KindPortfolio, Report: &rpt}, nil
}

func (s *Service) realized(ctx context.Context, user model.User, investorName string) (Outcome, error) {
	investor, err := s.investorRepo.GetByName(ctx, user.ID, investorName)
	if errors.Is(err, apperrors.ErrInvestorNotFound) {
		return Outcome{Kind: KindRejected, Reason: ReasonUnknownInvestor}, nil
	}
	if err != nil {
		return Outcome{}, err
	}

	summaries, err := s.engine.Realized(ctx, investor.ID, "")
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: KindRealized, Realized: summaries}, nil
}

func (s *Service) ranking(ctx context.Context, user model.User) (Outcome, error) {
	entries, err := s.aggregator.Leaderboard(ctx, user.ID)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: KindRanking, Ranking: entries}, nil
}
