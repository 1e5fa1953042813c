// Package parser turns one line of free text into a structured trade
// intent. It understands sentences like:
//
//	買 2330 100股 250元
//	我買台積電 50股 @600
//	小明賣鴻海200股 價格120
//
// Parsing is a pure function of the sentence plus at most one security
// resolution and one market-price lookup. A sentence that cannot be
// understood is a normal outcome, not an error.
package parser

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/twledger/stock-ledger-backend/internal/apperrors"
	"github.com/twledger/stock-ledger-backend/internal/model"
)

// Resolver turns a user-typed token (digits or a name substring) into a
// canonical security. Returns apperrors.ErrUnresolvedSecurity on a miss.
type Resolver interface {
	Resolve(ctx context.Context, token string) (model.Security, error)
}

// QuoteSource supplies the current market price when a sentence omits
// the price. Returns apperrors.ErrPriceUnavailable when no quote exists.
type QuoteSource interface {
	CurrentPrice(ctx context.Context, securityID string) (decimal.Decimal, error)
}

// Reason classifies why a sentence was not accepted as a trade.
type Reason string

const (
	ReasonNoSide             Reason = "no_trade_verb"
	ReasonAmbiguousSide      Reason = "ambiguous_trade_verb"
	ReasonNoSecurity         Reason = "no_security_token"
	ReasonUnresolvedSecurity Reason = "unresolved_security"
	ReasonNoQuantity         Reason = "no_quantity"
	ReasonInvalidAmount      Reason = "invalid_amount"
	ReasonPriceUnavailable   Reason = "price_unavailable"
)

// Result is the tagged outcome of parsing one sentence: either a trade
// intent or a reason why the sentence was rejected.
type Result struct {
	Intent *model.TradeIntent `json:"intent,omitempty"`
	Reason Reason             `json:"reason,omitempty"`
}

// Parsed reports whether the sentence yielded a trade intent.
func (r Result) Parsed() bool {
	return r.Intent != nil
}

func rejected(reason Reason) Result {
	return Result{Reason: reason}
}

var (
	buyRe  = regexp.MustCompile(`買入|買進|買`)
	sellRe = regexp.MustCompile(`賣出|賣掉|賣`)

	// A name of 2-4 Han characters directly before a trade verb denotes a
	// third-party investor, e.g. 小明買… or 老王賣出….
	investorRe = regexp.MustCompile(`(\p{Han}{2,4})(?:買|賣)`)

	// Digit runs, optionally with an exchange suffix. Runs of 4-6 digits
	// not followed by a unit lexeme are security codes.
	digitRunRe = regexp.MustCompile(`\d+(?:\.TWO?)?`)

	// A security name is a Han run right after the trade verb.
	securityNameRe = regexp.MustCompile(`(?:買入|買進|賣出|賣掉|買|賣)\s*(\p{Han}{2,6})`)

	quantityRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*股`)

	pricePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d+(?:\.\d+)?)\s*元`),
		regexp.MustCompile(`@\s*\$?\s*(\d+(?:\.\d+)?)`),
		regexp.MustCompile(`價格\s*\$?\s*(\d+(?:\.\d+)?)`),
	}

	pronouns = map[string]bool{"我": true, "你": true, "他": true, "她": true}
)

// Parser maps free text to trade intents using the injected
// collaborators. It holds no mutable state and is safe for concurrent use.
type Parser struct {
	resolver Resolver
	quotes   QuoteSource
}

// New creates a Parser with the provided resolver and quote source.
func New(resolver Resolver, quotes QuoteSource) *Parser {
	return &Parser{resolver: resolver, quotes: quotes}
}

// Parse interprets one sentence. Domain-rule misses (unknown security,
// unavailable market price, bad numbers) come back as a rejected Result;
// the error return is reserved for collaborator failures.
func (p *Parser) Parse(ctx context.Context, text string) (Result, error) {
	text = strings.TrimSpace(text)

	side, ok := extractSide(text)
	if !ok {
		if buyRe.MatchString(text) && sellRe.MatchString(text) {
			return rejected(ReasonAmbiguousSide), nil
		}
		return rejected(ReasonNoSide), nil
	}

	investorName, self := extractInvestor(text)

	token, ok := extractSecurityToken(text)
	if !ok {
		return rejected(ReasonNoSecurity), nil
	}

	security, err := p.resolver.Resolve(ctx, token)
	if errors.Is(err, apperrors.ErrUnresolvedSecurity) || errors.Is(err, apperrors.ErrSecurityNotFound) {
		return rejected(ReasonUnresolvedSecurity), nil
	}
	if err != nil {
		return Result{}, err
	}

	quantity, ok := extractQuantity(text)
	if !ok {
		return rejected(ReasonNoQuantity), nil
	}
	if !quantity.IsPositive() {
		return rejected(ReasonInvalidAmount), nil
	}

	price, explicit := extractPrice(text)
	atMarket := false
	if !explicit {
		// Sentence omitted the price: trade at market.
		price, err = p.quotes.CurrentPrice(ctx, security.ID)
		if errors.Is(err, apperrors.ErrPriceUnavailable) {
			return rejected(ReasonPriceUnavailable), nil
		}
		if err != nil {
			return Result{}, err
		}
		atMarket = true
	}
	if !price.IsPositive() {
		return rejected(ReasonInvalidAmount), nil
	}

	return Result{Intent: &model.TradeIntent{
		InvestorName: investorName,
		Self:         self,
		Side:         side,
		SecurityID:   security.ID,
		SecurityName: security.NameZh,
		Quantity:     quantity,
		Price:        price,
		AtMarket:     atMarket,
	}}, nil
}

// extractSide requires exactly one of the buy/sell lexeme families.
func extractSide(text string) (model.Side, bool) {
	hasBuy := buyRe.MatchString(text)
	hasSell := sellRe.MatchString(text)

	switch {
	case hasBuy && !hasSell:
		return model.SideBuy, true
	case hasSell && !hasBuy:
		return model.SideSell, true
	default:
		return "", false
	}
}

// extractInvestor returns the investor name and whether it denotes the
// ledger owner. A 2-4 character name before the verb names a third
// party; 我 anywhere, or no name at all, means self.
func extractInvestor(text string) (string, bool) {
	if m := investorRe.FindStringSubmatch(text); m != nil {
		name := m[1]
		if !pronouns[name] && !strings.HasSuffix(name, model.SelfInvestorName) {
			return name, false
		}
	}
	return model.SelfInvestorName, true
}

// extractSecurityToken picks the security token. Digit runs of 4-6
// characters win over name substrings because codes are unambiguous;
// runs directly followed by a unit lexeme (股/張/元) are quantities or
// prices, not codes.
func extractSecurityToken(text string) (string, bool) {
	for _, loc := range digitRunRe.FindAllStringIndex(text, -1) {
		token := text[loc[0]:loc[1]]
		digits := strings.SplitN(token, ".", 2)[0]
		if len(digits) < 4 || len(digits) > 6 {
			continue
		}
		if r, _ := utf8.DecodeRuneInString(text[loc[1]:]); r == '股' || r == '張' || r == '元' {
			continue
		}
		return token, true
	}

	if m := securityNameRe.FindStringSubmatch(text); m != nil {
		if name := m[1]; !pronouns[name] {
			return name, true
		}
	}

	return "", false
}

// extractQuantity reads a share count. Only the 股 unit is accepted:
// quantities are plain counts with no board-lot multiplication.
func extractQuantity(text string) (decimal.Decimal, bool) {
	m := quantityRe.FindStringSubmatch(text)
	if m == nil {
		return decimal.Decimal{}, false
	}
	q, err := decimal.NewFromString(m[1])
	if err != nil {
		return decimal.Decimal{}, false
	}
	return q, true
}

// extractPrice reads an explicit per-share price marked by 元, @ or 價格.
func extractPrice(text string) (decimal.Decimal, bool) {
	for _, re := range pricePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			p, err := decimal.NewFromString(m[1])
			if err != nil {
				continue
			}
			return p, true
		}
	}
	return decimal.Decimal{}, false
}
