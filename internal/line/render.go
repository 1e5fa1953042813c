package line

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/twledger/stock-ledger-backend/internal/message"
	"github.com/twledger/stock-ledger-backend/internal/model"
	"github.com/twledger/stock-ledger-backend/internal/parser"
)

const helpText = `記帳方式：
買 2330 100股 250元
我買台積電 50股 @600
小明賣鴻海200股 價格120
（不寫價格就用市價）

查詢指令：
持股 [名字] — 目前持股
損益 [名字] — 已實現損益
排行 — 投資人排行榜
說明 — 顯示本說明`

// rejectionText maps rejection reasons to usage hints.
var rejectionText = map[string]string{
	string(parser.ReasonNoSide):             "看不懂這句話。輸入「說明」查看記帳格式。",
	string(parser.ReasonAmbiguousSide):      "同時出現買和賣，請分成兩句輸入。",
	string(parser.ReasonNoSecurity):         "找不到股票代號或名稱，請用代號（例如 2330）或完整名稱。",
	string(parser.ReasonUnresolvedSecurity): "查無這檔股票，請確認代號或名稱。",
	string(parser.ReasonNoQuantity):         "缺少股數，請用「股」為單位，例如 100股。",
	string(parser.ReasonInvalidAmount):      "股數和價格必須大於零。",
	string(parser.ReasonPriceUnavailable):   "目前查不到市價，請在句子裡寫價格，例如 250元。",
	message.ReasonInsufficientHoldings:      "持股不足，無法賣出這麼多。",
	message.ReasonUnknownInvestor:           "查無此投資人，輸入「持股」不加名字可查自己的。",
}

// RenderOutcome turns a message outcome into the chat reply text.
func RenderOutcome(o message.Outcome) string {
	switch o.Kind {
	case message.KindTrade:
		return renderTrade(o)
	case message.KindRejected:
		if text, ok := rejectionText[o.Reason]; ok {
			return text
		}
		return rejectionText[string(parser.ReasonNoSide)]
	case message.KindPortfolio:
		return renderPortfolio(*o.Report)
	case message.KindRealized:
		return renderRealized(o.Realized)
	case message.KindRanking:
		return renderRanking(o.Ranking)
	case message.KindHelp:
		return helpText
	default:
		return helpText
	}
}

func renderTrade(o message.Outcome) string {
	intent := o.Intent
	trade := o.Commit.Trade

	verb := "買入"
	if trade.Side == model.SideSell {
		verb = "賣出"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "✅ 已記錄：%s %s %s(%s) %s股 @%s",
		intent.InvestorName, verb, intent.SecurityName, trade.SecurityID,
		trade.Quantity, trade.Price)
	if intent.AtMarket {
		b.WriteString("（市價）")
	}
	fmt.Fprintf(&b, "\n手續費 %s", trade.Fee)
	if trade.Tax.IsPositive() {
		fmt.Fprintf(&b, "，證交稅 %s", trade.Tax)
	}
	if o.Commit.Realized != nil {
		fmt.Fprintf(&b, "\n已實現損益 %s", signed(o.Commit.Realized.GainLoss))
	}
	if o.Commit.Closed {
		b.WriteString("\n部位已全部出清")
	} else {
		fmt.Fprintf(&b, "\n目前持有 %s股，平均成本 %s",
			o.Commit.Holding.Quantity, o.Commit.Holding.AvgCost)
	}
	return b.String()
}

func renderPortfolio(r model.PositionReport) string {
	if len(r.Lines) == 0 {
		return fmt.Sprintf("%s 目前沒有持股", r.InvestorName)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 %s 的持股\n", r.InvestorName)
	for _, line := range r.Lines {
		fmt.Fprintf(&b, "\n%s(%s) %s股 成本 %s",
			line.SecurityName, line.SecurityID, line.Quantity, line.AvgCost)
		if line.PriceAvailable {
			fmt.Fprintf(&b, " 現價 %s %s (%s%%)",
				line.CurrentPrice, signed(line.Unrealized), signed(line.UnrealizedPct))
		} else {
			b.WriteString(" 現價暫無法取得")
		}
	}
	fmt.Fprintf(&b, "\n\n投入 %s", r.TotalInvested)
	if r.TotalValue.IsPositive() {
		fmt.Fprintf(&b, "，市值 %s", r.TotalValue)
	}
	fmt.Fprintf(&b, "\n未實現 %s，已實現 %s", signed(r.TotalUnrealized), signed(r.TotalRealized))
	return b.String()
}

func renderRealized(summaries []model.RealizedSummary) string {
	if len(summaries) == 0 {
		return "還沒有已實現損益"
	}

	var b strings.Builder
	b.WriteString("💰 已實現損益\n")
	total := decimal.Zero
	for _, s := range summaries {
		name := s.SecurityName
		if name == "" {
			name = s.SecurityID
		}
		fmt.Fprintf(&b, "\n%s(%s) 賣出 %s股 損益 %s", name, s.SecurityID, s.QuantitySold, signed(s.GainLoss))
		total = total.Add(s.GainLoss)
	}
	fmt.Fprintf(&b, "\n\n合計 %s", signed(total))
	return b.String()
}

func renderRanking(entries []model.RankingEntry) string {
	if len(entries) == 0 {
		return "還沒有排行資料"
	}

	var b strings.Builder
	b.WriteString("🏆 投資排行榜\n")
	for _, e := range entries {
		marker := ""
		if e.Kind == model.RankingKindBenchmark {
			marker = "（大盤ETF）"
		}
		fmt.Fprintf(&b, "\n%d. %s%s %s%%", e.Rank, e.Name, marker, signed(e.ReturnPct))
	}
	return b.String()
}

// signed formats a decimal with an explicit plus sign on gains.
func signed(d interface{ String() string }) string {
	s := d.String()
	if !strings.HasPrefix(s, "-") {
		return "+" + s
	}
	return s
}
