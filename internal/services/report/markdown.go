package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"

	"github.com/bobmcallan/vire-digest/internal/models"
)

// channelOrder fixes the row order of the delivery table
var channelOrder = []string{models.ChannelSlack, models.ChannelEmail, models.ChannelNotion}

// writeMarkdown renders the human readable run summary
func writeMarkdown(w io.Writer, report *models.RunReport) error {
	md := markdown.NewMarkdown(w)

	md.H1("Daily Trading Digest Delivery Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"run_id", "`" + report.RunID + "`"},
			{"timestamp_utc", report.TimestampUTC.Format(time.RFC3339)},
			{"status", statusText(report.Status)},
			{"news_count", strconv.Itoa(report.NewsCount)},
			{"block_count", strconv.Itoa(report.BlockCount)},
			{"profile", report.Config.Profile},
		},
	})
	md.PlainText("")

	md.H2("Delivery")
	md.PlainText("")
	rows := make([][]string, 0, len(channelOrder))
	for _, ch := range channelOrder {
		st, ok := report.Delivery[ch]
		if !ok {
			continue
		}
		rows = append(rows, []string{
			ch,
			strconv.FormatBool(st.Enabled),
			strconv.FormatBool(st.Attempted),
			strconv.FormatBool(st.Success),
			"`" + st.Detail + "`",
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Channel", "Enabled", "Attempted", "Success", "Detail"},
		Rows:   rows,
	})
	md.PlainText("")

	if p := report.Properties; p != nil {
		writeProperties(md, p)
	}

	if report.Error != "" {
		md.H2("Error")
		md.PlainText("")
		md.Caution(report.Error)
		md.PlainText("")
	}

	return md.Build()
}

func writeProperties(md *markdown.Markdown, p *models.DigestProperties) {
	md.H2("Properties")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"title", p.Title},
			{"market_mode", p.MarketMode},
			{"global_sentiment", p.GlobalSentiment},
			{"market_atmosphere", p.MarketAtmosphere},
			{"confidence", p.Confidence},
			{"vix", number(p.VIX)},
			{"sp500", number(p.SP500)},
			{"kospi", number(p.KOSPI)},
			{"usdkrw", number(p.USDKRW)},
			{"bond10y", number(p.Bond10Y)},
			{"priority_instruments", p.PriorityInstrumentsText()},
		},
	})
	md.PlainText("")

	if len(p.Keywords) > 0 {
		md.PlainText("Keywords:")
		md.PlainText("")
		md.BulletList(p.Keywords...)
		md.PlainText("")
	}
}

func statusText(status string) string {
	if status == models.RunStatusSuccess {
		return "✅ " + status
	}
	return "❌ " + status
}

func number(v float64) string {
	if v == 0 {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
