package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"CryptoSign/internal/domain/models"
	"CryptoSign/internal/services/signals"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3B82F6"))
	longStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#10B981"))
	shortStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444"))
	titleStyle   = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)
)

// plain drops colors for --no-color and for output captured in tests.
func plain() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func styledSignal(rec models.SignalRecord) string {
	text := signals.SignalText(rec)
	dir, _, ok := rec.Signal()
	switch {
	case !ok:
		return mutedStyle.Render(text)
	case dir == models.Long:
		return longStyle.Render(text)
	default:
		return shortStyle.Render(text)
	}
}

// renderCalendar writes one block per date: heading, then the arrowed signal line.
func renderCalendar(w io.Writer, recs []models.SignalRecord) {
	for i, rec := range recs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, headingStyle.Render(signals.Heading(rec)))
		fmt.Fprintf(w, "→ %s\n", styledSignal(rec))
	}
}

func renderHours(w io.Writer, rec models.SignalRecord, hours []models.HourSignal) {
	fmt.Fprintln(w, headingStyle.Render(signals.Heading(rec)))
	fmt.Fprintf(w, "day %d  full %d  anchored %d  → %s\n", rec.Codes.DayCode, rec.Codes.FullCode, rec.Codes.AnchoredCode, rec.Classification)
	for _, h := range hours {
		line := fmt.Sprintf("%5s  code %2d  %s", h.Label, h.Code, h.Bucket)
		switch h.Bucket {
		case models.HourPeak:
			line = shortStyle.Render(line)
		case models.HourDip:
			line = longStyle.Render(line)
		default:
			line = mutedStyle.Render(line)
		}
		fmt.Fprintln(w, line)
	}
}

func pct(v float64) string { return fmt.Sprintf("%+.2f%%", v*100) }

func renderReport(w io.Writer, r models.BacktestReport, showTrades bool) {
	s := r.Summary
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s  %s  %s → %s", r.Symbol, r.Mode,
		r.From.Format("2006-01-02"), r.To.Format("2006-01-02"))))
	rows := [][2]string{
		{"bars", fmt.Sprint(r.Bars)},
		{"trades", fmt.Sprintf("%d (%d wins, %d losses)", s.TotalTrades, s.Wins, s.Losses)},
		{"win rate", fmt.Sprintf("%.1f%%", s.WinRate*100)},
		{"mean return", pct(s.MeanReturn)},
		{"cumulative", pct(s.CumulativeReturn)},
		{"max drawdown", pct(s.MaxDrawdown)},
		{"open positions", fmt.Sprint(len(r.Result.Open))},
		{"missing price data", fmt.Sprint(r.Result.MissingPriceData)},
		{"incomplete bars", fmt.Sprint(r.Result.IncompleteBars)},
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%-20s %s\n", mutedStyle.Render(row[0]), row[1])
	}
	if len(s.Breakdown) > 0 {
		fmt.Fprintln(w)
		for _, g := range s.Breakdown {
			fmt.Fprintf(w, "%-5s %-5s %4d trades  win %5.1f%%  mean %s\n",
				g.Classification, g.Direction, g.Count, g.WinRate*100, pct(g.MeanReturn))
		}
	}
	if !showTrades {
		return
	}
	fmt.Fprintln(w)
	for _, t := range r.Result.Trades {
		style := longStyle
		if t.Direction == models.Short {
			style = shortStyle
		}
		fmt.Fprintf(w, "%s %s %.2f → %s %.2f  %-11s %s\n",
			style.Render(fmt.Sprintf("%-5s", t.Direction)),
			t.EntryTime.Format("2006-01-02 15:04"), t.EntryPrice,
			t.ExitTime.Format("2006-01-02 15:04"), t.ExitPrice,
			t.ExitReason, pct(t.Return))
	}
}
