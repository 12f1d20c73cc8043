package notify

import (
	"fmt"
	"strings"

	"github.com/alejandrodnm/flowscan/internal/domain"
)

// FormatSignal renders the one-line alert used by every notifier.
//
//	HIGH NVDA 180C 09/19 (17d) prem $200.0K vol/oi 10.00x deep_otm +12.50% @ 2.00
func FormatSignal(sig domain.Signal) string {
	var sb strings.Builder
	sb.WriteString(strings.ToUpper(string(sig.Strength)))
	fmt.Fprintf(&sb, " %s %s%s %s (%dd)",
		sig.Underlying,
		strike(sig.Strike),
		typeLetter(sig.Type),
		sig.Expiration.Format("01/02"),
		sig.DTE,
	)
	fmt.Fprintf(&sb, " prem %s vol/oi %.2fx", money(sig.Premium), sig.VolumeOIRatio)
	fmt.Fprintf(&sb, " %s %+.2f%%", sig.MoneynessCategory, sig.MoneynessPercent)
	if p := sig.EntryPrice(); p > 0 {
		fmt.Fprintf(&sb, " @ %.2f", p)
	}
	if sig.PreferredOTM {
		sb.WriteString(" *")
	}
	return sb.String()
}

// truncate corta s a maxLen runas, terminando en "..." si recorta.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

func typeLetter(t domain.OptionType) string {
	switch t {
	case domain.OptionCall:
		return "C"
	case domain.OptionPut:
		return "P"
	}
	return "?"
}

// strike sin decimales innecesarios: 180 -> "180", 182.5 -> "182.5".
func strike(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
