package detector

import (
	"math"

	"github.com/alejandrodnm/flowscan/internal/domain"
)

// Thresholds contiene los umbrales configurables de actividad inusual.
type Thresholds struct {
	// MinPremium descarta contratos cuyo premium (last × vol × mult) es menor.
	MinPremium float64
	// MinVolumeOIRatio descarta contratos con volume/open interest menor.
	MinVolumeOIRatio float64
	// MinVolume descarta contratos con menos volumen absoluto.
	MinVolume int64
	// MaxDTE descarta contratos que vencen después de este número de días.
	MaxDTE int
	// PreferOTMPercent marca la señal como PreferredOTM; nunca descarta.
	PreferOTMPercent float64
}

// DefaultThresholds devuelve los umbrales por defecto. El mínimo queda por debajo
// del tier medium, de modo que "low" siempre es una señal válida.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinPremium:       10_000,
		MinVolumeOIRatio: 2.0,
		MinVolume:        100,
		MaxDTE:           60,
		PreferOTMPercent: 5,
	}
}

// RejectReason identifies the first unusual-activity criterion a contract failed.
type RejectReason string

const (
	RejectNone       RejectReason = ""
	RejectLowVolume  RejectReason = "volume_below_min"
	RejectNoOpenInt  RejectReason = "zero_open_interest"
	RejectLowRatio   RejectReason = "volume_oi_ratio_below_min"
	RejectLowPremium RejectReason = "premium_below_min"
	RejectExpired    RejectReason = "expired"
	RejectDTETooLong RejectReason = "dte_above_max"
)

// Strength tier cut-offs.
const (
	highMinRatio     = 5.0
	highMinPremium   = 100_000
	highMaxDTE       = 30
	highMinMoneyness = 10.0

	mediumMinRatio   = 3.0
	mediumMinPremium = 25_000
	mediumMaxDTE     = 45
)

// Classifier applies the threshold rules. It is stateless beyond its thresholds.
type Classifier struct {
	cfg Thresholds
}

// NewClassifier crea un Classifier con los umbrales dados.
func NewClassifier(cfg Thresholds) *Classifier {
	return &Classifier{cfg: cfg}
}

// Thresholds returns the active configuration.
func (c *Classifier) Thresholds() Thresholds {
	return c.cfg
}

// MeetsUnusualCriteria checks, in order and stopping at the first failure:
// volume floor, non-zero open interest, volume/OI ratio, premium floor and
// 0 <= dte <= MaxDTE.
func (c *Classifier) MeetsUnusualCriteria(volume, openInterest int64, premium float64, dte int) (bool, RejectReason) {
	if volume < c.cfg.MinVolume {
		return false, RejectLowVolume
	}
	if openInterest <= 0 {
		return false, RejectNoOpenInt
	}
	if float64(volume)/float64(openInterest) < c.cfg.MinVolumeOIRatio {
		return false, RejectLowRatio
	}
	if premium < c.cfg.MinPremium {
		return false, RejectLowPremium
	}
	if dte < 0 {
		return false, RejectExpired
	}
	if dte > c.cfg.MaxDTE {
		return false, RejectDTETooLong
	}
	return true, RejectNone
}

// ClassifyStrength assigns the conviction tier. Callers only reach it after
// MeetsUnusualCriteria passed, so low is still a valid signal.
func (c *Classifier) ClassifyStrength(ratio, premium float64, dte int, moneyness float64) domain.Strength {
	if ratio >= highMinRatio && premium >= highMinPremium && dte <= highMaxDTE && math.Abs(moneyness) >= highMinMoneyness {
		return domain.StrengthHigh
	}
	if ratio >= mediumMinRatio && premium >= mediumMinPremium && dte <= mediumMaxDTE {
		return domain.StrengthMedium
	}
	return domain.StrengthLow
}

// PrefersOTM reports whether the moneyness reaches the advisory OTM preference.
func (c *Classifier) PrefersOTM(moneyness float64) bool {
	return moneyness >= c.cfg.PreferOTMPercent
}
