package domain

import (
	"regexp"
	"strconv"
	"time"
)

// contractSymbolRE matches OCC-style identifiers: TICKER + YYMMDD + C|P + strike×1000 (8 digits).
var contractSymbolRE = regexp.MustCompile(`^([A-Z]{1,6})(\d{2})(\d{2})(\d{2})([CP])(\d{8})$`)

// ContractSymbol is the decoded form of an option symbol such as NVDA250919C00175000.
type ContractSymbol struct {
	Ticker string
	Year   int
	Month  int
	Day    int
	Type   OptionType
	Strike float64
}

// Expiration returns the contract's expiration date at midnight UTC.
func (c ContractSymbol) Expiration() time.Time {
	return time.Date(c.Year, time.Month(c.Month), c.Day, 0, 0, 0, 0, time.UTC)
}

// ParseContractSymbol decodes an option symbol. It returns false on any mismatch,
// including calendar dates that do not exist.
func ParseContractSymbol(symbol string) (ContractSymbol, bool) {
	m := contractSymbolRE.FindStringSubmatch(symbol)
	if m == nil {
		return ContractSymbol{}, false
	}

	yy, _ := strconv.Atoi(m[2])
	mm, _ := strconv.Atoi(m[3])
	dd, _ := strconv.Atoi(m[4])
	strike, _ := strconv.ParseInt(m[6], 10, 64)

	year := 2000 + yy
	if mm < 1 || mm > 12 || dd < 1 {
		return ContractSymbol{}, false
	}
	// time.Date normaliza 02-30 a 03-02; si el mes cambia la fecha no existe
	if d := time.Date(year, time.Month(mm), dd, 0, 0, 0, 0, time.UTC); d.Month() != time.Month(mm) {
		return ContractSymbol{}, false
	}

	t := OptionCall
	if m[5] == "P" {
		t = OptionPut
	}

	return ContractSymbol{
		Ticker: m[1],
		Year:   year,
		Month:  mm,
		Day:    dd,
		Type:   t,
		Strike: float64(strike) / 1000,
	}, true
}
