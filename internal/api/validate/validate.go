package validate

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

type ErrField struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

type Errs []ErrField

func (e Errs) Error() string {
	var b strings.Builder
	for i, ef := range e {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(ef.Field + ": " + ef.Msg)
	}
	return b.String()
}

func Required(field, value string) *ErrField {
	if strings.TrimSpace(value) == "" {
		return &ErrField{Field: field, Msg: "required"}
	}
	return nil
}

// PositiveAmount guards payment initiation: the ledger itself does not reject
// non-positive amounts, the caller layer does.
func PositiveAmount(field string, v decimal.Decimal) *ErrField {
	if !v.IsPositive() {
		return &ErrField{Field: field, Msg: "must be > 0"}
	}
	return nil
}

// CardLastFour accepts an empty value or exactly four digits.
func CardLastFour(field, value string) *ErrField {
	if value == "" {
		return nil
	}
	if len(value) != 4 {
		return &ErrField{Field: field, Msg: "must be exactly 4 digits"}
	}
	for _, r := range value {
		if !unicode.IsDigit(r) {
			return &ErrField{Field: field, Msg: "must be exactly 4 digits"}
		}
	}
	return nil
}
