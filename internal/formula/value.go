package formula

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

type Kind uint8

const (
	KindNumber Kind = iota
	KindString
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	}
	return "unknown"
}

// Value is an immutable evaluation value. Numbers are exact decimals.
type Value struct {
	kind Kind
	num  decimal.Decimal
	str  string
	b    bool
}

func Number(d decimal.Decimal) Value { return Value{kind: KindNumber, num: d} }
func Int(n int64) Value              { return Number(decimal.NewFromInt(n)) }
func String(s string) Value          { return Value{kind: KindString, str: s} }
func Bool(b bool) Value              { return Value{kind: KindBool, b: b} }

func (v Value) Kind() Kind { return v.kind }

// Decimal returns the numeric payload; zero for non-numbers.
func (v Value) Decimal() decimal.Decimal { return v.num }

// Equal compares kind and payload. Numbers compare by value, so 1.50 == 1.5.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num.Equal(o.num)
	case KindString:
		return v.str == o.str
	case KindBool:
		return v.b == o.b
	}
	return false
}

func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return v.num.String()
	case KindString:
		return strconv.Quote(v.str)
	case KindBool:
		return strconv.FormatBool(v.b)
	}
	return fmt.Sprintf("value(%d)", v.kind)
}
