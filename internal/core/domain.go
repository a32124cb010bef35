package core

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

const (
	FundUnion  Fund = "CONG_DOAN"
	FundParty  Fund = "DANG_PHI"
	FundOffice Fund = "VAN_PHONG"

	// AllFunds is the filter sentinel meaning "no fund restriction".
	AllFunds Fund = "ALL"
)

const (
	Income  Kind = "THU"
	Expense Kind = "CHI"
)

// DateLayout is the ISO calendar date layout used for Transaction.Date.
const DateLayout = "2006-01-02"

type (
	// Fund identifies one of the three earmarked pools of money.
	Fund string

	// Kind tells whether a transaction adds to or draws from its fund.
	Kind string

	Transaction struct {
		ID          string `json:"id"`
		Fund        Fund   `json:"fundType"`
		Kind        Kind   `json:"type"`
		Amount      Money  `json:"amount"`
		Description string `json:"description"`
		Date        string `json:"date"`
		Person      string `json:"person"`
	}

	// Draft is a transaction as submitted by a user, before an id is assigned.
	Draft struct {
		Fund        Fund   `json:"fundType"`
		Kind        Kind   `json:"type"`
		Amount      Money  `json:"amount"`
		Description string `json:"description"`
		Date        string `json:"date"`
		Person      string `json:"person"`
	}

	// ColorMap holds the display color of each fund.
	ColorMap map[Fund]string
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidDate      = errors.New("invalid date")
	ErrUnknownFund      = errors.New("unknown fund")
	ErrUnknownKind      = errors.New("unknown transaction type")
	ErrInvalidColor     = errors.New("invalid color")
)

// Funds lists every fund in display order.
var Funds = [...]Fund{FundUnion, FundParty, FundOffice}

// PresetColors is the palette offered by the color picker.
var PresetColors = []string{
	"#4F46E5",
	"#EF4444",
	"#10B981",
	"#F59E0B",
	"#8B5CF6",
	"#EC4899",
	"#06B6D4",
	"#3B82F6",
}

var colorPattern = regexp.MustCompile(`^#([0-9A-Fa-f]{3}|[0-9A-Fa-f]{6})$`)

func (f Fund) Validate() error {
	switch f {
	case FundUnion, FundParty, FundOffice:
		return nil
	default:
		return ErrUnknownFund
	}
}

// Label returns the Vietnamese display name of the fund.
func (f Fund) Label() string {
	switch f {
	case FundUnion:
		return "Công đoàn"
	case FundParty:
		return "Đảng phí"
	case FundOffice:
		return "Văn phòng"
	case AllFunds:
		return "Tất cả"
	default:
		return string(f)
	}
}

// ParseFund accepts the wire value, the English name or the filter sentinel.
// An empty string is treated as AllFunds.
func ParseFund(s string) (Fund, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(AllFunds):
		return AllFunds, nil
	case string(FundUnion), "UNION":
		return FundUnion, nil
	case string(FundParty), "PARTY":
		return FundParty, nil
	case string(FundOffice), "OFFICE":
		return FundOffice, nil
	default:
		return "", ErrUnknownFund
	}
}

func (k Kind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	default:
		return ErrUnknownKind
	}
}

func (k Kind) Label() string {
	switch k {
	case Income:
		return "Thu"
	case Expense:
		return "Chi"
	default:
		return string(k)
	}
}

// ParseKind accepts the wire value or the English name.
func ParseKind(s string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(Income), "INCOME":
		return Income, nil
	case string(Expense), "EXPENSE":
		return Expense, nil
	default:
		return "", ErrUnknownKind
	}
}

// ValidateDate checks that s is a real calendar date in YYYY-MM-DD form.
func ValidateDate(s string) error {
	if strings.TrimSpace(s) == "" {
		return ErrInvalidDate
	}
	if _, err := time.Parse(DateLayout, s); err != nil {
		return ErrInvalidDate
	}
	return nil
}

func (d Draft) Validate() error {
	if err := d.Fund.Validate(); err != nil {
		return err
	}
	if err := d.Kind.Validate(); err != nil {
		return err
	}
	if err := d.Amount.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(d.Description)) == 0 {
		return ErrEmptyDescription
	}
	return ValidateDate(d.Date)
}

// WithID turns the draft into a transaction carrying the given id.
func (d Draft) WithID(id string) Transaction {
	return Transaction{
		ID:          id,
		Fund:        d.Fund,
		Kind:        d.Kind,
		Amount:      d.Amount,
		Description: strings.TrimSpace(d.Description),
		Date:        d.Date,
		Person:      strings.TrimSpace(d.Person),
	}
}

// Signed returns the amount as it contributes to a balance.
func (t Transaction) Signed() Money {
	if t.Kind == Expense {
		return -t.Amount
	}
	return t.Amount
}

// DefaultColors returns a fresh copy of the default fund colors.
func DefaultColors() ColorMap {
	return ColorMap{
		FundUnion:  "#4F46E5",
		FundParty:  "#EF4444",
		FundOffice: "#10B981",
	}
}

// ValidateColor accepts #RGB and #RRGGBB hex colors.
func ValidateColor(c string) error {
	if !colorPattern.MatchString(c) {
		return ErrInvalidColor
	}
	return nil
}

// WithDefaults returns a copy of m where missing or unknown funds are dropped
// and every fund has a color.
func (m ColorMap) WithDefaults() ColorMap {
	out := DefaultColors()
	for _, f := range Funds {
		if c, ok := m[f]; ok && c != "" {
			out[f] = c
		}
	}
	return out
}
