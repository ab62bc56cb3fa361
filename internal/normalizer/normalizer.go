package normalizer

import (
	"fmt"
	"strings"

	"invoice-validation-service/internal/models"
	"invoice-validation-service/pkg/errors"

	"github.com/shopspring/decimal"
)

// Normalizer parses raw numeric strings from OCR extraction into decimal
// amounts. It is a pure, reentrant component; the same input always yields
// the same output.
type Normalizer struct {
	config *Config
}

// NewNormalizer creates a new normalizer with the specified configuration
func NewNormalizer(config *Config) *Normalizer {
	if config == nil {
		config = DefaultConfig()
	}

	return &Normalizer{config: config}
}

// currencyPrefixes are stripped before parsing. Order matters: longer
// prefixes first so "IDR" is not left as "DR" after stripping "I".
var currencyPrefixes = []string{"IDR", "Rp.", "Rp", "RP", "rp", "$"}

// digitGroup is one run of characters between separators
type digitGroup struct {
	text     string
	repaired int
}

// Normalize parses a raw numeric string into a NormalizedAmount.
//
// Separator roles are inferred positionally: with two distinct separator
// characters the rightmost-occurring one is the decimal separator; with a
// single separator occurrence, exactly three trailing digits mean thousands
// grouping (flagged ambiguous when the leading group could also be a whole
// number), anything else means a decimal separator. Grouped numbers must
// have exactly three digits in every group after the first.
func (n *Normalizer) Normalize(raw string) (*models.NormalizedAmount, error) {
	s := strings.TrimSpace(raw)
	for _, prefix := range currencyPrefixes {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimSpace(strings.TrimPrefix(s, prefix))
			break
		}
	}

	// Indonesian invoices often write whole amounts as "1.000,-"
	s = strings.TrimSuffix(strings.TrimSuffix(s, ",-"), ".-")

	if s == "" {
		return nil, errors.NormalizationError(errors.CodeNoDigits, raw, nil)
	}

	groups, separators, err := n.splitGroups(raw, s)
	if err != nil {
		return nil, err
	}

	totalDigits := 0
	repairs := 0
	for _, g := range groups {
		totalDigits += len(g.text)
		repairs += g.repaired
	}
	if totalDigits == 0 {
		return nil, errors.NormalizationError(errors.CodeNoDigits, raw, nil)
	}

	layout, err := n.inferLayout(raw, groups, separators)
	if err != nil {
		return nil, err
	}

	value, err := decimal.NewFromString(layout.canonical)
	if err != nil {
		return nil, errors.NormalizationError(errors.CodeMalformedGrouping, raw,
			fmt.Errorf("canonical form %q: %w", layout.canonical, err))
	}

	// Long digit strings resolving to small values indicate a dropped digit
	// or a misplaced decimal point, not a genuine small amount.
	if totalDigits >= n.config.SuspectDigitCount && value.LessThan(n.config.SmallValueFloor) {
		return nil, errors.NormalizationError(errors.CodeImplausibleValue, raw,
			fmt.Errorf("%d digits resolved to %s, below floor %s",
				totalDigits, value.String(), n.config.SmallValueFloor.String()))
	}

	result := &models.NormalizedAmount{
		Value:              value,
		ThousandsSeparator: layout.thousands,
		DecimalSeparator:   layout.decimal,
		Confidence:         1.0,
	}

	if repairs > 0 {
		result.Confidence = n.config.RepairConfidence
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%d OCR-confused character(s) repaired in %q", repairs, raw))
	}

	if layout.ambiguous {
		if n.config.AmbiguousSeparatorConfidence < result.Confidence {
			result.Confidence = n.config.AmbiguousSeparatorConfidence
		}
		result.Warnings = append(result.Warnings,
			"ambiguous single separator with three trailing digits, assumed thousands grouping")
	}

	return result, nil
}

// splitGroups splits the cleaned string into digit groups and the separator
// sequence between them, applying confusion repair only to groups that fail
// to parse as digits.
func (n *Normalizer) splitGroups(raw, s string) ([]digitGroup, []rune, error) {
	var groups []digitGroup
	var separators []rune
	var current strings.Builder

	flush := func() error {
		text := current.String()
		current.Reset()
		if text == "" {
			return errors.NormalizationError(errors.CodeMalformedGrouping, raw,
				fmt.Errorf("empty digit group"))
		}
		group, err := n.repairGroup(raw, text)
		if err != nil {
			return err
		}
		groups = append(groups, group)
		return nil
	}

	for _, r := range s {
		if r == '.' || r == ',' {
			if err := flush(); err != nil {
				return nil, nil, err
			}
			separators = append(separators, r)
			continue
		}
		current.WriteRune(r)
	}
	if err := flush(); err != nil {
		return nil, nil, err
	}

	return groups, separators, nil
}

// repairGroup returns the group with confusion repair applied when needed.
// Groups that already parse as digits are never touched.
func (n *Normalizer) repairGroup(raw, text string) (digitGroup, error) {
	if isDigits(text) {
		return digitGroup{text: text}, nil
	}

	var repaired strings.Builder
	count := 0
	for _, r := range text {
		if r >= '0' && r <= '9' {
			repaired.WriteRune(r)
			continue
		}
		replacement, ok := n.config.ConfusionTable[r]
		if !ok {
			return digitGroup{}, errors.NormalizationError(errors.CodeInvalidFormat, raw,
				fmt.Errorf("unrecognized character %q in digit group %q", r, text))
		}
		repaired.WriteRune(replacement)
		count++
	}

	return digitGroup{text: repaired.String(), repaired: count}, nil
}

// amountLayout is the resolved separator interpretation of the input
type amountLayout struct {
	canonical string
	thousands string
	decimal   string
	ambiguous bool
}

// inferLayout resolves separator roles and validates digit grouping
func (n *Normalizer) inferLayout(raw string, groups []digitGroup, separators []rune) (*amountLayout, error) {
	if len(separators) == 0 {
		return &amountLayout{canonical: groups[0].text}, nil
	}

	distinct := distinctRunes(separators)

	if len(distinct) == 2 {
		// Rightmost-occurring separator is the decimal separator
		decimalSep := separators[len(separators)-1]
		thousandsSep := distinct[0]
		if thousandsSep == decimalSep {
			thousandsSep = distinct[1]
		}

		// The decimal separator must occur exactly once, at the end
		for _, sep := range separators[:len(separators)-1] {
			if sep == decimalSep {
				return nil, errors.NormalizationError(errors.CodeMalformedGrouping, raw,
					fmt.Errorf("decimal separator %q occurs more than once", decimalSep))
			}
		}

		integerGroups := groups[:len(groups)-1]
		decimalGroup := groups[len(groups)-1]

		if err := validateGrouping(raw, integerGroups); err != nil {
			return nil, err
		}

		return &amountLayout{
			canonical: joinGroups(integerGroups) + "." + decimalGroup.text,
			thousands: string(thousandsSep),
			decimal:   string(decimalSep),
		}, nil
	}

	sep := distinct[0]

	if len(separators) > 1 {
		// Repeated single separator can only be thousands grouping
		if err := validateGrouping(raw, groups); err != nil {
			return nil, err
		}
		return &amountLayout{
			canonical: joinGroups(groups),
			thousands: string(sep),
		}, nil
	}

	// Single separator occurrence: role depends on the trailing group
	leading := groups[0]
	trailing := groups[1]

	if len(trailing.text) == 3 && len(leading.text) <= 3 {
		// Could be either "1.234" (thousands) or a three-place decimal.
		// Grouping is overwhelmingly more likely on invoice amounts, but the
		// assumption is recorded rather than silently resolved.
		return &amountLayout{
			canonical: leading.text + trailing.text,
			thousands: string(sep),
			ambiguous: true,
		}, nil
	}

	if len(trailing.text) == 3 {
		// Leading group longer than three digits rules grouping out entirely
		return &amountLayout{
			canonical: leading.text + "." + trailing.text,
			decimal:   string(sep),
		}, nil
	}

	return &amountLayout{
		canonical: leading.text + "." + trailing.text,
		decimal:   string(sep),
	}, nil
}

// validateGrouping enforces the digit-count-to-separator-count consistency
// rule: every group after the leading one must be exactly three digits, and
// the leading group at most three.
func validateGrouping(raw string, groups []digitGroup) error {
	if len(groups) < 2 {
		return nil
	}

	if len(groups[0].text) > 3 {
		return errors.NormalizationError(errors.CodeMalformedGrouping, raw,
			fmt.Errorf("leading group %q has more than three digits", groups[0].text))
	}

	for _, g := range groups[1:] {
		if len(g.text) != 3 {
			return errors.NormalizationError(errors.CodeMalformedGrouping, raw,
				fmt.Errorf("grouped digits %q are not a three-digit group", g.text))
		}
	}

	return nil
}

func joinGroups(groups []digitGroup) string {
	var b strings.Builder
	for _, g := range groups {
		b.WriteString(g.text)
	}
	return b.String()
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func distinctRunes(runes []rune) []rune {
	var distinct []rune
	seen := make(map[rune]bool)
	for _, r := range runes {
		if !seen[r] {
			seen[r] = true
			distinct = append(distinct, r)
		}
	}
	return distinct
}
