package usecase

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/fairyhunter13/ai-intake-agent/internal/domain"
)

var (
	emailRe    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	nonDigitRe = regexp.MustCompile(`\D`)
	nonNumRe   = regexp.MustCompile(`[^0-9.\-]`)
)

// ValidateField checks raw user input against the rules for a candidate
// field and returns the normalized value. On failure the returned string is a
// user-facing correction message distinguishing unparsable input from
// out-of-range values.
func ValidateField(field domain.Field, input string) (string, bool) {
	value := strings.TrimSpace(input)

	switch field {
	case domain.FieldEmail:
		if !emailRe.MatchString(value) {
			return "That doesn't look like a valid email address. Could you double-check it? (e.g. name@example.com)", false
		}
		return value, true

	case domain.FieldPhone:
		digits := nonDigitRe.ReplaceAllString(value, "")
		if len(digits) == 0 {
			return "I couldn't find any digits in that. Could you share your phone number?", false
		}
		if len(digits) < 7 || len(digits) > 15 {
			return "That phone number doesn't seem right. Please provide a number with 7 to 15 digits.", false
		}
		return value, true

	case domain.FieldExperience:
		numeric := nonNumRe.ReplaceAllString(value, "")
		years, err := strconv.ParseFloat(numeric, 64)
		if err != nil {
			return "I couldn't read that as a number. How many years of experience do you have? (e.g. 3 or 2.5)", false
		}
		if years < 0 || years > 100 {
			return "That number of years seems out of range. Please provide a value between 0 and 100.", false
		}
		return formatYears(years), true

	default:
		if value == "" {
			return fmt.Sprintf("I didn't catch that. Could you tell me your %s?", strings.ReplaceAll(string(field), "_", " ")), false
		}
		return value, true
	}
}

// formatYears renders whole years without a decimal and fractional years with
// one decimal place.
func formatYears(years float64) string {
	if years == float64(int(years)) {
		return strconv.Itoa(int(years))
	}
	return strconv.FormatFloat(years, 'f', 1, 64)
}
