// Package console renders the evaluation loop for a terminal and prompts for
// the symbol to watch.
package console

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
)

// Quick-digit symbols.
const (
	SymbolApple     = "AAPL"
	SymbolGoogle    = "GOOG"
	SymbolMicrosoft = "MSFT"

	DefaultSymbol = SymbolGoogle
)

// ResolveSymbol maps a quick digit or company name to its ticker. Anything
// else is treated as a ticker and upper-cased. Blank input selects
// DefaultSymbol.
func ResolveSymbol(input string) string {
	s := strings.TrimSpace(input)
	switch strings.ToLower(s) {
	case "":
		return DefaultSymbol
	case "1", "apple":
		return SymbolApple
	case "2", "google":
		return SymbolGoogle
	case "3", "microsoft":
		return SymbolMicrosoft
	default:
		return strings.ToUpper(s)
	}
}

// PromptSymbol asks the user for a company name, quick digit, or ticker.
func PromptSymbol() (string, error) {
	var answer string
	prompt := &survey.Input{
		Message: "Company name or quick-digit:",
		Help:    "Quick-digits: 1 for Apple, 2 for Google, 3 for Microsoft. Otherwise enter a valid symbol.",
	}
	err := survey.AskOne(prompt, &answer, survey.WithValidator(func(val interface{}) error {
		str, _ := val.(string)
		if len(strings.TrimSpace(str)) > 10 {
			return fmt.Errorf("symbol too long (max 10 characters)")
		}
		return nil
	}))
	if err != nil {
		return "", fmt.Errorf("console: prompt symbol: %w", err)
	}
	return ResolveSymbol(answer), nil
}
