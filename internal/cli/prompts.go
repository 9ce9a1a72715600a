package cli

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
)

const (
	actionScan    = "Scan the market"
	actionAnalyze = "Analyze a ticker"
	actionExit    = "Exit"
)

var tickerPattern = regexp.MustCompile(`^[A-Z0-9.-]+$`)

// validateTicker is the survey validator for ticker input.
func validateTicker(val interface{}) error {
	str, _ := val.(string)
	str = strings.TrimSpace(strings.ToUpper(str))
	if len(str) == 0 {
		return fmt.Errorf("ticker symbol cannot be empty")
	}
	if len(str) > 10 {
		return fmt.Errorf("ticker symbol too long (max 10 characters)")
	}
	if !tickerPattern.MatchString(str) {
		return fmt.Errorf("invalid ticker format (use letters, numbers, dots, and hyphens only)")
	}
	return nil
}

func validateBudget(val interface{}) error {
	str, _ := val.(string)
	v, err := strconv.ParseFloat(strings.TrimPrefix(strings.TrimSpace(str), "$"), 64)
	if err != nil || v <= 0 {
		return fmt.Errorf("budget must be a positive number")
	}
	return nil
}

// PromptForTicker prompts the user to enter a stock ticker symbol
func PromptForTicker() (string, error) {
	var ticker string
	prompt := &survey.Input{
		Message: "Enter the stock ticker symbol (e.g., AAPL, MSFT, GOOGL):",
		Help:    "Please enter a valid stock ticker symbol for analysis",
	}
	if err := survey.AskOne(prompt, &ticker, survey.WithValidator(validateTicker)); err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.ToUpper(ticker)), nil
}

// PromptForBudget asks for the investment budget, defaulting to current.
func PromptForBudget(current float64) (float64, error) {
	var raw string
	prompt := &survey.Input{
		Message: "Investment budget in dollars:",
		Default: strconv.FormatFloat(current, 'f', -1, 64),
	}
	if err := survey.AskOne(prompt, &raw, survey.WithValidator(validateBudget)); err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimPrefix(strings.TrimSpace(raw), "$"), 64)
}

func PromptForAction() (string, error) {
	var action string
	prompt := &survey.Select{
		Message: "What would you like to do?",
		Options: []string{actionScan, actionAnalyze, actionExit},
		Default: actionScan,
	}
	if err := survey.AskOne(prompt, &action); err != nil {
		return "", err
	}
	return action, nil
}
