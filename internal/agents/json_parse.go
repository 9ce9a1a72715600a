package agents

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var errInvalidJSON = errors.New("LLM returned invalid JSON")

// extractJSON decodes raw into out, retrying on the text between the first
// '{' and the last '}' when the whole response is not valid JSON.
func extractJSON(raw string, out any) error {
	raw = strings.TrimSpace(raw)
	if err := json.Unmarshal([]byte(raw), out); err == nil {
		return nil
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return errInvalidJSON
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), out); err != nil {
		return errInvalidJSON
	}
	return nil
}

// flexNumber accepts a JSON number or a numeric string such as "$1,250.50".
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*n = flexNumber(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("not a number: %s", b)
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %q", s)
	}
	*n = flexNumber(f)
	return nil
}

type recommendationPayload struct {
	BuyRecommendation *bool       `json:"buy_recommendation"`
	SuggestedAmount   *flexNumber `json:"suggested_amount"`
	Rationale         *string     `json:"rationale"`
	OptimalTiming     *string     `json:"optimal_timing"`
}

func parseRecommendation(raw string) (*recommendationPayload, error) {
	var p recommendationPayload
	if err := extractJSON(raw, &p); err != nil {
		return nil, err
	}
	var missing []string
	if p.BuyRecommendation == nil {
		missing = append(missing, "buy_recommendation")
	}
	if p.SuggestedAmount == nil {
		missing = append(missing, "suggested_amount")
	}
	if p.Rationale == nil {
		missing = append(missing, "rationale")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return &p, nil
}

type allocationPayload struct {
	Summary     string `json:"summary"`
	Allocations []struct {
		Ticker        string     `json:"ticker"`
		WeightPercent flexNumber `json:"weight_percent"`
	} `json:"allocations"`
}

func parseAllocation(raw string) (*allocationPayload, error) {
	var p allocationPayload
	if err := extractJSON(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
