package models

// FilingInfo describes the latest 13F-HR filing found for a ticker.
type FilingInfo struct {
	FilingDate      string          `json:"filing_date"`
	AccessionNumber string          `json:"accession_number"`
	TxtURL          string          `json:"txt_url"`
	DownloadedFile  *string         `json:"downloaded_file"`
	Holdings        []FilingHolding `json:"holdings"`
}

// FilingHolding is one informationTable row, kept as reported.
type FilingHolding struct {
	Issuer       string `json:"issuer"`
	Class        string `json:"class"`
	CUSIP        string `json:"cusip"`
	Value        string `json:"value"`
	Shares       string `json:"shares"`
	SharesType   string `json:"shares_type"`
	VotingSole   string `json:"voting_sole"`
	VotingShared string `json:"voting_shared"`
	VotingNone   string `json:"voting_none"`
}
