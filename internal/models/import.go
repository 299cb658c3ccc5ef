package models

// ImportRequest is the body of POST /api/import
type ImportRequest struct {
	Text      string `json:"text" validate:"required"`
	GroupID   string `json:"groupId,omitempty" validate:"omitempty,uuid"`
	GroupName string `json:"groupName,omitempty" validate:"omitempty,max=100"`
	ImportID  string `json:"importId,omitempty" validate:"omitempty,uuid"`
}

// ParseRequest is the body of POST /api/import/parse
type ParseRequest struct {
	Text string `json:"text"`
}

// ParseResponse previews how import text will be split
type ParseResponse struct {
	Addresses []string `json:"addresses"`
	Count     int      `json:"count"`
	Truncated bool     `json:"truncated"`
}

// GeocodeResult is a resolved address
type GeocodeResult struct {
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	FormattedAddress string  `json:"formattedAddress"`
}

// ImportSuccess is an address that was geocoded and saved
type ImportSuccess struct {
	Address  string        `json:"address"`
	Result   GeocodeResult `json:"result"`
	Location *Location     `json:"location"`
}

// ImportFailure is an address that could not be imported
type ImportFailure struct {
	Address string `json:"address"`
	Reason  string `json:"reason"`
}

// ImportResult aggregates per-address outcomes of a bulk import
type ImportResult struct {
	Total      int             `json:"total"`
	Successful []ImportSuccess `json:"successful"`
	Failed     []ImportFailure `json:"failed"`
	Cancelled  bool            `json:"cancelled"`
}

// ImportResponse is returned by POST /api/import
type ImportResponse struct {
	ImportID string `json:"importId"`
	GroupID  string `json:"groupId"`
	ImportResult
	Group *Group `json:"group"`
}

// Import item statuses reported as progress
const (
	ImportStatusGeocoding = "geocoding"
	ImportStatusSaved     = "saved"
	ImportStatusFailed    = "failed"
)

// ImportProgress is published after each import step
type ImportProgress struct {
	ImportID string `json:"importId"`
	Index    int    `json:"index"` // 1-based
	Total    int    `json:"total"`
	Address  string `json:"address"`
	Status   string `json:"status"`
	Reason   string `json:"reason,omitempty"`
}
