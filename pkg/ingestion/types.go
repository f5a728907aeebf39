package ingestion

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID keeps a backend identifier exactly as it arrived, JSON number or string,
// so it can be sent back unchanged.
type ID struct {
	raw json.RawMessage
}

func NumericID(n int64) ID {
	return ID{raw: json.RawMessage(strconv.FormatInt(n, 10))}
}

func StringID(s string) ID {
	raw, _ := json.Marshal(s)
	return ID{raw: raw}
}

func (id ID) IsZero() bool {
	return len(id.raw) == 0
}

func (id ID) String() string {
	if len(id.raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(id.raw, &s); err == nil {
		return s
	}
	return string(id.raw)
}

func (id ID) MarshalJSON() ([]byte, error) {
	if len(id.raw) == 0 {
		return []byte("null"), nil
	}
	return id.raw, nil
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		id.raw = nil
		return nil
	}
	switch c := data[0]; {
	case c == '"', c == '-', c >= '0' && c <= '9':
		id.raw = append(json.RawMessage(nil), data...)
		return nil
	default:
		return fmt.Errorf("ingestion: id must be a number or string, got %s", data)
	}
}

type Branch struct {
	ID         ID     `json:"id"`
	Name       string `json:"name"`
	BranchType string `json:"branchType"`
}

type Category struct {
	ID              ID     `json:"id"`
	Name            string `json:"name"`
	TransactionType string `json:"transactionType"`
}

// MasterData is the GET master-data response body.
type MasterData struct {
	Branches   []Branch   `json:"branches"`
	Categories []Category `json:"categories"`
}

// Payload is the POST body for a completed conversation.
type Payload struct {
	PhoneNumber string `json:"phoneNumber"`
	BranchID    ID     `json:"branchId"`
	CategoryID  ID     `json:"categoryId"`
	Type        string `json:"type"`
	Amount      int64  `json:"amount"`
	Notes       string `json:"notes"`
}

type submitResponse struct {
	ID   ID `json:"id"`
	Data *struct {
		ID ID `json:"id"`
	} `json:"data"`
}

func (r submitResponse) assignedID() ID {
	if !r.ID.IsZero() {
		return r.ID
	}
	if r.Data != nil {
		return r.Data.ID
	}
	return ID{}
}
