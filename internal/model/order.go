package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type OrderStatus string

const (
	StatusPending OrderStatus = "pending"
)

func (s OrderStatus) String() string {
	return string(s)
}

// AttachmentList is the ordered set of public attachment URLs, stored in the
// `attachements` column (the historical spelling) as JSON. An empty list is
// persisted as NULL, never as "[]".
type AttachmentList []string

func (a AttachmentList) Value() (driver.Value, error) {
	if len(a) == 0 {
		return nil, nil
	}
	return json.Marshal([]string(a))
}

func (a *AttachmentList) Scan(src any) error {
	if src == nil {
		*a = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("attachment list: unsupported source %T", src)
	}
	return json.Unmarshal(raw, (*[]string)(a))
}

// Order is the DB entity persisted in the orders table. Insert-only: the
// intake pipeline never updates a row.
type Order struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"` // "N/A" when the field was left empty
	Address      *string        `db:"address"`
	ZipCode      *string        `db:"zip_code"`
	City         *string        `db:"city"`
	Message      *string        `db:"message"`
	Attachements AttachmentList `db:"attachements"`
	Status       OrderStatus    `db:"status"`
	CreatedAt    time.Time      `db:"created_at"`
}
