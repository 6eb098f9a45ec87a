package domain

import (
	"encoding/json"
	"time"
)

// Record is anything a catalog can hold.
type Record interface {
	RecordID() string
}

// CatalogName identifies a catalog across stores and endpoints.
type CatalogName string

const (
	Automations CatalogName = "automations"
	Procedures  CatalogName = "procedures"
)

// Backup describes a copy of a catalog taken before a reset.
type Backup struct {
	ID        string      `json:"id" yaml:"id"`
	Catalog   CatalogName `json:"catalog" yaml:"catalog"`
	CreatedAt time.Time   `json:"created_at" yaml:"created_at"`
	Count     int         `json:"count" yaml:"count"`
	// Location is store specific (a directory, a key prefix).
	Location string `json:"location,omitempty" yaml:"location,omitempty"`
}

// Clone deep-copies a record through its JSON form so stores never share
// maps or slices with callers.
func Clone[T Record](rec T) (T, error) {
	var out T
	data, err := json.Marshal(rec)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(data, &out)
	return out, err
}
