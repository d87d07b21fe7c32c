package models

import "time"

// LookupKind is a reference data list offered to clients as suggestions.
type LookupKind string

const (
	LookupSkill   LookupKind = "skill"
	LookupBoard   LookupKind = "board"
	LookupSchool  LookupKind = "school"
	LookupCollege LookupKind = "college"
	LookupStream  LookupKind = "stream"
	LookupCity    LookupKind = "city"
	LookupState   LookupKind = "state"
)

var LookupKinds = []LookupKind{
	LookupSkill, LookupBoard, LookupSchool, LookupCollege,
	LookupStream, LookupCity, LookupState,
}

func (k LookupKind) Valid() bool {
	for _, v := range LookupKinds {
		if k == v {
			return true
		}
	}
	return false
}

// LookupValue is one entry of a reference list. (kind, normalized) is unique.
type LookupValue struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time  `json:"-"`
	Kind       LookupKind `gorm:"size:32;not null;uniqueIndex:idx_lookup_kind_value" json:"kind"`
	Value      string     `gorm:"size:128;not null" json:"value"`
	Normalized string     `gorm:"size:128;not null;uniqueIndex:idx_lookup_kind_value" json:"-"`
}
