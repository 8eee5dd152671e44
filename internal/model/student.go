// Package model defines the per-source record shapes used throughout the
// retrieval engine. Records flowing out of the store are fully typed so the
// numeric-extraction and trend logic never operate on runtime-checked fields.
package model

import "time"

// Student is a roster entry. ID is the stable opaque identifier assigned on
// first import; it never changes across re-imports and is the only identifier
// the engine reasons about (display names belong to the anonymization layer).
type Student struct {
	ID            string    `json:"id"`
	StudentNumber string    `json:"studentNumber"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	Grade         string    `json:"grade"` // normalized token: "K" or "1".."12"
	ClassLabel    string    `json:"classLabel"`
	Gender        string    `json:"gender,omitempty"`
	BirthDate     time.Time `json:"birthDate,omitempty"`
}

// FullName returns "First Last" for roster matching
func (s Student) FullName() string {
	if s.FirstName == "" {
		return s.LastName
	}
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}
