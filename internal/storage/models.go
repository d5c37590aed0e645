package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

type Session struct {
	ID        string
	Route     string
	ProfileID string
	Consent   bool
	Completed bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type DialogueMessage struct {
	ID        string
	SessionID string
	Author    string
	Content   string
	StageID   string
	CreatedAt time.Time
}

type ResponseRecord struct {
	SessionID string
	Question  string
	Answer    string
	Category  string
	CreatedAt time.Time
}

type Report struct {
	InferenceID string
	SessionID   string
	Source      string
	Narrative   string
	ReportJSON  string // serialized ClinicalReport
	CreatedAt   time.Time
}

type KnowledgeDoc struct {
	ID        string
	Title     string
	Content   string
	Source    string
	CreatedAt time.Time
}
