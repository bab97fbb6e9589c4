package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Stage is a state of the enrichment state machine:
//
//	Resolved -> Fetching -> Aggregated -> {InPlaceUpdated | Replaced} -> Done
//
// with any state able to move to Failed. Resolving and Upserting name the
// work in progress before Resolved and before the upsert branch is known.
type Stage string

const (
	StageResolving      Stage = "resolving"
	StageResolved       Stage = "resolved"
	StageFetching       Stage = "fetching"
	StageAggregated     Stage = "aggregated"
	StageUpserting      Stage = "upserting"
	StageInPlaceUpdated Stage = "in_place_updated"
	StageReplaced       Stage = "replaced"
	StageDone           Stage = "done"
	StageFailed         Stage = "failed"
)

// UpsertPath tells which branch of the upsert committed the fact.
type UpsertPath string

const (
	PathInPlace  UpsertPath = "in_place"
	PathReplaced UpsertPath = "replaced"
)

// ActionRequest is the trigger message asking for an action to run against
// an input structure. City and Date are optional identifiers; when empty the
// first member of the city or date concept is used.
type ActionRequest struct {
	RequestID      string `json:"request_id"`
	Action         string `json:"action"`
	InputStructure string `json:"input_structure"`
	City           string `json:"city,omitempty"`
	Date           string `json:"date,omitempty"`
}

// RawAction is an undecoded trigger message from the source topic.
type RawAction struct {
	Key       []byte
	Value     []byte
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// ErrInvalidAction is returned for trigger messages that cannot be decoded.
var ErrInvalidAction = errors.New("invalid action request")

// ParseActionRequest decodes a trigger payload.
func ParseActionRequest(raw []byte) (ActionRequest, error) {
	var req ActionRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return ActionRequest{}, fmt.Errorf("%w: %w", ErrInvalidAction, err)
	}
	req.Action = strings.TrimSpace(req.Action)
	if req.Action == "" {
		return ActionRequest{}, fmt.Errorf("%w: action is required", ErrInvalidAction)
	}
	return req, nil
}

// IsFillWeatherForecast reports whether the request targets this engine.
func (r ActionRequest) IsFillWeatherForecast() bool {
	return r.Action == IdtfActionFillWeatherForecast
}

// Request is the input of one enrichment run.
func (r ActionRequest) Request() Request {
	return Request{
		RequestID:      r.RequestID,
		InputStructure: r.InputStructure,
		City:           r.City,
		Date:           r.Date,
	}
}

// Request names the graph elements an enrichment run works on.
type Request struct {
	RequestID      string
	InputStructure string
	City           string
	Date           string
}

// Inputs are the graph elements resolved for one run.
type Inputs struct {
	InputStructure Addr
	City           Addr
	CityName       string
	Date           Addr
	DateISO        string
	Fact           Addr
	Weather        Addr
}

// Anchors are the fixed and per-request elements a fact is linked to.
type Anchors struct {
	Concepts       ConceptRegistry
	Weather        Addr
	InputStructure Addr
}

// UpsertOutcome describes how a fact was committed.
type UpsertOutcome struct {
	Path     UpsertPath
	FactNode Addr
	Replaced Addr
	Edges    []Addr
}

// Outcome is the successful result of an enrichment run.
type Outcome struct {
	City      string
	Date      string
	Aggregate AggregateResult
	IsRain    bool
	Upsert    UpsertOutcome
}

// CompletionReport is what the dispatcher receives when an action finishes.
type CompletionReport struct {
	RequestID   string     `json:"request_id"`
	Action      string     `json:"action"`
	Success     bool       `json:"success"`
	ErrorKind   ErrorKind  `json:"error_kind,omitempty"`
	Error       string     `json:"error,omitempty"`
	IsRain      *bool      `json:"is_rain,omitempty"`
	Path        UpsertPath `json:"path,omitempty"`
	CompletedAt time.Time  `json:"completed_at"`
}

// NewCompletionReport builds the report for a finished action. A failed run
// never carries outcome fields.
func NewCompletionReport(req ActionRequest, outcome Outcome, err error) CompletionReport {
	report := CompletionReport{
		RequestID:   req.RequestID,
		Action:      req.Action,
		Success:     err == nil,
		CompletedAt: clock.Now().UTC(),
	}
	if err != nil {
		report.ErrorKind = KindOf(err)
		report.Error = err.Error()
		return report
	}
	isRain := outcome.IsRain
	report.IsRain = &isRain
	report.Path = outcome.Upsert.Path
	return report
}
