package weblytics

import (
	"github.com/jdziat/weblytics-go/pkg/attribution"
	"github.com/jdziat/weblytics-go/pkg/queue"
	"github.com/jdziat/weblytics-go/pkg/types"
)

// Wire and result types, re-exported from pkg/types.
type (
	JSONObject       = types.JSONObject
	Event            = types.Event
	TrackResult      = types.TrackResult
	PropertyOps      = types.PropertyOps
	IdentifyParams   = types.IdentifyParams
	IdentifyResult   = types.IdentifyResult
	QueryRequest     = types.QueryRequest
	QueryResult      = types.QueryResult
	Intent           = types.Intent
	AttributionState = attribution.Snapshot
)

// BatchResult describes one queued batch send; see WithOnBatchFlushed.
type BatchResult = queue.BatchResult

// Flush intents, reported in BatchResult.Intent.
const (
	IntentThreshold        = types.IntentThreshold
	IntentTimer            = types.IntentTimer
	IntentRetry            = types.IntentRetry
	IntentManual           = types.IntentManual
	IntentVisibilityHidden = types.IntentVisibilityHidden
	IntentPageUnload       = types.IntentPageUnload
)
