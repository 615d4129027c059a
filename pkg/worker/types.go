package worker

import (
	"encoding/json"
	"time"

	ferrors "tabula-hq/formula/pkg/formula/errors"
	"tabula-hq/formula/pkg/schema"
)

// Request asks a worker to evaluate one expression for one record.
// A Request is immutable once created; it carries its own snapshot of the
// record and schema.
type Request struct {
	ID           string         `json:"id"`
	RecordID     string         `json:"recordId"`
	ColumnID     string         `json:"columnId"`
	Expression   string         `json:"expression"`
	Context      schema.Context `json:"context"`
	Priority     int            `json:"priority,omitempty"`
	Dependencies []string       `json:"dependencies,omitempty"`

	// RecordKey identifies the record among the requests of one batch
	// message. Values computed for a key are visible to later requests with
	// the same key. Empty means RecordID.
	RecordKey string `json:"recordKey,omitempty"`

	// TraceContext carries the caller's W3C trace context across the
	// message boundary.
	TraceContext map[string]string `json:"traceContext,omitempty"`
}

func (r Request) recordKey() string {
	if r.RecordKey != "" {
		return r.RecordKey
	}
	return r.RecordID
}

// Result is the outcome of one Request.
type Result struct {
	ID            string        `json:"id"`
	RecordID      string        `json:"recordId"`
	ColumnID      string        `json:"columnId"`
	Success       bool          `json:"success"`
	Value         any           `json:"value,omitempty"`
	Error         string        `json:"error,omitempty"`
	ErrorKind     ferrors.Kind  `json:"errorKind,omitempty"`
	ExecutionTime time.Duration `json:"executionTime"`
	Timestamp     time.Time     `json:"timestamp"`
	CacheHit      bool          `json:"cacheHit,omitempty"`
}

// failedResult builds the Result of a request that could not be evaluated.
func failedResult(req Request, err error) Result {
	r := Result{
		ID:        req.ID,
		RecordID:  req.RecordID,
		ColumnID:  req.ColumnID,
		Error:     err.Error(),
		Timestamp: time.Now(),
	}
	if kind, ok := ferrors.KindOf(err); ok {
		r.ErrorKind = kind
	}
	return r
}

// Dates do not survive a JSON round trip as time.Time, so they travel as
// RFC 3339 text tagged with valueType "date".
const valueTypeDate = "date"

// MarshalJSON implements json.Marshaler.
func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	w := struct {
		plain
		ValueType string `json:"valueType,omitempty"`
	}{plain: plain(r)}
	if t, ok := r.Value.(time.Time); ok {
		w.Value = t.Format(time.RFC3339Nano)
		w.ValueType = valueTypeDate
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Result) UnmarshalJSON(data []byte) error {
	type plain Result
	var w struct {
		plain
		ValueType string `json:"valueType,omitempty"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = Result(w.plain)
	if w.ValueType == valueTypeDate {
		if s, ok := r.Value.(string); ok {
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return err
			}
			r.Value = t
		}
	}
	return nil
}

// Stats describes one worker.
type Stats struct {
	WorkerID     int    `json:"workerId"`
	Processed    uint64 `json:"processed"`
	Failed       uint64 `json:"failed"`
	ASTCacheSize int    `json:"astCacheSize"`
	MemoHits     uint64 `json:"memoHits"`
	MemoMisses   uint64 `json:"memoMisses"`
}
