package ingest

import (
	"fmt"

	"btc-data/internal/model"

	"github.com/go-playground/validator/v10"
)

// Mode selects how much history one invocation generates.
type Mode string

const (
	ModeFull        Mode = "full"
	ModeIncremental Mode = "incremental"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Request is the invocation payload.
type Request struct {
	Mode       Mode   `json:"mode" validate:"omitempty,oneof=full incremental"`
	Interval   string `json:"interval,omitempty" validate:"required_if=Mode incremental"`
	WipePrefix string `json:"wipe_prefix,omitempty" validate:"omitempty,max=1024"`
}

// Normalize validates r, defaults the mode to full and resolves the interval.
// The interval is only meaningful for incremental requests.
func (r Request) Normalize() (Request, model.Interval, error) {
	if err := validate.Struct(r); err != nil {
		return r, "", fmt.Errorf("invalid request: %w", err)
	}
	if r.Mode == "" {
		r.Mode = ModeFull
	}
	if r.Mode != ModeIncremental {
		return r, "", nil
	}
	iv, err := model.ParseInterval(r.Interval)
	if err != nil {
		return r, "", fmt.Errorf("invalid request: incremental mode: %w", err)
	}
	r.Interval = iv.String()
	return r, iv, nil
}

// Dataset reports what happened to one interval.
type Dataset struct {
	Interval       model.Interval `json:"interval"`
	RecordsWritten int            `json:"records_written"`
	Path           string         `json:"path,omitempty"`
	Description    string         `json:"description"`
	Skipped        bool           `json:"skipped,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// Response is returned for every handled request.
type Response struct {
	Message      string    `json:"message"`
	Mode         Mode      `json:"mode"`
	InvocationID string    `json:"invocation_id"`
	TotalRecords int       `json:"total_records"`
	Wiped        int       `json:"wiped,omitempty"`
	Datasets     []Dataset `json:"datasets"`
	TimeRange    string    `json:"time_range,omitempty"`
}
