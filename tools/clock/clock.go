// Package clock provides the get_current_time native tool.
package clock

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agentic/pkg/llmutils"
	"github.com/effective-security/agentic/schema"
	"github.com/effective-security/agentic/tools"
)

const ToolName = "get_current_time"

// TimeRequest represents the tool input.
type TimeRequest struct {
	Timezone string `json:"timezone,omitempty" jsonschema:"title=timezone,description=IANA timezone name; defaults to the server local time."`
}

// TimeResult represents the tool output.
type TimeResult struct {
	Result    string `json:"result"`
	Timestamp string `json:"timestamp"`
}

// Tool reports the current date and time.
type Tool struct {
	funcParams any
	// now is swappable for deterministic tests
	now func() time.Time
}

var _ tools.Tool[TimeRequest, TimeResult] = (*Tool)(nil)

func New() *Tool {
	return &Tool{
		funcParams: schema.Of(TimeRequest{}),
		now:        time.Now,
	}
}

func (t *Tool) Name() string {
	return ToolName
}

func (t *Tool) Description() string {
	return "Get the current date and time."
}

func (t *Tool) Parameters() any {
	return t.funcParams
}

func (t *Tool) Run(ctx context.Context, req *TimeRequest) (*TimeResult, error) {
	now := t.now()
	if req.Timezone != "" {
		loc, err := time.LoadLocation(req.Timezone)
		if err != nil {
			return nil, errors.Newf("invalid request: unknown timezone %q", req.Timezone)
		}
		now = now.In(loc)
	}
	return &TimeResult{
		Result:    fmt.Sprintf("Current time: %s", now.Format("2006-01-02 15:04:05")),
		Timestamp: now.Format(time.RFC3339),
	}, nil
}

func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	var req TimeRequest
	if input != "" {
		if err := json.Unmarshal([]byte(input), &req); err != nil {
			return "", errors.WithMessage(tools.ErrFailedUnmarshalInput, err.Error())
		}
	}
	res, err := t.Run(ctx, &req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}
