// Package weather provides the get_weather native tool.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agentic/pkg/llmutils"
	"github.com/effective-security/agentic/schema"
	"github.com/effective-security/agentic/tools"
)

const ToolName = "get_weather"

var conditions = []string{"Sunny", "Cloudy", "Rainy", "Partly Cloudy"}

// WeatherRequest represents the tool input.
type WeatherRequest struct {
	Location string `json:"location" jsonschema:"title=location,description=City name or location."`
}

// WeatherResult represents the tool output.
type WeatherResult struct {
	Result      string `json:"result"`
	Location    string `json:"location"`
	Temperature int    `json:"temperature"`
	Condition   string `json:"condition"`
}

// Tool reports weather for a location. The report function is pluggable; the
// default produces synthetic data and is intended to be replaced by a real
// provider client at wiring time.
type Tool struct {
	funcParams any
	report     func(ctx context.Context, location string) (*WeatherResult, error)
}

var _ tools.Tool[WeatherRequest, WeatherResult] = (*Tool)(nil)

func New() *Tool {
	return &Tool{
		funcParams: schema.Of(WeatherRequest{}),
		report:     syntheticReport,
	}
}

// WithReporter replaces the report function.
func (t *Tool) WithReporter(report func(ctx context.Context, location string) (*WeatherResult, error)) *Tool {
	t.report = report
	return t
}

func syntheticReport(_ context.Context, location string) (*WeatherResult, error) {
	temp := rand.IntN(16) + 15
	condition := conditions[rand.IntN(len(conditions))]
	return &WeatherResult{
		Result:      fmt.Sprintf("Weather in %s: %s, %d°C", location, condition, temp),
		Location:    location,
		Temperature: temp,
		Condition:   condition,
	}, nil
}

func (t *Tool) Name() string {
	return ToolName
}

func (t *Tool) Description() string {
	return "Get current weather information for a location."
}

func (t *Tool) Parameters() any {
	return t.funcParams
}

func (t *Tool) Run(ctx context.Context, req *WeatherRequest) (*WeatherResult, error) {
	if req.Location == "" {
		return nil, errors.New("invalid request: empty location")
	}
	return t.report(ctx, req.Location)
}

func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	var req WeatherRequest
	if err := json.Unmarshal([]byte(input), &req); err != nil {
		return "", errors.WithMessage(tools.ErrFailedUnmarshalInput, err.Error())
	}
	res, err := t.Run(ctx, &req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}
