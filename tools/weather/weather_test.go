package weather_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agentic/tools"
	"github.com/effective-security/agentic/tools/weather"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Tool(t *testing.T) {
	ctx := context.Background()
	tool := weather.New().WithReporter(func(_ context.Context, location string) (*weather.WeatherResult, error) {
		return &weather.WeatherResult{
			Result:      "Weather in " + location + ": Sunny, 21°C",
			Location:    location,
			Temperature: 21,
			Condition:   "Sunny",
		}, nil
	})

	assert.Equal(t, weather.ToolName, tool.Name())
	assert.NotEmpty(t, tool.Description())
	assert.NotNil(t, tool.Parameters())

	out, err := tool.Call(ctx, `{"location": "London"}`)
	require.NoError(t, err)
	var parsed weather.WeatherResult
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	assert.Equal(t, "London", parsed.Location)
	assert.Equal(t, 21, parsed.Temperature)

	_, err = tool.Run(ctx, &weather.WeatherRequest{})
	assert.EqualError(t, err, "invalid request: empty location")

	_, err = tool.Call(ctx, `not json`)
	assert.True(t, errors.Is(err, tools.ErrFailedUnmarshalInput))
}

func Test_SyntheticReport(t *testing.T) {
	res, err := weather.New().Run(context.Background(), &weather.WeatherRequest{Location: "Paris"})
	require.NoError(t, err)
	assert.Equal(t, "Paris", res.Location)
	assert.NotEmpty(t, res.Condition)
	assert.Contains(t, res.Result, "Weather in Paris")
}
