// Package dice provides the roll_dice native tool.
package dice

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

const ToolName = "roll_dice"

// RollRequest represents the tool input.
type RollRequest struct {
	Sides int `json:"sides,omitempty" jsonschema:"title=sides,description=Number of sides on the dice (default: 6)"`
}

// RollResult represents the tool output.
type RollResult struct {
	Result string `json:"result"`
	Rolled int    `json:"rolled"`
	Sides  int    `json:"sides"`
}

// Tool rolls a dice with a configurable number of sides.
type Tool struct {
	funcParams any
	// roll is swappable for deterministic tests
	roll func(sides int) int
}

var _ tools.Tool[RollRequest, RollResult] = (*Tool)(nil)

func New() *Tool {
	return &Tool{
		funcParams: schema.Of(RollRequest{}),
		roll: func(sides int) int {
			return rand.IntN(sides) + 1
		},
	}
}

func (t *Tool) Name() string {
	return ToolName
}

func (t *Tool) Description() string {
	return "Roll a dice with the specified number of sides."
}

func (t *Tool) Parameters() any {
	return t.funcParams
}

func (t *Tool) Run(ctx context.Context, req *RollRequest) (*RollResult, error) {
	sides := req.Sides
	if sides == 0 {
		sides = 6
	}
	if sides < 2 {
		return nil, errors.Newf("invalid request: dice must have at least 2 sides, got %d", sides)
	}
	rolled := t.roll(sides)
	return &RollResult{
		Result: fmt.Sprintf("You rolled a %d (out of %d)", rolled, sides),
		Rolled: rolled,
		Sides:  sides,
	}, nil
}

func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	var req RollRequest
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
