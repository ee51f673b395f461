package authflow_test

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agentic/authflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Store_BeginClaim(t *testing.T) {
	s := authflow.NewStore()

	token := s.Begin(authflow.Flow{
		ChatID:    "chat_1",
		ToolName:  "account_action",
		Arguments: `{"action":"close"}`,
	})
	require.NotEmpty(t, token)
	assert.Equal(t, 1, s.Pending())

	other := s.Begin(authflow.Flow{ChatID: "chat_2", ToolName: "account_action"})
	assert.NotEqual(t, token, other)
	assert.Equal(t, 2, s.Pending())

	flow, err := s.Claim(token)
	require.NoError(t, err)
	assert.Equal(t, "chat_1", flow.ChatID)
	assert.Equal(t, "account_action", flow.ToolName)
	assert.False(t, flow.CreatedAt.IsZero())

	// a token is claimable at most once
	_, err = s.Claim(token)
	assert.True(t, errors.Is(err, authflow.ErrFlowNotFound))
	assert.Equal(t, 1, s.Pending())
}

func Test_Store_Expiry(t *testing.T) {
	s := authflow.NewStore().WithTTL(10 * time.Millisecond)

	token := s.Begin(authflow.Flow{ChatID: "chat_1"})
	time.Sleep(25 * time.Millisecond)

	_, err := s.Claim(token)
	assert.True(t, errors.Is(err, authflow.ErrFlowNotFound))
	assert.Equal(t, 0, s.Pending())
}

func Test_Store_UnknownToken(t *testing.T) {
	s := authflow.NewStore()
	_, err := s.Claim("no-such-token")
	assert.True(t, errors.Is(err, authflow.ErrFlowNotFound))
}
