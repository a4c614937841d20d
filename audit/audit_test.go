package audit

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntry_WithDetails(t *testing.T) {
	e := Entry{CaseID: "c1"}.WithDetails(map[string]interface{}{"files": 2})

	var got map[string]int
	require.NoError(t, json.Unmarshal(e.Details, &got))
	assert.Equal(t, 2, got["files"])

	assert.Nil(t, Entry{}.WithDetails(nil).Details)
	assert.Equal(t, "case_audit", Entry{}.TableName())
}

func TestMemory_Trail(t *testing.T) {
	m := &Memory{}
	ctx := context.Background()
	require.NoError(t, m.Record(ctx, Entry{CaseID: "a", Action: "advance", Outcome: OutcomeAllowed}))
	require.NoError(t, m.Record(ctx, Entry{CaseID: "b", Action: "deliver", Outcome: OutcomeDenied}))
	require.NoError(t, m.Record(ctx, Entry{CaseID: "a", Action: "complete", Outcome: OutcomeAllowed}))

	trail, err := m.Trail(ctx, "a")
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, "advance", trail[0].Action)
	assert.Equal(t, "complete", trail[1].Action)
	assert.Len(t, m.Entries(), 3)
}
