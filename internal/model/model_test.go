package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArcState(t *testing.T) {
	for _, s := range ArcStates() {
		got, ok := ParseArcState(string(s))
		require.True(t, ok, s)
		assert.Equal(t, s, got)
		assert.True(t, s.Valid())
	}

	_, ok := ParseArcState("Running")
	assert.False(t, ok)
	_, ok = ParseArcState("{state}")
	assert.False(t, ok)
	assert.False(t, ArcState("").Valid())
}

func TestArcState_Segment(t *testing.T) {
	assert.Equal(t, "running.arc", ArcRunning.Segment().Path())
	assert.Equal(t, "missing.arc", ArcMissing.Segment().Path())
	assert.True(t, ArcState("bogus").Segment().IsNull())
}

func TestArcState_IsTerminal(t *testing.T) {
	assert.False(t, ArcRunning.IsTerminal())
	assert.True(t, ArcComplete.IsTerminal())
	assert.True(t, ArcPartial.IsTerminal())
	assert.True(t, ArcMissing.IsTerminal())
}

func TestManifestState(t *testing.T) {
	for _, s := range ManifestStates() {
		got, ok := ParseManifestState(string(s))
		require.True(t, ok, s)
		assert.Equal(t, s, got)
		assert.Equal(t, string(s), s.Segment().Path())
	}

	assert.True(t, ManifestPartial.SupportsAttempts())
	assert.True(t, ManifestRemoved.SupportsAttempts())
	assert.False(t, ManifestComplete.SupportsAttempts())
	assert.False(t, ManifestEmpty.SupportsAttempts())
	assert.False(t, ManifestState("").Valid())
}

func TestPlacement_StoreName(t *testing.T) {
	p := Placement{Provider: "aws", Stage: "dev", Account: "123456789012", Region: "us-east-1"}
	assert.Equal(t, "dev-arclot-arc-state-123456789012-us-east-1", p.StoreName("ArcState"))

	p.Stage = ""
	assert.Equal(t, "arclot-manifest-123456789012-us-east-1", p.StoreName("manifest"))
}

func TestDatasetRoles(t *testing.T) {
	d := Dataset{Name: "events", Version: "20230101"}

	src := NewSourceDataset(d)
	assert.True(t, src.Subscribe)
	assert.False(t, src.Publish)

	sink := NewSinkDataset(d)
	assert.True(t, sink.Publish)
	assert.Equal(t, "events@20230101", sink.String())
}

func TestArcExecContext_JSON(t *testing.T) {
	ctx := ArcExecContext{
		CurrentState: ArcRunning,
		Role:         "main",
		ArcNotifyEvent: ArcNotifyEvent{
			LotID:   "20230101T0000",
			Dataset: Dataset{Name: "events", Version: "1"},
		},
		SinkManifestURIs: map[string]string{"main": "bucket/datasets/name=out/version=1/lot=20230101T0000/"},
	}

	data, err := json.Marshal(ctx)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "previousState")
	assert.Contains(t, string(data), `"currentState":"running"`)

	var back ArcExecContext
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, ctx, back)
}

func TestArcStateContext_LotID(t *testing.T) {
	c := ArcStateContext{ArcNotifyEvent: ArcNotifyEvent{LotID: "20230101T0100"}}
	assert.Equal(t, "20230101T0100", c.LotID())
}
