package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordTurn_Window(t *testing.T) {
	sc := NewSessionContext("s1", time.Now())
	assert.False(t, sc.AppliedTurn(""))

	for i := 0; i < RecentTurnWindow+5; i++ {
		sc.RecordTurn(fmt.Sprintf("t-%d", i))
	}

	assert.Len(t, sc.RecentTurnIDs, RecentTurnWindow)
	assert.Equal(t, fmt.Sprintf("t-%d", RecentTurnWindow+4), sc.LastTurnID)
	assert.True(t, sc.AppliedTurn("t-5"))
	assert.True(t, sc.AppliedTurn(sc.LastTurnID))
	assert.False(t, sc.AppliedTurn("t-4"), "turns older than the window are forgotten")
	assert.False(t, sc.AppliedTurn("t-unknown"))

	clone := sc.Clone()
	clone.RecordTurn("t-next")
	assert.NotContains(t, sc.RecentTurnIDs, "t-next")
}
