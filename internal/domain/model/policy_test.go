package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPolicy_Caps(t *testing.T) {
	unbounded := Policy{MaxProcessed: -1, MaxActed: 0}
	assert.False(t, unbounded.ProcessedCapReached(1_000_000))
	assert.False(t, unbounded.ActedCapReached(1_000_000))

	capped := Policy{MaxProcessed: 3, MaxActed: 1}
	assert.False(t, capped.ProcessedCapReached(2))
	assert.True(t, capped.ProcessedCapReached(3))
	assert.False(t, capped.ActedCapReached(0))
	assert.True(t, capped.ActedCapReached(1))
}

func TestNewPolicy_CopiesLabels(t *testing.T) {
	labels := []string{"Duplicate"}
	p := NewPolicy(Policy{CloseLabels: labels})

	labels[0] = "Bug"

	assert.True(t, p.AllowsLabel("Duplicate"))
	assert.False(t, p.AllowsLabel("Bug"))
}

func TestItem_UpdatedSince(t *testing.T) {
	cutoff := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.False(t, Item{}.UpdatedSince(cutoff), "missing timestamp is never recent")
	assert.False(t, Item{UpdatedAt: cutoff}.UpdatedSince(cutoff))
	assert.True(t, Item{UpdatedAt: cutoff.Add(time.Second)}.UpdatedSince(cutoff))
}

func TestCursor(t *testing.T) {
	q := ListQuery{Kind: ItemKindIssue, State: ItemStateClosed, Page: 4}

	c := NewCursor(q, 5)
	assert.True(t, c.HasNext())
	assert.Equal(t, 5, c.NextQuery().Page)
	assert.Equal(t, ItemStateClosed, c.NextQuery().State)

	assert.False(t, NewCursor(q, 0).HasNext())
}
