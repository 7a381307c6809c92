package quest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifequest/lifequest-core/internal/domain/shared"
)

var testNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func TestQuest_Lifecycle(t *testing.T) {
	q, err := NewQuest("user-1", TypeDaily, "Morning run", "5km", 20, testNow)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, q.Status)

	require.NoError(t, q.Complete(testNow))
	assert.Equal(t, StatusCompleted, q.Status)
	require.NotNil(t, q.CompletedAt)
	assert.Equal(t, testNow, *q.CompletedAt)

	err = q.Complete(testNow)
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	err = q.Fail(testNow)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
	assert.Equal(t, StatusCompleted, q.Status)
}

func TestQuest_Fail(t *testing.T) {
	q, err := NewQuest("user-1", TypeUrgent, "Pay bills", "", 0, testNow)
	require.NoError(t, err)

	require.NoError(t, q.Fail(testNow))
	assert.Equal(t, StatusFailed, q.Status)
	assert.True(t, q.Status.IsTerminal())
	assert.Nil(t, q.CompletedAt)
	assert.ErrorIs(t, q.Complete(testNow), shared.ErrInvalidState)
}

func TestNewQuest_Validation(t *testing.T) {
	_, err := NewQuest("user-1", TypeMain, "  ", "", 10, testNow)
	assert.ErrorIs(t, err, shared.ErrEmptyValue)

	_, err = NewQuest("user-1", TypeMain, "Title", "", -1, testNow)
	assert.ErrorIs(t, err, shared.ErrNegativeValue)

	_, err = NewQuest("", TypeMain, "Title", "", 1, testNow)
	assert.ErrorIs(t, err, shared.ErrInvalidID)
}

func TestParseType(t *testing.T) {
	assert.Equal(t, TypeDaily, ParseType("daily"))
	assert.Equal(t, TypeMain, ParseType(" MAIN "))
	assert.Equal(t, TypeChallenge, ParseType("EPIC"))
	assert.Equal(t, TypeChallenge, ParseType(""))
}

func TestExtractQuestBlock(t *testing.T) {
	text := "Intro line.\n[QUEST_DATA_START]\nType: DAILY\n[QUEST_DATA_END]\nGood luck!"

	block, ok := ExtractQuestBlock(text)
	require.True(t, ok)
	assert.Equal(t, "Intro line.", block.Before)
	assert.Equal(t, "Good luck!", block.After)
	assert.Contains(t, block.Payload, "Type: DAILY")

	_, ok = ExtractQuestBlock("[QUEST_DATA_END] oops [QUEST_DATA_START]")
	assert.False(t, ok)

	_, ok = ExtractQuestBlock("plain answer")
	assert.False(t, ok)
}

func TestParsePayload(t *testing.T) {
	payload := `
Type: challenge
Title: Speed of Thought
Description: Solve 5 logic puzzles in 30 minutes.
Reward Points: 150
Reward Other: no
Penalty Info: -10 points
Mood: great
not a field
`
	d, err := ParsePayload(payload)
	require.NoError(t, err)

	assert.Equal(t, TypeChallenge, d.Type)
	assert.Equal(t, "Speed of Thought", d.Title)
	assert.Equal(t, "Solve 5 logic puzzles in 30 minutes.", d.Description)
	assert.Equal(t, int64(150), d.RewardPoints)
	assert.Empty(t, d.RewardOther)
	assert.Equal(t, "-10 points", d.PenaltyInfo)

	q, err := NewQuestFromDraft("user-1", d, testNow)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, q.Status)
	assert.Equal(t, "-10 points", q.PenaltyInfo)
}

func TestParsePayload_Errors(t *testing.T) {
	_, err := ParsePayload("Type: DAILY\nTitle: x\nDescription: y")
	assert.ErrorIs(t, err, shared.ErrInvalidFormat)

	_, err = ParsePayload("Type: DAILY\nTitle: x\nDescription: y\nReward Points: many")
	assert.ErrorIs(t, err, shared.ErrInvalidFormat)

	_, err = ParsePayload("Type: DAILY\nTitle: x\nDescription: y\nReward Points: -5")
	assert.ErrorIs(t, err, shared.ErrNegativeValue)

	_, err = ParsePayload("Type: DAILY\nTitle:\nDescription: y\nReward Points: 5")
	assert.ErrorIs(t, err, shared.ErrEmptyValue)
}
