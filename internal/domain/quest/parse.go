package quest

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lifequest/lifequest-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXTERNAL PAYLOAD PARSING
// A quest generator answers in free text that may embed one structured block:
//
//	[QUEST_DATA_START]
//	Type: CHALLENGE
//	Title: ...
//	Description: ...
//	Reward Points: 150
//	Reward Other: no
//	Penalty Info: no
//	[QUEST_DATA_END]
// ══════════════════════════════════════════════════════════════════════════════

const (
	BlockStartTag = "[QUEST_DATA_START]"
	BlockEndTag   = "[QUEST_DATA_END]"
)

const (
	keyType         = "type"
	keyTitle        = "title"
	keyDescription  = "description"
	keyRewardPoints = "reward points"
	keyRewardOther  = "reward other"
	keyPenaltyInfo  = "penalty info"
)

var requiredKeys = []string{keyType, keyTitle, keyDescription, keyRewardPoints}

// Block is a located quest payload and the text around it.
type Block struct {
	Payload string
	Before  string
	After   string
}

// ExtractQuestBlock finds the first payload block inside a free-form response.
// It returns false when the tags are missing or out of order.
func ExtractQuestBlock(text string) (Block, bool) {
	start := strings.Index(text, BlockStartTag)
	end := strings.Index(text, BlockEndTag)
	if start == -1 || end == -1 || start >= end {
		return Block{}, false
	}
	return Block{
		Payload: text[start+len(BlockStartTag) : end],
		Before:  strings.TrimSpace(text[:start]),
		After:   strings.TrimSpace(text[end+len(BlockEndTag):]),
	}, true
}

// Draft holds the parsed fields of a payload before it becomes a Quest.
type Draft struct {
	Type         Type
	Title        string
	Description  string
	RewardPoints int64
	RewardOther  string
	PenaltyInfo  string
}

// ParsePayload parses "key: value" lines. Unknown keys and lines without a colon
// are ignored; a repeated key keeps its last value.
func ParsePayload(payload string) (Draft, error) {
	fields := make(map[string]string, 6)

	scanner := bufio.NewScanner(strings.NewReader(strings.TrimSpace(payload)))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		switch key {
		case keyType, keyTitle, keyDescription, keyRewardPoints, keyRewardOther, keyPenaltyInfo:
			fields[key] = strings.TrimSpace(value)
		}
	}
	if err := scanner.Err(); err != nil {
		return Draft{}, shared.WrapError("quest", "Parse", shared.ErrInvalidFormat, "read payload", err)
	}

	for _, k := range requiredKeys {
		if _, ok := fields[k]; !ok {
			return Draft{}, shared.NewDomainError("quest", "Parse", shared.ErrInvalidFormat,
				fmt.Sprintf("missing required field %q", k))
		}
	}

	reward, err := strconv.ParseInt(fields[keyRewardPoints], 10, 64)
	if err != nil {
		return Draft{}, shared.WrapError("quest", "Parse", shared.ErrInvalidFormat,
			fmt.Sprintf("reward points %q is not an integer", fields[keyRewardPoints]), err)
	}
	if reward < 0 {
		return Draft{}, shared.ErrInvalidQuestReward
	}

	title := fields[keyTitle]
	if title == "" {
		return Draft{}, shared.ErrEmptyQuestTitle
	}

	return Draft{
		Type:         ParseType(fields[keyType]),
		Title:        title,
		Description:  fields[keyDescription],
		RewardPoints: reward,
		RewardOther:  optional(fields[keyRewardOther]),
		PenaltyInfo:  optional(fields[keyPenaltyInfo]),
	}, nil
}

// optional treats "no" (and its Russian form) as an absent value.
func optional(v string) string {
	switch strings.ToLower(v) {
	case "no", "none", "нет":
		return ""
	default:
		return v
	}
}

// NewQuestFromDraft builds an ACTIVE quest from a parsed payload.
func NewQuestFromDraft(ownerID string, d Draft, now time.Time) (*Quest, error) {
	q, err := NewQuest(ownerID, d.Type, d.Title, d.Description, d.RewardPoints, now)
	if err != nil {
		return nil, err
	}
	q.RewardOther = d.RewardOther
	q.PenaltyInfo = d.PenaltyInfo
	return q, nil
}
