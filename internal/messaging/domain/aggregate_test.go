package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(sec int64) *time.Time {
	t := time.Unix(sec, 0).UTC()
	return &t
}

func textMsg(id, from, to, text string, read bool, sec int64) Message {
	return Message{ID: id, SenderID: from, ReceiverID: to, Kind: MessageKindText, Text: text, Read: read, CreatedAt: at(sec)}
}

// 兩則訊息 A<->B 的基本情境
func TestBuildInbox_TwoPartyScenario(t *testing.T) {
	log := []Message{
		textMsg("m1", "A", "B", "hi", false, 1),
		textMsg("m2", "B", "A", "yo", false, 2),
	}

	inbox := BuildInbox("A", log, nil)
	require.Len(t, inbox, 1)
	b := inbox["B"]
	assert.Equal(t, "m2", b.LatestMessage.ID)
	assert.Equal(t, "yo", b.LatestMessage.Text)
	assert.Equal(t, 1, b.UnreadCount)

	transcript := SelectTranscript("A", "B", log)
	require.Len(t, transcript, 2)
	assert.Equal(t, "m1", transcript[0].ID)
	assert.Equal(t, "m2", transcript[1].ID)

	// receiver side read flag flipped by the store
	log[1].Read = true
	assert.Equal(t, 0, BuildInbox("A", log, nil)["B"].UnreadCount)
}

func TestBuildInbox_SkipsInvalidAndUnrelated(t *testing.T) {
	log := []Message{
		{ID: "no-sender", ReceiverID: "A", Text: "x", CreatedAt: at(1)},
		{ID: "no-receiver", SenderID: "A", Text: "x", CreatedAt: at(2)},
		{ID: "empty", CreatedAt: at(3)},
		textMsg("other", "C", "D", "not mine", false, 4),
		textMsg("ok", "C", "A", "mine", false, 5),
	}

	inbox := BuildInbox("A", log, nil)
	require.Len(t, inbox, 1)
	assert.Equal(t, "ok", inbox["C"].LatestMessage.ID)
	assert.Equal(t, 1, inbox["C"].UnreadCount)

	for _, partner := range []string{"", "C", "D"} {
		for _, m := range SelectTranscript("A", partner, log) {
			assert.NotContains(t, []string{"no-sender", "no-receiver", "empty", "other"}, m.ID)
		}
	}
}

func TestBuildInbox_OneSummaryPerPartner(t *testing.T) {
	log := []Message{
		textMsg("1", "A", "B", "a", false, 1),
		textMsg("2", "C", "A", "b", false, 2),
		textMsg("3", "B", "A", "c", true, 3),
		textMsg("4", "A", "C", "d", false, 4),
		textMsg("5", "B", "C", "leak?", false, 5),
		textMsg("6", "B", "A", "e", false, 6),
	}

	inbox := BuildInbox("A", log, nil)
	assert.Len(t, inbox, 2)
	assert.ElementsMatch(t, []string{"B", "C"}, PartnerIDs("A", log))

	tB := SelectTranscript("A", "B", log)
	ids := make([]string, 0, len(tB))
	for _, m := range tB {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"1", "3", "6"}, ids)
	assert.Equal(t, 1, inbox["B"].UnreadCount)
	assert.Equal(t, "6", inbox["B"].LatestMessage.ID)

	// messages A sent never count as unread for A
	assert.Equal(t, 1, inbox["C"].UnreadCount)
	assert.Equal(t, "4", inbox["C"].LatestMessage.ID)
}

func TestBuildInbox_TieKeepsFirstEncountered(t *testing.T) {
	log := []Message{
		textMsg("first", "B", "A", "one", false, 10),
		textMsg("second", "A", "B", "two", false, 10),
	}
	for i := 0; i < 20; i++ {
		assert.Equal(t, "first", BuildInbox("A", log, nil)["B"].LatestMessage.ID)
	}
}

func TestBuildInbox_PendingTimestampIsNewest(t *testing.T) {
	log := []Message{
		textMsg("old", "B", "A", "one", true, 10),
		{ID: "pending", SenderID: "A", ReceiverID: "B", Kind: MessageKindText, Text: "sending"},
		textMsg("late", "B", "A", "arrived after", false, 20),
	}
	inbox := BuildInbox("A", log, nil)
	assert.Equal(t, "pending", inbox["B"].LatestMessage.ID)

	transcript := SelectTranscript("A", "B", log)
	require.Len(t, transcript, 3)
	assert.Equal(t, "pending", transcript[2].ID)
}

func TestBuildInbox_NameResolution(t *testing.T) {
	log := []Message{
		{ID: "1", SenderID: "B", ReceiverID: "A", SenderName: "Old Bee", ReceiverName: "Ay", CreatedAt: at(1)},
		{ID: "2", SenderID: "A", ReceiverID: "B", SenderName: "Ay", ReceiverName: "Bee Snapshot", CreatedAt: at(2)},
		{ID: "3", SenderID: "C", ReceiverID: "A", CreatedAt: at(3)},
	}

	calls := map[string]int{}
	resolve := func(partnerID, fallback string) string {
		calls[partnerID]++
		if partnerID == "B" {
			return fallback
		}
		return ""
	}

	inbox := BuildInbox("A", log, resolve)
	assert.Equal(t, "Bee Snapshot", inbox["B"].PartnerDisplayName)
	assert.Equal(t, "C", inbox["C"].PartnerDisplayName)
	assert.Equal(t, map[string]int{"B": 1, "C": 1}, calls)

	live := BuildInbox("A", log, func(partnerID, fallback string) string { return "Live " + partnerID })
	assert.Equal(t, "Live B", live["B"].PartnerDisplayName)
}

func TestPendingReads(t *testing.T) {
	transcript := []Message{
		textMsg("1", "A", "B", "mine", false, 1),
		textMsg("2", "B", "A", "read", true, 2),
		textMsg("3", "B", "A", "unread", false, 3),
	}
	pending := PendingReads(transcript, "A")
	require.Len(t, pending, 1)
	assert.Equal(t, "3", pending[0].ID)
}

func TestInbox_Sorted(t *testing.T) {
	log := []Message{
		textMsg("1", "B", "A", "b", false, 1),
		textMsg("2", "C", "A", "c", false, 3),
		textMsg("3", "D", "A", "d", false, 2),
	}
	sorted := BuildInbox("A", log, nil).Sorted()
	require.Len(t, sorted, 3)
	assert.Equal(t, []string{"C", "D", "B"}, []string{sorted[0].PartnerID, sorted[1].PartnerID, sorted[2].PartnerID})
	assert.Equal(t, 3, BuildInbox("A", log, nil).TotalUnread())
}

func TestSendPayload_Validate(t *testing.T) {
	assert.ErrorIs(t, SendPayload{Text: "   "}.Validate(), ErrEmptySendRequest)
	assert.ErrorIs(t, SendPayload{}.Validate(), ErrEmptySendRequest)
	assert.ErrorIs(t, SendPayload{Text: "hi", AudioURL: "http://a"}.Validate(), ErrAmbiguousPayload)
	assert.NoError(t, SendPayload{Text: "hi"}.Validate())
	assert.NoError(t, SendPayload{AudioURL: "http://a"}.Validate())
	assert.Equal(t, MessageKindAudio, SendPayload{AudioURL: "http://a"}.Kind())
	assert.Equal(t, MessageKindText, SendPayload{Text: "hi"}.Kind())
}

func TestConversationKey(t *testing.T) {
	assert.Equal(t, "a_b", ConversationKey("b", "a"))
	assert.Equal(t, ConversationKey("x", "y"), ConversationKey("y", "x"))
}

func TestMessage_Preview(t *testing.T) {
	audio := Message{Kind: MessageKindAudio, AudioURL: "http://x"}
	assert.Equal(t, "[Voice message]", audio.Preview())
	text := Message{Kind: MessageKindText, Text: "hello"}
	assert.Equal(t, "hello", text.Preview())
}
