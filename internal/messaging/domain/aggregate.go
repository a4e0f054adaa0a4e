package domain

import "sort"

// NameResolver returns the display name for partnerID.
// fallback is the denormalized name carried by the latest message.
type NameResolver func(partnerID, fallback string) string

// PartnerIDs returns every distinct partner of userID in log order
func PartnerIDs(userID string, messages []Message) []string {
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for i := range messages {
		partnerID, ok := messages[i].PartnerOf(userID)
		if !ok {
			continue
		}
		if _, dup := seen[partnerID]; dup {
			continue
		}
		seen[partnerID] = struct{}{}
		ids = append(ids, partnerID)
	}
	return ids
}

// BuildInbox groups the log by partner of currentUserID.
// Invalid and unrelated messages are skipped, never reported.
// resolve is called once per distinct partner; nil means "use the denormalized name".
func BuildInbox(currentUserID string, messages []Message, resolve NameResolver) Inbox {
	inbox := make(Inbox)
	if currentUserID == "" {
		return inbox
	}

	for i := range messages {
		msg := &messages[i]
		partnerID, ok := msg.PartnerOf(currentUserID)
		if !ok {
			continue
		}

		summary, exists := inbox[partnerID]
		if !exists {
			summary = ConversationSummary{PartnerID: partnerID, LatestMessage: *msg}
		} else if msg.NewerThan(&summary.LatestMessage) {
			summary.LatestMessage = *msg
		}
		if msg.UnreadFor(currentUserID) {
			summary.UnreadCount++
		}
		inbox[partnerID] = summary
	}

	for partnerID, summary := range inbox {
		fallback := summary.LatestMessage.NameOf(partnerID)
		name := fallback
		if resolve != nil {
			name = resolve(partnerID, fallback)
		}
		if name == "" {
			name = partnerID
		}
		summary.PartnerDisplayName = name
		inbox[partnerID] = summary
	}
	return inbox
}

// SelectTranscript 取出 currentUserID 與 partnerID 之間的所有訊息 (雙向), 依 created_at 升序
func SelectTranscript(currentUserID, partnerID string, messages []Message) []Message {
	transcript := make([]Message, 0)
	if currentUserID == "" || partnerID == "" {
		return transcript
	}
	for i := range messages {
		if messages[i].Between(currentUserID, partnerID) {
			transcript = append(transcript, messages[i])
		}
	}
	// the log is already ascending; stable sort keeps input order on equal timestamps
	sort.SliceStable(transcript, func(i, j int) bool {
		return transcript[j].NewerThan(&transcript[i])
	})
	return transcript
}

// PendingReads messages in transcript that currentUserID received and has not read
func PendingReads(transcript []Message, currentUserID string) []Message {
	pending := make([]Message, 0)
	for i := range transcript {
		if transcript[i].UnreadFor(currentUserID) {
			pending = append(pending, transcript[i])
		}
	}
	return pending
}

// Compute runs one full aggregation pass over a single snapshot
func Compute(currentUserID, partnerID string, snap Snapshot, resolve NameResolver) View {
	return View{
		Seq:        snap.Seq,
		PartnerID:  partnerID,
		Inbox:      BuildInbox(currentUserID, snap.Messages, resolve),
		Transcript: SelectTranscript(currentUserID, partnerID, snap.Messages),
	}
}
