package domain

import "github.com/samber/lo"

// VisibleTo decides whether viewer may read message.
// Public messages are visible to any authenticated viewer. A private
// message is visible to its recipient and to its author. A private message
// without a usable recipient token is visible to its author only.
func VisibleTo(viewer string, message Message) bool {
	if viewer == "" {
		return false
	}
	recipient, private := message.Recipient()
	if !private {
		return true
	}
	if viewer == message.Author {
		return true
	}
	return recipient != "" && viewer == recipient
}

// FilterVisible keeps the messages viewer may read, preserving order.
func FilterVisible(viewer string, messages []Message) []Message {
	return lo.Filter(messages, func(m Message, _ int) bool {
		return VisibleTo(viewer, m)
	})
}
