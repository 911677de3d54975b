// Package notify routes transient notification events to users' live
// connections. Delivery is best-effort: events for users without a
// registered connection are dropped.
package notify

import (
	"fmt"
	"regexp"
	"strings"
)

type Kind string

const (
	KindPostUpvoted    Kind = "POST_UPVOTED"
	KindCommentUpvoted Kind = "COMMENT_UPVOTED"
	KindNewComment     Kind = "NEW_COMMENT"
	KindNewSubscriber  Kind = "NEW_SUBSCRIBER"
)

// Event is a single notification addressed to one user. It is never persisted.
type Event struct {
	Recipient string
	Kind      Kind
	Message   string
	ContextID string
}

// contextKey names the payload field that carries ContextID.
func (k Kind) contextKey() string {
	switch k {
	case KindCommentUpvoted:
		return "commentId"
	case KindNewSubscriber:
		return "forumId"
	default:
		return "postId"
	}
}

// Payload renders the key/value bag pushed to the client.
func (e Event) Payload() map[string]string {
	return map[string]string{
		"message":           e.Message,
		e.Kind.contextKey(): e.ContextID,
	}
}

// Notifier accepts events for delivery. The returned flag reports whether the
// event reached a live connection; callers are free to ignore it.
type Notifier interface {
	Deliver(userID string, event Event) bool
}

func PostUpvoted(recipient, voterName, postID string) Event {
	return Event{
		Recipient: recipient,
		Kind:      KindPostUpvoted,
		Message:   fmt.Sprintf("%s upvoted your post", CapitalizeWords(voterName)),
		ContextID: postID,
	}
}

func CommentUpvoted(recipient, voterName, commentID string) Event {
	return Event{
		Recipient: recipient,
		Kind:      KindCommentUpvoted,
		Message:   fmt.Sprintf("%s upvoted your comment", CapitalizeWords(voterName)),
		ContextID: commentID,
	}
}

// NewComment announces a comment on the recipient's post, or a reply to
// their comment when reply is set.
func NewComment(recipient, authorName, postID string, reply bool) Event {
	what := "commented on your post"
	if reply {
		what = "replied to your comment"
	}
	return Event{
		Recipient: recipient,
		Kind:      KindNewComment,
		Message:   fmt.Sprintf("%s %s", CapitalizeWords(authorName), what),
		ContextID: postID,
	}
}

func NewSubscriber(recipient, subscriberName, forumName, forumID string) Event {
	return Event{
		Recipient: recipient,
		Kind:      KindNewSubscriber,
		Message:   fmt.Sprintf("%s subscribed to your forum %s", CapitalizeWords(subscriberName), forumName),
		ContextID: forumID,
	}
}

var (
	wordPattern  = regexp.MustCompile(`\w+`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// CapitalizeWords upper-cases the first letter of every word, lower-cases the
// rest and drops whitespace: "john DOE" becomes "JohnDoe".
func CapitalizeWords(s string) string {
	s = wordPattern.ReplaceAllStringFunc(s, func(w string) string {
		return strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	})
	return spacePattern.ReplaceAllString(s, "")
}
