package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCapitalizeWords(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"alice", "Alice"},
		{"ALICE", "Alice"},
		{"john doe", "JohnDoe"},
		{"  mary   JANE  ", "MaryJane"},
		{"snake_case_name", "Snake_case_name"},
		{"user42", "User42"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CapitalizeWords(tt.in))
		})
	}
}

func TestEventPayload(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  map[string]string
	}{
		{
			name:  "post upvoted",
			event: PostUpvoted("u2", "alice", "p1"),
			want:  map[string]string{"message": "Alice upvoted your post", "postId": "p1"},
		},
		{
			name:  "comment upvoted",
			event: CommentUpvoted("u2", "bob smith", "c1"),
			want:  map[string]string{"message": "BobSmith upvoted your comment", "commentId": "c1"},
		},
		{
			name:  "new comment",
			event: NewComment("u2", "carol", "p1", false),
			want:  map[string]string{"message": "Carol commented on your post", "postId": "p1"},
		},
		{
			name:  "reply",
			event: NewComment("u2", "carol", "p1", true),
			want:  map[string]string{"message": "Carol replied to your comment", "postId": "p1"},
		},
		{
			name:  "new subscriber",
			event: NewSubscriber("u2", "dave", "golang", "f1"),
			want:  map[string]string{"message": "Dave subscribed to your forum golang", "forumId": "f1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, "u2", tt.event.Recipient)
			assert.Equal(t, tt.want, tt.event.Payload())
		})
	}
}
