package schema

import "strings"

// Element types used by the extractor.
const (
	PostWrapper     = "post_wrapper"
	PostTitle       = "post_title"
	PostDescription = "post_description"
	PostContent     = "post_content"
	PostURL         = "post_url"
	AuthorName      = "author_name"
	AuthorURL       = "author_url"
	AuthorAvatar    = "author_avatar"
	Timestamp       = "timestamp"
	LikeCount       = "like_count"
	CommentCount    = "comment_count"
)

// ElementTypes is the closed set of element types a schema may name.
var ElementTypes = []string{
	// Wrappers
	"post_wrapper", "person_wrapper", "group_wrapper", "comment_wrapper",

	// Post
	"post_title", "post_description", "post_content", "post_url",

	// Person
	"person_name", "person_headline", "person_bio", "person_url", "person_avatar",

	// Group
	"group_name", "group_description", "group_url",

	// Meta
	"author_name", "author_url", "author_avatar", "timestamp",

	// Engagement
	"like_count", "comment_count", "share_count", "view_count",

	// Comments
	"comment_text", "comment_author", "comment_time",

	// Action buttons
	"like_button", "comment_button", "share_button",

	// Interactive
	"search_input", "search_button", "search_form", "next_page_button", "load_more_button",

	// Messaging
	"message_input", "message_send_button", "profile_message_button",
	"message_conversation_wrapper", "message_recipient_name", "message_timestamp",
}

var elementTypeSet = func() map[string]bool {
	m := make(map[string]bool, len(ElementTypes))
	for _, t := range ElementTypes {
		m[t] = true
	}
	return m
}()

// ValidElementType reports whether t is a known element type.
func ValidElementType(t string) bool {
	return elementTypeSet[t]
}

// IsWrapperType reports whether t names a container element.
func IsWrapperType(t string) bool {
	return strings.HasSuffix(t, "_wrapper")
}
