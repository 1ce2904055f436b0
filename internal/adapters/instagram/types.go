package instagram

// Account is the business account's own identity as returned by /me.
type Account struct {
	ID                string `json:"id"`
	Name              string `json:"name,omitempty"`
	Username          string `json:"username,omitempty"`
	ProfilePictureURL string `json:"profile_picture_url,omitempty"`
}

// Participant is one side of a conversation.
type Participant struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
}

// Conversation is a two-party thread annotated with which participant is
// the counterparty. Threads with any other participant count are filtered
// out by the client and never reach callers.
type Conversation struct {
	ID               string        `json:"id"`
	UpdatedTime      string        `json:"updatedTime,omitempty"`
	Participants     []Participant `json:"participants"`
	OtherParticipant *Participant  `json:"otherParticipant,omitempty"`
}

// Message is a single remote message projected for API consumers.
type Message struct {
	ID          string      `json:"id"`
	CreatedTime string      `json:"createdTime"`
	From        Participant `json:"from"`
	Text        string      `json:"message,omitempty"`
}

// Paging is the safe pagination descriptor exposed to callers: cursor
// tokens and a more-available flag only. The Graph API's raw next/previous
// URLs embed the access token and must never leave this package.
type Paging struct {
	HasMore bool   `json:"hasMore"`
	Before  string `json:"before,omitempty"`
	After   string `json:"after,omitempty"`
}

// PaginatedMessages is one page of a conversation's messages, newest first
// as the Graph API returns them.
type PaginatedMessages struct {
	Messages []Message
	Paging   Paging
}

// Graph API wire shapes. These stay internal to the adapter.

type igPaging struct {
	Cursors struct {
		Before string `json:"before"`
		After  string `json:"after"`
	} `json:"cursors"`
	Next     string `json:"next"`
	Previous string `json:"previous"`
}

type igConversation struct {
	ID           string `json:"id"`
	UpdatedTime  string `json:"updated_time"`
	Participants struct {
		Data []Participant `json:"data"`
	} `json:"participants"`
}

type igConversationList struct {
	Data   []igConversation `json:"data"`
	Paging *igPaging        `json:"paging"`
}

type igMessage struct {
	ID          string      `json:"id"`
	CreatedTime string      `json:"created_time"`
	From        Participant `json:"from"`
	Message     string      `json:"message"`
}

type igMessageList struct {
	Data   []igMessage `json:"data"`
	Paging *igPaging   `json:"paging"`
}
