package store

// FollowRequest mirrors the lifecycle in spec.md §3: created on inbound
// Follow, transitions to Accepted on Accept(Follow) or manual approval, and
// can be marked Undone by an Undo(Follow).
type FollowRequest struct {
	ActivityID string
	Source     string
	Target     string
	Status     FollowStatus
}

// FollowStatus is the FollowRequest.Status enum.
type FollowStatus string

const (
	FollowPending  FollowStatus = "pending"
	FollowAccepted FollowStatus = "accepted"
	FollowUndone   FollowStatus = "undone"
)

// Reaction is a Like/Dislike/EmojiReact side effect, keyed by the inbound
// activity id for idempotence.
type Reaction struct {
	ActivityID string
	Author     string
	PostID     string
	Content    string
	EmojiName  string
}

// Repost is an Announce side effect.
type Repost struct {
	ActivityID string
	Announcer  string
	ObjectID   string
}

// Invoice is a FEP-0837 payment agreement; Status follows the transition
// table in spec.md §4.10.
type Invoice struct {
	ID             string
	Sender         string
	Recipient      string
	ChainID        string
	PaymentAddress string
	Amount         int64
	Status         InvoiceStatus
	AgreementID    string
	PayoutTxID     string
}

// InvoiceStatus is the Invoice.Status enum.
type InvoiceStatus string

const (
	InvoiceRequested InvoiceStatus = "requested"
	InvoiceOpen      InvoiceStatus = "open"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceForwarded InvoiceStatus = "forwarded"
	InvoiceTimeout   InvoiceStatus = "timeout"
	InvoiceCancelled InvoiceStatus = "cancelled"
	InvoiceUnderpaid InvoiceStatus = "underpaid"
	InvoiceCompleted InvoiceStatus = "completed"
	InvoiceFailed    InvoiceStatus = "failed"
)

// FilterRule is an ordered-by-specificity block/reject entry keyed by actor
// id or host.
type FilterRule struct {
	ID          string
	Target      string
	IsReject    bool
	Specificity int
}

// Notification records a side effect described qualitatively in spec.md
// §4.7 ("creates a follow request notification", "emit a move notification")
// as a typed, queryable row.
type Notification struct {
	ID        string
	Recipient string
	EventType NotificationType
	Payload   string // JSON
	CreatedAt string
	Read      bool
}

// NotificationType enumerates the side effects the handler dispatch table emits.
type NotificationType string

const (
	NotificationFollowRequest NotificationType = "follow_request"
	NotificationFollowAccept NotificationType = "follow_accept"
	NotificationFollowReject NotificationType = "follow_reject"
	NotificationMove         NotificationType = "move"
	NotificationMention      NotificationType = "mention"
	NotificationReply        NotificationType = "reply"
	NotificationReaction     NotificationType = "reaction"
	NotificationSubscription NotificationType = "subscription"
)

// DeliveryJob is one outbound delivery, keyed by (inbox, activity id) for
// idempotence per spec.md §4.9 step 3.
type DeliveryJob struct {
	ID         string
	Inbox      string
	ActivityID string
	Payload    []byte
	SenderKey  string
	Attempts   int
	Status     DeliveryJobStatus
	NotBefore  string
}

// DeliveryJobStatus is the DeliveryJob.Status enum.
type DeliveryJobStatus string

const (
	JobPending DeliveryJobStatus = "pending"
	JobDone    DeliveryJobStatus = "done"
	JobFailed  DeliveryJobStatus = "failed"
)

// ActorRecord is the stored projection of an Actor (local or remote).
type ActorRecord struct {
	ID            string
	IsLocal       bool
	Username      string
	Inbox         string
	SharedInbox   string
	FollowersURL  string
	PublicKeyPEM  string
	PublicKeyID   string
	AlsoKnownAs   string
	MovedTo       string
	ProfileJSON   string
}

// ObjectRecord is the stored projection of a Note/Article/Question/etc.
type ObjectRecord struct {
	ID           string
	ObjectType   string
	AttributedTo string
	InReplyTo    string
	ContentJSON  string
	Deleted      bool
}
