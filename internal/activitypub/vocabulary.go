package activitypub

// Activity type names this codebase dispatches on (§ handler table).
const (
	Follow     = "Follow"
	Accept     = "Accept"
	Reject     = "Reject"
	Announce   = "Announce"
	Create     = "Create"
	Delete     = "Delete"
	Like       = "Like"
	Dislike    = "Dislike"
	EmojiReact = "EmojiReact"
	Undo       = "Undo"
	Update     = "Update"
	Move       = "Move"
	Add        = "Add"
	Remove     = "Remove"
	Offer      = "Offer"
	Listen     = "Listen"

	Note       = "Note"
	Article    = "Article"
	Question   = "Question"
	Tombstone  = "Tombstone"
	Proposal   = "Proposal"
	Agreement  = "Agreement"
	Commitment = "Commitment"
	Person     = "Person"
	Service    = "Service"
	Application = "Application"
	Group      = "Group"
	Organization = "Organization"
)

// FollowRequestStatus enumerates the lifecycle of a Follow request.
type FollowRequestStatus string

const (
	FollowPending  FollowRequestStatus = "pending"
	FollowAccepted FollowRequestStatus = "accepted"
	FollowRejected FollowRequestStatus = "rejected"
)

// ProposalObject is the valueflows Proposal object a remote actor publishes to
// advertise a service they will deliver in exchange for payment.
type ProposalObject struct {
	Context           interface{}        `json:"@context"`
	ID                string             `json:"id"`
	Type              string             `json:"type"`
	AttributedTo      string             `json:"attributedTo"`
	Name              string             `json:"name,omitempty"`
	Published         string             `json:"published,omitempty"`
	PrimaryIntent     Intent             `json:"publishes"`
	ReciprocalIntent  Intent             `json:"publishedIn,omitempty"`
	Unlisted          bool               `json:"unlisted,omitempty"`
}

// Intent describes one side of a proposed exchange: what will be
// transferred and how much of it.
type Intent struct {
	ID               string `json:"id,omitempty"`
	Type             string `json:"type"`
	Action           string `json:"action"`
	ResourceConformsTo string `json:"resourceConformsTo,omitempty"`
}

// Commitment is one half of an Agreement: a concrete quantity that one
// party has committed to transfer.
type Commitment struct {
	ID               string           `json:"id"`
	Type             string           `json:"type"`
	Satisfies        string           `json:"satisfies"`
	ResourceQuantity ResourceQuantity `json:"resourceQuantity"`
}

// ResourceQuantity is a valueflows numeric quantity with its unit.
type ResourceQuantity struct {
	HasUnit           string `json:"hasUnit"`
	HasNumericalValue string `json:"hasNumericalValue"`
}

// AgreementObject is the result of an accepted Offer: two reciprocal commitments
// plus the payment address and invoice preview state.
type AgreementObject struct {
	Context              interface{} `json:"@context,omitempty"`
	ID                   string      `json:"id"`
	Type                 string      `json:"type"`
	AttributedTo         string      `json:"attributedTo"`
	Stipulates           Commitment  `json:"stipulates"`
	StipulatesReciprocal Commitment  `json:"stipulatesReciprocal"`
	URL                  *Link       `json:"url,omitempty"`
	Preview              *Preview    `json:"preview,omitempty"`
}

// Link is a generic AS2 Link object, used for the Agreement's payment URL.
type Link struct {
	Type string   `json:"type"`
	Href string   `json:"href"`
	Rel  []string `json:"rel,omitempty"`
}

// Preview reflects the current invoice status in the Agreement object
// ("Open", "Paid", "Completed", "Cancelled", ...).
type Preview struct {
	Type string `json:"type"`
	Name string `json:"name"`
}
