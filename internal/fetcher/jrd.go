package fetcher

// JRD is a JSON Resource Descriptor, the document type both WebFinger
// (/.well-known/webfinger) and reverse WebFinger discovery return.
type JRD struct {
	Subject string     `json:"subject"`
	Aliases []string   `json:"aliases,omitempty"`
	Links   []JRDLink  `json:"links"`
}

// JRDLink is one entry of a JRD's "links" array.
type JRDLink struct {
	Rel      string `json:"rel"`
	Type     string `json:"type,omitempty"`
	Href     string `json:"href,omitempty"`
	Template string `json:"template,omitempty"`
}

// ActorLink returns the href of the JRD's "self" link with an
// ActivityPub-compatible media type, the actor id WebFinger resolution
// ultimately wants.
func (j JRD) ActorLink() (string, bool) {
	for _, link := range j.Links {
		if link.Rel == "self" && isAPMediaType(link.Type) {
			return link.Href, true
		}
	}
	return "", false
}

func isAPMediaType(mediaType string) bool {
	switch mediaType {
	case "application/activity+json",
		`application/ld+json; profile="https://www.w3.org/ns/activitystreams"`:
		return true
	default:
		return false
	}
}
