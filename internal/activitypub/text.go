package activitypub

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Post content limits, mirroring the bounds a complete federation core
// enforces on local and remote content before it is stored or signed.
const (
	AttachmentLimit = 15
	MentionLimit    = 50
	HashtagLimit    = 100
	LinkLimit       = 10
	EmojiLimit      = 50
	ContentMaxSize  = 100000
)

// HTMLToText strips markup from h, preserving paragraph/line breaks as
// blank lines and dropping script/style content entirely.
func HTMLToText(h string) string {
	z := html.NewTokenizer(strings.NewReader(h))
	var sb strings.Builder
	skipContent := false
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		switch tt {
		case html.TextToken:
			if !skipContent {
				sb.WriteString(html.UnescapeString(string(z.Raw())))
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style":
				skipContent = true
			case "p", "div", "blockquote", "li":
				sb.WriteString("\n\n")
			case "br":
				sb.WriteString("\n")
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style":
				skipContent = false
			case "p", "div", "blockquote", "li":
				sb.WriteString("\n\n")
			}
		}
	}
	text := sb.String()
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(text)
}

// hashtagRe matches a "#tag" token: a hash followed by one or more letters,
// digits, or underscores, with no length cap beyond the overall
// HashtagLimit on distinct tags per post.
var hashtagRe = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)

// ExtractHashtags returns the distinct, lowercased hashtags present in
// plain-text content, capped at HashtagLimit entries in first-seen order.
func ExtractHashtags(text string) []string {
	return collectHashtags(hashtagRe.FindAllStringSubmatch(text, -1))
}

// ExtractHashtagsFromHTML walks raw HTML content and returns the distinct
// hashtags found in its text, ignoring anything inside <code>/<pre> blocks
// (a tag written as literal markup, e.g. in a code sample, is not a tag).
func ExtractHashtagsFromHTML(h string) []string {
	z := html.NewTokenizer(strings.NewReader(h))
	codeDepth := 0
	var matches [][]string
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		switch tt {
		case html.TextToken:
			if codeDepth == 0 {
				matches = append(matches, hashtagRe.FindAllStringSubmatch(html.UnescapeString(string(z.Raw())), -1)...)
			}
		case html.StartTagToken:
			name, _ := z.TagName()
			if string(name) == "code" || string(name) == "pre" {
				codeDepth++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if (string(name) == "code" || string(name) == "pre") && codeDepth > 0 {
				codeDepth--
			}
		}
	}
	return collectHashtags(matches)
}

func collectHashtags(matches [][]string) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, m := range matches {
		tag := strings.ToLower(m[1])
		if seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
		if len(tags) >= HashtagLimit {
			break
		}
	}
	return tags
}
