package activitypub

import (
	"reflect"
	"testing"
)

func TestExtractHashtagsFromHTMLExcludesCodeBlocks(t *testing.T) {
	got := ExtractHashtagsFromHTML("hello #AlphaBeta and <code>#ignored</code>")
	want := []string{"alphabeta"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExtractHashtagsFromHTML = %v, want %v", got, want)
	}
}

func TestExtractHashtagsDedupesCaseInsensitively(t *testing.T) {
	got := ExtractHashtags("#Go is great, #go is great, #GO too")
	want := []string{"go"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExtractHashtags = %v, want %v", got, want)
	}
}

func TestExtractHashtagsFromHTMLHandlesPreBlocks(t *testing.T) {
	got := ExtractHashtagsFromHTML("<p>#real</p><pre>#fake</pre>")
	want := []string{"real"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExtractHashtagsFromHTML = %v, want %v", got, want)
	}
}

func TestHTMLToTextStripsMarkupAndScripts(t *testing.T) {
	got := HTMLToText("<p>hello</p><script>evil()</script><p>world</p>")
	if got != "hello\n\nworld" {
		t.Fatalf("HTMLToText = %q, want %q", got, "hello\n\nworld")
	}
}
