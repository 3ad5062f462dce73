package format

import "regexp"

var mdRe = regexp.MustCompile("([_*`\\[\\]])")

// MD escapes text for legacy Markdown, the parse mode used by bot replies.
func MD(text string) string {
	return mdRe.ReplaceAllString(text, `\$1`)
}
