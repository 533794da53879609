package pagetype

import (
	"fmt"
	"regexp"
	"time"
)

var idPatterns = map[Platform]map[PageType][]*regexp.Regexp{
	LinkedIn: {
		Profile:    {regexp.MustCompile(`/in/([\w%-]+)`)},
		PersonFeed: {regexp.MustCompile(`/in/([\w%-]+)`)},
		PostPage:   {regexp.MustCompile(`activity[-:](\d+)`), regexp.MustCompile(`/posts/([\w%-]+)`)},
		Group:      {regexp.MustCompile(`/groups/([\w-]+)`)},
	},
	Reddit: {
		Profile:    {regexp.MustCompile(`/u(?:ser)?/([\w-]+)`)},
		PostPage:   {regexp.MustCompile(`/comments/([\w-]+)`)},
		SearchList: {regexp.MustCompile(`/r/([\w-]+)`)},
		Group:      {regexp.MustCompile(`/r/([\w-]+)`)},
	},
	Facebook: {
		Profile:  {regexp.MustCompile(`[?&]id=(\d+)`), regexp.MustCompile(`facebook\.com/(?:people/)?([\w.-]+)`)},
		PostPage: {regexp.MustCompile(`/posts/(\w+)`), regexp.MustCompile(`fbid=(\d+)`), regexp.MustCompile(`/permalink/(\d+)`)},
		Group:    {regexp.MustCompile(`/groups/([\w.-]+)`)},
	},
	X: {
		PostPage: {regexp.MustCompile(`/status/(\d+)`)},
		Profile:  {regexp.MustCompile(`(?:x|twitter)\.com/(\w+)`)},
		Group:    {regexp.MustCompile(`/communities/(\d+)`)},
	},
	Fiverr: {
		PostPage: {regexp.MustCompile(`/gigs?/([\w-]+)`), regexp.MustCompile(`fiverr\.com/[\w-]+/([\w-]+)`)},
		Profile:  {regexp.MustCompile(`fiverr\.com/([\w-]+)`)},
	},
	Upwork: {
		PostPage: {regexp.MustCompile(`(~[\w]+)`), regexp.MustCompile(`/jobs?/([\w-]+)`)},
		Profile:  {regexp.MustCompile(`(~[\w]+)`), regexp.MustCompile(`/freelancers/([\w-]+)`)},
	},
}

// ExtractPlatformID derives a stable identifier (handle, post id, group
// slug) from rawURL. It never fails: listings get a "search_" or "feed_"
// id and anything unmatched gets "manual_", each suffixed with the current
// Unix time in milliseconds.
func ExtractPlatformID(rawURL string, platform Platform, t PageType) string {
	return extractPlatformID(rawURL, platform, t, time.Now)
}

// MatchPlatformID is ExtractPlatformID without the synthetic fallback: ok
// is false when no id pattern of (platform, t) matches rawURL.
func MatchPlatformID(rawURL string, platform Platform, t PageType) (string, bool) {
	for _, re := range idPatterns[platform][t] {
		if m := re.FindStringSubmatch(rawURL); len(m) > 1 && m[1] != "" {
			return m[1], true
		}
	}
	return "", false
}

func extractPlatformID(rawURL string, platform Platform, t PageType, now func() time.Time) string {
	if id, ok := MatchPlatformID(rawURL, platform, t); ok {
		return id
	}

	ts := now().UnixMilli()
	switch {
	case platform == LinkedIn && (t == SearchList || t == PersonFeed):
		return fmt.Sprintf("feed_%d", ts)
	case t == SearchList:
		return fmt.Sprintf("search_%d", ts)
	}
	return fmt.Sprintf("manual_%d", ts)
}
