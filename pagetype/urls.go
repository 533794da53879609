package pagetype

import (
	"net/url"
	"strings"
)

var homeURLs = map[Platform]string{
	LinkedIn: "https://www.linkedin.com/feed/",
	Reddit:   "https://www.reddit.com/",
	X:        "https://x.com/home",
	Facebook: "https://www.facebook.com/",
	Fiverr:   "https://www.fiverr.com/",
	Upwork:   "https://www.upwork.com/nx/find-work/",
}

// HomeURL is the page opened when a sync is handed off to a new page.
func HomeURL(p Platform) string {
	return homeURLs[p]
}

// SearchURL builds the listing URL searched for keyword. community narrows
// the search where the platform supports it (a subreddit for reddit).
func SearchURL(p Platform, keyword, community string) string {
	q := url.QueryEscape(keyword)
	switch p {
	case LinkedIn:
		return "https://www.linkedin.com/search/results/content/?keywords=" + q + "&sortBy=%22date_posted%22"
	case Reddit:
		if sub := strings.TrimPrefix(strings.TrimSpace(community), "r/"); sub != "" {
			return "https://www.reddit.com/r/" + url.PathEscape(sub) + "/search/?q=" + q + "&restrict_sr=1&sort=new"
		}
		return "https://www.reddit.com/search/?q=" + q + "&sort=new"
	case X:
		return "https://x.com/search?q=" + q + "&f=live"
	case Facebook:
		return "https://www.facebook.com/search/posts/?q=" + q
	case Fiverr:
		return "https://www.fiverr.com/search/gigs?query=" + q
	case Upwork:
		return "https://www.upwork.com/nx/search/jobs/?q=" + q + "&sort=recency"
	}
	return ""
}
