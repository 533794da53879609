// Package pagetype classifies third-party page URLs into a platform and a
// page type, and derives best-effort platform identifiers from them.
//
// Classification is total: any input, including garbage, yields a
// well-formed PageInfo. An unknown page carries the empty platform and the
// empty (null) page type.
package pagetype

import (
	"encoding/json"
	"net/url"
	"strings"
)

// Platform is a supported external site.
type Platform string

const (
	None     Platform = ""
	LinkedIn Platform = "linkedin"
	Reddit   Platform = "reddit"
	Facebook Platform = "facebook"
	X        Platform = "x"
	Fiverr   Platform = "fiverr"
	Upwork   Platform = "upwork"
)

// Platforms lists every non-empty platform.
var Platforms = []Platform{LinkedIn, Reddit, Facebook, X, Fiverr, Upwork}

// Valid reports whether p is a known non-empty platform.
func (p Platform) Valid() bool {
	for _, k := range Platforms {
		if p == k {
			return true
		}
	}
	return false
}

// PageType is the structural category of a page. The zero value is null.
type PageType string

const (
	Unknown    PageType = ""
	SearchList PageType = "search_list"
	PostPage   PageType = "post_page"
	Profile    PageType = "profile"
	Group      PageType = "group"
	PersonFeed PageType = "person_feed"
	Messaging  PageType = "messaging"
)

// PageTypes lists every non-null page type.
var PageTypes = []PageType{SearchList, PostPage, Profile, Group, PersonFeed, Messaging}

// Valid reports whether t is a known non-null page type.
func (t PageType) Valid() bool {
	for _, k := range PageTypes {
		if t == k {
			return true
		}
	}
	return false
}

// MarshalJSON encodes the null page type as JSON null.
func (t PageType) MarshalJSON() ([]byte, error) {
	if t == Unknown {
		return []byte("null"), nil
	}
	return json.Marshal(string(t))
}

var labels = map[PageType]string{
	SearchList: "Search List",
	PostPage:   "Post Page",
	Profile:    "Profile",
	Group:      "Group",
	PersonFeed: "Person Feed",
	Messaging:  "Messaging",
}

// Label returns the display name of t, or "" for the null type.
func Label(t PageType) string {
	return labels[t]
}

// PageInfo is the classification of one URL.
// Type is non-null iff Platform is non-empty.
type PageInfo struct {
	Platform Platform `json:"platform"`
	Type     PageType `json:"type"`
	URL      string   `json:"url"`
}

// Supported reports whether the page was recognised.
func (p PageInfo) Supported() bool {
	return p.Platform != None && p.Type != Unknown
}

var hosts = []struct {
	domain   string
	platform Platform
}{
	{"linkedin.com", LinkedIn},
	{"reddit.com", Reddit},
	{"facebook.com", Facebook},
	{"fb.com", Facebook},
	{"x.com", X},
	{"twitter.com", X},
	{"fiverr.com", Fiverr},
	{"upwork.com", Upwork},
}

// PlatformForHost returns the platform owning hostname, or None.
func PlatformForHost(hostname string) Platform {
	h := strings.TrimSuffix(strings.ToLower(hostname), ".")
	for _, e := range hosts {
		if h == e.domain || strings.HasSuffix(h, "."+e.domain) {
			return e.platform
		}
	}
	return None
}

// Classify maps a URL to its platform and page type.
func Classify(rawURL string) PageInfo {
	info := PageInfo{URL: rawURL}

	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Hostname() == "" {
		return info
	}
	platform := PlatformForHost(u.Hostname())
	if platform == None {
		return info
	}

	target := u.EscapedPath()
	if target == "" {
		target = "/"
	}
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}

	for _, r := range rules[platform] {
		if r.match(target) {
			info.Platform = platform
			info.Type = r.typ
			return info
		}
	}
	return info
}

// PlatformOf returns just the platform of rawURL.
func PlatformOf(rawURL string) Platform {
	return Classify(rawURL).Platform
}
