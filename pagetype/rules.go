package pagetype

import "regexp"

// rule tests the escaped path plus query of a URL.
type rule struct {
	typ PageType
	re  *regexp.Regexp
	not *regexp.Regexp
}

func (r rule) match(target string) bool {
	if !r.re.MatchString(target) {
		return false
	}
	return r.not == nil || !r.not.MatchString(target)
}

func on(t PageType, pattern string) rule {
	return rule{typ: t, re: regexp.MustCompile(pattern)}
}

func (r rule) except(pattern string) rule {
	r.not = regexp.MustCompile(pattern)
	return r
}

// Per-platform predicates, most specific first. Post permalinks always come
// before profile and listing patterns.
var rules = map[Platform][]rule{
	LinkedIn: {
		on(PostPage, `^/(posts|feed/update)/`),
		on(PostPage, `^/in/[^/]+/(posts|detail/activity)/[^/?]+`).except(`/recent-activity`),
		on(Messaging, `^/messaging(/|$|\?)`),
		on(Group, `^/groups/`),
		on(PersonFeed, `^/in/[^/]+/recent-activity`),
		on(Profile, `^/in/[^/?]+`),
		on(SearchList, `^/(search/results/|feed(/|$|\?))`),
	},
	Reddit: {
		on(PostPage, `^/r/[\w-]+/comments/[\w-]+`),
		on(PostPage, `^/comments/[\w-]+`),
		on(PostPage, `^/(user|u)/[\w-]+/comments/[\w-]+`),
		on(Messaging, `^/(message|chat)(/|$|\?)`),
		on(Profile, `^/(user|u)/[\w-]+/?($|\?)`),
		on(SearchList, `^/r/[\w-]+`),
		on(SearchList, `^/search(/|$|\?)`),
	},
	Facebook: {
		on(PostPage, `/(posts|permalink)/`).except(`^/search/`),
		on(PostPage, `^/(photo|story)\.php`),
		on(PostPage, `[?&]fbid=\d+`),
		on(Messaging, `^/messages(/|$|\?)`),
		on(Group, `^/groups/`),
		on(SearchList, `^/search/`),
		on(SearchList, `[?&]sk=h_chr`),
		on(Profile, `^/profile\.php\?(.*&)?id=\d+`),
		on(Profile, `^/people/[\w.%-]+`),
		on(Profile, `^/[\w.]+/?($|\?)`),
	},
	X: {
		on(PostPage, `^/\w+/status/\d+`),
		on(Messaging, `^/messages(/|$|\?)`),
		on(Group, `^/i/communities/\d+`),
		on(SearchList, `^/(search|home|explore)(/|$|\?)`),
		on(PersonFeed, `^/\w+/(with_replies|media)/?($|\?)`),
		on(Profile, `^/\w+/?($|\?)`).except(`^/(i|settings|notifications|compose)(/|$|\?)`),
	},
	Fiverr: {
		on(PostPage, `/gigs?/[\w-]+`),
		on(SearchList, `^/(search/gigs|categories/)`),
		on(Messaging, `^/inbox(/|$|\?)`),
		on(PostPage, `^/[\w-]+/[\w-]+/?($|\?)`),
		on(Profile, `^/[\w-]+/?($|\?)`),
	},
	Upwork: {
		on(PostPage, `/jobs/([\w-]*_)?~[\w]+`),
		on(SearchList, `^/(nx/search/jobs|jobs/search|nx/find-work)`),
		on(PostPage, `^/jobs/[\w-]+`),
		on(Messaging, `^/(ab/)?messages(/|$|\?)`),
		on(Profile, `^/freelancers/`),
		on(Profile, `/~[\w]+`),
	},
}
