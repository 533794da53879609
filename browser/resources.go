package browser

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// blockedTypes maps the config names (images, fonts, media, stylesheets,
// or their singulars) to CDP resource types. Unknown names are ignored.
func blockedTypes(types []string) map[proto.NetworkResourceType]bool {
	blocked := make(map[proto.NetworkResourceType]bool, len(types))
	for _, t := range types {
		switch strings.ToLower(t) {
		case "images", "image":
			blocked[proto.NetworkResourceTypeImage] = true
		case "fonts", "font":
			blocked[proto.NetworkResourceTypeFont] = true
		case "media":
			blocked[proto.NetworkResourceTypeMedia] = true
		case "stylesheets", "stylesheet":
			blocked[proto.NetworkResourceTypeStylesheet] = true
		}
	}
	return blocked
}

// blockResourceTypes fails requests of the listed resource types on page.
func blockResourceTypes(page *rod.Page, types []string) {
	blocked := blockedTypes(types)
	router := page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		if blocked[h.Request.Type()] {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
}
