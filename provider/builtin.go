package provider

// Builtins returns fresh copies of the bundled profiles.
func Builtins() []*Profile {
	return []*Profile{
		{
			Name:        "dramacool",
			Domains:     []string{"https://dramacool.com.tr", "https://dramacool.sr"},
			ContentType: "drama",
			Pagination:  "{base}/most-popular-drama?page={page}",
			Strategies: []Selectors{
				{Item: "ul.list-episode-item li", Title: "h3.title", Image: "img", Link: "a", Year: "span.year"},
				{Item: ".block .tab-content ul li", Title: ".title", Image: "img", Link: "a"},
			},
			Stream: StreamPolicy{ExpiryHours: 6, ReferrerPolicy: "origin"},
		},
		{
			Name:        "mydramalist",
			Domains:     []string{"https://mydramalist.com"},
			ContentType: "drama",
			Pagination:  "{base}/shows/top?page={page}",
			Strategies: []Selectors{
				{Item: "div.box[id^=mdl-]", Title: "h6.title a", Image: "img.cover", Link: "h6.title a", Rating: ".score", Year: ".text-muted"},
			},
		},
		{
			Name:            "kissasian",
			Domains:         []string{"https://kissasian.video", "https://kissasian.lu"},
			RequiresBrowser: true,
			ContentType:     "drama",
			Pagination:      "{base}/DramaList?page={page}",
			WaitSelector:    ".item-list .item",
			Scroll:          true,
			Strategies: []Selectors{
				{Item: ".item-list .item", Title: ".title", Image: "img", Link: "a"},
			},
			Stream: StreamPolicy{ExpiryHours: 12, ReferrerPolicy: "strict-origin-when-cross-origin", Referer: "https://kissasian.video/"},
		},
		{
			Name:        "asianc",
			Domains:     []string{"https://asianc.co"},
			ContentType: "movie",
			Pagination:  "{base}/recently-added-movie?page={page}",
			FirstPage:   "{base}/recently-added-movie",
			Strategies: []Selectors{
				{Item: "ul.items li", Title: ".name", Image: "img", Link: "a", Rating: ".rating"},
			},
			Stream: StreamPolicy{ReferrerPolicy: "no-referrer"},
		},
	}
}
