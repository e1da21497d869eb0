package catalog

// Default returns the built-in council catalog.
//
// Ordering notes: "bin collection" and "garden waste" sit before "bin";
// "parking fine" and "pcn" sit before "parking". Keep it that way when
// adding entries.
func Default() *Catalog {
	c, err := New(defaultEntries(), defaultFallback())
	if err != nil {
		panic("catalog: built-in table is invalid: " + err.Error())
	}
	return c
}

func defaultFallback() Entry {
	return Entry{
		Text: "I can help you find council services. The most common things people ask about are: bin collection days, council tax, jobs, school term dates, planning applications, and road repairs. What do you need?",
		Link: &Link{Href: "/all-services/", Label: "Browse all services A–Z"},
	}
}

func defaultEntries() []Entry {
	return []Entry{
		{
			Trigger: "bin collection",
			Text:    "Enter your postcode to find your exact collection day for general waste, recycling, and food waste. Collection days vary by street.",
			Link:    &Link{Href: "/bins-and-recycling/bin-collection-days/", Label: "Check my bin collection day"},
		},
		{
			Trigger: "garden waste",
			Text:    "You can subscribe to or manage your garden waste collection online. If you're having trouble with your account or payment, our support team can help.",
			Link:    &Link{Href: "/bins-and-recycling/garden-waste/", Label: "Manage garden waste subscription"},
		},
		{
			Trigger: "bin",
			Text:    "Enter your postcode to check your bin collection days. We collect general waste, recycling, and food waste — usually on different days.",
			Link:    &Link{Href: "/bins-and-recycling/bin-collection-days/", Label: "Check your collection day"},
		},
		{
			Trigger: "recycling",
			Text:    "Find out what goes in each bin and when your recycling is collected by entering your postcode.",
			Link:    &Link{Href: "/bins-and-recycling/", Label: "Bins & recycling"},
		},
		{
			Trigger: "council tax",
			Text:    "To pay your council tax online you'll need your account reference number (on your bill). You can pay by Direct Debit, card, or set up a standing order. If you're having trouble logging in, use the account recovery link on the sign-in page.",
			Link:    &Link{Href: "/council-tax/pay/", Label: "Pay council tax"},
		},
		{
			Trigger: "job",
			Text:    "We have a wide range of roles across the council — from social care and education to IT and planning. Search current vacancies on our jobs portal.",
			Link:    &Link{Href: "/jobs/", Label: "Search council jobs"},
		},
		{
			Trigger: "vacanc",
			Text:    "Browse all current vacancies at Buckinghamshire Council, including full-time, part-time, and temporary roles.",
			Link:    &Link{Href: "/jobs/", Label: "Search council jobs"},
		},
		{
			Trigger: "term",
			Text:    "School term dates for Buckinghamshire are set countywide. Most schools follow these dates, but some academies may differ — always check with the school directly.",
			Link:    &Link{Href: "/schools-and-learning/term-dates/", Label: "View all term dates"},
		},
		{
			Trigger: "school",
			Text:    "You can apply for a primary or secondary school place online. Applications for September 2026 are open — check the closing date on the admissions page.",
			Link:    &Link{Href: "/schools-and-learning/apply-for-school/", Label: "Apply for a school place"},
		},
		{
			Trigger: "planning",
			Text:    "You can search planning applications by address or postcode. If you're having trouble finding an application, try searching just the postcode rather than the full address.",
			Link:    &Link{Href: "/planning/search-applications/", Label: "Search planning applications"},
		},
		{
			Trigger: "roadwork",
			Text:    "You can check planned roadworks and closures by entering your road name or postcode. For road defects, use the report a pothole tool.",
			Link:    &Link{Href: "/roads-and-transport/roadworks/", Label: "Check roadworks"},
		},
		{
			Trigger: "pothole",
			Text:    "Report a pothole or road defect using our online form — you'll need the road name and a rough location. We aim to repair safety-critical potholes within 24 hours.",
			Link:    &Link{Href: "/roads-and-transport/report-pothole/", Label: "Report a pothole"},
		},
		{
			Trigger: "parking fine",
			Text:    "To pay or appeal a penalty charge notice (PCN), you'll need the web code printed on your PCN letter. Enter it on our parking fines page.",
			Link:    &Link{Href: "/roads-and-transport/parking/pay-parking-fine/", Label: "Pay or appeal a parking fine"},
		},
		{
			Trigger: "pcn",
			Text:    "To pay or appeal a PCN, find the web code on your notice and enter it on our parking fines page.",
			Link:    &Link{Href: "/roads-and-transport/parking/pay-parking-fine/", Label: "Pay or appeal a parking fine"},
		},
		{
			Trigger: "parking",
			Text:    "We can help with parking permits, paying fines (PCN), or appealing a penalty charge notice. What do you need?",
			Link:    &Link{Href: "/roads-and-transport/parking/", Label: "Parking information"},
		},
		{
			Trigger: "blue badge",
			Text:    "Blue Badges help people with disabilities park closer to their destination. You can apply or renew online — the process takes about 20 minutes.",
			Link:    &Link{Href: "/transport-and-roads/blue-badges/", Label: "Apply for a Blue Badge"},
		},
	}
}
