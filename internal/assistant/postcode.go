package assistant

import (
	"fmt"

	"council-assistant-backend/internal/catalog"
)

const (
	askPostcodeTrigger = "postcode_request"
	scheduleTrigger    = "collection_schedule"
)

func askPostcodeEntry() catalog.Entry {
	return catalog.Entry{
		Trigger: askPostcodeTrigger,
		Text:    "I can look up your collection days. What's your postcode?",
	}
}

// scheduleEntry is a made-up schedule; the postcode is echoed as given and
// never validated.
func scheduleEntry(postcode string) catalog.Entry {
	text := fmt.Sprintf(
		"Here are the next collections for <strong>%s</strong>:<br><br>"+
			"General waste (black bin): Tuesday 3 March<br>"+
			"Recycling (blue bin): Tuesday 10 March<br>"+
			"Food waste (caddy): every Tuesday<br>"+
			"Garden waste (green bin): Friday 6 March",
		postcode,
	)
	return catalog.Entry{
		Trigger: scheduleTrigger,
		Text:    text,
		Link:    &catalog.Link{Href: "/bins-and-recycling/bin-collection-days/", Label: "See the full collection calendar"},
	}
}
